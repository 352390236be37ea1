// Package transferprogress renders a progress bar with a throughput and time estimate.
package transferprogress

import (
	"fmt"
	"math"
	"time"

	"github.com/SpatiumPortae/beam/cmd/beam/tui"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

type Model struct {
	// PayloadSize is the size in bytes of the file being transferred.
	PayloadSize int64
	Width       int

	started   time.Time
	fraction  float64
	rate      int64 // bytes per second
	remaining time.Duration
	bar       progress.Model
}

func New() Model {
	return Model{bar: tui.Progressbar}
}

// Started returns when the first progress was reported.
func (m Model) Started() time.Time {
	return m.started
}

// Percent returns the percentage of the transfer that is done.
func (m Model) Percent() int {
	return int(math.Round(m.fraction * 100))
}

func (Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.ProgressMsg:
		m.observe(int(msg), time.Now())
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = min(msg.Width-2*tui.MARGIN-4, tui.MAX_WIDTH)
		m.bar.Width = m.Width
		return m, nil

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// observe records the reported percentage and extrapolates the rate
// and remaining time linearly from the elapsed time.
func (m *Model) observe(percent int, now time.Time) {
	if m.started.IsZero() {
		m.started = now
	}
	m.fraction = math.Min(1, math.Max(0, float64(percent)/100))
	elapsed := now.Sub(m.started)
	transferred := m.fraction * float64(m.PayloadSize)
	if transferred == 0 || elapsed <= 0 {
		return
	}
	m.rate = int64(transferred / elapsed.Seconds())
	m.remaining = time.Duration(float64(elapsed) * (float64(m.PayloadSize) - transferred) / transferred)
}

// Apply updates the model in place with msg.
func (m *Model) Apply(msg tea.Msg) tea.Cmd {
	next, cmd := m.Update(msg)
	*m = next.(Model)
	return cmd
}

func (m Model) View() string {
	bar := m.bar.ViewAs(m.fraction)
	if m.rate == 0 {
		return bar
	}
	estimate := fmt.Sprintf("%s/s, %s remaining", tui.ByteCountSI(m.rate), m.remaining.Round(time.Second))
	return bar + "\n\n" + tui.PadText + tui.HelpStyle(estimate)
}

// Summary describes the finished transfer.
func (m Model) Summary() string {
	return fmt.Sprintf("Transfer completed in %s with average transfer speed %s/s",
		time.Since(m.started).Round(time.Millisecond), tui.ByteCountSI(m.rate))
}
