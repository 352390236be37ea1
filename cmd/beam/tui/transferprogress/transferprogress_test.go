package transferprogress_test

import (
	"testing"

	"github.com/SpatiumPortae/beam/cmd/beam/tui"
	"github.com/SpatiumPortae/beam/cmd/beam/tui/transferprogress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestUpdate(t *testing.T) {
	m := transferprogress.New()
	m.PayloadSize = 1000

	t.Run("progress", func(t *testing.T) {
		model, _ := m.Update(tui.ProgressMsg(40))
		m = model.(transferprogress.Model)
		assert.Equal(t, 40, m.Percent())
		assert.False(t, m.Started().IsZero())
	})

	t.Run("clamped", func(t *testing.T) {
		model, _ := m.Update(tui.ProgressMsg(140))
		assert.Equal(t, 100, model.(transferprogress.Model).Percent())
	})

	t.Run("window size", func(t *testing.T) {
		model, _ := m.Update(tea.WindowSizeMsg{Width: 1000})
		assert.Equal(t, tui.MAX_WIDTH, model.(transferprogress.Model).Width)
	})
}
