package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/SpatiumPortae/beam/cmd/beam/config"
	"github.com/SpatiumPortae/beam/cmd/beam/tui"
	"github.com/SpatiumPortae/beam/cmd/beam/tui/transferprogress"
	"github.com/SpatiumPortae/beam/internal/file"
	"github.com/SpatiumPortae/beam/internal/portal"
	"github.com/SpatiumPortae/beam/internal/semver"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/timer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type stage int

const (
	preparing stage = iota
	sending
	done
)

// ------------------------------------------------------ Messages -----------------------------------------------------

type openedMsg struct {
	src *file.Local
}

type registeredMsg struct {
	password string
	errC     <-chan error
}

type sentMsg struct{}

// ------------------------------------------------------- Model -------------------------------------------------------

type Option func(m *model)

func WithVersion(version semver.Version) Option {
	return func(m *model) {
		m.version = &version
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *model) {
		m.logger = logger
	}
}

type model struct {
	ctx     context.Context
	path    string
	config  portal.Config
	logger  *zap.Logger
	version *semver.Version
	msgs    chan tea.Msg

	stage        stage
	transferType transfer.Type
	src          *file.Local
	password     string

	width       int
	spinner     spinner.Model
	progress    transferprogress.Model
	help        help.Model
	keys        tui.KeyMap
	copiedTimer timer.Model
}

// New creates the program sending the file at path.
func New(path string, cfg portal.Config, opts ...Option) *tea.Program {
	m := model{
		ctx:         context.Background(),
		path:        path,
		config:      cfg,
		logger:      zap.NewNop(),
		msgs:        make(chan tea.Msg, 10),
		spinner:     tui.NewSpinner(tui.ReadingSpinner),
		progress:    transferprogress.New(),
		help:        help.New(),
		keys:        tui.Keys,
		copiedTimer: timer.NewWithInterval(tui.TEMP_UI_MESSAGE_DURATION, 100*time.Millisecond),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return tea.NewProgram(m)
}

func (m model) Init() tea.Cmd {
	return tea.Sequence(
		tui.VersionCmd(m.ctx, m.version, m.config.RendezvousAddr),
		tea.Batch(m.spinner.Tick, openCmd(m.path)),
	)
}

// ------------------------------------------------------- Update ------------------------------------------------------

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.VersionMsg:
		return m, tui.VersionTaskCmd(*m.version, msg.ServerVersion)

	case openedMsg:
		m.src = msg.src
		m.progress.PayloadSize = msg.src.Size()
		task := fmt.Sprintf("Read %s (%s)", msg.src.Name(), tui.ByteCountSI(msg.src.Size()))
		return m, tui.TaskCmd(task, m.registerCmd())

	case registeredMsg:
		m.password = msg.password
		m.keys.CopyPassword.SetEnabled(true)
		m.spinner = tui.NewSpinner(tui.WaitingSpinner)
		task := fmt.Sprintf("Connected to Beam server (%s)", m.config.RendezvousAddr)
		return m, tui.TaskCmd(task, tea.Batch(m.spinner.Tick, tui.ListenCmd(m.msgs), awaitCmd(msg.errC)))

	case timer.TickMsg, timer.TimeoutMsg:
		var cmd tea.Cmd
		m.copiedTimer, cmd = m.copiedTimer.Update(msg)
		helpText := tui.CopyKeyHelpText
		if _, tick := msg.(timer.TickMsg); tick && m.copiedTimer.Running() {
			helpText = tui.CopyKeyActiveHelpText
		}
		m.keys.CopyPassword.SetHelp(m.keys.CopyPassword.Help().Key, helpText)
		return m, cmd

	case tui.TransferTypeMsg:
		m.transferType = msg.Type
		m.keys.CopyPassword.SetEnabled(false)
		return m, tui.TaskCmd(tui.TransferTypeText(msg.Type, "receiver"), tui.ListenCmd(m.msgs))

	case tui.ProgressMsg:
		cmds := []tea.Cmd{tui.ListenCmd(m.msgs), m.progress.Apply(msg)}
		if m.stage == preparing {
			m.stage = sending
			m.spinner = tui.NewSpinner(tui.TransferSpinner)
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case sentMsg:
		m.stage = done
		m.src.Close()
		return m, tui.TaskCmd(m.progress.Summary(), tui.QuitCmd())

	case tui.ErrorMsg:
		return m, tui.ErrorCmd(errors.New(msg.Error()))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.CopyPassword):
			if err := clipboard.WriteAll(ReceiverCommand(m.password)); err != nil {
				return m, tui.ErrorCmd(errors.Wrap(err, "copying receive command to clipboard"))
			}
			m.copiedTimer.Timeout = tui.TEMP_UI_MESSAGE_DURATION
			return m, m.copiedTimer.Init()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, m.progress.Apply(msg)

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

// -------------------------------------------------------- View -------------------------------------------------------

func (m model) View() string {
	switch m.stage {
	case preparing:
		if m.password == "" {
			return tui.Frame(m.width, tui.InfoStyle(m.status("Reading file, preparing to send")), m.help.View(m.keys))
		}
		instructions := tui.InfoStyle("On the receiving end, run:") + "\n" +
			tui.PadText + tui.InfoStyle(ReceiverCommand(m.password))
		return tui.Frame(m.width,
			tui.InfoStyle(m.status("Awaiting receiver, ready to send")),
			instructions,
			m.help.View(m.keys),
		)

	case sending:
		return tui.Frame(m.width, tui.InfoStyle(m.status("Sending")), m.progress.View(), m.help.View(m.keys))

	case done:
		sent := fmt.Sprintf("Sent %s (%s)", m.src.Name(), tui.ByteCountSI(m.src.Size()))
		return tui.Frame(m.width, tui.InfoStyle(sent), m.progress.View())
	}
	return ""
}

// status prefixes activity with the spinner and describes the file and channel once known.
func (m model) status(activity string) string {
	s := m.spinner.View() + " " + activity
	if m.src != nil {
		s += fmt.Sprintf(" %s (%s)", m.src.Name(), tui.BoldText(tui.ByteCountSI(m.src.Size())))
	}
	if m.transferType != transfer.Unknown {
		s += fmt.Sprintf(" using %s transfer", m.transferType)
	}
	return s
}

// ------------------------------------------------------ Commands -----------------------------------------------------

func openCmd(path string) tea.Cmd {
	return func() tea.Msg {
		src, err := file.Open(path)
		if err != nil {
			return tui.ErrorMsg(err)
		}
		return openedMsg{src: src}
	}
}

// registerCmd connects to the rendezvous server and starts the send sequence,
// publishing intermediate events on m.msgs.
func (m model) registerCmd() tea.Cmd {
	ctx, cfg, msgs := m.ctx, m.config, m.msgs
	return func() tea.Msg {
		password, errC, err := portal.Send(ctx, m.src, &cfg,
			portal.WithLogger(m.logger),
			portal.WithNegotiated(tui.PublishNegotiated(msgs)),
			portal.WithProgress(tui.PublishProgress(msgs)),
		)
		if err != nil {
			return tui.ErrorMsg(err)
		}
		return registeredMsg{password: password, errC: errC}
	}
}

// awaitCmd waits for the send sequence to finish.
func awaitCmd(errC <-chan error) tea.Cmd {
	return func() tea.Msg {
		if err := <-errC; err != nil {
			return tui.ErrorMsg(err)
		}
		return sentMsg{}
	}
}

// ReceiverCommand returns the command the receiver runs to receive the file.
// The relay address is only included when it is not the default one.
func ReceiverCommand(password string) string {
	cmd := "beam receive " + password
	if !config.IsDefault("relay") {
		cmd += " --relay " + viper.GetString("relay")
	}
	return cmd
}
