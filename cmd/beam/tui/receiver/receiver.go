package receiver

import (
	"context"
	"errors"
	"fmt"

	"github.com/SpatiumPortae/beam/cmd/beam/tui"
	"github.com/SpatiumPortae/beam/cmd/beam/tui/transferprogress"
	"github.com/SpatiumPortae/beam/internal/file"
	"github.com/SpatiumPortae/beam/internal/portal"
	"github.com/SpatiumPortae/beam/internal/receiver"
	"github.com/SpatiumPortae/beam/internal/semver"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/erikgeiser/promptkit"
	"github.com/erikgeiser/promptkit/confirmation"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type stage int

const (
	establishing stage = iota
	receiving
	confirmingOverwrite
	done
)

// ------------------------------------------------------ Messages -----------------------------------------------------

type metadataMsg transfer.Metadata

type receivedMsg struct {
	file *receiver.File
}

// writtenMsg carries the path the file was written to.
type writtenMsg string

type skippedMsg struct{}

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

// WithDir sets the directory received files are written to, defaults to the working directory.
func WithDir(dir string) Option {
	return func(m *model) {
		m.dir = dir
	}
}

type model struct {
	ctx      context.Context
	password string
	config   portal.Config
	logger   *zap.Logger
	version  *semver.Version
	dir      string
	msgs     chan tea.Msg

	stage        stage
	transferType transfer.Type
	meta         transfer.Metadata
	received     *receiver.File
	writtenTo    string

	width    int
	spinner  spinner.Model
	progress transferprogress.Model
	prompt   confirmation.Model
	help     help.Model
	keys     tui.KeyMap
}

// New creates the program receiving the file behind password.
func New(password string, cfg portal.Config, opts ...Option) *tea.Program {
	m := model{
		ctx:      context.Background(),
		password: password,
		config:   cfg,
		logger:   zap.NewNop(),
		dir:      ".",
		msgs:     make(chan tea.Msg, 10),
		spinner:  tui.NewSpinner(tui.WaitingSpinner),
		progress: transferprogress.New(),
		prompt:   *confirmation.NewModel(confirmation.New("", confirmation.Undecided)),
		help:     help.New(),
		keys:     tui.Keys,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return tea.NewProgram(m)
}

func (m model) Init() tea.Cmd {
	return tea.Sequence(
		tui.VersionCmd(m.ctx, m.version, m.config.RendezvousAddr),
		tea.Batch(m.spinner.Tick, tui.ListenCmd(m.msgs), m.receiveCmd()),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.VersionMsg:
		return m, tui.VersionTaskCmd(*m.version, msg.ServerVersion)

	case tui.TransferTypeMsg:
		m.transferType = msg.Type
		return m, tui.TaskCmd(tui.TransferTypeText(msg.Type, "sender"), tui.ListenCmd(m.msgs))

	case metadataMsg:
		m.meta = transfer.Metadata(msg)
		m.progress.PayloadSize = m.meta.FileSize
		return m, tui.ListenCmd(m.msgs)

	case tui.ProgressMsg:
		cmds := []tea.Cmd{tui.ListenCmd(m.msgs), m.progress.Apply(msg)}
		if m.stage == establishing {
			m.stage = receiving
			m.spinner = tui.NewSpinner(tui.ReceivingSpinner)
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case receivedMsg:
		m.received = msg.file
		summary := m.progress.Summary()
		if !viper.GetBool("prompt_overwrite_files") || !file.Exists(m.dir, msg.file.Name) {
			return m, tui.TaskCmd(summary, writeCmd(m.dir, msg.file))
		}
		m.stage = confirmingOverwrite
		m.spinner = tui.NewSpinner(tui.WaitingSpinner)
		m.keys.SetOverwritePrompt(true)
		return m, tui.TaskCmd(summary, tea.Batch(m.spinner.Tick, m.askOverwrite(msg.file.Name)))

	case writtenMsg:
		m.stage = done
		m.writtenTo = string(msg)
		return m, tui.QuitCmd()

	case skippedMsg:
		m.stage = done
		return m, tui.TaskCmd(fmt.Sprintf("Skipped writing '%s'", m.received.Name), tui.QuitCmd())

	case tui.ErrorMsg:
		return m, tui.ErrorCmd(errors.New(msg.Error()))

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.prompt.MaxWidth = msg.Width - 2*tui.MARGIN - 4
		_, promptCmd := m.prompt.Update(msg)
		return m, tea.Batch(m.progress.Apply(msg), promptCmd)

	default:
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		_, promptCmd := m.prompt.Update(msg)
		return m, tea.Batch(spinnerCmd, promptCmd)
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	_, promptCmd := m.prompt.Update(msg)
	if m.stage != confirmingOverwrite {
		return m, nil
	}
	if msg.Type == tea.KeyLeft || msg.Type == tea.KeyRight {
		return m, promptCmd
	}
	if !key.Matches(msg, m.keys.OverwritePromptYes, m.keys.OverwritePromptNo, m.keys.OverwritePromptConfirm) {
		return m, nil
	}
	m.keys.SetOverwritePrompt(false)
	if overwrite, _ := m.prompt.Value(); overwrite {
		return m, writeCmd(m.dir, m.received)
	}
	return m, func() tea.Msg { return skippedMsg{} }
}

func (m model) View() string {
	switch m.stage {
	case establishing:
		return tui.Frame(m.width,
			tui.InfoStyle(m.spinner.View()+" Establishing connection with sender"),
			m.help.View(m.keys),
		)

	case receiving:
		status := fmt.Sprintf("%s Receiving %s (%s) using %s transfer",
			m.spinner.View(), m.meta.FileName, tui.BoldText(tui.ByteCountSI(m.meta.FileSize)), m.transferType)
		return tui.Frame(m.width, tui.InfoStyle(status), m.progress.View(), m.help.View(m.keys))

	case confirmingOverwrite:
		return tui.Frame(m.width,
			tui.InfoStyle(m.spinner.View()+" Waiting for file overwrite confirmation"),
			m.progress.View(),
			m.prompt.View(),
			m.help.View(m.keys),
		)

	case done:
		status := fmt.Sprintf("Received %s (%s)", m.received.Name, tui.ByteCountSI(int64(len(m.received.Bytes))))
		if m.writtenTo != "" {
			status += ", written to " + m.writtenTo
		}
		return tui.Frame(m.width, tui.InfoStyle(status), m.progress.View())
	}
	return ""
}

// ------------------------------------------------------ Commands -----------------------------------------------------

// receiveCmd runs the receive sequence, publishing intermediate events on m.msgs.
func (m model) receiveCmd() tea.Cmd {
	ctx, cfg, msgs := m.ctx, m.config, m.msgs
	return func() tea.Msg {
		f, err := portal.Receive(ctx, m.password, &cfg,
			portal.WithLogger(m.logger),
			portal.WithNegotiated(tui.PublishNegotiated(msgs)),
			portal.WithMetadata(func(meta transfer.Metadata) { msgs <- metadataMsg(meta) }),
			portal.WithProgress(tui.PublishProgress(msgs)),
		)
		if err != nil {
			return tui.ErrorMsg(err)
		}
		return receivedMsg{file: f}
	}
}

func writeCmd(dir string, f *receiver.File) tea.Cmd {
	return func() tea.Msg {
		path, err := file.Save(dir, f.Name, f.Bytes, true)
		if err != nil {
			return tui.ErrorMsg(err)
		}
		return writtenMsg(path)
	}
}

// askOverwrite replaces the prompt with a yes/no question about name.
func (m *model) askOverwrite(name string) tea.Cmd {
	c := confirmation.New(fmt.Sprintf("Overwrite file '%s'?", name), confirmation.Yes)
	c.Template, c.ResultTemplate = confirmation.TemplateYN, confirmation.ResultTemplateYN
	c.WrapMode = promptkit.HardWrap
	c.KeyMap.Abort, c.KeyMap.Toggle = nil, nil
	m.prompt = *confirmation.NewModel(c)
	m.prompt.MaxWidth = m.width
	return m.prompt.Init()
}
