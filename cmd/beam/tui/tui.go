// Package tui holds the building blocks shared by the sender and receiver programs.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SpatiumPortae/beam/internal/semver"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ------------------------------------------------------ Messages -----------------------------------------------------

type ErrorMsg error

// ProgressMsg carries the percentage of the transfer that is done.
type ProgressMsg int

type TransferTypeMsg struct {
	Type transfer.Type
}

type VersionMsg struct {
	ServerVersion semver.Version
}

// ------------------------------------------------------ Commands -----------------------------------------------------

// TaskCmd prints the task above the program and continues with cmd.
func TaskCmd(task string, cmd tea.Cmd) tea.Cmd {
	if task == "" {
		return cmd
	}
	return tea.Sequence(tea.Println(PadText+SuccessText("✓ ")+InfoStyle(task)), cmd)
}

// ErrorCmd prints the error above the program and quits.
func ErrorCmd(err error) tea.Cmd {
	return tea.Sequence(tea.Println(PadText+ErrorText("✗ "+err.Error())), QuitCmd())
}

// QuitCmd quits the program after a short delay, leaving the last view on screen.
func QuitCmd() tea.Cmd {
	return tea.Tick(SHUTDOWN_PERIOD, func(time.Time) tea.Msg {
		return tea.Quit()
	})
}

// VersionCmd fetches the version of the rendezvous server. Nothing is
// fetched when the client version is unknown.
func VersionCmd(ctx context.Context, client *semver.Version, addr string) tea.Cmd {
	if client == nil {
		return nil
	}
	return func() tea.Msg {
		ver, err := semver.GetRendezvousVersion(ctx, addr)
		if err != nil {
			return ErrorMsg(err)
		}
		return VersionMsg{ServerVersion: ver}
	}
}

// VersionTaskCmd reports the outcome of comparing client and server versions.
func VersionTaskCmd(client, server semver.Version) tea.Cmd {
	message, err := CompareVersions(client, server)
	if err != nil {
		return ErrorCmd(err)
	}
	return TaskCmd(message, nil)
}

// ListenCmd waits for the next message published by a running transfer.
func ListenCmd(msgs <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-msgs
	}
}

// PublishProgress returns a progress observer that publishes a ProgressMsg
// whenever the percentage changes.
func PublishProgress(msgs chan<- tea.Msg) func(transfer.Progress) {
	last := -1
	return func(p transfer.Progress) {
		if p.Percent == last {
			return
		}
		last = p.Percent
		msgs <- ProgressMsg(p.Percent)
	}
}

// PublishNegotiated returns an observer that publishes the negotiated transfer type.
func PublishNegotiated(msgs chan<- tea.Msg) func(transfer.Type) {
	return func(t transfer.Type) {
		msgs <- TransferTypeMsg{Type: t}
	}
}

// CompareVersions returns the message to display when the client and server versions are compared.
// An incompatible server is reported as an error.
func CompareVersions(client, server semver.Version) (string, error) {
	switch client.Compare(server) {
	case semver.CompareOldMajor:
		//lint:ignore ST1005 error string displayed in tui
		return "", fmt.Errorf("Beam version (%s) incompatible with server version (%s)", client, server)
	case semver.CompareNewMajor, semver.CompareNewMinor, semver.CompareNewPatch:
		return WarningText(fmt.Sprintf("Beam version (%s) newer than server version (%s)", client, server)), nil
	case semver.CompareOldMinor, semver.CompareOldPatch:
		return WarningText(fmt.Sprintf("Server version (%s) newer than Beam version (%s)", server, client)), nil
	default:
		return SuccessText(fmt.Sprintf("Beam version (%s) compatible with server version (%s)", client, server)), nil
	}
}

// ------------------------------------------------------ Keys ---------------------------------------------------------

type KeyMap struct {
	Quit                   key.Binding
	CopyPassword           key.Binding
	OverwritePromptYes     key.Binding
	OverwritePromptNo      key.Binding
	OverwritePromptConfirm key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Quit,
		k.CopyPassword,
		k.OverwritePromptYes,
		k.OverwritePromptNo,
		k.OverwritePromptConfirm,
	}
}

// SetOverwritePrompt toggles the bindings answering the overwrite prompt.
func (k *KeyMap) SetOverwritePrompt(enabled bool) {
	for _, b := range []*key.Binding{&k.OverwritePromptYes, &k.OverwritePromptNo, &k.OverwritePromptConfirm} {
		b.SetEnabled(enabled)
	}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var Keys = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("(q)", "quit"),
	),
	CopyPassword: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("(c)", CopyKeyHelpText),
		key.WithDisabled(),
	),
	OverwritePromptYes: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("(y)", "overwrite"),
		key.WithDisabled(),
	),
	OverwritePromptNo: key.NewBinding(
		key.WithKeys("n", "N"),
		key.WithHelp("(n)", "skip"),
		key.WithDisabled(),
	),
	OverwritePromptConfirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("(↵)", "confirm"),
		key.WithDisabled(),
	),
}

// TransferTypeText announces how the channel to the peer ("sender" or "receiver") was established.
func TransferTypeText(t transfer.Type, peer string) string {
	switch t {
	case transfer.Direct:
		return fmt.Sprintf("Using direct connection to %s", peer)
	case transfer.Relay:
		return fmt.Sprintf("Using relayed connection to %s", peer)
	default:
		return ""
	}
}

// ------------------------------------------------------ Views --------------------------------------------------------

// Frame renders blocks below a log separator, skipping empty ones.
func Frame(width int, blocks ...string) string {
	var b strings.Builder
	b.WriteString(PadText + LogSeparator(width))
	for _, block := range blocks {
		if block == "" {
			continue
		}
		b.WriteString(PadText + block + "\n\n")
	}
	return b.String()
}

// NewSpinner returns a spinner drawn in the element colour.
func NewSpinner(s spinner.Spinner) spinner.Model {
	return spinner.New(
		spinner.WithSpinner(s),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(ELEMENT_COLOR))),
	)
}
