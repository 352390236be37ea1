package tui_test

import (
	"strings"
	"testing"

	"github.com/SpatiumPortae/beam/cmd/beam/tui"
	"github.com/SpatiumPortae/beam/internal/semver"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteCountSI(t *testing.T) {
	for in, expected := range map[int64]string{
		0:             "0 B",
		999:           "999 B",
		1000:          "1.0 kB",
		1_500_000:     "1.5 MB",
		3_000_000_000: "3.0 GB",
	} {
		assert.Equal(t, expected, tui.ByteCountSI(in), in)
	}
}

func TestLogSeparator(t *testing.T) {
	assert.Equal(t, 10, strings.Count(tui.LogSeparator(10+2*tui.MARGIN), "─"))
	assert.Equal(t, tui.MAX_WIDTH, strings.Count(tui.LogSeparator(1000), "─"))
	assert.NotPanics(t, func() { tui.LogSeparator(0) })
}

func TestCompareVersions(t *testing.T) {
	parse := func(s string) semver.Version {
		v, err := semver.Parse(s)
		require.NoError(t, err)
		return v
	}
	client := parse("v1.2.0")

	_, err := tui.CompareVersions(client, parse("v2.0.0"))
	assert.Error(t, err)

	for _, server := range []string{"v1.2.0", "v1.3.0", "v1.1.9", "v0.9.0"} {
		msg, err := tui.CompareVersions(client, parse(server))
		assert.NoError(t, err, server)
		assert.Contains(t, msg, server)
	}
}

func TestPublishProgress(t *testing.T) {
	msgs := make(chan tea.Msg, 10)
	observe := tui.PublishProgress(msgs)
	for _, percent := range []int{0, 0, 10, 10, 10, 55, 100} {
		observe(transfer.Progress{Role: transfer.Sending, Percent: percent})
	}
	close(msgs)

	var got []tea.Msg
	for msg := range msgs {
		got = append(got, msg)
	}
	assert.Equal(t, []tea.Msg{tui.ProgressMsg(0), tui.ProgressMsg(10), tui.ProgressMsg(55), tui.ProgressMsg(100)}, got)
}

func TestListenCmd(t *testing.T) {
	msgs := make(chan tea.Msg, 1)
	tui.PublishNegotiated(msgs)(transfer.Relay)
	assert.Equal(t, tui.TransferTypeMsg{Type: transfer.Relay}, tui.ListenCmd(msgs)())
}

func TestFrame(t *testing.T) {
	view := tui.Frame(40, "status", "", "help")
	assert.Equal(t, 3, strings.Count(view, "\n\n"))
	assert.Less(t, strings.Index(view, "status"), strings.Index(view, "help"))
}

func TestKeyMapSetOverwritePrompt(t *testing.T) {
	keys := tui.Keys
	keys.SetOverwritePrompt(true)
	assert.True(t, keys.OverwritePromptYes.Enabled())
	assert.True(t, keys.OverwritePromptConfirm.Enabled())
	assert.False(t, tui.Keys.OverwritePromptYes.Enabled())

	keys.SetOverwritePrompt(false)
	assert.False(t, keys.OverwritePromptNo.Enabled())
}
