package config_test

import (
	"testing"
	"time"

	"github.com/SpatiumPortae/beam/cmd/beam/config"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestYaml(t *testing.T) {
	var m map[string]any
	require.NoError(t, yaml.Unmarshal(config.GetDefault().Yaml(), &m))

	for _, key := range []string{
		"relay", "verbose", "prompt_overwrite_files", "relay_port", "tui_style",
		"ice_servers", "chunk_size", "relay_only", "channel_timeout",
	} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, "10s", m["channel_timeout"])
	assert.Equal(t, "rich", m["tui_style"])
}

func TestValidate(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		assert.NoError(t, config.GetDefault().Validate())
	})
	t.Run("invalid", func(t *testing.T) {
		cfg := config.GetDefault()
		cfg.TuiStyle = "fancy"
		cfg.ChunkSize = 0
		cfg.ChannelTimeout = -time.Second
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tui_style")
		assert.Contains(t, err.Error(), "chunk_size")
		assert.Contains(t, err.Error(), "channel_timeout")
	})
	t.Run("chunk size bounds", func(t *testing.T) {
		cfg := config.GetDefault()
		cfg.ChunkSize = transfer.MaxChunkSize
		assert.NoError(t, cfg.Validate())
		cfg.ChunkSize = 64 * 1024
		assert.ErrorContains(t, cfg.Validate(), "chunk_size")
	})
}
