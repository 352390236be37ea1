package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitAt(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	dir := filepath.Join(t.TempDir(), "beam")

	require.NoError(t, initAt(dir))
	b, err := os.ReadFile(filepath.Join(dir, "config.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "relay: beam.spatiumportae.com")
	assert.Equal(t, filepath.Join(dir, "config.yml"), viper.ConfigFileUsed())

	assert.Equal(t, GetDefault(), FromViper())
	assert.True(t, IsDefault("relay"))

	// The written file is read back on the next run.
	viper.Reset()
	require.NoError(t, initAt(dir))
	assert.Equal(t, GetDefault(), FromViper())
}
