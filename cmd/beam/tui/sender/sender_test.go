package sender_test

import (
	"testing"

	"github.com/SpatiumPortae/beam/cmd/beam/config"
	"github.com/SpatiumPortae/beam/cmd/beam/tui/sender"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestReceiverCommand(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.SetDefault("relay", config.GetDefault().Relay)

	assert.Equal(t, "beam receive 1-aurora-beacon-comet", sender.ReceiverCommand("1-aurora-beacon-comet"))

	viper.Set("relay", "localhost:8080")
	assert.Equal(t, "beam receive 1-aurora-beacon-comet --relay localhost:8080", sender.ReceiverCommand("1-aurora-beacon-comet"))
}
