package portal

import (
	"time"

	"dario.cat/mergo"
	"github.com/SpatiumPortae/beam/internal/peer"
	"github.com/SpatiumPortae/beam/protocol/transfer"
)

// DefaultHangupTimeout bounds how long a sender waits for the receiver to close the channel.
const DefaultHangupTimeout = 10 * time.Second

var defaultConfig = Config{
	RendezvousAddr: "beam.spatiumportae.com",
	ChunkSize:      transfer.ChunkSize,
	ChannelTimeout: peer.DefaultTimeout,
	HangupTimeout:  DefaultHangupTimeout,
}

// Config holds the settings of a single send or receive. Zero fields fall
// back to the defaults.
type Config struct {
	RendezvousAddr string
	ICEServers     []string
	ChunkSize      int
	RelayOnly      bool
	ChannelTimeout time.Duration
	HangupTimeout  time.Duration
}

func (c Config) peer() peer.Config {
	return peer.Config{
		ICEServers: c.ICEServers,
		RelayOnly:  c.RelayOnly,
		Timeout:    c.ChannelTimeout,
	}
}

// MergeConfig overlays the non-zero fields of src onto dst.
func MergeConfig(dst Config, src *Config) Config {
	if src == nil {
		return dst
	}
	if err := mergo.Merge(&dst, *src, mergo.WithOverride); err != nil {
		// Both sides are the same struct type, Merge only fails on type mismatch.
		panic(err)
	}
	return dst
}
