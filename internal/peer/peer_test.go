package peer_test

import (
	"context"
	"testing"
	"time"

	"github.com/SpatiumPortae/beam/internal/conn"
	"github.com/SpatiumPortae/beam/internal/peer"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelNotReady(t *testing.T) {
	ctx := context.Background()
	ch, _, err := peer.Offer(ctx, peer.Config{})
	require.NoError(t, err)
	defer ch.Close()

	assert.False(t, ch.Open())
}

func TestNegotiate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping peer negotiation in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cfg := peer.Config{Timeout: 20 * time.Second}

	offerer, offer, err := peer.Offer(ctx, cfg)
	require.NoError(t, err)
	defer offerer.Close()

	answerer, answer, err := peer.Answer(ctx, cfg, offer)
	require.NoError(t, err)
	defer answerer.Close()

	require.NoError(t, offerer.Accept(answer))
	require.NoError(t, offerer.WaitOpen(ctx, cfg))
	require.NoError(t, answerer.WaitOpen(ctx, cfg))

	t.Run("ordered delivery", func(t *testing.T) {
		require.NoError(t, offerer.Write(ctx, conn.TextMessage([]byte(`{"type":"file-meta"}`))))
		for i := 0; i < 32; i++ {
			require.NoError(t, offerer.Write(ctx, conn.BinaryMessage([]byte{byte(i)})))
		}

		msg, err := answerer.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, conn.Text, msg.Type)
		for i := 0; i < 32; i++ {
			msg, err := answerer.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, conn.Binary, msg.Type)
			assert.Equal(t, []byte{byte(i)}, msg.Payload)
		}
	})

	t.Run("close", func(t *testing.T) {
		require.NoError(t, answerer.Close())
		assert.False(t, answerer.Open())
		assert.ErrorIs(t, answerer.Write(ctx, conn.BinaryMessage([]byte{1})), transfer.ErrChannelNotReady)
	})
}
