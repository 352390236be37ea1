package receiver_test

import (
	"context"
	"testing"
	"time"

	"github.com/SpatiumPortae/beam/internal/conn"
	"github.com/SpatiumPortae/beam/internal/file"
	"github.com/SpatiumPortae/beam/internal/peer"
	"github.com/SpatiumPortae/beam/internal/receiver"
	"github.com/SpatiumPortae/beam/internal/sender"
	"github.com/SpatiumPortae/beam/protocol/rendezvous"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type negotiated struct {
	c   conn.Conn
	typ transfer.Type
	err error
}

func negotiate(t *testing.T, ctx context.Context, senderCfg, receiverCfg peer.Config) (negotiated, negotiated) {
	t.Helper()
	a, b := conn.Pipe()
	senderRc := conn.Rendezvous{Conn: a}
	receiverRc := conn.Rendezvous{Conn: b}

	res := make(chan negotiated, 1)
	go func() {
		c, typ, err := sender.Negotiate(ctx, senderRc, senderCfg, nil)
		res <- negotiated{c, typ, err}
	}()
	c, typ, err := receiver.Negotiate(ctx, receiverRc, receiverCfg, nil)
	return <-res, negotiated{c, typ, err}
}

func TestNegotiate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("relay only", func(t *testing.T) {
		s, r := negotiate(t, ctx, peer.Config{}, peer.Config{RelayOnly: true})
		require.NoError(t, s.err)
		require.NoError(t, r.err)
		assert.Equal(t, transfer.Relay, s.typ)
		assert.Equal(t, transfer.Relay, r.typ)

		go func() {
			assert.NoError(t, sender.Send(ctx, s.c, file.NewMemory("relayed.txt", []byte("over the rendezvous"))))
		}()
		f, err := receiver.Receive(ctx, r.c)
		require.NoError(t, err)
		assert.Equal(t, "over the rendezvous", string(f.Bytes))
	})

	t.Run("sender relay only", func(t *testing.T) {
		s, r := negotiate(t, ctx, peer.Config{RelayOnly: true}, peer.Config{})
		require.NoError(t, s.err)
		require.NoError(t, r.err)
		assert.Equal(t, transfer.Relay, s.typ)
		assert.Equal(t, transfer.Relay, r.typ)
	})

	t.Run("unexpected offer", func(t *testing.T) {
		a, b := conn.Pipe()
		require.NoError(t, conn.Rendezvous{Conn: a}.WriteMsg(ctx, rendezvous.Msg{Type: rendezvous.SenderToReceiverRelayAck}))
		_, _, err := receiver.Negotiate(ctx, conn.Rendezvous{Conn: b}, peer.Config{}, nil)
		var rerr rendezvous.Error
		assert.ErrorAs(t, err, &rerr)
	})

	t.Run("direct", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping peer negotiation in short mode")
		}
		cfg := peer.Config{Timeout: 20 * time.Second}
		s, r := negotiate(t, ctx, cfg, cfg)
		require.NoError(t, s.err)
		require.NoError(t, r.err)
		defer s.c.Close()
		assert.Equal(t, transfer.Direct, s.typ)
		assert.Equal(t, transfer.Direct, r.typ)

		payload := make([]byte, 5*transfer.ChunkSize+3)
		for i := range payload {
			payload[i] = byte(i)
		}
		errc := make(chan error, 1)
		go func() {
			if err := sender.Send(ctx, s.c, file.NewMemory("direct.bin", payload)); err != nil {
				errc <- err
				return
			}
			errc <- sender.WaitHangup(ctx, s.c)
		}()
		f, err := receiver.Receive(ctx, r.c)
		require.NoError(t, err)
		require.NoError(t, r.c.Close())
		require.NoError(t, <-errc)
		assert.Equal(t, payload, f.Bytes)
	})
}
