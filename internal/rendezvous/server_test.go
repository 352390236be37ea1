package rendezvous_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SpatiumPortae/beam/internal/conn"
	"github.com/SpatiumPortae/beam/internal/receiver"
	"github.com/SpatiumPortae/beam/internal/rendezvous"
	"github.com/SpatiumPortae/beam/internal/semver"
	"github.com/SpatiumPortae/beam/internal/sender"
	protocol "github.com/SpatiumPortae/beam/protocol/rendezvous"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T, opts ...rendezvous.Option) string {
	t.Helper()
	ver, err := semver.Parse("v1.2.3")
	require.NoError(t, err)
	s := rendezvous.NewServer(0, ver, append([]rendezvous.Option{rendezvous.WithLogger(zap.NewNop())}, opts...)...)
	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)
	return strings.TrimPrefix(server.URL, "http://")
}

func TestIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	addr := newServer(t)

	senderRc, pass, err := sender.ConnectRendezvous(ctx, addr)
	require.NoError(t, err)
	defer senderRc.Close()
	assert.True(t, strings.HasPrefix(pass, "1-"), pass)

	receiverRc, err := receiver.ConnectRendezvous(ctx, addr)
	require.NoError(t, err)
	defer receiverRc.Close()
	require.NoError(t, receiver.Establish(ctx, receiverRc, pass))
	require.NoError(t, sender.WaitReceiver(ctx, senderRc))

	t.Run("relays rendezvous messages", func(t *testing.T) {
		require.NoError(t, senderRc.WriteMsg(ctx, protocol.Msg{
			Type:    protocol.SenderToReceiverOffer,
			Payload: protocol.Payload{SDP: "v=0"},
		}))
		msg, err := receiverRc.ReadMsg(ctx, protocol.SenderToReceiverOffer)
		require.NoError(t, err)
		assert.Equal(t, "v=0", msg.Payload.SDP)
	})

	t.Run("relays raw messages verbatim", func(t *testing.T) {
		require.NoError(t, receiverRc.WriteRaw(ctx, conn.BinaryMessage([]byte{0, 1, 2})))
		msg, err := senderRc.ReadRaw(ctx)
		require.NoError(t, err)
		assert.Equal(t, conn.Binary, msg.Type)
		assert.Equal(t, []byte{0, 1, 2}, msg.Payload)

		require.NoError(t, senderRc.WriteRaw(ctx, conn.TextMessage([]byte(`{"type":"file-meta"}`))))
		msg, err = receiverRc.ReadRaw(ctx)
		require.NoError(t, err)
		assert.Equal(t, conn.Text, msg.Type)
		assert.Equal(t, `{"type":"file-meta"}`, string(msg.Payload))
	})

	t.Run("hang up is propagated", func(t *testing.T) {
		require.NoError(t, receiverRc.Close())
		assert.NoError(t, sender.WaitHangup(ctx, senderRc.Conn))
	})
}

func TestEstablish(t *testing.T) {
	testContext := func(t *testing.T) context.Context {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		t.Cleanup(cancel)
		return ctx
	}

	t.Run("wrong password", func(t *testing.T) {
		ctx := testContext(t)
		addr := newServer(t)
		senderRc, _, err := sender.ConnectRendezvous(ctx, addr)
		require.NoError(t, err)
		defer senderRc.Close()

		receiverRc, err := receiver.ConnectRendezvous(ctx, addr)
		require.NoError(t, err)
		defer receiverRc.Close()
		assert.Error(t, receiver.Establish(ctx, receiverRc, "1-not-the-password"))
	})

	t.Run("second receiver is rejected", func(t *testing.T) {
		ctx := testContext(t)
		addr := newServer(t)
		senderRc, pass, err := sender.ConnectRendezvous(ctx, addr)
		require.NoError(t, err)
		defer senderRc.Close()

		first, err := receiver.ConnectRendezvous(ctx, addr)
		require.NoError(t, err)
		defer first.Close()
		require.NoError(t, receiver.Establish(ctx, first, pass))

		second, err := receiver.ConnectRendezvous(ctx, addr)
		require.NoError(t, err)
		defer second.Close()
		assert.Error(t, receiver.Establish(ctx, second, pass))
	})

	t.Run("ids are unique while bound", func(t *testing.T) {
		ctx := testContext(t)
		addr := newServer(t)
		first, firstPass, err := sender.ConnectRendezvous(ctx, addr)
		require.NoError(t, err)
		defer first.Close()
		second, secondPass, err := sender.ConnectRendezvous(ctx, addr)
		require.NoError(t, err)
		defer second.Close()

		assert.True(t, strings.HasPrefix(firstPass, "1-"), firstPass)
		assert.True(t, strings.HasPrefix(secondPass, "2-"), secondPass)
	})

	t.Run("sender leaving frees its id and mailbox", func(t *testing.T) {
		ctx := testContext(t)
		addr := newServer(t)
		first, pass, err := sender.ConnectRendezvous(ctx, addr)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(pass, "1-"), pass)

		start := time.Now()
		assert.NoError(t, first.Close())
		assert.Less(t, time.Since(start), time.Second, "close handshake waited on the server")

		// The server notices the hang up asynchronously.
		require.Eventually(t, func() bool {
			next, nextPass, err := sender.ConnectRendezvous(ctx, addr)
			if err != nil {
				return false
			}
			defer next.Close()
			return strings.HasPrefix(nextPass, "1-")
		}, 2*time.Second, 20*time.Millisecond)

		receiverRc, err := receiver.ConnectRendezvous(ctx, addr)
		require.NoError(t, err)
		defer receiverRc.Close()
		assert.Error(t, receiver.Establish(ctx, receiverRc, pass))
	})

	t.Run("receiver timeout", func(t *testing.T) {
		ctx := testContext(t)
		addr := newServer(t, rendezvous.WithReceiverTimeout(50*time.Millisecond))
		senderRc, _, err := sender.ConnectRendezvous(ctx, addr)
		require.NoError(t, err)
		defer senderRc.Close()
		assert.Error(t, sender.WaitReceiver(ctx, senderRc))
	})
}

func TestHTTP(t *testing.T) {
	addr := newServer(t)

	t.Run("ping", func(t *testing.T) {
		res, err := http.Get("http://" + addr + "/ping")
		require.NoError(t, err)
		defer res.Body.Close()
		b, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "pong", string(b))
	})

	t.Run("version", func(t *testing.T) {
		ver, err := semver.GetRendezvousVersion(context.Background(), addr)
		require.NoError(t, err)
		assert.Equal(t, "v1.2.3", ver.String())
	})
}
