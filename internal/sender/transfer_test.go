package sender_test

import (
	"context"
	"errors"
	"testing"

	"github.com/SpatiumPortae/beam/internal/conn"
	"github.com/SpatiumPortae/beam/internal/file"
	"github.com/SpatiumPortae/beam/internal/sender"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenSource struct {
	*file.Memory
	failAt int64
}

func (b brokenSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= b.failAt {
		return 0, errors.New("disk on fire")
	}
	return b.Memory.ReadAt(p, off)
}

func drain(t *testing.T, c conn.Conn) []conn.Message {
	t.Helper()
	var msgs []conn.Message
	for {
		msg, err := c.Read(context.Background())
		if err != nil {
			return msgs
		}
		msgs = append(msgs, msg)
	}
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("metadata then chunks", func(t *testing.T) {
		a, b := conn.Pipe()
		var progress []int
		err := sender.Send(ctx, a, file.NewMemory("ten.bin", []byte("0123456789")),
			sender.WithChunkSize(4),
			sender.WithProgress(func(p transfer.Progress) {
				assert.Equal(t, transfer.Sending, p.Role)
				progress = append(progress, p.Percent)
			}),
		)
		require.NoError(t, err)
		require.NoError(t, a.Close())

		msgs := drain(t, b)
		require.Len(t, msgs, 4)
		assert.Equal(t, conn.Text, msgs[0].Type)
		meta, err := transfer.DecodeMetadata(msgs[0].Payload)
		require.NoError(t, err)
		assert.Equal(t, transfer.Metadata{FileName: "ten.bin", FileSize: 10, TotalChunks: 3, ChunkSize: 4}, meta)

		for i, expected := range []string{"0123", "4567", "89"} {
			assert.Equal(t, conn.Binary, msgs[i+1].Type)
			assert.Equal(t, expected, string(msgs[i+1].Payload))
		}
		assert.Equal(t, []int{33, 66, 100}, progress)
	})

	t.Run("default chunk size", func(t *testing.T) {
		a, b := conn.Pipe()
		payload := make([]byte, transfer.ChunkSize*2+1)
		require.NoError(t, sender.Send(ctx, a, file.NewMemory("big.bin", payload)))
		require.NoError(t, a.Close())

		msgs := drain(t, b)
		require.Len(t, msgs, 4)
		assert.Len(t, msgs[1].Payload, transfer.ChunkSize)
		assert.Len(t, msgs[3].Payload, 1)
	})

	t.Run("empty file", func(t *testing.T) {
		a, b := conn.Pipe()
		var progress []int
		err := sender.Send(ctx, a, file.NewMemory("empty", nil),
			sender.WithProgress(func(p transfer.Progress) { progress = append(progress, p.Percent) }),
		)
		require.NoError(t, err)
		require.NoError(t, a.Close())

		msgs := drain(t, b)
		require.Len(t, msgs, 1)
		meta, err := transfer.DecodeMetadata(msgs[0].Payload)
		require.NoError(t, err)
		assert.Equal(t, int64(0), meta.TotalChunks)
		assert.Equal(t, []int{100}, progress)
	})

	t.Run("channel not ready", func(t *testing.T) {
		a, _ := conn.Pipe()
		require.NoError(t, a.Close())
		err := sender.Send(ctx, a, file.NewMemory("x", []byte("x")))
		assert.ErrorIs(t, err, transfer.ErrChannelNotReady)

		err = sender.Send(ctx, nil, file.NewMemory("x", []byte("x")))
		assert.ErrorIs(t, err, transfer.ErrChannelNotReady)
	})

	t.Run("invalid chunk size", func(t *testing.T) {
		a, _ := conn.Pipe()
		for _, size := range []int{0, -1, transfer.MaxChunkSize + 1} {
			assert.Error(t, sender.Send(ctx, a, file.NewMemory("x", []byte("x")), sender.WithChunkSize(size)), size)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		a, b := conn.Pipe()
		src := brokenSource{Memory: file.NewMemory("broken", []byte("0123456789")), failAt: 4}
		err := sender.Send(ctx, a, src, sender.WithChunkSize(4))
		assert.ErrorIs(t, err, transfer.ErrFileRead)
		require.NoError(t, a.Close())

		// Metadata and the first chunk made it out before the failure.
		assert.Len(t, drain(t, b), 2)
	})

	t.Run("channel survives a failed transfer", func(t *testing.T) {
		a, b := conn.Pipe()
		src := brokenSource{Memory: file.NewMemory("broken", []byte("0123456789")), failAt: 4}
		require.ErrorIs(t, sender.Send(ctx, a, src, sender.WithChunkSize(4)), transfer.ErrFileRead)
		require.True(t, a.Open())

		require.NoError(t, sender.Send(ctx, a, file.NewMemory("again", []byte("abcdefgh")), sender.WithChunkSize(4)))
		require.NoError(t, a.Close())

		msgs := drain(t, b)
		require.Len(t, msgs, 5)
		assert.Equal(t, conn.Text, msgs[2].Type)
		assert.Equal(t, []byte("abcd"), msgs[3].Payload)
		assert.Equal(t, []byte("efgh"), msgs[4].Payload)
	})

	t.Run("cancelled", func(t *testing.T) {
		a, b := conn.Pipe()
		defer b.Close()
		ctx, cancel := context.WithCancel(ctx)
		var progress []int
		err := sender.Send(ctx, a, file.NewMemory("x", make([]byte, 40)),
			sender.WithChunkSize(4),
			sender.WithProgress(func(p transfer.Progress) {
				progress = append(progress, p.Percent)
				if len(progress) == 2 {
					cancel()
				}
			}),
		)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []int{10, 20}, progress)
	})
}

func TestWaitHangup(t *testing.T) {
	t.Run("peer closes", func(t *testing.T) {
		a, b := conn.Pipe()
		require.NoError(t, b.Write(context.Background(), conn.TextMessage([]byte("ignored"))))
		require.NoError(t, b.Close())
		assert.NoError(t, sender.WaitHangup(context.Background(), a))
	})

	t.Run("timeout", func(t *testing.T) {
		a, _ := conn.Pipe()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, sender.WaitHangup(ctx, a), context.Canceled)
	})
}
