package receiver

import (
	"context"
	"errors"
	"fmt"

	"github.com/SpatiumPortae/beam/internal/conn"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"go.uber.org/zap"
)

// Receive consumes messages from the channel until a file has been completely
// received. Messages still queued on a closed channel are consumed. Malformed
// metadata and chunks that arrive before any metadata are dropped without
// affecting the transfer.
func Receive(ctx context.Context, c conn.Conn, opts ...Option) (*File, error) {
	if c == nil {
		return nil, transfer.ErrChannelNotReady
	}
	r := New(opts...)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := c.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if r.session != nil {
				return nil, fmt.Errorf("channel closed after %d of %d bytes: %w",
					r.session.ReceivedBytes, r.session.Metadata.FileSize, err)
			}
			return nil, fmt.Errorf("reading from channel: %w", err)
		}

		f, err := r.HandleMessage(msg)
		switch {
		case errors.Is(err, transfer.ErrOrphanChunk):
			r.logger.Debug("dropping chunk", zap.Int("size", len(msg.Payload)), zap.Error(err))
			r.onError(err)
		case dropped(err):
			r.logger.Warn("dropping message", zap.Error(err))
			r.onError(err)
		case err != nil:
			return nil, err
		case f != nil:
			return f, nil
		}
	}
}
