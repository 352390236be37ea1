package portal

import (
	"context"
	"fmt"

	"github.com/SpatiumPortae/beam/internal/file"
	"github.com/SpatiumPortae/beam/internal/receiver"
	"github.com/SpatiumPortae/beam/internal/sender"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"go.uber.org/zap"
)

// Option registers observers of a transfer.
type Option func(*observers)

type observers struct {
	progress   func(transfer.Progress)
	negotiated func(transfer.Type)
	metadata   func(transfer.Metadata)
	logger     *zap.Logger
}

// WithProgress registers a function that observes the progress of the transfer.
func WithProgress(fn func(transfer.Progress)) Option {
	return func(o *observers) {
		o.progress = fn
	}
}

// WithNegotiated registers a function that is told whether the transfer is direct or relayed.
func WithNegotiated(fn func(transfer.Type)) Option {
	return func(o *observers) {
		o.negotiated = fn
	}
}

// WithMetadata registers a function that is told which file is being received.
func WithMetadata(fn func(transfer.Metadata)) Option {
	return func(o *observers) {
		o.metadata = fn
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *observers) {
		o.logger = logger
	}
}

func newObservers(opts []Option) observers {
	o := observers{
		progress:   func(transfer.Progress) {},
		negotiated: func(transfer.Type) {},
		metadata:   func(transfer.Metadata) {},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Send executes the send sequence. The initial connection with the rendezvous
// server is performed synchronously, after that the transfer sequence is performed
// asynchronously. The function returns the password the receiver needs, a channel
// on which the outcome of the transfer sequence is delivered, and an error from the
// initial rendezvous connection. The provided config will be merged with the default config.
func Send(ctx context.Context, src file.Source, config *Config, opts ...Option) (string, <-chan error, error) {
	merged := MergeConfig(defaultConfig, config)
	o := newObservers(opts)
	rc, password, err := sender.ConnectRendezvous(ctx, merged.RendezvousAddr)
	if err != nil {
		return "", nil, fmt.Errorf("connecting to rendezvous server: %w", err)
	}
	errC := make(chan error, 1) // buffer channel as to not block send.
	go func() {
		defer close(errC)
		defer rc.Close()
		if err := sender.WaitReceiver(ctx, rc); err != nil {
			errC <- fmt.Errorf("waiting for receiver: %w", err)
			return
		}
		c, typ, err := sender.Negotiate(ctx, rc, merged.peer(), o.logger)
		if err != nil {
			errC <- fmt.Errorf("negotiating channel: %w", err)
			return
		}
		defer c.Close()
		o.negotiated(typ)

		if err := sender.Send(ctx, c, src,
			sender.WithChunkSize(merged.ChunkSize),
			sender.WithProgress(o.progress),
			sender.WithLogger(o.logger),
		); err != nil {
			errC <- err
			return
		}

		hangupCtx, cancel := context.WithTimeout(ctx, merged.HangupTimeout)
		defer cancel()
		if err := sender.WaitHangup(hangupCtx, c); err != nil {
			o.logger.Warn("receiver did not close the channel", zap.Error(err))
		}
	}()
	return password, errC, nil
}

// Receive executes the receive sequence and returns the received file.
// The provided config will be merged with the default config.
func Receive(ctx context.Context, password string, config *Config, opts ...Option) (*receiver.File, error) {
	merged := MergeConfig(defaultConfig, config)
	o := newObservers(opts)
	rc, err := receiver.ConnectRendezvous(ctx, merged.RendezvousAddr)
	if err != nil {
		return nil, fmt.Errorf("connecting to rendezvous server: %w", err)
	}
	defer rc.Close()
	if err := receiver.Establish(ctx, rc, password); err != nil {
		return nil, err
	}
	c, typ, err := receiver.Negotiate(ctx, rc, merged.peer(), o.logger)
	if err != nil {
		return nil, fmt.Errorf("negotiating channel: %w", err)
	}
	defer c.Close()
	o.negotiated(typ)

	f, err := receiver.Receive(ctx, c,
		receiver.WithProgress(o.progress),
		receiver.WithMetadata(o.metadata),
		receiver.WithLogger(o.logger),
		receiver.WithErrorHandler(func(err error) {
			o.logger.Debug("dropped message", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}
