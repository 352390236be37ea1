package sender

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/SpatiumPortae/beam/internal/conn"
	"github.com/SpatiumPortae/beam/internal/file"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option configures a send.
type Option func(*options)

type options struct {
	chunkSize int
	progress  func(transfer.Progress)
	logger    *zap.Logger
}

// WithChunkSize sets the amount of bytes carried by each chunk message.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithProgress registers a function that observes the sending progress.
func WithProgress(fn func(transfer.Progress)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Session tracks an in-progress send.
type Session struct {
	ID           uuid.UUID
	Metadata     transfer.Metadata
	ChunkSize    int
	CurrentChunk int64
}

// Done reports whether all chunks have been sent.
func (s *Session) Done() bool {
	return s.CurrentChunk >= s.Metadata.TotalChunks
}

// Send sends the source over the channel: one metadata message followed by the
// chunks of the source, strictly in order with one chunk in flight at a time.
// The context is checked at every chunk boundary.
func Send(ctx context.Context, c conn.Conn, src file.Source, opts ...Option) error {
	o := options{
		chunkSize: transfer.ChunkSize,
		progress:  func(transfer.Progress) {},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.chunkSize < 1 || o.chunkSize > transfer.MaxChunkSize {
		return fmt.Errorf("invalid chunk size %d, must be within [1, %d]", o.chunkSize, transfer.MaxChunkSize)
	}
	if c == nil || !c.Open() {
		return transfer.ErrChannelNotReady
	}

	s := &Session{
		ID:        uuid.New(),
		Metadata:  transfer.NewMetadata(src.Name(), src.Size(), o.chunkSize),
		ChunkSize: o.chunkSize,
	}
	logger := o.logger.With(
		zap.String("transfer_id", s.ID.String()),
		zap.String("file_name", s.Metadata.FileName),
		zap.Int64("file_size", s.Metadata.FileSize),
	)

	meta, err := transfer.EncodeMetadata(s.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := c.Write(ctx, conn.TextMessage(meta)); err != nil {
		return fmt.Errorf("sending metadata: %w", err)
	}
	logger.Info("sent metadata", zap.Int64("total_chunks", s.Metadata.TotalChunks))

	buf := make([]byte, s.ChunkSize)
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			logger.Info("transfer cancelled", zap.Int64("chunk", s.CurrentChunk))
			return err
		}
		chunk, err := s.read(src, buf)
		if err != nil {
			logger.Error("reading chunk", zap.Int64("chunk", s.CurrentChunk), zap.Error(err))
			return err
		}
		if err := c.Write(ctx, conn.BinaryMessage(chunk)); err != nil {
			return fmt.Errorf("sending chunk %d: %w", s.CurrentChunk, err)
		}
		s.CurrentChunk++
		o.progress(transfer.Progress{
			Role:    transfer.Sending,
			Percent: transfer.Percent(s.CurrentChunk, s.Metadata.TotalChunks),
		})
	}
	if s.Metadata.TotalChunks == 0 {
		o.progress(transfer.Progress{Role: transfer.Sending, Percent: 100})
	}
	logger.Info("sent file")
	return nil
}

// read reads the current chunk into buf.
func (s *Session) read(src io.ReaderAt, buf []byte) ([]byte, error) {
	off := s.CurrentChunk * int64(s.ChunkSize)
	want := s.Metadata.FileSize - off
	if want > int64(s.ChunkSize) {
		want = int64(s.ChunkSize)
	}
	n, err := src.ReadAt(buf[:want], off)
	if int64(n) == want {
		return buf[:n], nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("%w: chunk %d: %v", transfer.ErrFileRead, s.CurrentChunk, err)
}

// WaitHangup blocks until the peer closes the channel, discarding anything it sends.
// Tearing down the sending end before this may drop chunks still buffered in the channel.
func WaitHangup(ctx context.Context, c conn.Conn) error {
	for {
		if _, err := c.Read(ctx); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("waiting for receiver to close the channel: %w", ctx.Err())
			}
			return nil
		}
	}
}
