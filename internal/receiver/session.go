package receiver

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/SpatiumPortae/beam/internal/conn"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// File is a completely received file.
type File struct {
	Name  string
	Bytes []byte
}

// Session tracks an in-progress receive.
type Session struct {
	ID            uuid.UUID
	Metadata      transfer.Metadata
	Buffers       [][]byte
	ReceivedBytes int64
}

// Option configures a receiver.
type Option func(*Receiver)

// WithProgress registers a function that observes the receiving progress.
func WithProgress(fn func(transfer.Progress)) Option {
	return func(r *Receiver) {
		r.progress = fn
	}
}

// WithErrorHandler registers a function that is notified of messages that were dropped.
func WithErrorHandler(fn func(error)) Option {
	return func(r *Receiver) {
		r.onError = fn
	}
}

// WithMetadata registers a function that is notified of every accepted metadata message.
func WithMetadata(fn func(transfer.Metadata)) Option {
	return func(r *Receiver) {
		r.metadata = fn
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Receiver) {
		r.logger = logger
	}
}

// Receiver reassembles files from the messages of a single channel.
// It holds at most one session; metadata arriving while a session is
// in progress replaces it.
type Receiver struct {
	session  *Session
	progress func(transfer.Progress)
	metadata func(transfer.Metadata)
	onError  func(error)
	logger   *zap.Logger
}

func New(opts ...Option) *Receiver {
	r := &Receiver{
		progress: func(transfer.Progress) {},
		metadata: func(transfer.Metadata) {},
		onError:  func(error) {},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Session returns the session in progress, if any.
func (r *Receiver) Session() *Session {
	return r.session
}

// HandleMessage processes one inbound message. The completed file is returned
// once the announced amount of bytes has been received.
func (r *Receiver) HandleMessage(msg conn.Message) (*File, error) {
	switch msg.Type {
	case conn.Text:
		return r.handleMetadata(msg.Payload)
	case conn.Binary:
		return r.handleChunk(msg.Payload)
	default:
		return nil, fmt.Errorf("unknown message type %d", msg.Type)
	}
}

func (r *Receiver) handleMetadata(b []byte) (*File, error) {
	meta, err := transfer.DecodeMetadata(b)
	if err != nil {
		return nil, err
	}
	if r.session != nil {
		r.logger.Debug("discarding incomplete transfer",
			zap.String("transfer_id", r.session.ID.String()),
			zap.Int64("received_bytes", r.session.ReceivedBytes),
		)
	}
	r.session = &Session{ID: uuid.New(), Metadata: meta}
	if !meta.Consistent() {
		r.logger.Warn("inconsistent metadata",
			zap.Int64("file_size", meta.FileSize),
			zap.Int64("total_chunks", meta.TotalChunks),
			zap.Int("chunk_size", meta.ChunkSize),
		)
	}
	r.logger.Info("receiving file",
		zap.String("transfer_id", r.session.ID.String()),
		zap.String("file_name", meta.FileName),
		zap.Int64("file_size", meta.FileSize),
	)
	r.metadata(meta)
	r.progress(transfer.Progress{Role: transfer.Receiving, Percent: 0})
	if meta.FileSize == 0 {
		r.progress(transfer.Progress{Role: transfer.Receiving, Percent: 100})
		return r.complete(), nil
	}
	return nil, nil
}

func (r *Receiver) handleChunk(b []byte) (*File, error) {
	if r.session == nil {
		return nil, transfer.ErrOrphanChunk
	}
	s := r.session
	s.Buffers = append(s.Buffers, b)
	s.ReceivedBytes += int64(len(b))
	r.progress(transfer.Progress{
		Role:    transfer.Receiving,
		Percent: transfer.Percent(s.ReceivedBytes, s.Metadata.FileSize),
	})
	if s.ReceivedBytes >= s.Metadata.FileSize {
		return r.complete(), nil
	}
	return nil, nil
}

// complete assembles the file of the current session and ends it.
func (r *Receiver) complete() *File {
	s := r.session
	r.session = nil
	if s.ReceivedBytes > s.Metadata.FileSize {
		r.logger.Warn("received more bytes than announced",
			zap.Int64("file_size", s.Metadata.FileSize),
			zap.Int64("received_bytes", s.ReceivedBytes),
		)
	}
	r.logger.Info("received file", zap.String("transfer_id", s.ID.String()))
	return &File{Name: s.Metadata.FileName, Bytes: bytes.Join(s.Buffers, nil)}
}

// dropped reports whether err only concerns the message it was returned for.
func dropped(err error) bool {
	return errors.Is(err, transfer.ErrMalformedMetadata) || errors.Is(err, transfer.ErrOrphanChunk)
}
