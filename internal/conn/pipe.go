package conn

import (
	"context"
	"io"
	"sync"

	"github.com/SpatiumPortae/beam/protocol/transfer"
)

const pipeBufferSize = 64

// pipe is one end of an in-memory channel.
type pipe struct {
	in   <-chan Message
	out  chan<- Message
	done chan struct{}
	once *sync.Once
}

// Pipe returns two connected ends of an ordered, in-memory channel.
// Closing either end closes the channel for both, messages already
// written can still be read.
func Pipe() (Conn, Conn) {
	a := make(chan Message, pipeBufferSize)
	b := make(chan Message, pipeBufferSize)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipe{in: a, out: b, done: done, once: once},
		&pipe{in: b, out: a, done: done, once: once}
}

func (p *pipe) Open() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *pipe) Write(ctx context.Context, msg Message) error {
	if !p.Open() {
		return transfer.ErrChannelNotReady
	}
	msg.Payload = append([]byte(nil), msg.Payload...)
	select {
	case p.out <- msg:
		return nil
	case <-p.done:
		return transfer.ErrChannelNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipe) Read(ctx context.Context) (Message, error) {
	select {
	case msg := <-p.in:
		return msg, nil
	default:
	}
	select {
	case msg := <-p.in:
		return msg, nil
	case <-p.done:
		select {
		case msg := <-p.in:
			return msg, nil
		default:
			return Message{}, io.EOF
		}
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (p *pipe) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
