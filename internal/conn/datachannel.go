package conn

import (
	"context"
	"io"
	"sync"

	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/pion/webrtc/v4"
)

const (
	dataChannelQueueSize = 64
	highWaterMark        = 1 << 20
	lowWaterMark         = 256 << 10
)

// DataChannel is a wrapper around a WebRTC data channel. The callbacks of the
// underlying channel are turned into an ordered queue that is consumed with Read.
type DataChannel struct {
	dc *webrtc.DataChannel

	msgs   chan Message
	low    chan struct{}
	opened chan struct{}
	closed chan struct{}

	openOnce  sync.Once
	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// NewDataChannel wraps the provided data channel. Must be called before the
// channel opens, or messages delivered prior to wrapping are lost.
func NewDataChannel(dc *webrtc.DataChannel) *DataChannel {
	d := &DataChannel{
		dc:     dc,
		msgs:   make(chan Message, dataChannelQueueSize),
		low:    make(chan struct{}, 1),
		opened: make(chan struct{}),
		closed: make(chan struct{}),
	}
	dc.SetBufferedAmountLowThreshold(lowWaterMark)
	dc.OnBufferedAmountLow(func() {
		select {
		case d.low <- struct{}{}:
		default:
		}
	})
	dc.OnOpen(d.markOpen)
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		m := BinaryMessage(append([]byte(nil), msg.Data...))
		if msg.IsString {
			m.Type = Text
		}
		// Blocking here holds back the channel's read loop until the queue is consumed.
		select {
		case d.msgs <- m:
		case <-d.closed:
		}
	})
	d.onError(dc)
	dc.OnClose(func() { d.shutdown(io.EOF) })
	if dc.ReadyState() == webrtc.DataChannelStateOpen {
		d.markOpen()
	}
	return d
}

// Label returns the label of the underlying data channel.
func (d *DataChannel) Label() string {
	return d.dc.Label()
}

// WaitOpen blocks until the data channel is open.
func (d *DataChannel) WaitOpen(ctx context.Context) error {
	select {
	case <-d.opened:
		return nil
	case <-d.closed:
		return d.closeErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *DataChannel) Open() bool {
	select {
	case <-d.closed:
		return false
	default:
	}
	select {
	case <-d.opened:
		return true
	default:
		return false
	}
}

// Write sends the message, waiting while the amount of data buffered by the
// channel is above the high water mark.
func (d *DataChannel) Write(ctx context.Context, msg Message) error {
	if !d.Open() {
		return transfer.ErrChannelNotReady
	}
	for d.dc.BufferedAmount() > highWaterMark {
		select {
		case <-d.low:
		case <-d.closed:
			return transfer.ErrChannelNotReady
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if msg.Type == Text {
		return d.dc.SendText(string(msg.Payload))
	}
	return d.dc.Send(msg.Payload)
}

func (d *DataChannel) Read(ctx context.Context) (Message, error) {
	select {
	case msg := <-d.msgs:
		return msg, nil
	default:
	}
	select {
	case msg := <-d.msgs:
		return msg, nil
	case <-d.closed:
		select {
		case msg := <-d.msgs:
			return msg, nil
		default:
			return Message{}, d.closeErr()
		}
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (d *DataChannel) Close() error {
	err := d.dc.Close()
	d.shutdown(io.EOF)
	return err
}

func (d *DataChannel) markOpen() {
	d.openOnce.Do(func() { close(d.opened) })
}

func (d *DataChannel) shutdown(err error) {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		close(d.closed)
	})
}

func (d *DataChannel) closeErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err == nil {
		return io.EOF
	}
	return d.err
}
