package conn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/SpatiumPortae/beam/protocol/rendezvous"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"golang.org/x/exp/slices"
	"nhooyr.io/websocket"
)

// readLimit bounds the size of a single websocket message.
const readLimit = 1 << 20

// MsgType specifies whether a message carries text or raw binary data.
type MsgType int

const (
	Text MsgType = iota + 1
	Binary
)

// Message is a single message on a channel.
type Message struct {
	Type    MsgType
	Payload []byte
}

// TextMessage returns a text message with the provided payload.
func TextMessage(b []byte) Message {
	return Message{Type: Text, Payload: b}
}

// BinaryMessage returns a binary message with the provided payload.
func BinaryMessage(b []byte) Message {
	return Message{Type: Binary, Payload: b}
}

// Conn is an ordered, reliable and bidirectional message channel.
// Read returns messages in the order they arrived. Write does not
// retain the payload after it returns.
type Conn interface {
	Open() bool
	Write(ctx context.Context, msg Message) error
	Read(ctx context.Context) (Message, error)
	Close() error
}

// ------------------ Conn implementations ------------------

// WS is a wrapper around a websocket connection. It reports itself closed
// once a read or write has failed, which is how a peer hang up shows.
type WS struct {
	Conn   *websocket.Conn
	failed atomic.Bool
	closed atomic.Bool
}

// NewWS wraps the provided websocket connection.
func NewWS(c *websocket.Conn) *WS {
	c.SetReadLimit(readLimit)
	return &WS{Conn: c}
}

func (ws *WS) Open() bool {
	return !ws.closed.Load() && !ws.failed.Load()
}

func (ws *WS) Write(ctx context.Context, msg Message) error {
	if !ws.Open() {
		return transfer.ErrChannelNotReady
	}
	typ := websocket.MessageBinary
	if msg.Type == Text {
		typ = websocket.MessageText
	}
	if err := ws.Conn.Write(ctx, typ, msg.Payload); err != nil {
		ws.failed.Store(true)
		return err
	}
	return nil
}

func (ws *WS) Read(ctx context.Context) (Message, error) {
	typ, payload, err := ws.Conn.Read(ctx)
	if err != nil {
		ws.failed.Store(true)
		return Message{}, err
	}
	if typ == websocket.MessageText {
		return TextMessage(payload), nil
	}
	return BinaryMessage(payload), nil
}

func (ws *WS) Close() error {
	if ws.closed.Swap(true) {
		return nil
	}
	if ws.failed.Load() {
		// No close handshake on a broken connection.
		_ = ws.Conn.CloseNow()
		return nil
	}
	return ws.Conn.Close(websocket.StatusNormalClosure, "")
}

// ------------------ Rendezvous Conn ------------------------

// Rendezvous specifies a connection to the rendezvous server.
type Rendezvous struct {
	Conn Conn
}

// WriteMsg writes a rendezvous message to the underlying connection.
func (r Rendezvous) WriteMsg(ctx context.Context, msg rendezvous.Msg) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.Conn.Write(ctx, TextMessage(payload))
}

// ReadMsg reads a rendezvous message from the underlying connection.
// If expected types are provided, any other message type is reported as an error.
func (r Rendezvous) ReadMsg(ctx context.Context, expected ...rendezvous.MsgType) (rendezvous.Msg, error) {
	m, err := r.Conn.Read(ctx)
	if err != nil {
		return rendezvous.Msg{}, err
	}
	if m.Type != Text {
		return rendezvous.Msg{}, fmt.Errorf("unexpected binary message on rendezvous connection")
	}
	var msg rendezvous.Msg
	if err := json.Unmarshal(m.Payload, &msg); err != nil {
		return rendezvous.Msg{}, err
	}
	if len(expected) != 0 && !slices.Contains(expected, msg.Type) {
		return rendezvous.Msg{}, rendezvous.Error{Expected: expected, Got: msg.Type}
	}
	return msg, nil
}

// WriteRaw writes a message to the underlying connection as is.
func (r Rendezvous) WriteRaw(ctx context.Context, msg Message) error {
	return r.Conn.Write(ctx, msg)
}

// ReadRaw reads a message from the underlying connection as is.
func (r Rendezvous) ReadRaw(ctx context.Context) (Message, error) {
	return r.Conn.Read(ctx)
}

func (r Rendezvous) Close() error {
	return r.Conn.Close()
}
