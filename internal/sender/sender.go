package sender

import (
	"context"
	"fmt"

	"github.com/SpatiumPortae/beam/internal/conn"
	"github.com/SpatiumPortae/beam/internal/password"
	"github.com/SpatiumPortae/beam/internal/peer"
	"github.com/SpatiumPortae/beam/protocol/rendezvous"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ConnectRendezvous creates a connection with the rendezvous server and acquires a password associated with the connection.
func ConnectRendezvous(ctx context.Context, addr string) (conn.Rendezvous, string, error) {
	ws, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/establish-sender", addr), nil)
	if err != nil {
		return conn.Rendezvous{}, "", err
	}

	rc := conn.Rendezvous{Conn: conn.NewWS(ws)}

	msg, err := rc.ReadMsg(ctx, rendezvous.RendezvousToSenderBind)
	if err != nil {
		rc.Close()
		return conn.Rendezvous{}, "", err
	}
	pass, err := password.Generate(msg.Payload.ID)
	if err != nil {
		rc.Close()
		return conn.Rendezvous{}, "", err
	}

	if err := rc.WriteMsg(ctx, rendezvous.Msg{
		Type: rendezvous.SenderToRendezvousEstablish,
		Payload: rendezvous.Payload{
			Password: password.Hashed(pass),
		},
	}); err != nil {
		rc.Close()
		return conn.Rendezvous{}, "", err
	}
	return rc, pass, nil
}

// WaitReceiver blocks until the rendezvous server has paired the sender with a receiver.
func WaitReceiver(ctx context.Context, rc conn.Rendezvous) error {
	_, err := rc.ReadMsg(ctx, rendezvous.RendezvousToSenderReady)
	return err
}

// Negotiate establishes the channel the file is sent over. A data channel is
// offered to the receiver, which either answers it or asks for the rendezvous
// connection to be used as a relay. On a direct channel the rendezvous
// connection is closed. A relay only config offers no data channel.
func Negotiate(ctx context.Context, rc conn.Rendezvous, cfg peer.Config, logger *zap.Logger) (conn.Conn, transfer.Type, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var ch *peer.Channel
	var offer string
	if !cfg.RelayOnly {
		var err error
		ch, offer, err = peer.Offer(ctx, cfg)
		if err != nil {
			return nil, transfer.Unknown, err
		}
	}
	closeChannel := func() {
		if ch != nil {
			ch.Close()
		}
	}

	if err := rc.WriteMsg(ctx, rendezvous.Msg{
		Type:    rendezvous.SenderToReceiverOffer,
		Payload: rendezvous.Payload{SDP: offer},
	}); err != nil {
		closeChannel()
		return nil, transfer.Unknown, err
	}

	msg, err := rc.ReadMsg(ctx, rendezvous.ReceiverToSenderAnswer, rendezvous.ReceiverToSenderRelay)
	if err != nil {
		closeChannel()
		return nil, transfer.Unknown, err
	}

	if msg.Type == rendezvous.ReceiverToSenderRelay {
		closeChannel()
		logger.Info("receiver requested relay transfer")
		if err := rc.WriteMsg(ctx, rendezvous.Msg{Type: rendezvous.SenderToReceiverRelayAck}); err != nil {
			return nil, transfer.Unknown, err
		}
		return rc.Conn, transfer.Relay, nil
	}
	if ch == nil {
		return nil, transfer.Unknown, fmt.Errorf("receiver answered without an offer")
	}

	if err := ch.Accept(msg.Payload.SDP); err != nil {
		ch.Close()
		return nil, transfer.Unknown, err
	}
	if err := ch.WaitOpen(ctx, cfg); err != nil {
		ch.Close()
		return nil, transfer.Unknown, err
	}
	logger.Info("data channel open", zap.String("label", peer.Label))
	rc.Close()
	return ch, transfer.Direct, nil
}
