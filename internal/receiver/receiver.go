package receiver

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

// ConnectRendezvous makes the initial connection to the rendezvous server.
func ConnectRendezvous(ctx context.Context, addr string) (conn.Rendezvous, error) {
	ws, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/establish-receiver", addr), nil)
	if err != nil {
		return conn.Rendezvous{}, err
	}
	return conn.Rendezvous{Conn: conn.NewWS(ws)}, nil
}

// Establish pairs the receiver with the sender that holds the password.
func Establish(ctx context.Context, rc conn.Rendezvous, pass string) error {
	if err := rc.WriteMsg(ctx, rendezvous.Msg{
		Type: rendezvous.ReceiverToRendezvousEstablish,
		Payload: rendezvous.Payload{
			Password: password.Hashed(pass),
		},
	}); err != nil {
		return err
	}
	if _, err := rc.ReadMsg(ctx, rendezvous.RendezvousToReceiverReady); err != nil {
		return fmt.Errorf("no sender with the provided password: %w", err)
	}
	return nil
}

// Negotiate answers the data channel offered by the sender. If the channel
// can not be established, or either side is relay only, the rendezvous connection is
// requested as a relay instead. On a direct channel the rendezvous connection is closed.
func Negotiate(ctx context.Context, rc conn.Rendezvous, cfg peer.Config, logger *zap.Logger) (conn.Conn, transfer.Type, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	msg, err := rc.ReadMsg(ctx, rendezvous.SenderToReceiverOffer)
	if err != nil {
		return nil, transfer.Unknown, err
	}
	if cfg.RelayOnly || msg.Payload.SDP == "" {
		return requestRelay(ctx, rc)
	}

	ch, answer, err := peer.Answer(ctx, cfg, msg.Payload.SDP)
	if err != nil {
		logger.Warn("answering offer failed, falling back to relay", zap.Error(err))
		return requestRelay(ctx, rc)
	}
	if err := rc.WriteMsg(ctx, rendezvous.Msg{
		Type:    rendezvous.ReceiverToSenderAnswer,
		Payload: rendezvous.Payload{SDP: answer},
	}); err != nil {
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

func requestRelay(ctx context.Context, rc conn.Rendezvous) (conn.Conn, transfer.Type, error) {
	if err := rc.WriteMsg(ctx, rendezvous.Msg{Type: rendezvous.ReceiverToSenderRelay}); err != nil {
		return nil, transfer.Unknown, err
	}
	if _, err := rc.ReadMsg(ctx, rendezvous.SenderToReceiverRelayAck); err != nil {
		return nil, transfer.Unknown, err
	}
	return rc.Conn, transfer.Relay, nil
}
