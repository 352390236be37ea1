// Package peer negotiates WebRTC data channels between a sender and a receiver.
// Candidates are gathered before the session description is handed out, so an
// offer or answer is complete and can be exchanged in a single message.
package peer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SpatiumPortae/beam/internal/conn"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/pion/webrtc/v4"
)

// Label is the label of the data channel that carries the transfer.
const Label = "beam"

const DefaultTimeout = 10 * time.Second

// Config configures the peer connection.
type Config struct {
	ICEServers []string
	// RelayOnly skips negotiation and uses the rendezvous connection as data channel.
	RelayOnly bool
	// Timeout bounds the wait for the data channel to open.
	Timeout time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Channel is a data channel together with the peer connection that owns it.
type Channel struct {
	pc *webrtc.PeerConnection

	ready chan *conn.DataChannel
	once  sync.Once
	dc    *conn.DataChannel
}

func newPeerConnection(cfg Config) (*webrtc.PeerConnection, error) {
	var servers []webrtc.ICEServer
	if len(cfg.ICEServers) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: cfg.ICEServers})
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return nil, fmt.Errorf("creating peer connection: %w", err)
	}
	return pc, nil
}

// Offer creates the ordered data channel and returns the complete offer describing it.
func Offer(ctx context.Context, cfg Config) (*Channel, string, error) {
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, "", err
	}
	ordered := true
	dc, err := pc.CreateDataChannel(Label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		return nil, "", fmt.Errorf("creating data channel: %w", err)
	}
	ch := &Channel{pc: pc, ready: make(chan *conn.DataChannel, 1)}
	ch.ready <- conn.NewDataChannel(dc)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return nil, "", fmt.Errorf("creating offer: %w", err)
	}
	sdp, err := gather(ctx, pc, offer)
	if err != nil {
		pc.Close()
		return nil, "", err
	}
	return ch, sdp, nil
}

// Answer accepts a remote offer and returns the complete answer. The data
// channel announced by the offer becomes available through WaitOpen.
func Answer(ctx context.Context, cfg Config, offer string) (*Channel, string, error) {
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, "", err
	}
	ch := &Channel{pc: pc, ready: make(chan *conn.DataChannel, 1)}
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != Label {
			return
		}
		select {
		case ch.ready <- conn.NewDataChannel(dc):
		default:
		}
	})

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer}); err != nil {
		pc.Close()
		return nil, "", fmt.Errorf("setting remote offer: %w", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return nil, "", fmt.Errorf("creating answer: %w", err)
	}
	sdp, err := gather(ctx, pc, answer)
	if err != nil {
		pc.Close()
		return nil, "", err
	}
	return ch, sdp, nil
}

func gather(ctx context.Context, pc *webrtc.PeerConnection, desc webrtc.SessionDescription) (string, error) {
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(desc); err != nil {
		return "", fmt.Errorf("setting local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return "", fmt.Errorf("gathering candidates: %w", ctx.Err())
	}
	return pc.LocalDescription().SDP, nil
}

// Accept applies the answer of the remote peer.
func (c *Channel) Accept(answer string) error {
	if err := c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}); err != nil {
		return fmt.Errorf("setting remote answer: %w", err)
	}
	return nil
}

// WaitOpen blocks until the data channel is open, or the timeout of cfg expires.
func (c *Channel) WaitOpen(ctx context.Context, cfg Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()
	if c.dc == nil {
		select {
		case dc := <-c.ready:
			c.dc = dc
		case <-ctx.Done():
			return fmt.Errorf("waiting for data channel: %w", ctx.Err())
		}
	}
	if err := c.dc.WaitOpen(ctx); err != nil {
		return fmt.Errorf("waiting for data channel to open: %w", err)
	}
	return nil
}

func (c *Channel) Open() bool {
	return c.dc != nil && c.dc.Open()
}

func (c *Channel) Write(ctx context.Context, msg conn.Message) error {
	if c.dc == nil {
		return transfer.ErrChannelNotReady
	}
	return c.dc.Write(ctx, msg)
}

func (c *Channel) Read(ctx context.Context) (conn.Message, error) {
	if c.dc == nil {
		return conn.Message{}, transfer.ErrChannelNotReady
	}
	return c.dc.Read(ctx)
}

// Close closes the data channel and the peer connection.
func (c *Channel) Close() error {
	var err error
	c.once.Do(func() {
		if c.dc != nil {
			c.dc.Close()
		}
		err = c.pc.Close()
	})
	return err
}
