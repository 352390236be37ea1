// rendezvous.go specifies the messaging used to pair peers and negotiate the data channel.
package rendezvous

import (
	"fmt"
	"strings"
)

type MsgType int

const (
	RendezvousToSenderBind        MsgType = iota // An ID for this connection is bound and communicated
	SenderToRendezvousEstablish                  // Sender has generated and hashed password
	ReceiverToRendezvousEstablish                // Password has been communicated to receiver who has hashed it
	RendezvousToSenderReady                      // Rendezvous announces to sender that receiver is connected
	RendezvousToReceiverReady                    // Rendezvous announces to receiver that it is paired with the sender
	// From this point messages are relayed verbatim between the peers.
	SenderToReceiverOffer    // Sender offers a WebRTC session description
	ReceiverToSenderAnswer   // Receiver answers the offered session description
	ReceiverToSenderRelay    // Receiver requests that the rendezvous connection is used as data channel
	SenderToReceiverRelayAck // Sender ACKs relayed communication
)

type Msg struct {
	Type    MsgType `json:"type"`
	Payload Payload `json:"payload,omitempty"`
}

type Payload struct {
	ID       int    `json:"id,omitempty"`
	Password string `json:"password,omitempty"`
	SDP      string `json:"sdp,omitempty"`
}

var msgTypeNames = map[MsgType]string{
	RendezvousToSenderBind:        "RendezvousToSenderBind",
	SenderToRendezvousEstablish:   "SenderToRendezvousEstablish",
	ReceiverToRendezvousEstablish: "ReceiverToRendezvousEstablish",
	RendezvousToSenderReady:       "RendezvousToSenderReady",
	RendezvousToReceiverReady:     "RendezvousToReceiverReady",
	SenderToReceiverOffer:         "SenderToReceiverOffer",
	ReceiverToSenderAnswer:        "ReceiverToSenderAnswer",
	ReceiverToSenderRelay:         "ReceiverToSenderRelay",
	SenderToReceiverRelayAck:      "SenderToReceiverRelayAck",
}

func (t MsgType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MsgType(%d)", int(t))
}

// Error is returned when a peer or the server sends a message out of sequence.
type Error struct {
	Expected []MsgType
	Got      MsgType
}

func (e Error) Error() string {
	names := make([]string, len(e.Expected))
	for i, t := range e.Expected {
		names[i] = t.String()
	}
	return fmt.Sprintf("unexpected rendezvous message %s, want one of [%s]", e.Got, strings.Join(names, " "))
}
