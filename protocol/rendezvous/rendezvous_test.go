package rendezvous_test

import (
	"testing"

	"github.com/SpatiumPortae/beam/protocol/rendezvous"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := rendezvous.Error{
		Expected: []rendezvous.MsgType{rendezvous.ReceiverToSenderAnswer, rendezvous.ReceiverToSenderRelay},
		Got:      rendezvous.SenderToReceiverOffer,
	}
	assert.Equal(t,
		"unexpected rendezvous message SenderToReceiverOffer, want one of [ReceiverToSenderAnswer ReceiverToSenderRelay]",
		err.Error(),
	)
	assert.Equal(t, "MsgType(99)", rendezvous.MsgType(99).String())
}
