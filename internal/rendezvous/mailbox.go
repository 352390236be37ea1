// mailbox.go defines the central datastructure that keeps track of the different connections.
package rendezvous

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/SpatiumPortae/beam/internal/conn"
)

// Mailbox is a data structure that links together a sender and a receiver client.
type Mailbox struct {
	claimed atomic.Bool
	paired  chan struct{}

	done     chan struct{}
	doneOnce sync.Once

	Receiver chan conn.Message // messages to Receiver
	Sender   chan conn.Message // messages to Sender
}

func NewMailbox() *Mailbox {
	return &Mailbox{
		paired:   make(chan struct{}),
		done:     make(chan struct{}),
		Receiver: make(chan conn.Message),
		Sender:   make(chan conn.Message),
	}
}

// Claim reserves the mailbox for a receiver. Only the first claim succeeds.
func (m *Mailbox) Claim() bool {
	if !m.claimed.CompareAndSwap(false, true) {
		return false
	}
	close(m.paired)
	return true
}

// Paired is closed once a receiver has claimed the mailbox.
func (m *Mailbox) Paired() <-chan struct{} {
	return m.paired
}

// Close signals that one side of the mailbox has gone away.
func (m *Mailbox) Close() {
	m.doneOnce.Do(func() { close(m.done) })
}

func (m *Mailbox) Done() <-chan struct{} {
	return m.done
}

type Mailboxes struct{ *sync.Map }

// StoreMailbox allocates a mailbox.
func (mailboxes *Mailboxes) StoreMailbox(p string, m *Mailbox) {
	mailboxes.Store(p, m)
}

// GetMailbox returns the desired mailbox.
func (mailboxes *Mailboxes) GetMailbox(p string) (*Mailbox, error) {
	mailbox, ok := mailboxes.Load(p)
	if !ok {
		return nil, fmt.Errorf("no mailbox with password '%s'", p)
	}
	return mailbox.(*Mailbox), nil
}

// DeleteMailbox deallocates a mailbox.
func (mailboxes *Mailboxes) DeleteMailbox(p string) {
	mailboxes.Delete(p)
}
