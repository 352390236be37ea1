package rendezvous

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SpatiumPortae/beam/internal/conn"
	"github.com/SpatiumPortae/beam/internal/logger"
	"github.com/SpatiumPortae/beam/protocol/rendezvous"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
)

var errHungUp = errors.New("other side hung up")

// ------------------------------------------------------ Handlers -----------------------------------------------------

// handleEstablishSender binds an id for the sender, allocates a mailbox under the
// password it registers and relays its messages once a receiver has claimed the mailbox.
func (s *Server) handleEstablishSender() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		rc, log, ok := accept(r, "sender")
		if !ok {
			return
		}

		id := s.ids.Bind()
		log = log.With(zap.Int("id", id))
		defer s.ids.Release(id)

		bind := rendezvous.Msg{Type: rendezvous.RendezvousToSenderBind, Payload: rendezvous.Payload{ID: id}}
		if err := rc.WriteMsg(ctx, bind); err != nil {
			log.Error("binding id", zap.Error(err))
			return
		}
		msg, err := rc.ReadMsg(ctx, rendezvous.SenderToRendezvousEstablish)
		if err != nil {
			log.Error("establishing sender", zap.Error(err))
			return
		}

		password := msg.Payload.Password
		mailbox := NewMailbox()
		s.mailboxes.StoreMailbox(password, mailbox)
		defer func() {
			mailbox.Close()
			s.mailboxes.DeleteMailbox(password)
			log.Debug("mailbox deallocated")
		}()

		reads := readPump(ctx, rc)
		if err := s.awaitReceiver(ctx, mailbox, reads); err != nil {
			log.Warn("no receiver arrived", zap.Error(err))
			return
		}
		if err := rc.WriteMsg(ctx, rendezvous.Msg{Type: rendezvous.RendezvousToSenderReady}); err != nil {
			log.Error("announcing receiver to sender", zap.Error(err))
			return
		}
		relay(ctx, rc, reads, mailbox, mailbox.Sender, mailbox.Receiver, log)
	}
}

// handleEstablishReceiver claims the mailbox registered under the password the
// receiver presents and relays its messages to the sender.
func (s *Server) handleEstablishReceiver() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		rc, log, ok := accept(r, "receiver")
		if !ok {
			return
		}

		msg, err := rc.ReadMsg(ctx, rendezvous.ReceiverToRendezvousEstablish)
		if err != nil {
			log.Error("establishing receiver", zap.Error(err))
			return
		}
		mailbox, err := s.mailboxes.GetMailbox(msg.Payload.Password)
		if err != nil {
			log.Warn("unknown password", zap.Error(err))
			return
		}
		if !mailbox.Claim() {
			log.Warn("mailbox already claimed")
			return
		}
		if err := rc.WriteMsg(ctx, rendezvous.Msg{Type: rendezvous.RendezvousToReceiverReady}); err != nil {
			log.Error("announcing sender to receiver", zap.Error(err))
			mailbox.Close()
			return
		}
		relay(ctx, rc, readPump(ctx, rc), mailbox, mailbox.Receiver, mailbox.Sender, log)
	}
}

func (s *Server) ping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	}
}

func (s *Server) handleVersion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.version); err != nil {
			logger.FromContextOrNop(r.Context()).Warn("writing version", zap.Error(err))
		}
	}
}

// ------------------------------------------------------ Helpers ------------------------------------------------------

// accept picks up the logger and connection the middleware stored on the request.
func accept(r *http.Request, role string) (conn.Rendezvous, *zap.Logger, bool) {
	log := logger.FromContextOrNop(r.Context()).With(zap.String("role", role))
	c, err := conn.FromContext(r.Context())
	if err != nil {
		log.Error("no connection on request context", zap.Error(err))
		return conn.Rendezvous{}, nil, false
	}
	log.Info("peer connected")
	return conn.Rendezvous{Conn: c}, log, true
}

// awaitReceiver waits for the mailbox to be claimed. The sender has nothing to
// say until then, so anything read from it ends the wait, a hang up included.
func (s *Server) awaitReceiver(ctx context.Context, mailbox *Mailbox, reads <-chan read) error {
	timeout := time.NewTimer(s.timeout)
	defer timeout.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout.C:
		return errors.New("timed out")
	case <-mailbox.Paired():
		return nil
	case r := <-reads:
		if r.err != nil {
			return fmt.Errorf("sender left: %w", r.err)
		}
		return errors.New("sender spoke before a receiver arrived")
	}
}

type read struct {
	msg conn.Message
	err error
}

// readPump is the only reader of rc once started. It stops after the first
// failed read or when ctx is done.
func readPump(ctx context.Context, rc conn.Rendezvous) <-chan read {
	reads := make(chan read)
	go func() {
		for {
			msg, err := rc.ReadRaw(ctx)
			select {
			case reads <- read{msg: msg, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return reads
}

// relay copies messages verbatim between the connection and the mailbox until
// either peer goes away, then closes the mailbox so the other peer stops as well.
func relay(ctx context.Context, rc conn.Rendezvous, reads <-chan read, mailbox *Mailbox, in <-chan conn.Message, out chan<- conn.Message, log *zap.Logger) {
	log = log.With(zap.String("relay_id", uuid.NewString()))
	log.Debug("relaying")
	defer mailbox.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			var r read
			select {
			case r = <-reads:
			case <-mailbox.Done():
				return errHungUp
			case <-ctx.Done():
				return ctx.Err()
			}
			if r.err != nil {
				return r.err
			}
			select {
			case out <- r.msg:
			case <-mailbox.Done():
				return errHungUp
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case msg := <-in:
				if err := rc.WriteRaw(ctx, msg); err != nil {
					return err
				}
			case <-mailbox.Done():
				return errHungUp
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	switch err := g.Wait(); {
	case errors.Is(err, errHungUp):
		log.Info("other side hung up")
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure:
		log.Info("connection closed")
	case errors.Is(err, context.Canceled):
		log.Info("relay canceled")
	case errors.Is(err, io.EOF):
		log.Warn("connection dropped", zap.Error(err))
	default:
		log.Error("relay failed", zap.Error(err))
	}
}
