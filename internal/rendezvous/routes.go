package rendezvous

import (
	"github.com/SpatiumPortae/beam/internal/conn"
	"github.com/SpatiumPortae/beam/internal/logger"
)

func (s *Server) routes() {
	s.router.HandleFunc("/ping", s.ping())
	s.router.HandleFunc("/version", s.handleVersion())

	ws := s.router.NewRoute().Subrouter()
	ws.Use(logger.Middleware(s.logger))
	ws.Use(conn.Middleware())
	ws.HandleFunc("/establish-sender", s.handleEstablishSender())
	ws.HandleFunc("/establish-receiver", s.handleEstablishReceiver())
}
