package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/SpatiumPortae/beam/internal/logger"
	"github.com/SpatiumPortae/beam/internal/semver"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ReceiverConnectTimeout is how long a sender waits for a receiver to be paired with.
const ReceiverConnectTimeout = 5 * time.Minute

// Server is contains the necessary data to run the rendezvous server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	mailboxes  *Mailboxes
	ids        *IDs
	logger     *zap.Logger
	version    semver.Version
	timeout    time.Duration
}

// Option configures the server.
type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithReceiverTimeout overrides ReceiverConnectTimeout.
func WithReceiverTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// NewServer constructs a new Server struct and setups the routes.
func NewServer(port int, version semver.Version, opts ...Option) *Server {
	router := mux.NewRouter()
	s := &Server{
		router:    router,
		mailboxes: &Mailboxes{&sync.Map{}},
		ids:       NewIDs(),
		logger:    logger.New(),
		version:   version,
		timeout:   ReceiverConnectTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	stdLoggerWrapper, _ := zap.NewStdLogAt(s.logger, zap.ErrorLevel)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		ReadHeaderTimeout: 30 * time.Second,
		Handler:           router,
		ErrorLog:          stdLoggerWrapper,
	}
	s.routes()
	return s
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the rendezvous server until the context is done, and then shuts it down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errC := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()

	s.logger.
		With(zap.String("version", s.version.String())).
		With(zap.String("address", s.httpServer.Addr)).
		Info("serving rendezvous server")

	select {
	case err := <-errC:
		s.logger.Error("serving rendezvous server", zap.Error(err), zap.Stack("stack_trace"))
		return fmt.Errorf("serving rendezvous server: %w", err)
	case <-ctx.Done():
	}
	s.logger.Info("rendezvous server is shutting down")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("shutting down rendezvous server: %w", err)
	}
	s.logger.Info("rendezvous server shutdown successfully")
	return nil
}
