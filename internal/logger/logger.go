// Package logger builds the zap loggers used by the server and the CLI, and
// carries a request scoped logger through contexts.
package logger

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/tomasen/realip"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var ErrNoLogger = errors.New("unable to get logger from context")

type loggerKey struct{}

func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func FromContext(ctx context.Context) (*zap.Logger, error) {
	logger, ok := ctx.Value(loggerKey{}).(*zap.Logger)
	if !ok {
		return nil, ErrNoLogger
	}
	return logger, nil
}

// FromContextOrNop returns the logger of the context, or a no-op logger when there is none.
func FromContextOrNop(ctx context.Context) *zap.Logger {
	if logger, err := FromContext(ctx); err == nil {
		return logger
	}
	return zap.NewNop()
}

// Middleware stores a logger in the request context. Every request gets an ID,
// so the log lines of one sender or receiver connection can be told apart.
func Middleware(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				zap.String("request_id", uuid.NewString()),
				zap.String("request_ip", realip.FromRequest(r)),
				zap.String("endpoint", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		})
	}
}

// New returns the production logger of the rendezvous server.
func New() *zap.Logger {
	logger, err := build(zap.NewProductionConfig())
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// NewFile returns a debug level logger that appends to the file at the provided path.
func NewFile(path string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return build(cfg)
}

func build(cfg zap.Config) (*zap.Logger, error) {
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	return cfg.Build()
}
