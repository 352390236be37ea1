//go:build !js

package conn

import (
	"context"
	"errors"
	"net/http"

	"github.com/SpatiumPortae/beam/internal/logger"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

var ErrNoConn = errors.New("unable to get Conn from context")

type connKey struct{}

func WithConn(ctx context.Context, conn Conn) context.Context {
	return context.WithValue(ctx, connKey{}, conn)
}

func FromContext(ctx context.Context) (Conn, error) {
	conn, ok := ctx.Value(connKey{}).(Conn)
	if !ok {
		return nil, ErrNoConn
	}
	return conn, nil
}

// Middleware accepts the websocket of a peer and hands it to the next handler as a Conn
// stored in the request context. The websocket is closed when the handler returns.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			lgr := logger.FromContextOrNop(ctx)
			wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
				InsecureSkipVerify: true,
				// Chunks are opaque file bytes.
				CompressionMode: websocket.CompressionDisabled,
			})
			if err != nil {
				lgr.Warn("failed to accept websocket", zap.Error(err))
				return
			}
			ws := NewWS(wsConn)
			defer func() {
				if err := ws.Close(); err != nil {
					lgr.Debug("closing websocket", zap.Error(err))
				}
			}()
			next.ServeHTTP(w, r.WithContext(WithConn(ctx, ws)))
		})
	}
}
