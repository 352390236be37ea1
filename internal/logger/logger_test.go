package logger_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/SpatiumPortae/beam/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestContext(t *testing.T) {
	_, err := logger.FromContext(context.Background())
	assert.Error(t, err)

	lgr := zap.NewNop()
	got, err := logger.FromContext(logger.WithLogger(context.Background(), lgr))
	require.NoError(t, err)
	assert.Same(t, lgr, got)
}

func TestMiddleware(t *testing.T) {
	var found bool
	h := logger.Middleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := logger.FromContext(r.Context())
		found = err == nil
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.True(t, found)
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".beam-test.log")
	lgr, err := logger.NewFile(path)
	require.NoError(t, err)
	lgr.Debug("hello")
	_ = lgr.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello")
}

func TestFromContextOrNop(t *testing.T) {
	assert.NotNil(t, logger.FromContextOrNop(context.Background()))

	lgr := zap.NewNop()
	assert.Same(t, lgr, logger.FromContextOrNop(logger.WithLogger(context.Background(), lgr)))
}
