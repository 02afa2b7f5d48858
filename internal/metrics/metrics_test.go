package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ballotdesk/internal/engine/history"
)

type noopCommand struct {
	history.Base
	err error
}

func (c *noopCommand) Execute(context.Context) error { return nil }
func (c *noopCommand) Undo(context.Context) error    { return c.err }
func (c *noopCommand) Redo(context.Context) error    { return nil }
func (c *noopCommand) Serialize() any                { return nil }

func newNoop() *noopCommand {
	return &noopCommand{Base: history.NewBase(history.KindSaveGame, "Save game")}
}

func TestHistoryMetrics(t *testing.T) {
	m := New()
	h := history.New(history.WithCapacity(5), history.WithObserver(m))
	unsubscribe := h.Subscribe(m)
	defer unsubscribe()

	ctx := context.Background()
	require.NoError(t, h.Run(ctx, newNoop()))
	require.NoError(t, h.Run(ctx, newNoop()))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("run", "game.save", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cursor))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.size))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.capacity))

	failing := newNoop()
	failing.err = errors.New("remote down")
	require.NoError(t, h.Run(ctx, failing))
	_, err := h.Undo(ctx)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("undo", "game.save", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.desync))

	h.Reconcile(ctx)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.desync))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	api := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/ok", "/ok", "/missing"} {
		api.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("get", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("get", "404")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "ballotdesk_http_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func TestObserveDuration(t *testing.T) {
	m := New()
	m.ObserveOperation(history.OpRedo, history.KindBatch, 250*time.Millisecond, nil)
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
}
