package server

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bz888/murmur/internal/chat"
	"github.com/bz888/murmur/internal/ollama"
	"github.com/bz888/murmur/internal/server/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrompter struct{}

func (stubPrompter) SendPrompt(context.Context, chat.Prompt) (string, error) { return "id", nil }

type stubLister struct{}

func (stubLister) ListModels(context.Context) ([]ollama.Model, error) { return []ollama.Model{}, nil }

type stubMonitor struct{}

func (stubMonitor) Start(context.Context) bool { return true }

type stubEvents struct {
	closed atomic.Bool
}

func (s *stubEvents) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
}

func (s *stubEvents) Close() error {
	s.closed.Store(true)
	return nil
}

func startServer(t *testing.T) (string, *stubEvents, context.CancelFunc, <-chan error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ev := &stubEvents{}
	h := handlers.NewHandler(ctx, stubPrompter{}, stubLister{}, stubMonitor{})
	srv := New(ln.Addr().String(), h, ev)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	return "http://" + ln.Addr().String(), ev, cancel, done
}

func TestRoutes(t *testing.T) {
	base, _, cancel, done := startServer(t)
	defer func() {
		cancel()
		<-done
	}()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/models", http.StatusOK},
		{http.MethodPost, "/monitoring", http.StatusAccepted},
		{http.MethodGet, "/events", http.StatusTeapot},
		{http.MethodGet, "/prompt", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, base+tt.path, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tt.status, resp.StatusCode, "%s %s", tt.method, tt.path)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	base, ev, cancel, done := startServer(t)

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.True(t, ev.closed.Load())
}
