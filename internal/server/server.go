package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bz888/murmur/internal/logger"
	"github.com/bz888/murmur/internal/server/handlers"
)

const shutdownTimeout = 5 * time.Second

// EventStream is the WebSocket endpoint listeners connect to. Close is
// called on shutdown so connected front ends see a close frame.
type EventStream interface {
	http.Handler
	Close() error
}

type Server struct {
	http   *http.Server
	events EventStream
	log    *logger.Logger
}

func New(addr string, handler *handlers.Handler, events EventStream) *Server {
	localLogger := logger.NewLogger("Server")

	mux := http.NewServeMux()
	registerRoutes(mux, handler, events)

	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          slog.NewLogLogger(localLogger.Slog().Handler(), slog.LevelError),
		},
		events: events,
		log:    localLogger,
	}
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully: open prompts get shutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server started", "addr", "http://"+ln.Addr().String()+"/")
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down")
	s.events.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
