package server

import (
	"net/http"

	"github.com/bz888/murmur/internal/server/handlers"
)

func registerRoutes(mux *http.ServeMux, handler *handlers.Handler, events http.Handler) {
	mux.HandleFunc("POST /prompt", handler.PromptHandler)
	mux.HandleFunc("GET /models", handler.ModelHandler)
	mux.HandleFunc("POST /monitoring", handler.MonitoringHandler)
	mux.HandleFunc("GET /health", handler.StatusHandler)
	mux.Handle("GET /events", events)
}
