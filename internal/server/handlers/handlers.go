package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bz888/murmur/internal/chat"
	"github.com/bz888/murmur/internal/logger"
	"github.com/bz888/murmur/internal/ollama"
)

type Prompter interface {
	SendPrompt(ctx context.Context, p chat.Prompt) (string, error)
}

type ModelLister interface {
	ListModels(ctx context.Context) ([]ollama.Model, error)
}

type Monitor interface {
	Start(ctx context.Context) bool
}

// Handler maps the three front-end commands onto the relay. The sampler is
// started with appCtx so it outlives the request that asked for it.
type Handler struct {
	appCtx   context.Context
	prompter Prompter
	catalog  ModelLister
	monitor  Monitor
}

type PromptResponse struct {
	RequestID string `json:"request_id"`
}

type MonitoringResponse struct {
	Started bool `json:"started"`
	Running bool `json:"running"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func NewHandler(appCtx context.Context, prompter Prompter, catalog ModelLister, monitor Monitor) *Handler {
	return &Handler{
		appCtx:   appCtx,
		prompter: prompter,
		catalog:  catalog,
		monitor:  monitor,
	}
}

// PromptHandler runs one prompt to completion. Fragments travel over the
// event sink; the response only reports how the stream ended.
func (h *Handler) PromptHandler(w http.ResponseWriter, r *http.Request) {
	localLogger := logger.NewLogger("PromptHandler")
	defer r.Body.Close()

	var prompt chat.Prompt
	if err := json.NewDecoder(r.Body).Decode(&prompt); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid prompt: " + err.Error()})
		return
	}

	id, err := h.prompter.SendPrompt(r.Context(), prompt)
	if err != nil {
		status := promptStatus(err)
		localLogger.Error("Prompt failed", "request_id", id, "status", status, "error", err)
		writeJSON(w, status, ErrorResponse{Error: err.Error(), RequestID: id})
		return
	}

	writeJSON(w, http.StatusOK, PromptResponse{RequestID: id})
}

func (h *Handler) ModelHandler(w http.ResponseWriter, r *http.Request) {
	models, err := h.catalog.ListModels(r.Context())
	if err != nil {
		logger.NewLogger("ModelHandler").Error("Listing models failed", "error", err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (h *Handler) MonitoringHandler(w http.ResponseWriter, r *http.Request) {
	started := h.monitor.Start(h.appCtx)
	writeJSON(w, http.StatusAccepted, MonitoringResponse{Started: started, Running: true})
}

func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func promptStatus(err error) int {
	switch {
	case errors.Is(err, chat.ErrImageDecode):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, chat.ErrCancelled):
		return http.StatusRequestTimeout
	case errors.Is(err, chat.ErrSinkUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, chat.ErrBackendUnavailable), errors.Is(err, chat.ErrStreamDecode):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.NewLogger("handlers").Error("Failed to encode response", "error", err)
	}
}
