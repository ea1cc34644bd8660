package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bz888/murmur/internal/events"
	"github.com/bz888/murmur/internal/logger"
	"github.com/bz888/murmur/internal/ollama"
)

// Backend opens a streamed chat. fn receives each raw chunk in arrival order;
// returning an error from fn must stop the stream without reading further.
type Backend interface {
	Chat(ctx context.Context, req *ollama.ChatRequest, fn func([]byte) error) error
}

// Orchestrator relays a streamed chat to an event sink, one fragment per
// chunk. It holds no per-prompt state, so concurrent SendPrompt calls are
// independent and distinguished by their request ids.
type Orchestrator struct {
	backend Backend
	sink    events.Sink
	timeout time.Duration
	newID   func() string
	now     func() time.Time
}

type Option func(*Orchestrator)

// WithTimeout bounds every prompt. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

func WithRequestIDs(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

func NewOrchestrator(backend Backend, sink events.Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend: backend,
		sink:    sink,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// errStreamDone stops the backend read loop after the done chunk.
var errStreamDone = errors.New("stream done")

// SendPrompt streams the answer to p and returns once the backend signals
// done or closes the stream. The returned request id is p.RequestID, or a
// fresh one when that was empty; every emitted fragment carries it.
func (o *Orchestrator) SendPrompt(ctx context.Context, p Prompt) (string, error) {
	id := p.RequestID
	if id == "" {
		id = o.newID()
	}
	localLogger := logger.NewLogger("chat").With("request_id", id, "model", p.Config.Model)

	req, err := Translate(p.History, p.Config)
	if err != nil {
		localLogger.Error("Failed to translate conversation", "error", err)
		return id, err
	}
	if dropped := Unrecognized(p.History); len(dropped) > 0 {
		roles := make([]string, len(dropped))
		for i, msg := range dropped {
			roles[i] = msg.Role.String()
		}
		localLogger.Warn("Dropped messages with unrecognized roles", "count", len(dropped), "roles", roles)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	var chunks, emitted int
	err = o.backend.Chat(ctx, req, func(line []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunks++

		var chunk ollama.ChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			localLogger.Error("Failed to decode chunk", "error", err, "raw", string(line))
			return fmt.Errorf("%w: chunk %d after %d fragments: %w", ErrStreamDecode, chunks, emitted, err)
		}
		if chunk.Error != "" {
			return fmt.Errorf("%w: %s", ErrBackendUnavailable, chunk.Error)
		}

		if chunk.Message != nil {
			if err := o.sink.Emit(events.GenerateAnswer, fragmentFrom(id, chunk)); err != nil {
				return fmt.Errorf("%w: %w", ErrSinkUnavailable, err)
			}
			emitted++
			localLogger.Debug("Relayed chunk", "chunk", chunks, "done", chunk.Done)
		}

		if chunk.Done {
			return errStreamDone
		}
		return nil
	})

	switch {
	case err == nil || errors.Is(err, errStreamDone):
		localLogger.Info("Prompt completed", "chunks", chunks, "fragments", emitted)
		return id, nil

	case ctx.Err() != nil:
		reason := DoneReasonCancelled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = DoneReasonTimeout
		}
		if emitErr := o.sink.Emit(events.GenerateAnswer, o.terminalFragment(id, p.Config.Model, reason)); emitErr != nil {
			localLogger.Error("Failed to emit terminal fragment", "error", emitErr)
		}
		localLogger.Warn("Prompt stopped", "reason", reason, "fragments", emitted)
		return id, fmt.Errorf("%w after %d fragments: %w", ErrCancelled, emitted, ctx.Err())

	case errors.Is(err, ollama.ErrChunkTooLarge):
		localLogger.Error("Oversized chunk", "chunk", chunks+1, "fragments", emitted)
		return id, fmt.Errorf("%w: chunk %d after %d fragments: %w", ErrStreamDecode, chunks+1, emitted, err)

	case errors.Is(err, ErrStreamDecode), errors.Is(err, ErrSinkUnavailable), errors.Is(err, ErrBackendUnavailable):
		localLogger.Error("Prompt aborted", "error", err, "fragments", emitted)
		return id, err

	case chunks == 0:
		localLogger.Error("Failed to open chat stream", "error", err)
		return id, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)

	default:
		localLogger.Error("Chat stream interrupted", "error", err, "fragments", emitted)
		return id, fmt.Errorf("%w: stream interrupted after %d fragments: %w", ErrBackendUnavailable, emitted, err)
	}
}

func fragmentFrom(id string, chunk ollama.ChatResponse) Fragment {
	return Fragment{
		RequestID: id,
		Model:     chunk.Model,
		Message: Message{
			Role:    Role(chunk.Message.Role),
			Content: chunk.Message.Content,
		},
		CreatedAt:  chunk.CreatedAt,
		Done:       chunk.Done,
		DoneReason: chunk.DoneReason,
	}
}

func (o *Orchestrator) terminalFragment(id, model, reason string) Fragment {
	return Fragment{
		RequestID:  id,
		Model:      model,
		Message:    Message{Role: RoleAssistant},
		CreatedAt:  o.now().UTC().Format(time.RFC3339Nano),
		Done:       true,
		DoneReason: reason,
	}
}
