package ui

import (
	"strings"
	"sync"

	"github.com/bz888/murmur/internal/chat"
	"github.com/google/uuid"
)

// Session is the in-memory conversation behind the terminal UI. A user turn
// joins the history only once its answer has finished streaming.
type Session struct {
	mu      sync.Mutex
	config  chat.GenerationConfig
	history []chat.Message
	pending map[string]*exchange
}

type exchange struct {
	question chat.Message
	answer   strings.Builder
}

func NewSession(cfg chat.GenerationConfig) *Session {
	return &Session{config: cfg, pending: make(map[string]*exchange)}
}

func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Model
}

func (s *Session) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Model = model
}

// Prompt builds the request for content: the committed history followed by
// the new user turn.
func (s *Session) Prompt(content string) chat.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()

	question := chat.Message{Role: chat.RoleUser, Content: content}
	id := uuid.NewString()
	s.pending[id] = &exchange{question: question}

	history := make([]chat.Message, 0, len(s.history)+1)
	history = append(history, s.history...)
	history = append(history, question)

	return chat.Prompt{RequestID: id, Config: s.config, History: history}
}

// Observe accumulates a fragment. It reports false for fragments of requests
// this session did not start. An answer cut short by cancellation or timeout
// is not kept.
func (s *Session) Observe(f chat.Fragment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex, ok := s.pending[f.RequestID]
	if !ok {
		return false
	}
	ex.answer.WriteString(f.Message.Content)
	if !f.Done {
		return true
	}

	delete(s.pending, f.RequestID)
	if f.DoneReason == chat.DoneReasonCancelled || f.DoneReason == chat.DoneReasonTimeout {
		return true
	}
	if ex.answer.Len() > 0 {
		s.history = append(s.history, ex.question, chat.Message{
			Role:    chat.RoleAssistant,
			Content: ex.answer.String(),
		})
	}
	return true
}

// Abandon forgets a request that failed before finishing.
func (s *Session) Abandon(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, requestID)
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

func (s *Session) History() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.history...)
}
