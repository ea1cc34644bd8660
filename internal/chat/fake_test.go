package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/bz888/murmur/internal/ollama"
)

// fakeBackend replays chunks the way OllamaClient.Chat does: in order,
// stopping at the first callback error.
type fakeBackend struct {
	openErr error
	tailErr error
	chunks  []string
	// block, when set, makes the stream hang after the listed chunks until
	// the context ends.
	block bool

	mu   sync.Mutex
	read int
	req  *ollama.ChatRequest
}

func (f *fakeBackend) Chat(ctx context.Context, req *ollama.ChatRequest, fn func([]byte) error) error {
	f.mu.Lock()
	f.req = req
	f.mu.Unlock()

	if f.openErr != nil {
		return f.openErr
	}
	for _, c := range f.chunks {
		f.mu.Lock()
		f.read++
		f.mu.Unlock()
		if err := fn([]byte(c)); err != nil {
			return err
		}
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.tailErr
}

func (f *fakeBackend) chunksRead() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read
}

type recordingSink struct {
	mu     sync.Mutex
	names  []string
	frags  []Fragment
	failAt int // 1-based emission that fails; 0 never
	onEmit func()
}

func (s *recordingSink) Emit(name string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.frags)+1 == s.failAt {
		return fmt.Errorf("window closed")
	}
	s.names = append(s.names, name)
	s.frags = append(s.frags, payload.(Fragment))
	if s.onEmit != nil {
		s.onEmit()
	}
	return nil
}

func (s *recordingSink) fragments() []Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Fragment(nil), s.frags...)
}

func chunk(content string, done bool) string {
	return fmt.Sprintf(`{"model":"llama3","created_at":"2024-05-06T10:00:00Z","message":{"role":"assistant","content":%q},"done":%t}`, content, done)
}
