package events

import (
	"encoding/json"
	"io"
	"sync"
)

// Writer emits one JSON envelope per line.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

func (w *Writer) Emit(name string, payload any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(Envelope{Event: name, Payload: payload})
}
