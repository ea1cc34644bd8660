// Package events carries relay output to the presentation layer. Every
// producer talks to a Sink; the concrete sinks differ only in transport.
package events

import "errors"

// Event names understood by the front end.
const (
	SystemUsage    = "system-usage"
	GenerateAnswer = "generate-answer-listener"
)

var ErrClosed = errors.New("event sink closed")

// Sink delivers a named payload to zero or more listeners. Delivery is fire
// and forget: a nil error means the sink accepted the event, not that anyone
// received it. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(name string, payload any) error
}

type SinkFunc func(name string, payload any) error

func (f SinkFunc) Emit(name string, payload any) error {
	return f(name, payload)
}

// Envelope is the wire form of an event on byte-oriented transports.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}
