package events

import (
	"errors"

	"github.com/bz888/murmur/internal/logger"
)

// Multi fans every event out to all of its sinks. It fails only when every
// sink fails; partial failures are logged.
type Multi []Sink

func (m Multi) Emit(name string, payload any) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Emit(name, payload); err != nil {
			errs = append(errs, err)
		}
	}

	switch {
	case len(errs) == 0:
		return nil
	case len(errs) == len(m):
		return errors.Join(errs...)
	default:
		logger.NewLogger("events").Warn("Event not delivered to every sink", "event", name, "error", errors.Join(errs...))
		return nil
	}
}
