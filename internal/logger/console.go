package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// consoleHandler renders one line per record as "LEVEL (tag): message k=v".
// With colour set the line is wrapped in tview colour tags for the debug console.
type consoleHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Level
	colour bool
	attrs  []slog.Attr
}

func newConsoleHandler(out io.Writer, level slog.Level, colour bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, out: out, level: level, colour: colour}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	tag := "-"
	var b strings.Builder
	b.WriteString(r.Message)

	write := func(a slog.Attr) bool {
		if a.Key == tagKey {
			tag = a.Value.String()
			return true
		}
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)

	line := fmt.Sprintf("%s (%s): %s", r.Level.String(), tag, b.String())
	if h.colour {
		line = fmt.Sprintf("[%s]%s[-]", levelColour(r.Level), line)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.out, line)
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *consoleHandler) WithGroup(string) slog.Handler {
	return h
}

func levelColour(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "red"
	case level >= slog.LevelWarn:
		return "yellow"
	case level >= slog.LevelInfo:
		return "green"
	default:
		return "gray"
	}
}
