package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler fans each record out to every sink that accepts its level.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler builds a fan-out over the non-nil sinks.
func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	m := &MultiHandler{sinks: make([]slog.Handler, 0, len(sinks))}
	for _, h := range sinks {
		if h != nil {
			m.sinks = append(m.sinks, h)
		}
	}
	return m
}

// Enabled reports whether any sink accepts level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes to every enabled sink. A failing sink (a dropped Graylog
// connection, say) does not stop the others; failures come back joined.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.sinks {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs applies attrs to every sink.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup opens the group on every sink.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

// each returns a new MultiHandler with fn applied to every sink.
func (m *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	out := &MultiHandler{sinks: make([]slog.Handler, len(m.sinks))}
	for i, h := range m.sinks {
		out.sinks[i] = fn(h)
	}
	return out
}
