package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns attributes describing the current session, read
// fresh for every record.
type ContextProvider func() []slog.Attr

// ContextHandler stamps records with the provider's attributes ahead of the
// record's own, so session and camera state lead every line.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler wraps inner. A nil provider adds nothing.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

// Enabled defers to the wrapped handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle rebuilds r with the provider attributes first and passes it on.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider == nil {
		return h.inner.Handle(ctx, r)
	}
	extra := h.provider()
	if len(extra) == 0 {
		return h.inner.Handle(ctx, r)
	}

	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	out.AddAttrs(extra...)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(a)
		return true
	})
	return h.inner.Handle(ctx, out)
}

// WithAttrs returns a ContextHandler over inner.WithAttrs, keeping the provider.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

// WithGroup returns a ContextHandler over inner.WithGroup. Provider
// attributes land inside the group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}
