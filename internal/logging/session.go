package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// SessionHandler wraps another handler and adds the active session's
// attributes to every record. The session can change while loggers derived
// from the handler are in use.
type SessionHandler struct {
	inner slog.Handler
	attrs *atomic.Pointer[[]slog.Attr]
}

// NewSessionHandler creates a handler with no session set.
func NewSessionHandler(inner slog.Handler) *SessionHandler {
	return &SessionHandler{
		inner: inner,
		attrs: &atomic.Pointer[[]slog.Attr]{},
	}
}

// SetSession replaces the attributes added to each record.
func (h *SessionHandler) SetSession(attrs ...slog.Attr) {
	h.attrs.Store(&attrs)
}

// Enabled delegates to the inner handler.
func (h *SessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds the session attributes and delegates to the inner handler.
func (h *SessionHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := h.attrs.Load(); attrs != nil {
		r.AddAttrs(*attrs...)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a handler sharing this handler's session.
func (h *SessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SessionHandler{
		inner: h.inner.WithAttrs(attrs),
		attrs: h.attrs,
	}
}

// WithGroup returns a handler sharing this handler's session.
func (h *SessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SessionHandler{
		inner: h.inner.WithGroup(name),
		attrs: h.attrs,
	}
}
