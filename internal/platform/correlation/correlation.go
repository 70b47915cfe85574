package correlation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Header is the HTTP header carrying a caller-supplied correlation ID.
const Header = "X-Correlation-ID"

// MaxLength bounds a caller-supplied ID. Longer values are replaced.
const MaxLength = 64

type contextKey struct{}

// NewID generates an 8-character hex correlation ID (4 random bytes).
func NewID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewJobID tags a fresh ID with the background job that owns it, e.g.
// "snapshot-1a2b3c4d", so scheduler log lines never look like request lines.
func NewJobID(job string) string {
	return job + "-" + NewID()
}

// FromHeader returns the caller's ID when it is usable in a log line, and a
// fresh ID otherwise. Usable means non-empty, at most MaxLength bytes, and
// drawn from [A-Za-z0-9._-].
func FromHeader(v string) string {
	if v == "" || len(v) > MaxLength {
		return NewID()
	}
	for i := 0; i < len(v); i++ {
		if !idByte(v[i]) {
			return NewID()
		}
	}
	return v
}

func idByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '-', b == '_', b == '.':
		return true
	}
	return false
}

// WithID returns a new context carrying the given correlation ID.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// ID extracts the correlation ID from ctx, returning ("", false) if not present.
func ID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// EnsureJob returns ctx unchanged if it already carries an ID, otherwise a
// context with a fresh NewJobID(job).
func EnsureJob(ctx context.Context, job string) context.Context {
	if _, ok := ID(ctx); ok {
		return ctx
	}
	return WithID(ctx, NewJobID(job))
}

// Handler wraps an existing slog.Handler to automatically inject a
// "correlation_id" attribute when the context carries one.
type Handler struct {
	inner slog.Handler
}

// NewHandler creates a correlation-aware handler wrapping the given handler.
func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ID(ctx); ok {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("correlation handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}
