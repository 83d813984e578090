package middleware

import (
	"context"
	"time"

	"github.com/upb/reqlog/logger"
)

// Context key type to avoid collisions
type contextKey string

const (
	// stateKey is the context key for the per-request observability state
	stateKey contextKey = "reqlog_state"

	// requestIDKey is the context key for the correlation id
	requestIDKey contextKey = "request_id"
)

// State is the per-request handle threaded through the middleware chain by
// reference. It owns the request-scoped logger, the labeled timer entries,
// and the error captured from the downstream handler chain.
type State struct {
	logger logger.Logger
	timers map[string]time.Time
	err    error
}

// NewState creates a State bound to lg with no open timers.
func NewState(lg logger.Logger) *State {
	return &State{
		logger: lg,
		timers: make(map[string]time.Time),
	}
}

// Logger returns the request logger. Once the completion record has been
// emitted the reference is cleared and a no-op logger is returned, so stale
// use after the request is harmless.
func (s *State) Logger() logger.Logger {
	if s == nil || s.logger == nil {
		return logger.Nop()
	}
	return s.logger
}

// bindLogger replaces the request logger, typically with a child carrying
// the correlation id.
func (s *State) bindLogger(lg logger.Logger) {
	if s != nil {
		s.logger = lg
	}
}

// clearLogger drops the logger reference after the completion record.
func (s *State) clearLogger() {
	if s != nil {
		s.logger = nil
	}
}

// SetError records err as the request's captured error. The completion
// record reports the last error recorded.
func (s *State) SetError(err error) {
	if s != nil {
		s.err = err
	}
}

// Err returns the captured error, if any.
func (s *State) Err() error {
	if s == nil {
		return nil
	}
	return s.err
}

// WithState adds the per-request state to the context
func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, stateKey, st)
}

// GetStateFromContext retrieves the per-request state from context
func GetStateFromContext(ctx context.Context) *State {
	if val := ctx.Value(stateKey); val != nil {
		if st, ok := val.(*State); ok {
			return st
		}
	}
	return nil
}

// GetLoggerFromContext retrieves the request logger from context. It
// returns a no-op logger when no state is attached, so callers never need
// a nil check.
func GetLoggerFromContext(ctx context.Context) logger.Logger {
	return GetStateFromContext(ctx).Logger()
}

// SetError records err as the request's captured error so the completion
// record reports it. Handlers use this for failures they surface without
// panicking.
func SetError(ctx context.Context, err error) {
	GetStateFromContext(ctx).SetError(err)
}

// GetRequestIDFromContext retrieves the correlation id from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(requestIDKey); val != nil {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// WithRequestID adds a correlation id to the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
