package context

import (
	"context"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"
)

// GetSessionFromContext retrieves the caller's session id, or "" when
// none was assigned.
func GetSessionFromContext(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionContextKey).(string); ok {
		return sessionID
	}
	return ""
}

// WithSession adds a session id to the context
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionContextKey, sessionID)
}
