package handlers

import "context"

type sessionKey struct{}

// WithSessionID returns a context carrying the caller's session id
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionID returns the session id stored by WithSessionID, or ""
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
