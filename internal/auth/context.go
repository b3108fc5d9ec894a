package auth

import "context"

type contextKey string

const sessionKey contextKey = "session"

// WithSession returns a copy of ctx carrying the authenticated session.
func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext extracts the authenticated session placed in the
// context by the session middleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionKey).(Session)
	return session, ok
}
