package httpx

import (
	"context"

	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type sessionKey struct{}

// RequestSession is what the session middleware attaches to the request
// context: the opaque session id and the resolved principal, either of which
// may be absent.
type RequestSession struct {
	ID   string
	User *domainauth.Principal
}

// SetSessionInContext returns a child context carrying the request session.
func SetSessionInContext(ctx context.Context, sess *RequestSession) context.Context {
	if sess == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFromContext returns the request session and whether one is present.
func SessionFromContext(ctx context.Context) (*RequestSession, bool) {
	if sess, ok := ctx.Value(sessionKey{}).(*RequestSession); ok && sess != nil {
		return sess, true
	}
	return nil, false
}

// CurrentUser returns the resolved principal, or nil for anonymous requests.
func CurrentUser(ctx context.Context) *domainauth.Principal {
	if sess, ok := SessionFromContext(ctx); ok {
		return sess.User
	}
	return nil
}
