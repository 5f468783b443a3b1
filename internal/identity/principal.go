// Package identity talks to the identity provider: password sign-in, ID
// token refresh, persisted sessions and server-side token verification.
package identity

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("account disabled")
	ErrSessionExpired     = errors.New("session expired")
)

// Principal is a signed-in identity. IDToken returns a bearer token that is
// valid for at least a few minutes, refreshing it when needed.
type Principal interface {
	UID() string
	Email() string
	IDToken(ctx context.Context) (string, error)
}

// Resolver answers "who is calling". A nil Principal with a nil error means
// nobody is signed in.
type Resolver interface {
	CurrentIdentity(ctx context.Context) (Principal, error)
}

// Require resolves the current identity and its bearer token, failing with
// ErrNotAuthenticated when nobody is signed in.
func Require(ctx context.Context, r Resolver) (Principal, string, error) {
	if r == nil {
		return nil, "", ErrNotAuthenticated
	}
	p, err := r.CurrentIdentity(ctx)
	if err != nil {
		return nil, "", err
	}
	if p == nil {
		return nil, "", ErrNotAuthenticated
	}
	token, err := p.IDToken(ctx)
	if err != nil {
		return nil, "", err
	}
	return p, token, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// TokenPrincipal wraps an already verified token, as seen by the web server.
type TokenPrincipal struct {
	uid   string
	email string
	token string
}

func NewTokenPrincipal(uid, email, token string) *TokenPrincipal {
	return &TokenPrincipal{uid: uid, email: email, token: token}
}

func (p *TokenPrincipal) UID() string   { return p.uid }
func (p *TokenPrincipal) Email() string { return p.email }

func (p *TokenPrincipal) IDToken(context.Context) (string, error) { return p.token, nil }

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

// ContextResolver resolves the principal attached to the request context.
type ContextResolver struct{}

func (ContextResolver) CurrentIdentity(ctx context.Context) (Principal, error) {
	return FromContext(ctx), nil
}
