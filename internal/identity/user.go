package identity

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// refreshWindow is how close to expiry a cached ID token is still handed out.
const refreshWindow = 5 * time.Minute

// User is the provider-side signed-in user.
type User struct {
	auth  *Auth
	uid   string
	email string

	mu           sync.Mutex
	idToken      string
	refreshToken string
	expiresAt    time.Time
}

func (a *Auth) newUser(t *Tokens) *User {
	return &User{
		auth:         a,
		uid:          t.UID,
		email:        t.Email,
		idToken:      t.IDToken,
		refreshToken: t.RefreshToken,
		expiresAt:    t.ExpiresAt,
	}
}

func (u *User) UID() string   { return u.uid }
func (u *User) Email() string { return u.email }

// IDToken returns the cached token, refreshing it first when it expires
// within refreshWindow. A refresh fires OnIDTokenChanged.
func (u *User) IDToken(ctx context.Context) (string, error) {
	u.mu.Lock()
	if u.idToken != "" && u.auth.now().Add(refreshWindow).Before(u.expiresAt) {
		tok := u.idToken
		u.mu.Unlock()
		return tok, nil
	}
	refresh := u.refreshToken
	u.mu.Unlock()

	tokens, err := u.auth.backend.Refresh(ctx, refresh)
	if err != nil {
		return "", fmt.Errorf("refresh id token: %w", err)
	}

	u.mu.Lock()
	u.idToken = tokens.IDToken
	if tokens.RefreshToken != "" {
		u.refreshToken = tokens.RefreshToken
	}
	u.expiresAt = tokens.ExpiresAt
	tok := u.idToken
	u.mu.Unlock()

	u.auth.tokenRefreshed(u)
	return tok, nil
}

// ExpiresAt reports when the cached ID token expires.
func (u *User) ExpiresAt() time.Time {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.expiresAt
}
