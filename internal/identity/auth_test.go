package identity

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu        sync.Mutex
	users     map[string]string // email -> password
	refreshes int
	ttl       time.Duration
	failNext  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{users: map[string]string{"ann@example.com": "pw"}, ttl: time.Hour}
}

func (f *fakeBackend) SignInWithPassword(_ context.Context, email, password string) (*Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users[email] != password {
		return nil, ErrInvalidCredentials
	}
	return &Tokens{
		UID:          "uid-" + email,
		Email:        email,
		IDToken:      "id-0",
		RefreshToken: "refresh-" + email,
		ExpiresAt:    time.Now().Add(f.ttl),
	}, nil
}

func (f *fakeBackend) Refresh(_ context.Context, refreshToken string) (*Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	f.refreshes++
	return &Tokens{
		UID:          "uid-ann@example.com",
		IDToken:      fmt.Sprintf("id-%d", f.refreshes),
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func uids(ps []Principal) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		if p != nil {
			out[i] = p.UID()
		}
	}
	return out
}

func TestSignInSignOutEvents(t *testing.T) {
	ctx := context.Background()
	a := NewAuth(newFakeBackend())

	var states, tokens []Principal
	a.OnAuthStateChanged(func(p Principal) { states = append(states, p) })
	a.OnIDTokenChanged(func(p Principal) { tokens = append(tokens, p) })

	a.Start(ctx)
	_, err := a.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	_, err = a.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, a.SignOut(ctx))

	assert.Equal(t, []string{"", "uid-ann@example.com", ""}, uids(states))
	assert.Equal(t, []string{"", "uid-ann@example.com", "uid-ann@example.com", ""}, uids(tokens))
	assert.Nil(t, a.CurrentUser())
}

func TestSignInWrongPassword(t *testing.T) {
	a := NewAuth(newFakeBackend())
	_, err := a.SignIn(context.Background(), "ann@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLateSubscriberGetsCurrentState(t *testing.T) {
	ctx := context.Background()
	a := NewAuth(newFakeBackend())
	a.Start(ctx)
	_, err := a.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)

	var got []Principal
	unsubscribe := a.OnAuthStateChanged(func(p Principal) { got = append(got, p) })
	assert.Equal(t, []string{"uid-ann@example.com"}, uids(got))

	unsubscribe()
	require.NoError(t, a.SignOut(ctx))
	assert.Len(t, got, 1)
}

func TestCurrentIdentityWaitsForReady(t *testing.T) {
	a := NewAuth(newFakeBackend())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := a.CurrentIdentity(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	done := make(chan Principal)
	go func() {
		p, _ := a.CurrentIdentity(context.Background())
		done <- p
	}()
	a.Start(context.Background())
	assert.Nil(t, <-done)
}

func TestIDTokenRefreshesNearExpiry(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.ttl = 2 * time.Minute
	a := NewAuth(backend)
	a.Start(ctx)

	u, err := a.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)

	var refreshed int
	a.OnIDTokenChanged(func(p Principal) { refreshed++ })
	refreshed = 0

	tok, err := u.IDToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "id-1", tok)
	assert.Equal(t, 1, refreshed)

	tok, err = u.IDToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "id-1", tok, "fresh token is reused")
	assert.Equal(t, 1, backend.refreshes)
}

func TestListenerMayReenter(t *testing.T) {
	ctx := context.Background()
	a := NewAuth(newFakeBackend())
	a.Start(ctx)

	var seen []string
	a.OnAuthStateChanged(func(p Principal) {
		if p != nil {
			seen = append(seen, p.UID())
			require.NoError(t, a.SignOut(ctx))
			return
		}
		seen = append(seen, "")
	})
	_, err := a.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)

	assert.Equal(t, []string{"", "uid-ann@example.com", ""}, seen)
	assert.Nil(t, a.CurrentUser())
}

func TestStartRestoresPersistedSession(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(&StoredSession{UID: "uid-ann@example.com", Email: "ann@example.com", RefreshToken: "r"}))

	a := NewAuth(newFakeBackend(), WithStore(store))
	a.Start(ctx)

	p, err := a.CurrentIdentity(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "uid-ann@example.com", p.UID())
	assert.Equal(t, "ann@example.com", p.Email())
}

func TestStartDropsExpiredSession(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(&StoredSession{UID: "u", RefreshToken: "r"}))

	backend := newFakeBackend()
	backend.failNext = ErrSessionExpired
	a := NewAuth(backend, WithStore(store))
	a.Start(ctx)

	assert.Nil(t, a.CurrentUser())
	saved, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestSignOutClearsStore(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
	a := NewAuth(newFakeBackend(), WithStore(store))
	a.Start(ctx)

	_, err := a.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	saved, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "refresh-ann@example.com", saved.RefreshToken)

	require.NoError(t, a.SignOut(ctx))
	saved, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestStaleUserRefreshDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)
	backend := newFakeBackend()
	backend.ttl = time.Minute
	a := NewAuth(backend, WithStore(store))
	a.Start(ctx)

	u, err := a.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, a.SignOut(ctx))

	_, err = u.IDToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.refreshes)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)

	next := NewAuth(newFakeBackend(), WithStore(NewFileStore(path)))
	next.Start(ctx)
	assert.Nil(t, next.CurrentUser())
}

func TestRefreshPersistsCurrentUser(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	backend := newFakeBackend()
	backend.ttl = time.Minute
	a := NewAuth(backend, WithStore(store))
	a.Start(ctx)

	u, err := a.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, store.Clear())

	_, err = u.IDToken(ctx)
	require.NoError(t, err)
	saved, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "uid-ann@example.com", saved.UID)
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	_, _, err := Require(ctx, ContextResolver{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	ctx = WithPrincipal(ctx, NewTokenPrincipal("u1", "u1@example.com", "tok"))
	p, tok, err := Require(ctx, ContextResolver{})
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UID())
	assert.Equal(t, "tok", tok)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}
