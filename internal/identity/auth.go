package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Tokens is what the provider hands back on sign-in and refresh.
type Tokens struct {
	UID          string
	Email        string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Backend is the provider's token API.
type Backend interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
}

// Store persists the refresh token between process runs.
type Store interface {
	Load() (*StoredSession, error)
	Save(s *StoredSession) error
	Clear() error
}

type StoredSession struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	RefreshToken string `json:"refresh_token"`
}

// Listener receives the current user, or nil after sign-out.
type Listener func(p Principal)

type eventKind int

const (
	authStateChanged eventKind = iota
	idTokenChanged
)

type event struct {
	kind eventKind
	user *User
	// only, when non-zero, targets a single newly registered listener.
	only int
}

type listener struct {
	kind eventKind
	fn   Listener
}

// Auth holds the provider session for one process. Listeners are called
// in the order events happen; a listener may call back into Auth.
type Auth struct {
	backend Backend
	store   Store
	logger  *slog.Logger
	now     func() time.Time

	startOnce sync.Once
	ready     chan struct{}

	mu          sync.Mutex
	current     *User
	isReady     bool
	listeners   map[int]listener
	nextID      int
	queue       []event
	dispatching bool
}

type AuthOption func(*Auth)

func WithStore(s Store) AuthOption {
	return func(a *Auth) { a.store = s }
}

func WithLogger(l *slog.Logger) AuthOption {
	return func(a *Auth) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithClock(now func() time.Time) AuthOption {
	return func(a *Auth) { a.now = now }
}

func NewAuth(backend Backend, opts ...AuthOption) *Auth {
	a := &Auth{
		backend:   backend,
		logger:    slog.Default(),
		now:       time.Now,
		ready:     make(chan struct{}),
		listeners: make(map[int]listener),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start restores a persisted session, if any, and then signals readiness.
// A session that can no longer be refreshed is discarded.
func (a *Auth) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		u := a.restore(ctx)

		a.mu.Lock()
		if a.current == nil {
			a.current = u
		}
		a.isReady = true
		close(a.ready)
		a.queue = append(a.queue,
			event{kind: authStateChanged, user: a.current},
			event{kind: idTokenChanged, user: a.current},
		)
		a.mu.Unlock()
		a.drain()
	})
}

func (a *Auth) restore(ctx context.Context) *User {
	if a.store == nil {
		return nil
	}
	saved, err := a.store.Load()
	if err != nil {
		a.logger.Warn("load persisted session", "error", err)
		return nil
	}
	if saved == nil || saved.RefreshToken == "" {
		return nil
	}
	tokens, err := a.backend.Refresh(ctx, saved.RefreshToken)
	if err != nil {
		a.logger.Warn("restore session", "uid", saved.UID, "error", err)
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrUserDisabled) {
			_ = a.store.Clear()
		}
		return nil
	}
	if tokens.Email == "" {
		tokens.Email = saved.Email
	}
	u := a.newUser(tokens)
	a.persist(u)
	return u
}

// Ready blocks until Start has finished restoring state.
func (a *Auth) Ready(ctx context.Context) error {
	select {
	case <-a.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CurrentUser returns the signed-in user, or nil.
func (a *Auth) CurrentUser() *User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// CurrentIdentity waits for readiness so callers never observe the
// pre-restore state.
func (a *Auth) CurrentIdentity(ctx context.Context) (Principal, error) {
	if err := a.Ready(ctx); err != nil {
		return nil, err
	}
	if u := a.CurrentUser(); u != nil {
		return u, nil
	}
	return nil, nil
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (*User, error) {
	tokens, err := a.backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	u := a.newUser(tokens)

	a.mu.Lock()
	prev := a.current
	a.current = u
	a.persist(u)
	if prev == nil || prev.UID() != u.UID() {
		a.queue = append(a.queue, event{kind: authStateChanged, user: u})
	}
	a.queue = append(a.queue, event{kind: idTokenChanged, user: u})
	a.mu.Unlock()
	a.drain()
	return u, nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	var err error
	a.mu.Lock()
	prev := a.current
	a.current = nil
	if a.store != nil {
		if cerr := a.store.Clear(); cerr != nil {
			err = fmt.Errorf("clear persisted session: %w", cerr)
		}
	}
	if prev != nil {
		a.queue = append(a.queue,
			event{kind: authStateChanged},
			event{kind: idTokenChanged},
		)
	}
	a.mu.Unlock()
	a.drain()
	return err
}

// OnAuthStateChanged fires when the signed-in user changes. If Start has
// completed it fires once right away with the current user.
func (a *Auth) OnAuthStateChanged(fn Listener) (unsubscribe func()) {
	return a.subscribe(authStateChanged, fn)
}

// OnIDTokenChanged fires on sign-in, sign-out and every token refresh.
func (a *Auth) OnIDTokenChanged(fn Listener) (unsubscribe func()) {
	return a.subscribe(idTokenChanged, fn)
}

func (a *Auth) subscribe(kind eventKind, fn Listener) func() {
	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.listeners[id] = listener{kind: kind, fn: fn}
	if a.isReady {
		a.queue = append(a.queue, event{kind: kind, user: a.current, only: id})
	}
	a.mu.Unlock()
	a.drain()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

// tokenRefreshed persists and announces a refresh, but only for the
// current user: a stale principal must not resurrect a signed-out session.
func (a *Auth) tokenRefreshed(u *User) {
	a.mu.Lock()
	if a.current != u {
		a.mu.Unlock()
		return
	}
	a.persist(u)
	a.queue = append(a.queue, event{kind: idTokenChanged, user: u})
	a.mu.Unlock()
	a.drain()
}

// drain delivers queued events. Whoever finds the queue idle delivers
// everything, including events enqueued by listeners meanwhile.
func (a *Auth) drain() {
	a.mu.Lock()
	if a.dispatching {
		a.mu.Unlock()
		return
	}
	a.dispatching = true
	for len(a.queue) > 0 {
		ev := a.queue[0]
		a.queue = a.queue[1:]

		var targets []Listener
		if ev.only != 0 {
			if l, ok := a.listeners[ev.only]; ok {
				targets = append(targets, l.fn)
			}
		} else {
			for id := 1; id <= a.nextID; id++ {
				if l, ok := a.listeners[id]; ok && l.kind == ev.kind {
					targets = append(targets, l.fn)
				}
			}
		}
		a.mu.Unlock()

		var p Principal
		if ev.user != nil {
			p = ev.user
		}
		for _, fn := range targets {
			fn(p)
		}
		a.mu.Lock()
	}
	a.dispatching = false
	a.mu.Unlock()
}

// persist saves u. Callers hold a.mu, except restore which runs before
// anyone can sign in or out.
func (a *Auth) persist(u *User) {
	if a.store == nil {
		return
	}
	u.mu.Lock()
	s := &StoredSession{UID: u.uid, Email: u.email, RefreshToken: u.refreshToken}
	u.mu.Unlock()
	if err := a.store.Save(s); err != nil {
		a.logger.Warn("persist session", "uid", s.UID, "error", err)
	}
}
