// Package session keeps the process-wide view of who is signed in and
// their backend profile, and mirrors the ID token into the web server's
// session cookie.
package session

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sudo-init-do/bazaar/internal/identity"
	"github.com/sudo-init-do/bazaar/internal/user"
)

// Source is the identity provider as seen by the manager.
type Source interface {
	identity.Resolver
	OnAuthStateChanged(fn identity.Listener) func()
	OnIDTokenChanged(fn identity.Listener) func()
	SignOut(ctx context.Context) error
}

type ProfileFetcher func(ctx context.Context, p identity.Principal) (*user.User, error)

// CookieSync stores the current ID token, or clears it on nil.
type CookieSync interface {
	UpdateAuthToken(ctx context.Context, token *string) error
}

type Option func(*Manager)

func WithCookieSync(c CookieSync) Option {
	return func(m *Manager) { m.cookies = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager is the single owner of session state. Subscribers are called in
// the order state changes happen and may call back into the manager.
type Manager struct {
	source  Source
	fetch   ProfileFetcher
	cookies CookieSync
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group
	wg     sync.WaitGroup

	mu          sync.Mutex
	state       State
	gen         uint64
	subs        map[int]func(State)
	nextSub     int
	pending     []State
	dispatching bool
	started     bool
	closed      bool
	unsubscribe []func()

	syncQueue []identity.Principal
	syncWake  chan struct{}
	// syncBusy counts queued plus in-flight syncs; syncDone is closed when
	// it drops back to zero.
	syncBusy int
	syncDone chan struct{}
}

func New(source Source, fetch ProfileFetcher, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		source:   source,
		fetch:    fetch,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
		state:    State{Phase: PhaseUnknown, Loading: true},
		subs:     make(map[int]func(State)),
		syncWake: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start attaches the manager to the provider.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	if m.cookies != nil {
		m.wg.Add(1)
		go m.syncLoop()
	}

	unsubs := []func(){m.source.OnAuthStateChanged(m.identityChanged)}
	if m.cookies != nil {
		unsubs = append(unsubs, m.source.OnIDTokenChanged(m.tokenChanged))
	}
	m.mu.Lock()
	m.unsubscribe = unsubs
	m.mu.Unlock()
}

// Close detaches from the provider, cancels profile fetches and cookie
// syncs in flight, and stops notifying subscribers.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	unsubs := m.unsubscribe
	m.unsubscribe = nil
	m.subs = map[int]func(State){}
	m.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for every state change.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// CurrentIdentity waits for the provider to be ready before answering.
func (m *Manager) CurrentIdentity(ctx context.Context) (identity.Principal, error) {
	return m.source.CurrentIdentity(ctx)
}

func (m *Manager) identityChanged(p identity.Principal) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if p == nil {
		if m.state.Phase == PhaseUnauthenticated {
			m.mu.Unlock()
			return
		}
		m.gen++
		m.setLocked(State{Phase: PhaseUnauthenticated})
		m.mu.Unlock()
		m.drain()
		return
	}
	if m.state.Identity != nil && m.state.Identity.UID() == p.UID() {
		// Redundant callback for the identity we already have.
		m.mu.Unlock()
		return
	}
	m.gen++
	gen := m.gen
	m.setLocked(State{Phase: PhaseAuthenticated, Identity: p, Loading: true})
	m.wg.Add(1)
	m.mu.Unlock()
	m.drain()

	go func() {
		defer m.wg.Done()
		m.loadProfile(gen, p)
	}()
}

func (m *Manager) loadProfile(gen uint64, p identity.Principal) {
	v, err, _ := m.group.Do(p.UID(), func() (any, error) {
		return m.fetch(m.ctx, p)
	})
	profile, _ := v.(*user.User)
	m.applyProfile(gen, p, profile, err)
}

// ReloadProfile refetches the profile of the current identity.
func (m *Manager) ReloadProfile(ctx context.Context) error {
	m.mu.Lock()
	p := m.state.Identity
	gen := m.gen
	m.mu.Unlock()
	if p == nil {
		return identity.ErrNotAuthenticated
	}
	profile, err := m.fetch(ctx, p)
	m.applyProfile(gen, p, profile, err)
	return err
}

func (m *Manager) applyProfile(gen uint64, p identity.Principal, profile *user.User, err error) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		// A newer identity event superseded this fetch.
		m.mu.Unlock()
		return
	}
	if err != nil || profile == nil {
		m.logger.Warn("fetch session profile", "uid", p.UID(), "error", err)
		m.setLocked(State{Phase: PhaseProfileError, Identity: p})
	} else {
		m.setLocked(State{Phase: PhaseProfileReady, Identity: p, Profile: profile})
	}
	m.mu.Unlock()
	m.drain()
}

func (m *Manager) setLocked(st State) {
	m.state = st
	m.pending = append(m.pending, st)
}

func (m *Manager) drain() {
	m.mu.Lock()
	if m.dispatching {
		m.mu.Unlock()
		return
	}
	m.dispatching = true
	for len(m.pending) > 0 && !m.closed {
		st := m.pending[0]
		m.pending = m.pending[1:]
		subs := make([]func(State), 0, len(m.subs))
		for id := 1; id <= m.nextSub; id++ {
			if fn, ok := m.subs[id]; ok {
				subs = append(subs, fn)
			}
		}
		m.mu.Unlock()
		for _, fn := range subs {
			fn(st)
		}
		m.mu.Lock()
	}
	m.pending = nil
	m.dispatching = false
	m.mu.Unlock()
}

func (m *Manager) tokenChanged(p identity.Principal) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.syncQueue = append(m.syncQueue, p)
	m.syncBusy++
	if m.syncDone == nil {
		m.syncDone = make(chan struct{})
	}
	m.mu.Unlock()

	select {
	case m.syncWake <- struct{}{}:
	default:
	}
}

// syncLoop pushes token changes to the cookie endpoint one at a time, in
// the order they happened. A failed push signs the user out so the client
// and server never disagree about the session.
func (m *Manager) syncLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.syncWake:
		}
		for {
			m.mu.Lock()
			if len(m.syncQueue) == 0 {
				m.mu.Unlock()
				break
			}
			p := m.syncQueue[0]
			m.syncQueue = m.syncQueue[1:]
			m.mu.Unlock()

			if err := m.syncCookie(p); err != nil {
				if m.ctx.Err() != nil {
					return
				}
				m.logger.Error("failed to update auth token cookie", "error", err)
				if p != nil {
					if err := m.source.SignOut(m.ctx); err != nil {
						m.logger.Error("forced sign out", "error", err)
					}
				}
			}
			m.syncFinished()
		}
	}
}

func (m *Manager) syncFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncBusy--
	if m.syncBusy == 0 && m.syncDone != nil {
		close(m.syncDone)
		m.syncDone = nil
	}
}

// WaitSynced blocks until every token change seen so far has been pushed to
// the cookie endpoint. Short-lived processes call it before Close.
func (m *Manager) WaitSynced(ctx context.Context) error {
	m.mu.Lock()
	done := m.syncDone
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return m.ctx.Err()
	}
}

func (m *Manager) syncCookie(p identity.Principal) error {
	if p == nil {
		return m.cookies.UpdateAuthToken(m.ctx, nil)
	}
	token, err := p.IDToken(m.ctx)
	if err != nil {
		return err
	}
	return m.cookies.UpdateAuthToken(m.ctx, &token)
}
