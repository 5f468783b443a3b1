package marketplace

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sudo-init-do/bazaar/internal/debounce"
)

const (
	SuggestionQuietPeriod = 700 * time.Millisecond
	MinDescriptionLength  = 10
)

// SuggestionInput is the part of the listing form suggestions depend on.
type SuggestionInput struct {
	Title       string
	Description string
	Condition   string
	Language    SuggestionLanguage
}

func (in SuggestionInput) HasInput() bool {
	return strings.TrimSpace(in.Description) != ""
}

func (in SuggestionInput) HasMinimumInput() bool {
	return len([]rune(strings.TrimSpace(in.Description))) >= MinDescriptionLength
}

type SuggestionState struct {
	Suggestions []string
	Loading     bool
	// Err is set when the last fetch failed; suggestions are then simply
	// unavailable.
	Err error
}

type SuggestionFetcher interface {
	Suggestions(ctx context.Context, req NewListingSuggestionRequest) ([]string, error)
}

// SuggestionWatcher fetches suggestions as the seller types. A fetch is
// issued once the description is long enough and input has been quiet for
// SuggestionQuietPeriod; an older response never replaces a newer one.
type SuggestionWatcher struct {
	fetcher SuggestionFetcher
	logger  *slog.Logger
	deb     *debounce.Debouncer[SuggestionInput, []string]

	mu        sync.Mutex
	input     SuggestionInput
	state     SuggestionState
	listeners []func(SuggestionState)
}

type WatcherOption func(*watcherOptions)

type watcherOptions struct {
	debounce []debounce.Option
	logger   *slog.Logger
}

func WithWatcherClock(c debounce.Clock) WatcherOption {
	return func(o *watcherOptions) { o.debounce = append(o.debounce, debounce.WithClock(c)) }
}

func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(o *watcherOptions) { o.logger = l }
}

func NewSuggestionWatcher(fetcher SuggestionFetcher, opts ...WatcherOption) *SuggestionWatcher {
	o := watcherOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	w := &SuggestionWatcher{
		fetcher: fetcher,
		logger:  o.logger,
		state:   SuggestionState{Suggestions: []string{}},
	}
	w.deb = debounce.New(SuggestionQuietPeriod, w.fetch, w.deliver, o.debounce...)
	return w
}

// OnChange registers fn for every state change.
func (w *SuggestionWatcher) OnChange(fn func(SuggestionState)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

func (w *SuggestionWatcher) State() SuggestionState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Update records the latest form input and schedules a fetch.
func (w *SuggestionWatcher) Update(in SuggestionInput) {
	w.mu.Lock()
	w.input = in
	w.mu.Unlock()

	if !in.HasMinimumInput() {
		w.deb.Cancel()
		w.set(SuggestionState{Suggestions: []string{}})
		return
	}
	w.deb.Trigger(in)
}

// Refresh fetches for the current input right away.
func (w *SuggestionWatcher) Refresh() {
	w.mu.Lock()
	in := w.input
	w.mu.Unlock()

	if !in.HasMinimumInput() {
		w.deb.Cancel()
		w.set(SuggestionState{Suggestions: []string{}})
		return
	}
	w.deb.Flush(in)
}

func (w *SuggestionWatcher) Close() {
	w.deb.Stop()
}

func (w *SuggestionWatcher) fetch(ctx context.Context, in SuggestionInput) ([]string, error) {
	// A run superseded or cancelled before it got here must not flip the
	// state to loading: nothing would ever reset it.
	w.mu.Lock()
	if err := ctx.Err(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	w.state = SuggestionState{Suggestions: w.state.Suggestions, Loading: true}
	st, listeners := w.state, w.snapshotListeners()
	w.mu.Unlock()
	notify(listeners, st)

	return w.fetcher.Suggestions(ctx, NewListingSuggestionRequest{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Condition:   in.Condition,
		Language:    in.Language,
	})
}

func (w *SuggestionWatcher) deliver(_ SuggestionInput, out []string, err error) {
	if err != nil {
		w.logger.Warn("failed to generate listing suggestions", "error", err)
		w.mu.Lock()
		st := w.state
		w.mu.Unlock()
		st.Loading = false
		st.Err = err
		w.set(st)
		return
	}
	w.set(SuggestionState{Suggestions: out})
}

func (w *SuggestionWatcher) set(st SuggestionState) {
	w.mu.Lock()
	w.state = st
	listeners := w.snapshotListeners()
	w.mu.Unlock()
	notify(listeners, st)
}

// snapshotListeners copies the listener list. Caller holds w.mu.
func (w *SuggestionWatcher) snapshotListeners() []func(SuggestionState) {
	return append(([]func(SuggestionState))(nil), w.listeners...)
}

func notify(listeners []func(SuggestionState), st SuggestionState) {
	for _, fn := range listeners {
		fn(st)
	}
}
