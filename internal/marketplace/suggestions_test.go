package marketplace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/bazaar/internal/debounce"
)

type recordingFetcher struct {
	clock *debounce.ManualClock
	calls  []fetchCall
	err    error
	onCall func()
}

type fetchCall struct {
	req NewListingSuggestionRequest
	at  time.Duration
}

func (f *recordingFetcher) Suggestions(_ context.Context, req NewListingSuggestionRequest) ([]string, error) {
	f.calls = append(f.calls, fetchCall{req: req, at: f.clock.Elapsed()})
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return []string{"about: " + req.Description}, nil
}

func TestSuggestionWatcherDebounces(t *testing.T) {
	clock := &debounce.ManualClock{}
	fetcher := &recordingFetcher{clock: clock}
	w := NewSuggestionWatcher(fetcher, WithWatcherClock(clock))
	defer w.Close()

	var states []SuggestionState
	w.OnChange(func(s SuggestionState) { states = append(states, s) })

	in := SuggestionInput{Title: " Lamp ", Condition: "good", Language: LanguageEnglish}
	in.Description = "A brass lamp"
	w.Update(in)
	clock.Advance(100 * time.Millisecond)
	in.Description = "A brass lamp, works"
	w.Update(in)
	clock.Advance(100 * time.Millisecond)
	in.Description = "A brass lamp, works well"
	w.Update(in)

	clock.Advance(699 * time.Millisecond)
	assert.Empty(t, fetcher.calls)

	clock.Advance(time.Millisecond)
	require.Len(t, fetcher.calls, 1)
	assert.Equal(t, 900*time.Millisecond, fetcher.calls[0].at)
	assert.Equal(t, "A brass lamp, works well", fetcher.calls[0].req.Description)
	assert.Equal(t, "Lamp", fetcher.calls[0].req.Title)

	st := w.State()
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)
	assert.Equal(t, []string{"about: A brass lamp, works well"}, st.Suggestions)

	require.GreaterOrEqual(t, len(states), 2)
	assert.True(t, states[len(states)-2].Loading)
}

func TestSuggestionWatcherNeedsMinimumDescription(t *testing.T) {
	clock := &debounce.ManualClock{}
	fetcher := &recordingFetcher{clock: clock}
	w := NewSuggestionWatcher(fetcher, WithWatcherClock(clock))
	defer w.Close()

	short := SuggestionInput{Description: "  too short  "}
	assert.True(t, short.HasInput())
	assert.False(t, short.HasMinimumInput())

	w.Update(SuggestionInput{Description: "long enough text"})
	clock.Advance(300 * time.Millisecond)
	w.Update(short)
	clock.Advance(time.Second)

	assert.Empty(t, fetcher.calls)
	assert.Equal(t, []string{}, w.State().Suggestions)

	w.Refresh()
	assert.Empty(t, fetcher.calls)
}

func TestSuggestionWatcherFailureIsSoft(t *testing.T) {
	clock := &debounce.ManualClock{}
	fetcher := &recordingFetcher{clock: clock, err: errors.New("boom")}
	w := NewSuggestionWatcher(fetcher, WithWatcherClock(clock))
	defer w.Close()

	w.Update(SuggestionInput{Description: "a description that is long"})
	w.Refresh()

	require.Len(t, fetcher.calls, 1)
	st := w.State()
	assert.Error(t, st.Err)
	assert.False(t, st.Loading)

	// the pending debounced fetch was replaced by the refresh
	clock.Advance(time.Second)
	assert.Len(t, fetcher.calls, 1)
}

func TestSuggestionWatcherLoadingClearsPreviousError(t *testing.T) {
	clock := &debounce.ManualClock{}
	fetcher := &recordingFetcher{clock: clock, err: errors.New("boom")}
	w := NewSuggestionWatcher(fetcher, WithWatcherClock(clock))
	defer w.Close()

	w.Update(SuggestionInput{Description: "a description that is long"})
	w.Refresh()
	require.Error(t, w.State().Err)

	var during SuggestionState
	fetcher.err = nil
	fetcher.onCall = func() { during = w.State() }
	w.Refresh()

	assert.True(t, during.Loading)
	assert.NoError(t, during.Err)
	st := w.State()
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)
}

func TestSuggestionWatcherCancelledRunStaysIdle(t *testing.T) {
	clock := &debounce.ManualClock{}
	fetcher := &recordingFetcher{clock: clock}
	w := NewSuggestionWatcher(fetcher, WithWatcherClock(clock))
	defer w.Close()

	var states []SuggestionState
	w.OnChange(func(s SuggestionState) { states = append(states, s) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.fetch(ctx, SuggestionInput{Description: "a description that is long"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fetcher.calls)
	assert.Empty(t, states)
	assert.False(t, w.State().Loading)
}
