package debounce

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	in string
	at time.Duration
}

func TestTriggerFiresOnceAfterQuietPeriod(t *testing.T) {
	clock := &ManualClock{}
	var calls []call
	var results []string

	d := New(700*time.Millisecond,
		func(_ context.Context, in string) (string, error) {
			calls = append(calls, call{in: in, at: clock.Elapsed()})
			return "out:" + in, nil
		},
		func(_ string, out string, err error) {
			require.NoError(t, err)
			results = append(results, out)
		},
		WithClock(clock),
	)

	d.Trigger("a")
	clock.Advance(100 * time.Millisecond)
	d.Trigger("ab")
	clock.Advance(100 * time.Millisecond)
	d.Trigger("abc")
	clock.Advance(699 * time.Millisecond)
	assert.Empty(t, calls)

	clock.Advance(time.Millisecond)
	require.Len(t, calls, 1)
	assert.Equal(t, call{in: "abc", at: 900 * time.Millisecond}, calls[0])
	assert.Equal(t, []string{"out:abc"}, results)

	clock.Advance(5 * time.Second)
	assert.Len(t, calls, 1)
}

func TestStaleResultIsDropped(t *testing.T) {
	gates := map[string]chan struct{}{"A": make(chan struct{}), "B": make(chan struct{})}
	started := make(chan string, 2)
	var aCtx context.Context

	var mu sync.Mutex
	var delivered []string

	d := New(time.Second,
		func(ctx context.Context, in string) (string, error) {
			if in == "A" {
				aCtx = ctx
			}
			started <- in
			<-gates[in]
			return in, nil
		},
		func(_ string, out string, _ error) {
			mu.Lock()
			delivered = append(delivered, out)
			mu.Unlock()
		},
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); d.Flush("A") }()
	require.Equal(t, "A", <-started)
	go func() { defer wg.Done(); d.Flush("B") }()
	require.Equal(t, "B", <-started)

	close(gates["B"])
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 1
	}, time.Second, time.Millisecond)

	close(gates["A"])
	wg.Wait()

	assert.Equal(t, []string{"B"}, delivered)
	assert.ErrorIs(t, aCtx.Err(), context.Canceled)
}

func TestCancelAndStop(t *testing.T) {
	clock := &ManualClock{}
	runs := 0
	d := New(time.Second,
		func(context.Context, int) (int, error) { runs++; return 0, nil },
		nil,
		WithClock(clock),
	)

	d.Trigger(1)
	d.Cancel()
	clock.Advance(2 * time.Second)
	assert.Equal(t, 0, runs)

	d.Trigger(2)
	clock.Advance(time.Second)
	assert.Equal(t, 1, runs)

	d.Stop()
	d.Trigger(3)
	d.Flush(4)
	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, runs)
}

func TestSeqIsMonotonic(t *testing.T) {
	d := New(time.Second, func(context.Context, int) (int, error) { return 0, nil }, nil)
	before := d.Seq()
	d.Flush(1)
	d.Flush(2)
	assert.Equal(t, before+2, d.Seq())
}
