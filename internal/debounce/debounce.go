// Package debounce runs the latest of a burst of inputs after a quiet
// period and drops results of runs that have since been superseded.
package debounce

import (
	"context"
	"sync"
	"time"
)

type Timer interface {
	Stop() bool
}

type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type options struct {
	clock Clock
	ctx   context.Context
}

type Option func(*options)

func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithContext sets the parent of every run's context.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// Debouncer calls fn with the last input once wait has passed without a new
// Trigger. Every run gets a sequence number; starting a run cancels the
// previous one and only the newest run's result reaches onResult.
type Debouncer[I, O any] struct {
	wait     time.Duration
	fn       func(ctx context.Context, in I) (O, error)
	onResult func(in I, out O, err error)
	clock    Clock
	parent   context.Context

	mu      sync.Mutex
	timer   Timer
	seq     uint64
	cancel  context.CancelFunc
	stopped bool

	// deliverMu keeps onResult calls in sequence order.
	deliverMu sync.Mutex
}

func New[I, O any](wait time.Duration, fn func(ctx context.Context, in I) (O, error), onResult func(in I, out O, err error), opts ...Option) *Debouncer[I, O] {
	o := options{clock: realClock{}, ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Debouncer[I, O]{
		wait:     wait,
		fn:       fn,
		onResult: onResult,
		clock:    o.clock,
		parent:   o.ctx,
	}
}

// Trigger (re)starts the quiet period for in.
func (d *Debouncer[I, O]) Trigger(in I) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.wait, func() { d.run(in) })
}

// Flush skips the quiet period and runs in on the calling goroutine.
// It must not be called from onResult.
func (d *Debouncer[I, O]) Flush(in I) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.run(in)
}

// Cancel drops a pending run and invalidates the one in flight.
func (d *Debouncer[I, O]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

// Stop is Cancel plus refusing all later triggers.
func (d *Debouncer[I, O]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.reset()
}

func (d *Debouncer[I, O]) reset() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Seq returns the sequence number of the newest run.
func (d *Debouncer[I, O]) Seq() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}

func (d *Debouncer[I, O]) run(in I) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.seq++
	mine := d.seq
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(d.parent)
	d.cancel = cancel
	d.mu.Unlock()

	out, err := d.fn(ctx, in)

	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	d.mu.Lock()
	latest := mine == d.seq && !d.stopped
	if latest {
		d.cancel = nil
	}
	d.mu.Unlock()
	cancel()

	if latest && d.onResult != nil {
		d.onResult(in, out, err)
	}
}
