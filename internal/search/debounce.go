// Package search turns a stream of raw search keystrokes into a sparse stream
// of effective queries.
package search

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultWindow is the quiescence period used when none is configured.
const DefaultWindow = 500 * time.Millisecond

// Timer is the subset of *time.Timer the debouncer relies on.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithAfterFunc replaces the timer source. Tests use it to drive time by hand.
func WithAfterFunc(fn AfterFunc) Option {
	return func(d *Debouncer) {
		if fn != nil {
			d.afterFunc = fn
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(lg *zap.Logger) Option {
	return func(d *Debouncer) {
		if lg != nil {
			d.lg = lg
		}
	}
}

// Debouncer emits the latest term once input has been quiet for the window,
// and only when the trimmed term differs from the previous emission.
type Debouncer struct {
	window    time.Duration
	fire      func(term string)
	afterFunc AfterFunc
	lg        *zap.Logger

	mu      sync.Mutex
	pending string
	timer   Timer
	gen     uint64
	last    string
	emitted bool
	stopped bool
}

// New creates a debouncer that calls fire with each effective term. fire runs
// on the timer goroutine.
func New(window time.Duration, fire func(term string), opts ...Option) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	d := &Debouncer{
		window:    window,
		fire:      fire,
		afterFunc: realAfterFunc,
		lg:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Push records term as the latest input and restarts the quiet period.
func (d *Debouncer) Push(term string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = term
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.afterFunc(d.window, func() { d.expire(gen) })
}

// Seed emits term immediately and records it as the last emission. It is used
// for the initial unfiltered listing.
func (d *Debouncer) Seed(term string) {
	term = strings.TrimSpace(term)

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.last = term
	d.emitted = true
	d.mu.Unlock()

	d.lg.Debug("Search seeded", zap.String("term", term))
	d.fire(term)
}

// Last returns the most recently emitted term.
func (d *Debouncer) Last() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Stop cancels any pending emission. Later calls to Push and Seed are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) expire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	term := strings.TrimSpace(d.pending)
	if d.emitted && term == d.last {
		d.mu.Unlock()
		d.lg.Debug("Search unchanged", zap.String("term", term))
		return
	}
	d.last = term
	d.emitted = true
	d.mu.Unlock()

	d.lg.Debug("Search settled", zap.String("term", term))
	d.fire(term)
}
