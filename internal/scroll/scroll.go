// Package scroll implements the scroll-depth engagement policy.
package scroll

import (
	"math"
	"sync"
	"time"
)

const (
	// MinDepth is the lowest depth worth reporting.
	MinDepth = 50
	// Step is the granularity of reported depths.
	Step = 25
	// DefaultQuiet is the debounce window for scroll bursts.
	DefaultQuiet = 200 * time.Millisecond
)

// Percent returns how far down the document the viewport is, rounded to the
// nearest whole percent. Documents that cannot scroll report 0.
func Percent(scrollY, scrollHeight, viewportHeight float64) int {
	scrollable := scrollHeight - viewportHeight
	if scrollable <= 0 {
		return 0
	}
	return int(math.Round(scrollY / scrollable * 100))
}

// Depth remembers the deepest reported threshold of one page.
type Depth struct {
	mu  sync.Mutex
	max int
}

// Observe reports whether percent is a new threshold: deeper than anything
// reported so far, at least MinDepth and a multiple of Step. Each threshold
// fires at most once and thresholds only ever increase.
func (d *Depth) Observe(percent int) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if percent <= d.max || percent < MinDepth || percent%Step != 0 {
		return 0, false
	}
	d.max = percent
	return percent, true
}

// Max returns the deepest reported threshold, 0 if none.
func (d *Depth) Max() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.max
}

// Timer is the subset of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) Timer

// Debouncer runs the most recent call once no new call arrived for the quiet period.
type Debouncer struct {
	quiet time.Duration
	after AfterFunc

	mu      sync.Mutex
	pending Timer
	stopped bool
}

// NewDebouncer returns a debouncer over the wall clock. A zero quiet uses DefaultQuiet.
func NewDebouncer(quiet time.Duration) *Debouncer {
	return NewDebouncerWith(quiet, func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) })
}

// NewDebouncerWith returns a debouncer scheduling through after.
func NewDebouncerWith(quiet time.Duration, after AfterFunc) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Debouncer{quiet: quiet, after: after}
}

// Call replaces any pending run with f.
func (d *Debouncer) Call(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.pending != nil {
		d.pending.Stop()
	}
	d.pending = d.after(d.quiet, f)
}

// Stop cancels the pending run and ignores later calls.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
