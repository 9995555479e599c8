// Package schedule provides a small deferred-task primitive with
// cancel-on-supersede semantics: scheduling a new task cancels any pending
// unexecuted prior task.
//
// The suggestion ledger uses it to defer persistence flushes off the caller's
// path, and the suggestion presentation controller uses it to coalesce rapid
// input changes into a single filter pass. In both places the rule is the
// same: only the most recently scheduled task may run.
package schedule

import (
	"sync"
	"time"
)

// Scheduler runs at most one pending task. A newer Schedule call replaces
// and cancels any task that has not executed yet.
type Scheduler interface {
	// Schedule arranges for fn to run, cancelling any pending prior task.
	Schedule(fn func())

	// Stop cancels any pending task. The scheduler remains usable.
	Stop()
}

// Deferred runs tasks after a fixed delay on a timer goroutine. A zero delay
// still defers execution to the timer, so the caller never blocks on the
// task itself.
type Deferred struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending uint64
}

// NewDeferred creates a Deferred scheduler with the given delay.
func NewDeferred(delay time.Duration) *Deferred {
	return &Deferred{delay: delay}
}

func (d *Deferred) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending++
	generation := d.pending

	d.timer = time.AfterFunc(d.delay, func() {
		// The timer may fire while a newer Schedule or Stop holds the lock;
		// the generation check drops tasks that were superseded in between.
		d.mu.Lock()
		stale := generation != d.pending
		d.mu.Unlock()
		if stale {
			return
		}
		fn()
	})
}

func (d *Deferred) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending++
}

// Immediate runs tasks synchronously in Schedule. Used in tests where
// deterministic ordering matters more than deferral.
type Immediate struct{}

func NewImmediate() *Immediate {
	return &Immediate{}
}

func (*Immediate) Schedule(fn func()) {
	fn()
}

func (*Immediate) Stop() {}

// Manual queues tasks until Fire is called, keeping only the newest. Tests
// use it to model the frame boundary explicitly: several schedules within
// one "frame" collapse into a single execution at Fire time.
type Manual struct {
	mu   sync.Mutex
	next func()
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Schedule(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = fn
}

func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = nil
}

// Fire runs the most recently scheduled task, if any, and clears it.
func (m *Manual) Fire() {
	m.mu.Lock()
	fn := m.next
	m.next = nil
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Pending reports whether a task is waiting for Fire.
func (m *Manual) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next != nil
}
