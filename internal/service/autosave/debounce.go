package autosave

import (
	"time"

	"prdbuilder/internal/service/eventloop"
)

// Debouncer coalesces bursts of values into a single callback after a quiet period.
// Every Schedule replaces the previous arm; only the last value is delivered.
// Loop-confined: all methods must be called from the owning loop.
type Debouncer[T any] struct {
	loop  *eventloop.Loop
	timer *eventloop.Timer
}

// NewDebouncer creates a debouncer whose timers run on loop
func NewDebouncer[T any](loop *eventloop.Loop) *Debouncer[T] {
	return &Debouncer[T]{loop: loop}
}

// Schedule arms the debouncer with value. A pending arm is cancelled and the delay restarts.
func (d *Debouncer[T]) Schedule(value T, delay time.Duration, onFire func(T)) {
	d.timer.Stop()
	d.timer = d.loop.AfterFunc(delay, func() {
		d.timer = nil
		onFire(value)
	})
}

// Cancel disarms a pending arm without firing it
func (d *Debouncer[T]) Cancel() {
	d.timer.Stop()
	d.timer = nil
}

// Pending reports whether an arm is waiting to fire
func (d *Debouncer[T]) Pending() bool {
	return d.timer.Active()
}
