// Package eventloop runs closures one at a time on a dedicated goroutine.
//
// Each editing session owns one Loop. All session state (content, save status,
// highlights, serializer slots) is touched only from closures running on the loop,
// so no locks guard that state. Timers created through the loop deliver their
// callbacks onto it as well, and a stopped timer never runs its callback even if
// the underlying clock had already fired.
package eventloop

import (
	"sync"
	"time"
)

type task struct {
	fn   func()
	done chan struct{}
}

// Loop serially executes closures submitted with Do
type Loop struct {
	clock  Clock
	tasks  chan task
	quit   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// New starts a loop driven by clock. A nil clock means SystemClock.
func New(clock Clock) *Loop {
	if clock == nil {
		clock = SystemClock{}
	}
	l := &Loop{
		clock:  clock,
		tasks:  make(chan task),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.exited)
	for {
		select {
		case t := <-l.tasks:
			t.fn()
			close(t.done)
		case <-l.quit:
			return
		}
	}
}

// Do runs fn on the loop and waits for it to finish.
// It returns false without running fn once the loop is closed.
// Do must not be called from a closure already running on the loop.
func (l *Loop) Do(fn func()) bool {
	t := task{fn: fn, done: make(chan struct{})}
	select {
	case l.tasks <- t:
	case <-l.quit:
		return false
	}
	<-t.done
	return true
}

// Close stops the loop and waits for the running closure, if any, to return.
// Safe to call more than once.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.quit) })
	<-l.exited
}

// Closed reports whether Close has been called
func (l *Loop) Closed() bool {
	select {
	case <-l.quit:
		return true
	default:
		return false
	}
}

// Now returns the loop clock's current time
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Timer is a one-shot timer whose callback runs on the loop.
// Stop and the callback are both loop-confined, so after Stop returns the
// callback is guaranteed not to run.
type Timer struct {
	stop    func() bool
	stopped bool
}

// AfterFunc arms a timer that runs fn on the loop after d.
// Must be called from the loop.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	t.stop = l.clock.AfterFunc(d, func() {
		l.Do(func() {
			if t.stopped {
				return
			}
			t.stopped = true
			fn()
		})
	})
	return t
}

// Stop disarms the timer. Returns true if this call prevented the callback.
// Must be called from the loop. A nil Timer is a no-op.
func (t *Timer) Stop() bool {
	if t == nil || t.stopped {
		return false
	}
	t.stopped = true
	t.stop()
	return true
}

// Active reports whether the timer is armed and has not run or been stopped
func (t *Timer) Active() bool {
	return t != nil && !t.stopped
}
