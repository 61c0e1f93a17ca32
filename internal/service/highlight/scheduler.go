// Package highlight tracks which sections were recently changed so the UI can
// emphasise them for a short time.
package highlight

import (
	"sort"
	"time"

	"prdbuilder/internal/domain/models/prd"
	"prdbuilder/internal/service/eventloop"
)

// DefaultDuration is how long a touched section stays highlighted
const DefaultDuration = 2000 * time.Millisecond

// Scheduler owns a set of highlighted section keys, each with its own expiry timer.
// Loop-confined: every method must be called from the session's loop.
type Scheduler struct {
	loop     *eventloop.Loop
	duration time.Duration
	timers   map[prd.SectionKey]*eventloop.Timer
	closed   bool
}

// NewScheduler creates a scheduler. A non-positive duration means DefaultDuration.
func NewScheduler(loop *eventloop.Loop, duration time.Duration) *Scheduler {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Scheduler{
		loop:     loop,
		duration: duration,
		timers:   make(map[prd.SectionKey]*eventloop.Timer),
	}
}

// MarkTouched highlights key and (re)starts its expiry timer.
// Other keys' timers are unaffected.
func (s *Scheduler) MarkTouched(key prd.SectionKey) {
	if s.closed {
		return
	}

	s.timers[key].Stop()

	var timer *eventloop.Timer
	timer = s.loop.AfterFunc(s.duration, func() {
		if s.timers[key] == timer {
			delete(s.timers, key)
		}
	})
	s.timers[key] = timer
}

// IsActive reports whether key is currently highlighted
func (s *Scheduler) IsActive(key prd.SectionKey) bool {
	_, ok := s.timers[key]
	return ok
}

// Active returns the highlighted keys in canonical section order
func (s *Scheduler) Active() []prd.SectionKey {
	keys := make([]prd.SectionKey, 0, len(s.timers))
	for k := range s.timers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Index() < keys[j].Index()
	})
	return keys
}

// Close cancels every expiry timer and clears the set
func (s *Scheduler) Close() {
	s.closed = true
	for k, t := range s.timers {
		t.Stop()
		delete(s.timers, k)
	}
}
