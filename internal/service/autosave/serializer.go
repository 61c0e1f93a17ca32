package autosave

import (
	"context"
	"fmt"
	"time"

	"prdbuilder/internal/service/eventloop"
)

// SaveFunc persists a value. The error text is what the session reports to the user.
type SaveFunc[T any] func(ctx context.Context, value T) error

// SerializerHooks observe the serializer. All hooks run on the loop.
type SerializerHooks[T any] struct {
	// OnStart runs for every save that begins, queued ones included
	OnStart func(value T)
	// OnSettled runs for every completed save, before a pending value starts
	OnSettled func(value T, err error, took time.Duration)
	// OnCoalesce runs when a queued value is overwritten by a newer one
	OnCoalesce func()
}

// Serializer runs at most one save at a time and keeps at most one pending value.
//
// State is an explicit two-slot machine:
//   - inFlight: a save is running on its own goroutine
//   - pending:  the latest value submitted while that save runs (last write wins)
//
// Loop-confined: Execute and Close must be called from the owning loop.
type Serializer[T any] struct {
	loop  *eventloop.Loop
	ctx   context.Context
	save  SaveFunc[T]
	hooks SerializerHooks[T]

	inFlight   bool
	pending    T
	hasPending bool
	closed     bool
}

// NewSerializer creates a serializer. ctx is passed to every save call.
func NewSerializer[T any](ctx context.Context, loop *eventloop.Loop, save SaveFunc[T], hooks SerializerHooks[T]) *Serializer[T] {
	return &Serializer[T]{
		loop:  loop,
		ctx:   ctx,
		save:  save,
		hooks: hooks,
	}
}

// Execute starts a save with value, or queues it as the single pending value
// if a save is already in flight.
func (s *Serializer[T]) Execute(value T) {
	if s.closed {
		return
	}

	if s.inFlight {
		if s.hasPending && s.hooks.OnCoalesce != nil {
			s.hooks.OnCoalesce()
		}
		s.pending = value
		s.hasPending = true
		return
	}

	s.start(value)
}

func (s *Serializer[T]) start(value T) {
	s.inFlight = true
	if s.hooks.OnStart != nil {
		s.hooks.OnStart(value)
	}

	go func() {
		began := time.Now()
		err := s.call(value)
		took := time.Since(began)

		s.loop.Do(func() {
			s.settle(value, err, took)
		})
	}()
}

// call invokes the save function, converting a panic into an error
func (s *Serializer[T]) call(value T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("save panicked: %v", r)
		}
	}()
	return s.save(s.ctx, value)
}

func (s *Serializer[T]) settle(value T, err error, took time.Duration) {
	s.inFlight = false
	if s.closed {
		return
	}

	if s.hooks.OnSettled != nil {
		s.hooks.OnSettled(value, err, took)
	}

	if s.hasPending {
		next := s.pending
		var zero T
		s.pending = zero
		s.hasPending = false
		s.start(next)
	}
}

// InFlight reports whether a save is running
func (s *Serializer[T]) InFlight() bool {
	return s.inFlight
}

// HasPending reports whether a value is queued behind the running save
func (s *Serializer[T]) HasPending() bool {
	return s.hasPending
}

// Close drops the pending value and ignores the completion of a running save.
// A save already running is not interrupted.
func (s *Serializer[T]) Close() {
	s.closed = true
	var zero T
	s.pending = zero
	s.hasPending = false
}
