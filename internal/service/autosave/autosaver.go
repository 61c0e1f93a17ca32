// Package autosave persists an editing session's content without overlapping
// writes. Changes are debounced, saves are serialized, and the outcome is
// tracked as a SaveStatus state machine.
package autosave

import (
	"context"
	"log/slog"
	"time"

	"prdbuilder/internal/domain/models/prd"
	"prdbuilder/internal/metrics"
	"prdbuilder/internal/service/eventloop"
)

const (
	DefaultDebounce     = 1000 * time.Millisecond
	DefaultSavedDisplay = 3000 * time.Millisecond
)

// Options configures an AutoSaver. Use DefaultOptions as the starting point;
// zero durations fall back to the defaults.
type Options struct {
	Debounce     time.Duration
	SavedDisplay time.Duration
	// Enabled gates the debounced path only; TriggerSave always works
	Enabled bool
}

// DefaultOptions returns the default auto-save options
func DefaultOptions() Options {
	return Options{
		Debounce:     DefaultDebounce,
		SavedDisplay: DefaultSavedDisplay,
		Enabled:      true,
	}
}

func (o *Options) defaults() {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.SavedDisplay <= 0 {
		o.SavedDisplay = DefaultSavedDisplay
	}
}

// AutoSaver is the auto-save state machine of one editing session.
//
//	idle --change--> (debounce) --fire--> saving --ok--> saved --display elapsed--> idle
//	                                          \--fail--> error (until ClearError or a later success)
//
// Loop-confined: every method must be called from the session's loop.
type AutoSaver struct {
	loop    *eventloop.Loop
	opts    Options
	logger  *slog.Logger
	metrics *metrics.AutoSave

	debouncer  *Debouncer[prd.DocumentContent]
	serializer *Serializer[prd.DocumentContent]

	status      prd.SaveStatus
	saveErr     string
	lastSavedAt time.Time
	savedTimer  *eventloop.Timer

	current prd.DocumentContent
	// unsaved is set by a change and cleared once current is saved or reset
	unsaved bool

	closed bool
}

// New creates an AutoSaver that persists content with save
func New(
	ctx context.Context,
	loop *eventloop.Loop,
	save SaveFunc[prd.DocumentContent],
	opts Options,
	logger *slog.Logger,
	m *metrics.AutoSave,
) *AutoSaver {
	opts.defaults()

	a := &AutoSaver{
		loop:      loop,
		opts:      opts,
		logger:    logger,
		metrics:   m,
		debouncer: NewDebouncer[prd.DocumentContent](loop),
		status:    prd.SaveStatusIdle,
		current:   prd.DocumentContent{},
	}
	a.serializer = NewSerializer(ctx, loop, save, SerializerHooks[prd.DocumentContent]{
		OnStart:    a.onSaveStart,
		OnSettled:  a.onSaveSettled,
		OnCoalesce: m.SaveCoalesced,
	})
	return a
}

// Reset makes content current without saving it, e.g. after a load.
// A pending debounce is cancelled.
func (a *AutoSaver) Reset(content prd.DocumentContent) {
	if a.closed {
		return
	}
	a.debouncer.Cancel()
	a.current = content
	a.unsaved = false
}

// ContentChanged records new content and, when enabled, (re)arms the debounce timer
func (a *AutoSaver) ContentChanged(content prd.DocumentContent) {
	if a.closed {
		return
	}
	a.current = content
	a.unsaved = true
	if !a.opts.Enabled {
		return
	}
	a.debouncer.Schedule(content, a.opts.Debounce, func(latest prd.DocumentContent) {
		a.dispatch(latest, metrics.TriggerDebounce)
	})
}

// TriggerSave cancels a pending debounce and saves the current content immediately,
// whatever the current status and whether or not auto-save is enabled.
func (a *AutoSaver) TriggerSave() {
	if a.closed {
		return
	}
	a.debouncer.Cancel()
	a.dispatch(a.current, metrics.TriggerManual)
}

// ClearError leaves the error state. The failed content is not retried until the
// next change or TriggerSave.
func (a *AutoSaver) ClearError() {
	if a.closed || a.status != prd.SaveStatusError {
		return
	}
	a.transition(prd.SaveStatusIdle)
}

// SetEnabled turns the debounced path on or off. Disabling disarms a pending debounce.
func (a *AutoSaver) SetEnabled(enabled bool) {
	if a.closed {
		return
	}
	a.opts.Enabled = enabled
	if !enabled {
		a.debouncer.Cancel()
	}
}

// Close cancels both timers and detaches from the serializer.
// Nothing mutates the AutoSaver afterwards; a save already running is left to finish.
func (a *AutoSaver) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.debouncer.Cancel()
	a.savedTimer.Stop()
	a.savedTimer = nil
	a.serializer.Close()
}

func (a *AutoSaver) Status() prd.SaveStatus { return a.status }
func (a *AutoSaver) Error() string          { return a.saveErr }
func (a *AutoSaver) LastSavedAt() time.Time { return a.lastSavedAt }
func (a *AutoSaver) Enabled() bool          { return a.opts.Enabled }
func (a *AutoSaver) SavePending() bool      { return a.debouncer.Pending() }

// HasUnsavedChanges reports whether current content has not been persisted yet
// or a save is still running
func (a *AutoSaver) HasUnsavedChanges() bool {
	return a.unsaved || a.serializer.InFlight()
}

// dispatch hands content to the serializer. Every debounce fire is dispatched,
// even when content equals what is being or was last saved.
func (a *AutoSaver) dispatch(content prd.DocumentContent, trigger string) {
	a.metrics.SaveDispatched(trigger)
	a.serializer.Execute(content)
}

func (a *AutoSaver) onSaveStart(prd.DocumentContent) {
	a.transition(prd.SaveStatusSaving)
}

func (a *AutoSaver) onSaveSettled(content prd.DocumentContent, err error, took time.Duration) {
	a.metrics.SaveSettled(err, took)

	if err != nil {
		a.transition(prd.SaveStatusError)
		a.saveErr = err.Error()
		a.logger.Warn("auto-save failed", "error", err, "took", took)
		return
	}

	a.lastSavedAt = a.loop.Now()
	if content.Equal(a.current) {
		a.unsaved = false
	}
	a.transition(prd.SaveStatusSaved)
	a.logger.Debug("auto-save succeeded", "took", took)
}

// transition moves to next. Any status change supersedes the saved-display timer.
func (a *AutoSaver) transition(next prd.SaveStatus) {
	a.savedTimer.Stop()
	a.savedTimer = nil

	prev := a.status
	a.status = next

	switch next {
	case prd.SaveStatusSaving, prd.SaveStatusIdle:
		a.saveErr = ""
	case prd.SaveStatusSaved:
		a.saveErr = ""
		a.savedTimer = a.loop.AfterFunc(a.opts.SavedDisplay, func() {
			a.savedTimer = nil
			a.transition(prd.SaveStatusIdle)
		})
	}

	if prev != next {
		a.logger.Debug("save status changed", "from", prev, "to", next)
	}
}
