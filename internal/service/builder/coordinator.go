// Package builder hosts PRD editing sessions. A Coordinator owns one
// document's in-memory content and wires it to auto-save, section highlights
// and completion validation; the Manager keeps the open Coordinators.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"prdbuilder/internal/domain"
	"prdbuilder/internal/domain/models/prd"
	"prdbuilder/internal/metrics"
	"prdbuilder/internal/service/autosave"
	"prdbuilder/internal/service/completion"
	"prdbuilder/internal/service/eventloop"
	"prdbuilder/internal/service/highlight"
)

// DefaultIdleTTL is how long an unused session stays open
const DefaultIdleTTL = 30 * time.Minute

// Options configures editing sessions
type Options struct {
	AutoSave          autosave.Options
	HighlightDuration time.Duration
	// IdleTTL is how long the Manager keeps an unused session open; zero keeps it until closed
	IdleTTL time.Duration
	// Clock drives every session timer; nil means the system clock
	Clock eventloop.Clock
}

// DefaultOptions returns the default session options
func DefaultOptions() Options {
	return Options{
		AutoSave:          autosave.DefaultOptions(),
		HighlightDuration: highlight.DefaultDuration,
		IdleTTL:           DefaultIdleTTL,
	}
}

// State is the read model of an editing session
type State struct {
	PRDID           string                   `json:"prd_id"`
	Content         prd.DocumentContent      `json:"content"`
	SaveStatus      prd.SaveStatus           `json:"save_status"`
	LastSavedAt     *time.Time               `json:"last_saved_at"`
	SaveError       string                   `json:"save_error,omitempty"`
	AutoSaveEnabled bool                     `json:"autosave_enabled"`
	Highlighted     []prd.SectionKey         `json:"highlighted_sections"`
	Validation      prd.CompletionValidation `json:"validation"`
}

// Coordinator is a single editing session. Its content is only changed through
// ReplaceContent and ApplySectionUpdates. All state lives on the session loop.
type Coordinator struct {
	prdID     string
	loop      *eventloop.Loop
	validator *completion.Validator
	logger    *slog.Logger

	// loop-confined
	content    prd.DocumentContent
	saver      *autosave.AutoSaver
	highlights *highlight.Scheduler
	closed     bool
}

// NewCoordinator creates a session for prdID that persists through save.
// ctx is handed to every save call; cancelling it does not close the session.
func NewCoordinator(
	ctx context.Context,
	prdID string,
	save autosave.SaveFunc[prd.DocumentContent],
	validator *completion.Validator,
	opts Options,
	logger *slog.Logger,
	m *metrics.AutoSave,
) *Coordinator {
	if validator == nil {
		validator = completion.NewValidator(nil)
	}
	logger = logger.With("prd_id", prdID)

	c := &Coordinator{
		prdID:     prdID,
		loop:      eventloop.New(opts.Clock),
		validator: validator,
		logger:    logger,
		content:   prd.DocumentContent{},
	}
	c.loop.Do(func() {
		c.saver = autosave.New(ctx, c.loop, save, opts.AutoSave, logger, m)
		c.highlights = highlight.NewScheduler(c.loop, opts.HighlightDuration)
	})
	return c
}

// PRDID returns the id of the document being edited
func (c *Coordinator) PRDID() string {
	return c.prdID
}

// do runs fn on the session loop, failing once the session is closed
func (c *Coordinator) do(fn func() error) error {
	var err error
	ok := c.loop.Do(func() {
		if c.closed {
			err = domain.ErrSessionClosed
			return
		}
		err = fn()
	})
	if !ok {
		return domain.ErrSessionClosed
	}
	return err
}

// ReplaceContent swaps in whole content, e.g. after loading it from storage.
// It highlights nothing and does not schedule a save.
func (c *Coordinator) ReplaceContent(content prd.DocumentContent) error {
	if err := validateContent(content); err != nil {
		return err
	}
	next := content.Clone()
	return c.do(func() error {
		c.content = next
		c.saver.Reset(next)
		c.logger.Debug("content replaced", "sections", len(next))
		return nil
	})
}

// ApplySectionUpdates merges a batch of section updates. Later updates to the same
// section win. Every updated section is highlighted, and auto-save sees a single
// change for the whole batch. An invalid batch is rejected as a whole.
func (c *Coordinator) ApplySectionUpdates(updates []prd.SectionUpdate) error {
	if err := validateUpdates(updates); err != nil {
		return err
	}
	return c.do(func() error {
		next := c.content.Clone()
		for _, u := range updates {
			next[u.SectionKey] = prd.Section{Content: u.Content, Status: u.Status}
			c.highlights.MarkTouched(u.SectionKey)
		}
		c.content = next
		c.saver.ContentChanged(next)

		c.logger.Debug("section updates applied", "count", len(updates))
		return nil
	})
}

// Content returns a copy of the current content
func (c *Coordinator) Content() (prd.DocumentContent, error) {
	var out prd.DocumentContent
	err := c.do(func() error {
		out = c.content.Clone()
		return nil
	})
	return out, err
}

// CompletionValidation evaluates the current content. It is recomputed on every call.
func (c *Coordinator) CompletionValidation() (prd.CompletionValidation, error) {
	var content prd.DocumentContent
	if err := c.do(func() error {
		content = c.content
		return nil
	}); err != nil {
		return prd.CompletionValidation{}, err
	}
	// Published content maps are never mutated, so validation can run off the loop
	return c.validator.ValidateAllSections(content), nil
}

// State returns the session read model
func (c *Coordinator) State() (*State, error) {
	state := &State{PRDID: c.prdID}
	var content prd.DocumentContent
	err := c.do(func() error {
		content = c.content
		state.Content = c.content.Clone()
		state.SaveStatus = c.saver.Status()
		state.SaveError = c.saver.Error()
		state.AutoSaveEnabled = c.saver.Enabled()
		state.Highlighted = c.highlights.Active()
		if at := c.saver.LastSavedAt(); !at.IsZero() {
			state.LastSavedAt = &at
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	state.Validation = c.validator.ValidateAllSections(content)
	return state, nil
}

// HasUnsavedChanges reports whether some content has not been persisted yet
func (c *Coordinator) HasUnsavedChanges() (bool, error) {
	var unsaved bool
	err := c.do(func() error {
		unsaved = c.saver.HasUnsavedChanges()
		return nil
	})
	return unsaved, err
}

// TriggerSave saves the current content now, bypassing the debounce
func (c *Coordinator) TriggerSave() error {
	return c.do(func() error {
		c.saver.TriggerSave()
		c.logger.Info("manual save requested")
		return nil
	})
}

// ClearSaveError dismisses a save error
func (c *Coordinator) ClearSaveError() error {
	return c.do(func() error {
		c.saver.ClearError()
		return nil
	})
}

// SetAutoSaveEnabled turns debounced saving on or off; manual saves keep working
func (c *Coordinator) SetAutoSaveEnabled(enabled bool) error {
	return c.do(func() error {
		c.saver.SetEnabled(enabled)
		c.logger.Info("auto-save toggled", "enabled", enabled)
		return nil
	})
}

// Close tears the session down. Pending debounce, saved-display and highlight
// timers are cancelled; no callback runs afterwards. Safe to call more than once.
func (c *Coordinator) Close() {
	c.loop.Do(func() {
		if c.closed {
			return
		}
		c.closed = true
		c.saver.Close()
		c.highlights.Close()
	})
	c.loop.Close()
	c.logger.Debug("editing session closed")
}

func knownSectionKeys() []interface{} {
	keys := prd.SectionKeys()
	out := make([]interface{}, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}

var knownStatuses = []interface{}{prd.StatusEmpty, prd.StatusInProgress, prd.StatusComplete}

func validateUpdates(updates []prd.SectionUpdate) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: at least one section update is required", domain.ErrValidation)
	}

	keys := knownSectionKeys()
	for i := range updates {
		u := &updates[i]
		err := validation.ValidateStruct(u,
			validation.Field(&u.SectionKey, validation.Required, validation.In(keys...)),
			validation.Field(&u.Status, validation.Required, validation.In(knownStatuses...)),
			validation.Field(&u.Content, validation.RuneLength(0, prd.MaxSectionContentLength)),
		)
		if err != nil {
			return fmt.Errorf("%w: update %d: %v", domain.ErrValidation, i, err)
		}
	}
	return nil
}

func validateContent(content prd.DocumentContent) error {
	if err := content.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}
