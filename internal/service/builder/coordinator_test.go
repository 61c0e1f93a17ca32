package builder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prdbuilder/internal/domain"
	"prdbuilder/internal/domain/models/prd"
	"prdbuilder/internal/service/eventloop"
)

// recorder is a save function that records every call and fails while err is set
type recorder struct {
	mu    sync.Mutex
	saved []prd.DocumentContent
	err   error
}

func (r *recorder) save(_ context.Context, content prd.DocumentContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, content)
	return r.err
}

func (r *recorder) failWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *recorder) calls() []prd.DocumentContent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]prd.DocumentContent(nil), r.saved...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCoordinator(t *testing.T) (*Coordinator, *recorder, *eventloop.ManualClock) {
	t.Helper()
	clock := eventloop.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	opts := DefaultOptions()
	opts.Clock = clock

	rec := &recorder{}
	c := NewCoordinator(context.Background(), "prd-1", rec.save, nil, opts, discardLogger(), nil)
	t.Cleanup(c.Close)
	return c, rec, clock
}

func waitSaveStatus(t *testing.T, c *Coordinator, want prd.SaveStatus) *State {
	t.Helper()
	var state *State
	require.Eventually(t, func() bool {
		s, err := c.State()
		if err != nil {
			return false
		}
		state = s
		return s.SaveStatus == want
	}, 2*time.Second, 5*time.Millisecond, "save status never became %s", want)
	return state
}

func TestApplySectionUpdatesMergesAndHighlights(t *testing.T) {
	c, rec, clock := newTestCoordinator(t)

	require.NoError(t, c.ReplaceContent(prd.DocumentContent{
		prd.SectionGoals: {Content: "ship it", Status: prd.StatusComplete},
	}))

	err := c.ApplySectionUpdates([]prd.SectionUpdate{
		{SectionKey: prd.SectionProblemStatement, Content: "draft", Status: prd.StatusInProgress},
		{SectionKey: prd.SectionTargetUsers, Content: "PMs", Status: prd.StatusInProgress},
		{SectionKey: prd.SectionProblemStatement, Content: "final", Status: prd.StatusComplete},
	})
	require.NoError(t, err)

	state, err := c.State()
	require.NoError(t, err)
	assert.Equal(t, prd.DocumentContent{
		prd.SectionGoals:            {Content: "ship it", Status: prd.StatusComplete},
		prd.SectionProblemStatement: {Content: "final", Status: prd.StatusComplete},
		prd.SectionTargetUsers:      {Content: "PMs", Status: prd.StatusInProgress},
	}, state.Content)
	assert.Equal(t, []prd.SectionKey{prd.SectionProblemStatement, prd.SectionTargetUsers}, state.Highlighted)

	// One debounce timer for the batch plus one highlight timer per distinct section
	assert.Equal(t, 3, clock.Pending())

	clock.Advance(time.Second)
	waitSaveStatus(t, c, prd.SaveStatusSaved)
	require.Len(t, rec.calls(), 1)
	assert.Equal(t, state.Content, rec.calls()[0])

	clock.Advance(time.Second)
	state, err = c.State()
	require.NoError(t, err)
	assert.Empty(t, state.Highlighted)
}

func TestApplySectionUpdatesRejectsInvalidBatch(t *testing.T) {
	tests := []struct {
		name    string
		updates []prd.SectionUpdate
	}{
		{name: "empty batch", updates: nil},
		{
			name: "unknown section",
			updates: []prd.SectionUpdate{
				{SectionKey: prd.SectionGoals, Content: "g", Status: prd.StatusInProgress},
				{SectionKey: "appendix", Content: "x", Status: prd.StatusInProgress},
			},
		},
		{
			name: "unknown status",
			updates: []prd.SectionUpdate{
				{SectionKey: prd.SectionGoals, Content: "g", Status: "done"},
			},
		},
		{
			name: "oversized content",
			updates: []prd.SectionUpdate{
				{SectionKey: prd.SectionGoals, Content: strings.Repeat("x", prd.MaxSectionContentLength+1), Status: prd.StatusInProgress},
			},
		},
		{
			name: "missing status",
			updates: []prd.SectionUpdate{
				{SectionKey: prd.SectionGoals, Content: "g"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec, clock := newTestCoordinator(t)

			err := c.ApplySectionUpdates(tt.updates)
			require.ErrorIs(t, err, domain.ErrValidation)

			state, err := c.State()
			require.NoError(t, err)
			assert.Empty(t, state.Content)
			assert.Empty(t, state.Highlighted)
			assert.Equal(t, 0, clock.Pending())

			clock.Advance(time.Minute)
			assert.Empty(t, rec.calls())
		})
	}
}

func TestReplaceContentDoesNotHighlightOrSave(t *testing.T) {
	c, rec, clock := newTestCoordinator(t)

	loaded := prd.DocumentContent{
		prd.SectionGoals:    {Content: "grow", Status: prd.StatusInProgress},
		prd.SectionTimeline: {Content: "Q3", Status: prd.StatusComplete},
	}
	require.NoError(t, c.ReplaceContent(loaded))

	state, err := c.State()
	require.NoError(t, err)
	assert.Equal(t, loaded, state.Content)
	assert.Empty(t, state.Highlighted)
	assert.Equal(t, prd.SaveStatusIdle, state.SaveStatus)

	clock.Advance(time.Minute)
	assert.Empty(t, rec.calls())
}

func TestReplaceContentRejectsUnknownSection(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	err := c.ReplaceContent(prd.DocumentContent{"appendix": {Content: "x", Status: prd.StatusEmpty}})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSectionContentLimitCountsCharacters(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	// Two bytes per rune: over the limit in bytes, exactly at it in characters
	atLimit := strings.Repeat("é", prd.MaxSectionContentLength)
	require.NoError(t, c.ApplySectionUpdates([]prd.SectionUpdate{
		{SectionKey: prd.SectionRequirements, Content: atLimit, Status: prd.StatusInProgress},
	}))

	err := c.ReplaceContent(prd.DocumentContent{
		prd.SectionRequirements: {Content: atLimit + "é", Status: prd.StatusInProgress},
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	got, err := c.Content()
	require.NoError(t, err)
	assert.Equal(t, atLimit, got[prd.SectionRequirements].Content)
}

func TestCoordinatorContentIsACopy(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	input := prd.DocumentContent{prd.SectionGoals: {Content: "a", Status: prd.StatusInProgress}}
	require.NoError(t, c.ReplaceContent(input))
	input[prd.SectionGoals] = prd.Section{Content: "mutated", Status: prd.StatusComplete}

	got, err := c.Content()
	require.NoError(t, err)
	assert.Equal(t, "a", got[prd.SectionGoals].Content)

	got[prd.SectionTimeline] = prd.Section{Content: "x", Status: prd.StatusComplete}
	again, err := c.Content()
	require.NoError(t, err)
	assert.NotContains(t, again, prd.SectionTimeline)
}

func TestCompletionValidationTracksContent(t *testing.T) {
	c, _, _ := newTestCoordinator(t)

	v, err := c.CompletionValidation()
	require.NoError(t, err)
	assert.False(t, v.IsReady)
	assert.Equal(t, 0, v.CompletedCount)
	assert.Equal(t, 6, v.TotalRequired)

	long := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = 'x'
		}
		return string(b)
	}
	require.NoError(t, c.ApplySectionUpdates([]prd.SectionUpdate{
		{SectionKey: prd.SectionProblemStatement, Content: long(100), Status: prd.StatusComplete},
		{SectionKey: prd.SectionTargetUsers, Content: long(50), Status: prd.StatusComplete},
		{SectionKey: prd.SectionGoals, Content: long(50), Status: prd.StatusComplete},
		{SectionKey: prd.SectionUserStories, Content: long(100), Status: prd.StatusComplete},
		{SectionKey: prd.SectionRequirements, Content: long(100), Status: prd.StatusComplete},
		{SectionKey: prd.SectionSuccessMetrics, Content: long(49), Status: prd.StatusComplete},
	}))

	v, err = c.CompletionValidation()
	require.NoError(t, err)
	assert.False(t, v.IsReady)
	assert.Equal(t, 5, v.CompletedCount)
	require.Len(t, v.IncompleteRequired, 1)
	assert.Equal(t, prd.SectionSuccessMetrics, v.IncompleteRequired[0].Key)

	require.NoError(t, c.ApplySectionUpdates([]prd.SectionUpdate{
		{SectionKey: prd.SectionSuccessMetrics, Content: long(50), Status: prd.StatusComplete},
	}))
	state, err := c.State()
	require.NoError(t, err)
	assert.True(t, state.Validation.IsReady)
	assert.Equal(t, 6, state.Validation.CompletedCount)
}

func TestCoordinatorSaveErrorLifecycle(t *testing.T) {
	c, rec, clock := newTestCoordinator(t)
	rec.failWith(errors.New("database unavailable"))

	require.NoError(t, c.ApplySectionUpdates([]prd.SectionUpdate{
		{SectionKey: prd.SectionGoals, Content: "g", Status: prd.StatusInProgress},
	}))
	clock.Advance(time.Second)

	state := waitSaveStatus(t, c, prd.SaveStatusError)
	assert.Equal(t, "database unavailable", state.SaveError)
	assert.Nil(t, state.LastSavedAt)

	require.NoError(t, c.ClearSaveError())
	state, err := c.State()
	require.NoError(t, err)
	assert.Equal(t, prd.SaveStatusIdle, state.SaveStatus)
	assert.Empty(t, state.SaveError)

	rec.failWith(nil)
	require.NoError(t, c.TriggerSave())
	state = waitSaveStatus(t, c, prd.SaveStatusSaved)
	require.NotNil(t, state.LastSavedAt)
	assert.Equal(t, clock.Now(), *state.LastSavedAt)
	assert.Len(t, rec.calls(), 2)
}

func TestCoordinatorAutoSaveToggle(t *testing.T) {
	c, rec, clock := newTestCoordinator(t)

	require.NoError(t, c.SetAutoSaveEnabled(false))
	require.NoError(t, c.ApplySectionUpdates([]prd.SectionUpdate{
		{SectionKey: prd.SectionGoals, Content: "g", Status: prd.StatusInProgress},
	}))
	clock.Advance(time.Minute)
	assert.Empty(t, rec.calls())

	state, err := c.State()
	require.NoError(t, err)
	assert.False(t, state.AutoSaveEnabled)

	require.NoError(t, c.SetAutoSaveEnabled(true))
	require.NoError(t, c.ApplySectionUpdates([]prd.SectionUpdate{
		{SectionKey: prd.SectionGoals, Content: "g2", Status: prd.StatusInProgress},
	}))
	clock.Advance(time.Second)
	waitSaveStatus(t, c, prd.SaveStatusSaved)
	assert.Len(t, rec.calls(), 1)
}

func TestCoordinatorCloseMidDebounce(t *testing.T) {
	c, rec, clock := newTestCoordinator(t)

	require.NoError(t, c.ApplySectionUpdates([]prd.SectionUpdate{
		{SectionKey: prd.SectionGoals, Content: "g", Status: prd.StatusInProgress},
	}))
	c.Close()
	c.Close()

	assert.Equal(t, 0, clock.Pending())
	clock.Advance(time.Minute)
	assert.Empty(t, rec.calls())

	assert.ErrorIs(t, c.TriggerSave(), domain.ErrSessionClosed)
	_, err := c.State()
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	err = c.ApplySectionUpdates([]prd.SectionUpdate{
		{SectionKey: prd.SectionGoals, Content: "late", Status: prd.StatusInProgress},
	})
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}
