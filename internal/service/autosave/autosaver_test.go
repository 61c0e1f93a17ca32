package autosave

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prdbuilder/internal/domain/models/prd"
	"prdbuilder/internal/metrics"
	"prdbuilder/internal/service/eventloop"
)

type harness struct {
	t     *testing.T
	clock *eventloop.ManualClock
	loop  *eventloop.Loop
	gate  *gatedSave[prd.DocumentContent]
	saver *AutoSaver
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	h := &harness{
		t:     t,
		clock: eventloop.NewManualClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)),
		gate:  newGatedSave[prd.DocumentContent](),
	}
	h.loop = eventloop.New(h.clock)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewAutoSave(prometheus.NewRegistry())
	h.loop.Do(func() {
		h.saver = New(context.Background(), h.loop, h.gate.save, opts, logger, m)
	})

	t.Cleanup(func() {
		h.loop.Do(h.saver.Close)
		h.loop.Close()
		close(h.gate.results)
	})
	return h
}

func (h *harness) do(fn func(a *AutoSaver)) {
	h.loop.Do(func() { fn(h.saver) })
}

func (h *harness) change(content prd.DocumentContent) {
	h.do(func(a *AutoSaver) { a.ContentChanged(content) })
}

func (h *harness) status() prd.SaveStatus {
	var s prd.SaveStatus
	h.do(func(a *AutoSaver) { s = a.Status() })
	return s
}

func (h *harness) waitStatus(want prd.SaveStatus) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return h.status() == want },
		2*time.Second, 5*time.Millisecond, "status never became %s", want)
}

func content(text string) prd.DocumentContent {
	return prd.DocumentContent{
		prd.SectionGoals: {Content: text, Status: prd.StatusInProgress},
	}
}

func TestAutoSaverCoalescesBurst(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	for _, text := range []string{"a", "ab", "abc", "abcd", "abcde"} {
		h.change(content(text))
		h.clock.Advance(500 * time.Millisecond)
	}
	h.gate.expectNoCall(t)

	h.clock.Advance(500 * time.Millisecond)
	got := h.gate.expectCall(t)
	assert.Equal(t, content("abcde"), got)
	h.gate.expectNoCall(t)
}

func TestAutoSaverFiresAtDebounceDelay(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.change(content("hello"))
	h.clock.Advance(999 * time.Millisecond)
	h.gate.expectNoCall(t)
	assert.Equal(t, prd.SaveStatusIdle, h.status())

	h.clock.Advance(time.Millisecond)
	h.gate.expectCall(t)
	assert.Equal(t, prd.SaveStatusSaving, h.status())
}

func TestAutoSaverLastWriteWinsWhileSaving(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.change(content("A"))
	h.clock.Advance(time.Second)
	assert.Equal(t, content("A"), h.gate.expectCall(t))

	h.change(content("B"))
	h.clock.Advance(time.Second)
	h.change(content("C"))
	h.clock.Advance(time.Second)
	h.gate.expectNoCall(t)
	assert.Equal(t, prd.SaveStatusSaving, h.status())

	h.gate.results <- nil
	assert.Equal(t, content("C"), h.gate.expectCall(t))
	h.gate.results <- nil

	h.waitStatus(prd.SaveStatusSaved)
	h.gate.expectNoCall(t)
	assert.Equal(t, int32(1), h.gate.maxActive.Load())
}

func TestAutoSaverManualSaveCancelsDebounce(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.change(content("draft"))
	h.clock.Advance(300 * time.Millisecond)
	h.change(content("fresh"))
	h.do(func(a *AutoSaver) { a.TriggerSave() })

	assert.Equal(t, content("fresh"), h.gate.expectCall(t))
	h.gate.results <- nil
	h.waitStatus(prd.SaveStatusSaved)

	h.clock.Advance(2 * time.Second)
	h.gate.expectNoCall(t)
}

func TestAutoSaverStatusLifecycle(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	assert.Equal(t, prd.SaveStatusIdle, h.status())

	h.change(content("x"))
	h.clock.Advance(time.Second)
	h.gate.expectCall(t)
	assert.Equal(t, prd.SaveStatusSaving, h.status())

	savedAt := h.clock.Now()
	h.gate.results <- nil
	h.waitStatus(prd.SaveStatusSaved)
	h.do(func(a *AutoSaver) {
		assert.Equal(t, savedAt, a.LastSavedAt())
		assert.Empty(t, a.Error())
	})

	h.clock.Advance(DefaultSavedDisplay - time.Millisecond)
	assert.Equal(t, prd.SaveStatusSaved, h.status())

	h.clock.Advance(time.Millisecond)
	assert.Equal(t, prd.SaveStatusIdle, h.status())
}

func TestAutoSaverErrorPersistsUntilCleared(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.change(content("x"))
	h.clock.Advance(time.Second)
	h.gate.expectCall(t)
	h.gate.results <- errors.New("network unreachable")
	h.waitStatus(prd.SaveStatusError)

	h.clock.Advance(time.Minute)
	assert.Equal(t, prd.SaveStatusError, h.status())
	h.do(func(a *AutoSaver) { assert.Equal(t, "network unreachable", a.Error()) })

	h.do(func(a *AutoSaver) { a.ClearError() })
	assert.Equal(t, prd.SaveStatusIdle, h.status())
	h.do(func(a *AutoSaver) { assert.Empty(t, a.Error()) })
}

func TestAutoSaverManualSaveRecoversFromError(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.change(content("x"))
	h.clock.Advance(time.Second)
	h.gate.expectCall(t)
	h.gate.results <- errors.New("timeout")
	h.waitStatus(prd.SaveStatusError)

	h.do(func(a *AutoSaver) { a.TriggerSave() })
	assert.Equal(t, content("x"), h.gate.expectCall(t))
	assert.Equal(t, prd.SaveStatusSaving, h.status())

	h.gate.results <- nil
	h.waitStatus(prd.SaveStatusSaved)
	h.do(func(a *AutoSaver) { assert.Empty(t, a.Error()) })
}

func TestAutoSaverFailureOverridesSaved(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.change(content("one"))
	h.clock.Advance(time.Second)
	h.gate.expectCall(t)
	h.gate.results <- nil
	h.waitStatus(prd.SaveStatusSaved)

	h.change(content("two"))
	h.clock.Advance(time.Second)
	h.gate.expectCall(t)
	h.gate.results <- errors.New("disk full")
	h.waitStatus(prd.SaveStatusError)

	// The saved-display timer of the first save must not reset the error
	h.clock.Advance(DefaultSavedDisplay * 2)
	assert.Equal(t, prd.SaveStatusError, h.status())
}

func TestAutoSaverRetriesFailedContent(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.change(content("same"))
	h.clock.Advance(time.Second)
	h.gate.expectCall(t)
	h.gate.results <- errors.New("boom")
	h.waitStatus(prd.SaveStatusError)

	h.change(content("same"))
	h.clock.Advance(time.Second)
	assert.Equal(t, content("same"), h.gate.expectCall(t))
	h.gate.results <- nil
	h.waitStatus(prd.SaveStatusSaved)
}

func TestAutoSaverRevertToLoadedContentStillSaves(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	loaded := content("loaded")
	h.do(func(a *AutoSaver) { a.Reset(loaded) })
	h.clock.Advance(time.Minute)
	h.gate.expectNoCall(t)

	h.change(content("edited"))
	h.clock.Advance(200 * time.Millisecond)
	h.change(loaded.Clone())
	h.clock.Advance(time.Second)

	assert.Equal(t, loaded, h.gate.expectCall(t))
	h.gate.results <- nil
	h.waitStatus(prd.SaveStatusSaved)
	h.gate.expectNoCall(t)
}

func TestAutoSaverQueuesValueEqualToRunningSave(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.change(content("B"))
	h.clock.Advance(time.Second)
	assert.Equal(t, content("B"), h.gate.expectCall(t))

	// Edit away and back while B is still being written
	h.change(content("C"))
	h.clock.Advance(200 * time.Millisecond)
	h.change(content("B"))
	h.clock.Advance(time.Second)
	h.gate.expectNoCall(t)

	h.gate.results <- errors.New("connection reset")
	assert.Equal(t, content("B"), h.gate.expectCall(t))
	h.gate.results <- nil

	h.waitStatus(prd.SaveStatusSaved)
	h.do(func(a *AutoSaver) { assert.Empty(t, a.Error()) })
	h.gate.expectNoCall(t)
	assert.Equal(t, int32(1), h.gate.maxActive.Load())
}

func TestAutoSaverTracksUnsavedChanges(t *testing.T) {
	h := newHarness(t, DefaultOptions())
	unsaved := func() bool {
		var v bool
		h.do(func(a *AutoSaver) { v = a.HasUnsavedChanges() })
		return v
	}

	h.do(func(a *AutoSaver) { a.Reset(content("loaded")) })
	assert.False(t, unsaved())

	h.change(content("x"))
	assert.True(t, unsaved())

	h.clock.Advance(time.Second)
	h.gate.expectCall(t)
	assert.True(t, unsaved())

	h.gate.results <- errors.New("write failed")
	h.waitStatus(prd.SaveStatusError)
	assert.True(t, unsaved())

	h.do(func(a *AutoSaver) { a.TriggerSave() })
	h.gate.expectCall(t)
	h.gate.results <- nil
	h.waitStatus(prd.SaveStatusSaved)
	assert.False(t, unsaved())
}

func TestAutoSaverDisabledOnlyAllowsManualSave(t *testing.T) {
	opts := DefaultOptions()
	opts.Enabled = false
	h := newHarness(t, opts)

	h.change(content("x"))
	h.do(func(a *AutoSaver) { assert.False(t, a.SavePending()) })
	h.clock.Advance(5 * time.Second)
	h.gate.expectNoCall(t)

	h.do(func(a *AutoSaver) { a.TriggerSave() })
	assert.Equal(t, content("x"), h.gate.expectCall(t))
	h.gate.results <- nil
	h.waitStatus(prd.SaveStatusSaved)
}

func TestAutoSaverDisablingCancelsPendingDebounce(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.change(content("x"))
	h.do(func(a *AutoSaver) {
		assert.True(t, a.SavePending())
		a.SetEnabled(false)
		assert.False(t, a.SavePending())
		assert.False(t, a.Enabled())
	})
	h.clock.Advance(5 * time.Second)
	h.gate.expectNoCall(t)
}

func TestAutoSaverCloseMidDebounce(t *testing.T) {
	h := newHarness(t, DefaultOptions())

	h.change(content("x"))
	h.do(func(a *AutoSaver) { a.Close() })
	h.clock.Advance(10 * time.Second)

	h.gate.expectNoCall(t)
	assert.Equal(t, 0, h.clock.Pending())

	h.do(func(a *AutoSaver) {
		a.ContentChanged(content("y"))
		a.TriggerSave()
	})
	h.gate.expectNoCall(t)
}
