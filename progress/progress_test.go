package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect() (*[]Event, Sink) {
	events := &[]Event{}
	return events, func(ev Event) { *events = append(*events, ev) }
}

func TestStageOffsets(t *testing.T) {
	events, sink := collect()
	tr := NewTracker(sink)

	tr.Title("t")
	tr.Narration("n")
	tr.ImagePrompts(1.0, "p")
	tr.Concat(0, "c")
	tr.Concat(1.0, "c")
	tr.Done("d")

	require.Len(t, *events, 6)
	got := make([]float64, len(*events))
	for i, ev := range *events {
		got[i] = ev.Progress
	}
	want := []float64{0.01, 0.05, 0.20, 0.85, 1.00, 1.00}
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "event %d", i)
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	events, sink := collect()
	tr := NewTracker(sink)

	tr.Concat(0.5, "late stage first")
	tr.Title("earlier stage reports after")
	tr.Narration("")

	var last float64
	for _, ev := range *events {
		assert.GreaterOrEqual(t, ev.Progress, last)
		last = ev.Progress
	}
	// Clamped up to the concat report, never back down.
	assert.InDelta(t, 0.925, last, 1e-9)
}

func TestFrameReportersOwnDisjointSpans(t *testing.T) {
	tr := NewTracker(nil)
	reps := tr.Frames(3)
	require.Len(t, reps, 3)

	per := 0.60 / 3
	for i, r := range reps {
		assert.InDelta(t, 0.20+float64(i)*per, r.base, 1e-9, "frame %d base", i)
		assert.InDelta(t, per, r.span, 1e-9, "frame %d span", i)
		assert.Equal(t, i, r.index)
	}
}

func TestFoldImagePromptsRedistributesBudget(t *testing.T) {
	tr := NewTracker(nil)
	tr.FoldImagePrompts()

	reps := tr.Frames(2)
	require.Len(t, reps, 2)

	// Frames now start where image prompts would have and absorb that
	// stage's share.
	assert.InDelta(t, 0.05, reps[0].base, 1e-9)
	assert.InDelta(t, 0.375, reps[0].span, 1e-9)
	assert.InDelta(t, 0.425, reps[1].base, 1e-9)
}

func TestFrameEventsCarryCoordinates(t *testing.T) {
	events, sink := collect()
	tr := NewTracker(sink)
	reps := tr.Frames(2)

	reps[1].Step(0.5, "image", "generating")
	reps[0].Done("done")

	require.Len(t, *events, 2)
	assert.Equal(t, 2, (*events)[0].FrameCurrent)
	assert.Equal(t, 2, (*events)[0].FrameTotal)
	assert.Equal(t, "image", (*events)[0].Step)
	assert.Equal(t, 1, (*events)[1].FrameCurrent)
}

func TestConcurrentReportsStayClamped(t *testing.T) {
	var mu sync.Mutex
	var got []float64
	tr := NewTracker(func(ev Event) {
		mu.Lock()
		got = append(got, ev.Progress)
		mu.Unlock()
	})
	reps := tr.Frames(8)

	var wg sync.WaitGroup
	for _, r := range reps {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, d := range []float64{0, 0.25, 0.5, 0.75, 1} {
				r.Step(d, "step", "")
			}
		}()
	}
	wg.Wait()

	var last float64
	for i, v := range got {
		assert.GreaterOrEqual(t, v, last, "event %d regressed", i)
		last = v
	}
}

func TestZeroFrames(t *testing.T) {
	tr := NewTracker(nil)
	assert.Nil(t, tr.Frames(0))
}
