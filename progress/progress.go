// Package progress aggregates stage-level completion reports from the
// generation pipeline into a single monotonic 0..1 figure.
package progress

import (
	"math"
	"sync"
)

// Event is one progress update delivered to a Sink.
type Event struct {
	Progress     float64 // overall 0..1, monotonic
	Stage        string
	FrameCurrent int // 1-based when reporting per-frame work, else 0
	FrameTotal   int
	Step         string // sub-step within a frame, e.g. "audio", "image"
	Detail       string
}

// Sink receives progress events. Implementations must be fast; the
// tracker calls them under its own serialization.
type Sink func(Event)

// Stage budgets. Each stage owns a fixed slice of the overall figure;
// when image prompt generation is skipped its slice is folded into the
// frame stage.
const (
	budgetTitle        = 0.01
	budgetNarration    = 0.04
	budgetImagePrompts = 0.15
	budgetFrames       = 0.60
	budgetConcat       = 0.15
)

// Stage boundaries as cumulative offsets. The frame stage ends at 0.80
// and concat reports start at 0.85, so the overall figure jumps when
// assembly begins and lands on exactly 1.0 at its end.
const (
	offsetTitle        = 0.0
	offsetNarration    = budgetTitle
	offsetImagePrompts = offsetNarration + budgetNarration
	offsetFrames       = offsetImagePrompts + budgetImagePrompts
	offsetConcat       = 0.85
)

// Tracker converts coarse stage reports into clamped monotonic events.
// All methods are safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	sink   Sink
	last   float64
	folded bool // image prompt budget redistributed into frames
}

// NewTracker wraps sink; a nil sink discards events.
func NewTracker(sink Sink) *Tracker {
	if sink == nil {
		sink = func(Event) {}
	}
	return &Tracker{sink: sink}
}

// FoldImagePrompts redistributes the image prompt stage's budget into
// the frame stage. Call before any frame reports.
func (t *Tracker) FoldImagePrompts() {
	t.mu.Lock()
	t.folded = true
	t.mu.Unlock()
}

// Title reports the title stage as complete.
func (t *Tracker) Title(detail string) {
	t.report(offsetNarration, Event{Stage: "title", Detail: detail})
}

// Narration reports the narration stage as complete.
func (t *Tracker) Narration(detail string) {
	t.report(offsetImagePrompts, Event{Stage: "narration", Detail: detail})
}

// ImagePrompts reports fractional completion of prompt generation,
// done in 0..1.
func (t *Tracker) ImagePrompts(done float64, detail string) {
	t.report(offsetImagePrompts+clamp01(done)*budgetImagePrompts,
		Event{Stage: "image_prompts", Detail: detail})
}

// Concat reports fractional completion of final assembly, done in 0..1.
func (t *Tracker) Concat(done float64, detail string) {
	t.report(offsetConcat+clamp01(done)*budgetConcat,
		Event{Stage: "concat", Detail: detail})
}

// Done reports terminal completion at exactly 1.
func (t *Tracker) Done(detail string) {
	t.report(1.0, Event{Stage: "done", Detail: detail})
}

// Frames returns per-frame reporters for total frames. Each reporter
// owns an immutable slice of the frame-stage budget keyed by its frame
// index, so concurrent frames never interleave into each other's span.
func (t *Tracker) Frames(total int) []*FrameReporter {
	base := offsetFrames
	span := budgetFrames
	t.mu.Lock()
	if t.folded {
		base = offsetImagePrompts
		span = budgetImagePrompts + budgetFrames
	}
	t.mu.Unlock()

	if total <= 0 {
		return nil
	}
	per := span / float64(total)
	reporters := make([]*FrameReporter, total)
	for i := range reporters {
		reporters[i] = &FrameReporter{
			tracker: t,
			index:   i,
			total:   total,
			base:    base + float64(i)*per,
			span:    per,
		}
	}
	return reporters
}

func (t *Tracker) report(value float64, ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	value = clamp01(value)
	if value < t.last {
		value = t.last
	}
	t.last = value
	ev.Progress = value
	t.sink(ev)
}

// FrameReporter reports progress for one frame. The index, base, and
// span are fixed at construction.
type FrameReporter struct {
	tracker *Tracker
	index   int
	total   int
	base    float64
	span    float64
}

// Step reports fractional completion of this frame, done in 0..1, with
// a named sub-step.
func (f *FrameReporter) Step(done float64, step, detail string) {
	f.tracker.report(f.base+clamp01(done)*f.span, Event{
		Stage:        "frames",
		FrameCurrent: f.index + 1,
		FrameTotal:   f.total,
		Step:         step,
		Detail:       detail,
	})
}

// Done reports this frame as fully complete.
func (f *FrameReporter) Done(detail string) {
	f.Step(1.0, "done", detail)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
