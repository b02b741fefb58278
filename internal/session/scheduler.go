package session

import (
	"sync"
	"time"
)

// StepKind names one pacing point in the combat reveal cycle. Delays are
// configured per kind so the presentation rhythm is tunable without
// touching the sequencer.
type StepKind string

const (
	StepRevealRow  StepKind = "reveal_row"  // next dice row enters
	StepLandRow    StepKind = "land_row"    // its dice settle on final values
	StepShowHits   StepKind = "show_hits"   // hit totals appear
	StepShowBadges StepKind = "show_badges" // per-stack damage badges appear
	StepShowResult StepKind = "show_result" // final outcome banner
)

// Scheduler paces the sequencer's reveal steps. Implementations decide
// when a scheduled callback fires; the sequencer never calls time.Sleep
// itself, so tests drive reveals deterministically with ManualScheduler.
//
// Callbacks must run on the session's control thread. TimerScheduler
// fires them on timer goroutines, so an embedding UI loop should wrap it
// and relay callbacks onto its own thread.
type Scheduler interface {
	// After schedules fn to run after the delay associated with step.
	After(step StepKind, fn func())
	// Cancel drops every callback not yet fired.
	Cancel()
}

// DefaultDelays is the standard reveal pacing.
var DefaultDelays = map[StepKind]time.Duration{
	StepRevealRow:  400 * time.Millisecond,
	StepLandRow:    600 * time.Millisecond,
	StepShowHits:   500 * time.Millisecond,
	StepShowBadges: 400 * time.Millisecond,
	StepShowResult: 800 * time.Millisecond,
}

// TimerScheduler fires callbacks on real timers.
type TimerScheduler struct {
	delays map[StepKind]time.Duration

	mu     sync.Mutex
	timers []*time.Timer
	gen    int
}

// NewTimerScheduler returns a scheduler using the given delays; nil means
// DefaultDelays.
func NewTimerScheduler(delays map[StepKind]time.Duration) *TimerScheduler {
	if delays == nil {
		delays = DefaultDelays
	}
	return &TimerScheduler{delays: delays}
}

// After implements Scheduler.
func (ts *TimerScheduler) After(step StepKind, fn func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	gen := ts.gen
	t := time.AfterFunc(ts.delays[step], func() {
		ts.mu.Lock()
		stale := gen != ts.gen
		ts.mu.Unlock()
		if !stale {
			fn()
		}
	})
	ts.timers = append(ts.timers, t)
}

// Cancel implements Scheduler. Already-fired callbacks are unaffected.
func (ts *TimerScheduler) Cancel() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.gen++
	for _, t := range ts.timers {
		t.Stop()
	}
	ts.timers = nil
}

// ManualScheduler queues callbacks and fires them only when stepped.
// Tests use it to walk a reveal one pacing point at a time.
type ManualScheduler struct {
	queue []queuedStep
}

type queuedStep struct {
	Kind StepKind
	fn   func()
}

// NewManualScheduler returns an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// After implements Scheduler.
func (ms *ManualScheduler) After(step StepKind, fn func()) {
	ms.queue = append(ms.queue, queuedStep{Kind: step, fn: fn})
}

// Cancel implements Scheduler.
func (ms *ManualScheduler) Cancel() {
	ms.queue = nil
}

// Pending returns the kinds of the queued steps in order.
func (ms *ManualScheduler) Pending() []StepKind {
	out := make([]StepKind, len(ms.queue))
	for i, q := range ms.queue {
		out[i] = q.Kind
	}
	return out
}

// Step fires the oldest queued callback. It returns false when the queue
// is empty.
func (ms *ManualScheduler) Step() bool {
	if len(ms.queue) == 0 {
		return false
	}
	next := ms.queue[0]
	ms.queue = ms.queue[1:]
	next.fn()
	return true
}

// Drain fires callbacks until the queue stays empty, including ones
// scheduled by earlier callbacks. It returns the number fired.
func (ms *ManualScheduler) Drain() int {
	n := 0
	for ms.Step() {
		n++
	}
	return n
}
