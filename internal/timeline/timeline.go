// Package timeline implements the fixed-length assembly animation that
// plays while a dish image is being generated. It owns no business state:
// it only reports stage changes and one completion signal on a schedule.
package timeline

import (
	"sync"
	"time"

	"github.com/hammamikhairi/ottoplate/internal/domain"
	"github.com/hammamikhairi/ottoplate/internal/logger"
)

// Compile-time interface check.
var _ domain.Animator = (*Timeline)(nil)

// Default schedule: base, middle and top layers, then the reveal.
var (
	DefaultStages   = []time.Duration{100 * time.Millisecond, 1200 * time.Millisecond, 2400 * time.Millisecond}
	DefaultDuration = 4 * time.Second
)

// StageHook is told when a run reaches a stage. Stages are numbered from 1.
type StageHook func(kind domain.DishKind, stage int)

// Option configures the timeline.
type Option func(*Timeline)

// WithStages sets the stage offsets measured from Start.
func WithStages(offsets ...time.Duration) Option {
	return func(t *Timeline) {
		t.stages = append([]time.Duration(nil), offsets...)
	}
}

// WithDuration sets when the completion signal fires.
func WithDuration(d time.Duration) Option {
	return func(t *Timeline) {
		t.duration = d
	}
}

// WithStageHook registers a stage observer, typically the display.
func WithStageHook(h StageHook) Option {
	return func(t *Timeline) {
		t.hook = h
	}
}

// Timeline schedules animation runs. One Timeline may start many runs.
type Timeline struct {
	stages   []time.Duration
	duration time.Duration
	hook     StageHook
	log      *logger.Logger
}

// New creates a timeline with the default schedule.
func New(log *logger.Logger, opts ...Option) *Timeline {
	t := &Timeline{
		stages:   DefaultStages,
		duration: DefaultDuration,
		log:      log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Duration returns the fixed run length.
func (t *Timeline) Duration() time.Duration { return t.duration }

// Stages returns the number of stages per run.
func (t *Timeline) Stages() int { return len(t.stages) }

// Start begins a run for kind. onComplete is called exactly once, on its
// own goroutine, after the full duration unless the run is stopped first.
func (t *Timeline) Start(kind domain.DishKind, onComplete func()) domain.AnimationRun {
	r := &run{log: t.log, kind: kind}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, at := range t.stages {
		if at >= t.duration {
			continue
		}
		stage := i + 1
		r.timers = append(r.timers, time.AfterFunc(at, func() {
			if r.active() && t.hook != nil {
				t.hook(kind, stage)
			}
		}))
	}
	r.timers = append(r.timers, time.AfterFunc(t.duration, func() {
		if !r.finish() {
			return
		}
		t.log.Debug("timeline: %s run complete after %s", kind, t.duration)
		if onComplete != nil {
			onComplete()
		}
	}))

	t.log.Debug("timeline: started %s run (%d stages, %s)", kind, len(t.stages), t.duration)
	return r
}

// run is one started animation.
type run struct {
	log  *logger.Logger
	kind domain.DishKind

	mu      sync.Mutex
	timers  []*time.Timer
	stopped bool
	done    bool
}

func (r *run) active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.stopped && !r.done
}

// finish marks the run done. Returns false if it was stopped or already done.
func (r *run) finish() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.done {
		return false
	}
	r.done = true
	return true
}

// Stop cancels pending stage and completion callbacks. Safe to call more
// than once and after completion.
func (r *run) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || r.done {
		return
	}
	r.stopped = true
	for _, tm := range r.timers {
		tm.Stop()
	}
	r.log.Debug("timeline: %s run stopped", r.kind)
}
