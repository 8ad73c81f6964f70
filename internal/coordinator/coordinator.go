// Package coordinator implements the completion state machine that joins
// the fixed-length assembly animation with the variable-length image
// generation call.
//
// A creation request starts both activities together. The generation
// outcome is parked in a per-attempt single-slot cell; the animation's
// completion signal is the join point that reads it. If the image service
// has not answered by then, the coordinator waits in StateGenerating and
// the late delivery performs the transition itself. A terminal state is
// therefore never shown before the animation has run its full length.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/ottoplate/internal/domain"
	"github.com/hammamikhairi/ottoplate/internal/logger"
)

// User-facing failure text. Causes stay in Snapshot.Err.
const (
	failureMessage    = "Failed to generate the dish image."
	missingKeyMessage = failureMessage + " Please check the API key."
)

// Option configures the coordinator.
type Option func(*Coordinator)

// WithListener registers a callback invoked after every visible state
// change. It runs outside the coordinator's lock and may call Snapshot.
func WithListener(fn func()) Option {
	return func(c *Coordinator) {
		c.onChange = fn
	}
}

// WithGenerationTimeout bounds each background generation call.
func WithGenerationTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.genTimeout = d
	}
}

// WithInitialDish sets the dish selected at startup.
func WithInitialDish(kind domain.DishKind) Option {
	return func(c *Coordinator) {
		c.selected = kind
	}
}

// Coordinator owns the application state. All methods are safe for
// concurrent use.
type Coordinator struct {
	catalog    domain.DishCatalog
	gen        domain.ImageGenerator
	anim       domain.Animator
	log        *logger.Logger
	onChange   func()
	genTimeout time.Duration

	mu       sync.Mutex
	state    domain.State
	selected domain.DishKind
	image    *domain.Image
	message  string
	cause    error
	attempts int
	lastID   string
	current  *attempt // nil unless busy
	closed   bool
}

// attempt is one generation cycle.
type attempt struct {
	id     string
	dish   domain.DishOption
	cell   slot
	joined bool // animation finished; delivery must settle directly
	run    domain.AnimationRun
	cancel context.CancelFunc
}

// New creates a coordinator in StateIdle.
func New(catalog domain.DishCatalog, gen domain.ImageGenerator, anim domain.Animator, log *logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		catalog:    catalog,
		gen:        gen,
		anim:       anim,
		log:        log,
		genTimeout: 2 * time.Minute,
		selected:   domain.DishTart,
		state:      domain.StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Busy reports whether an attempt is in progress, including the interim
// wait after the animation has finished.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Busy()
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() domain.Snapshot {
	dish, err := c.catalog.Get(context.Background(), c.selected)
	if err != nil {
		dish = domain.DishOption{Kind: c.selected}
	}
	if c.current != nil {
		dish = c.current.dish
	}
	return domain.Snapshot{
		State:     c.state,
		Dish:      dish,
		Image:     c.image,
		Message:   c.message,
		Err:       c.cause,
		Attempt:   c.attempts,
		AttemptID: c.lastID,
	}
}

// Select changes the selected dish. Returns ErrBusy while an attempt is in
// progress and ErrNotFound for unknown kinds.
func (c *Coordinator) Select(kind domain.DishKind) error {
	if _, err := c.catalog.Get(context.Background(), kind); err != nil {
		return fmt.Errorf("coordinator: select %q: %w", kind, err)
	}

	c.mu.Lock()
	if state := c.state; state.Busy() {
		c.mu.Unlock()
		c.log.Debug("select %s ignored while %s", kind, state)
		return domain.ErrBusy
	}
	changed := c.selected != kind
	c.selected = kind
	c.mu.Unlock()

	if changed {
		c.log.Debug("selected %s", kind)
		c.notify()
	}
	return nil
}

// Create starts a generation attempt for the selected dish. It returns
// false, changing nothing, when an attempt is already in progress or the
// coordinator is closed.
//
// A missing credential moves straight to StateError without starting the
// animation or touching the network.
func (c *Coordinator) Create(ctx context.Context) bool {
	c.mu.Lock()
	if c.closed || c.state.Busy() {
		state := c.state
		c.mu.Unlock()
		c.log.Debug("create ignored while %s", state)
		return false
	}

	dish, err := c.catalog.Get(ctx, c.selected)
	if err != nil {
		c.failLocked(fmt.Errorf("coordinator: load dish %s: %w", c.selected, err))
		c.mu.Unlock()
		c.notify()
		return true
	}

	c.image = nil
	c.message = ""
	c.cause = nil
	c.attempts++
	c.lastID = uuid.NewString()

	if err := c.gen.Ready(); err != nil {
		c.log.Warn("attempt %d: %v", c.attempts, err)
		c.failLocked(err)
		c.mu.Unlock()
		c.notify()
		return true
	}

	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.genTimeout)
	a := &attempt{id: c.lastID, dish: dish, cancel: cancel}
	c.current = a
	c.state = domain.StateBusy
	n := c.attempts

	// Started under the lock so a fast completion cannot join before
	// a.run is recorded.
	a.run = c.anim.Start(dish.Kind, func() { c.join(a) })
	c.mu.Unlock()

	c.log.Info("attempt %d (%s): styling %s", n, shortID(a.id), dish.Kind)
	c.notify()

	go c.generate(genCtx, a)
	return true
}

// Reset returns from StateError to StateIdle. It returns false in any
// other state.
func (c *Coordinator) Reset() bool {
	c.mu.Lock()
	if c.state != domain.StateError {
		c.mu.Unlock()
		return false
	}
	c.state = domain.StateIdle
	c.message = ""
	c.cause = nil
	c.image = nil
	c.mu.Unlock()

	c.log.Debug("reset to idle")
	c.notify()
	return true
}

// Close cancels the in-flight generation call and animation, if any.
// Outcomes that arrive afterwards are dropped.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if a := c.current; a != nil {
		if a.run != nil {
			a.run.Stop()
		}
		a.cancel()
		c.current = nil
		c.log.Info("closed with attempt %s in flight", shortID(a.id))
	}
}

// generate runs on its own goroutine. Every failure, including a panic
// in the generator, is delivered as an outcome so the join can never
// wait forever.
func (c *Coordinator) generate(ctx context.Context, a *attempt) {
	defer a.cancel()

	out := func() (out domain.Outcome) {
		defer func() {
			if r := recover(); r != nil {
				out = domain.Outcome{Err: fmt.Errorf("coordinator: generator panicked: %v", r)}
			}
		}()
		img, err := c.gen.Generate(ctx, a.dish.Prompt)
		if err == nil && img == nil {
			err = domain.ErrNoImageReturned
		}
		if err != nil {
			return domain.Outcome{Err: err}
		}
		return domain.Outcome{Image: img}
	}()

	c.deliver(a, out)
}

// deliver parks the outcome in the attempt's cell. When the animation has
// already finished, the write settles the attempt immediately.
func (c *Coordinator) deliver(a *attempt, out domain.Outcome) {
	c.mu.Lock()
	if c.current != a {
		c.mu.Unlock()
		c.log.Debug("dropping outcome of stale attempt %s", shortID(a.id))
		return
	}

	a.cell.put(out)
	if !a.joined {
		c.mu.Unlock()
		c.log.Debug("attempt %s: outcome ready before animation end", shortID(a.id))
		return
	}

	out, _ = a.cell.take()
	c.settleLocked(out)
	c.mu.Unlock()
	c.notify()
}

// join is the animation completion handler.
func (c *Coordinator) join(a *attempt) {
	c.mu.Lock()
	if c.current != a || a.joined {
		c.mu.Unlock()
		return
	}
	a.joined = true

	out, ok := a.cell.take()
	if !ok {
		c.state = domain.StateGenerating
		c.mu.Unlock()
		c.log.Debug("attempt %s: animation done, still generating", shortID(a.id))
		c.notify()
		return
	}

	c.settleLocked(out)
	c.mu.Unlock()
	c.notify()
}

// settleLocked applies a consumed outcome and ends the attempt.
func (c *Coordinator) settleLocked(out domain.Outcome) {
	c.current = nil
	if out.Failed() {
		c.failLocked(out.Err)
		return
	}
	c.state = domain.StateComplete
	c.image = out.Image
	c.log.Info("attempt %d complete: %s, %d bytes", c.attempts, out.Image.MIMEType, len(out.Image.Data))
}

func (c *Coordinator) failLocked(err error) {
	c.current = nil
	c.state = domain.StateError
	c.image = nil
	c.cause = err
	c.message = failureMessage
	if errors.Is(err, domain.ErrMissingCredential) {
		c.message = missingKeyMessage
	}
	c.log.Error("attempt %d failed: %v", c.attempts, err)
}

func (c *Coordinator) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
