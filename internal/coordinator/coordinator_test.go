package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hammamikhairi/ottoplate/internal/dish"
	"github.com/hammamikhairi/ottoplate/internal/domain"
	"github.com/hammamikhairi/ottoplate/internal/logger"
	"github.com/hammamikhairi/ottoplate/internal/timeline"
)

// ── Fakes ────────────────────────────────────────────────────────

type genResult struct {
	img *domain.Image
	err error
}

// mockGenerator answers instantly when instant is set, otherwise blocks
// until the test sends on results.
type mockGenerator struct {
	readyErr error
	instant  *genResult
	results  chan genResult
	panicMsg string

	started chan struct{} // one value per Generate call

	mu      sync.Mutex
	calls   int
	prompts []string
	ctxDone bool
}

func newMockGenerator() *mockGenerator {
	return &mockGenerator{
		results: make(chan genResult, 1),
		started: make(chan struct{}, 8),
	}
}

func (m *mockGenerator) Ready() error { return m.readyErr }

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (*domain.Image, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	select {
	case m.started <- struct{}{}:
	default:
	}

	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.instant != nil {
		return m.instant.img, m.instant.err
	}
	select {
	case r := <-m.results:
		return r.img, r.err
	case <-ctx.Done():
		m.mu.Lock()
		m.ctxDone = true
		m.mu.Unlock()
		return nil, ctx.Err()
	}
}

// waitStarted blocks until Generate has been entered.
func (m *mockGenerator) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-m.started:
	case <-time.After(time.Second):
		t.Fatal("generator was never called")
	}
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockAnimator never completes on its own; tests call finish.
type mockAnimator struct {
	mu   sync.Mutex
	runs []*mockRun
}

type mockRun struct {
	kind       domain.DishKind
	onComplete func()
	stopped    atomic.Bool
}

func (r *mockRun) Stop() { r.stopped.Store(true) }

func (m *mockAnimator) Start(kind domain.DishKind, onComplete func()) domain.AnimationRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &mockRun{kind: kind, onComplete: onComplete}
	m.runs = append(m.runs, r)
	return r
}

func (m *mockAnimator) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

// finish fires the completion signal of the most recent run.
func (m *mockAnimator) finish(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	if len(m.runs) == 0 {
		m.mu.Unlock()
		t.Fatal("no animation was started")
	}
	r := m.runs[len(m.runs)-1]
	m.mu.Unlock()
	r.onComplete()
}

// ── Helpers ──────────────────────────────────────────────────────

var (
	tartImage = &domain.Image{Data: []byte("tart-pixels"), MIMEType: "image/png"}
	ringImage = &domain.Image{Data: []byte("ring-pixels"), MIMEType: "image/jpeg"}
)

func setup(t *testing.T, gen *mockGenerator, opts ...Option) (*Coordinator, *mockAnimator) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	anim := &mockAnimator{}
	c := New(dish.NewCatalog(log), gen, anim, log, opts...)
	t.Cleanup(c.Close)
	return c, anim
}

// currentAttempt returns the in-flight attempt.
func currentAttempt(t *testing.T, c *Coordinator) *attempt {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		t.Fatal("no attempt in flight")
	}
	return c.current
}

// waitDelivered blocks until the attempt's outcome is parked in its slot.
func waitDelivered(t *testing.T, c *Coordinator, a *attempt) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		full := a.cell.full
		c.mu.Unlock()
		if full {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("outcome was never delivered")
}

// waitState blocks until the coordinator reaches want.
func waitState(t *testing.T, c *Coordinator, want domain.State) domain.Snapshot {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s := c.Snapshot(); s.State == want {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected state %s, stuck in %s", want, c.Snapshot().State)
	return domain.Snapshot{}
}

// ── Tests ────────────────────────────────────────────────────────

func TestFastSuccessWaitsForAnimation(t *testing.T) {
	for _, kind := range domain.DishKinds {
		t.Run(string(kind), func(t *testing.T) {
			gen := newMockGenerator()
			gen.instant = &genResult{img: tartImage}
			c, anim := setup(t, gen)

			if err := c.Select(kind); err != nil {
				t.Fatalf("select: %v", err)
			}
			if !c.Create(context.Background()) {
				t.Fatal("create was rejected from idle")
			}
			if s := c.Snapshot(); s.State != domain.StateBusy {
				t.Fatalf("expected busy right after create, got %s", s.State)
			}

			a := currentAttempt(t, c)
			waitDelivered(t, c, a)

			// Generation is done but the animation is not.
			if s := c.Snapshot(); s.State != domain.StateBusy || s.Image != nil {
				t.Fatalf("left busy before animation end: %s", s.State)
			}

			anim.finish(t)

			s := c.Snapshot()
			if s.State != domain.StateComplete {
				t.Fatalf("expected complete, got %s", s.State)
			}
			if s.Image != tartImage {
				t.Fatal("complete without the generated image")
			}
			if s.Dish.Kind != kind {
				t.Fatalf("expected dish %s, got %s", kind, s.Dish.Kind)
			}
			if gen.prompts[0] != s.Dish.Prompt {
				t.Fatal("generator was not given the dish prompt")
			}
		})
	}
}

func TestFastFailureWaitsForAnimation(t *testing.T) {
	gen := newMockGenerator()
	gen.instant = &genResult{err: &domain.TransportError{Detail: "status 503"}}
	c, anim := setup(t, gen)

	c.Create(context.Background())
	waitDelivered(t, c, currentAttempt(t, c))

	if s := c.Snapshot(); s.State != domain.StateBusy {
		t.Fatalf("left busy before animation end: %s", s.State)
	}

	anim.finish(t)

	s := c.Snapshot()
	if s.State != domain.StateError {
		t.Fatalf("expected error, got %s", s.State)
	}
	if s.Message == "" {
		t.Fatal("error state without a message")
	}
	var te *domain.TransportError
	if !errors.As(s.Err, &te) {
		t.Fatalf("expected transport cause, got %v", s.Err)
	}
}

func TestSlowGenerationPassesThroughGenerating(t *testing.T) {
	tests := []struct {
		name  string
		res   genResult
		want  domain.State
		image bool
	}{
		{"success", genResult{img: ringImage}, domain.StateComplete, true},
		{"no image", genResult{err: domain.ErrNoImageReturned}, domain.StateError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newMockGenerator()
			c, anim := setup(t, gen)

			c.Create(context.Background())
			a := currentAttempt(t, c)
			anim.finish(t)

			if s := c.Snapshot(); s.State != domain.StateGenerating {
				t.Fatalf("expected generating after animation, got %s", s.State)
			}
			if !c.Busy() {
				t.Fatal("generating must count as busy")
			}

			gen.results <- tt.res
			s := waitState(t, c, tt.want)
			if (s.Image != nil) != tt.image {
				t.Fatalf("image presence = %v, want %v", s.Image != nil, tt.image)
			}

			// One empty read at the join, one drain on delivery.
			c.mu.Lock()
			reads := a.cell.reads
			c.mu.Unlock()
			if reads != 2 {
				t.Fatalf("expected 2 slot reads, got %d", reads)
			}

			// A duplicate completion signal must not touch the slot again.
			anim.finish(t)
			c.mu.Lock()
			reads = a.cell.reads
			c.mu.Unlock()
			if reads != 2 {
				t.Fatalf("slot read after drain: %d reads", reads)
			}
			if got := c.Snapshot().State; got != tt.want {
				t.Fatalf("state changed after settlement: %s", got)
			}
		})
	}
}

func TestRequestsWhileBusyAreIgnored(t *testing.T) {
	gen := newMockGenerator()
	c, anim := setup(t, gen)

	c.Create(context.Background())
	before := c.Snapshot()

	check := func(phase string) {
		t.Helper()
		if c.Create(context.Background()) {
			t.Fatalf("%s: create accepted while busy", phase)
		}
		if err := c.Select(domain.DishRing); !errors.Is(err, domain.ErrBusy) {
			t.Fatalf("%s: expected ErrBusy from select, got %v", phase, err)
		}
		s := c.Snapshot()
		if s.Attempt != before.Attempt || s.Dish.Kind != before.Dish.Kind || s.Image != nil || s.Message != "" {
			t.Fatalf("%s: state mutated by ignored request: %+v", phase, s)
		}
	}

	check("busy")
	gen.waitStarted(t)
	anim.finish(t)
	check("generating")

	if anim.count() != 1 || gen.callCount() != 1 {
		t.Fatalf("expected one animation and one call, got %d and %d", anim.count(), gen.callCount())
	}

	gen.results <- genResult{img: tartImage}
	waitState(t, c, domain.StateComplete)
}

func TestMissingCredentialFailsImmediately(t *testing.T) {
	gen := newMockGenerator()
	gen.readyErr = domain.ErrMissingCredential
	c, anim := setup(t, gen)

	if !c.Create(context.Background()) {
		t.Fatal("create rejected")
	}

	s := c.Snapshot()
	if s.State != domain.StateError {
		t.Fatalf("expected immediate error, got %s", s.State)
	}
	if s.Message == "" {
		t.Fatal("missing error message")
	}
	if !errors.Is(s.Err, domain.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential cause, got %v", s.Err)
	}
	if anim.count() != 0 {
		t.Fatal("animation started despite missing credential")
	}

	time.Sleep(10 * time.Millisecond)
	if gen.callCount() != 0 {
		t.Fatal("generator called despite missing credential")
	}
}

func TestReset(t *testing.T) {
	gen := newMockGenerator()
	gen.instant = &genResult{err: errors.New("boom")}
	c, anim := setup(t, gen)

	if c.Reset() {
		t.Fatal("reset accepted from idle")
	}

	c.Create(context.Background())
	waitDelivered(t, c, currentAttempt(t, c))
	anim.finish(t)
	waitState(t, c, domain.StateError)

	if !c.Reset() {
		t.Fatal("reset rejected from error")
	}
	s := c.Snapshot()
	if s.State != domain.StateIdle || s.Message != "" || s.Err != nil || s.Image != nil {
		t.Fatalf("reset left residue: %+v", s)
	}
}

func TestConsecutiveAttemptsAreIndependent(t *testing.T) {
	gen := newMockGenerator()
	c, anim := setup(t, gen)
	ctx := context.Background()

	c.Create(ctx)
	first := currentAttempt(t, c)
	gen.results <- genResult{img: tartImage}
	waitDelivered(t, c, first)
	anim.finish(t)
	s1 := waitState(t, c, domain.StateComplete)

	// Second attempt from Complete, animation finishing before the call.
	if !c.Create(ctx) {
		t.Fatal("create rejected from complete")
	}
	if s := c.Snapshot(); s.Image != nil {
		t.Fatal("previous image not cleared on create")
	}
	second := currentAttempt(t, c)
	if second == first || second.id == first.id {
		t.Fatal("attempt reused")
	}
	anim.finish(t)
	if s := c.Snapshot(); s.State != domain.StateGenerating {
		t.Fatalf("stale outcome leaked into second attempt: state %s", s.State)
	}

	gen.results <- genResult{img: ringImage}
	s2 := waitState(t, c, domain.StateComplete)

	if s1.Image == s2.Image {
		t.Fatal("second attempt returned the first image")
	}
	if s2.Attempt != s1.Attempt+1 || s2.AttemptID == s1.AttemptID {
		t.Fatalf("attempt counters not advanced: %d/%s -> %d/%s", s1.Attempt, s1.AttemptID, s2.Attempt, s2.AttemptID)
	}
}

func TestGeneratorPanicBecomesFailure(t *testing.T) {
	gen := newMockGenerator()
	gen.panicMsg = "nil map"
	c, anim := setup(t, gen)

	c.Create(context.Background())
	waitDelivered(t, c, currentAttempt(t, c))
	anim.finish(t)

	if s := c.Snapshot(); s.State != domain.StateError || s.Message == "" {
		t.Fatalf("expected error with message, got %s %q", s.State, s.Message)
	}
}

func TestCloseCancelsInFlight(t *testing.T) {
	gen := newMockGenerator()
	c, anim := setup(t, gen)

	c.Create(context.Background())
	c.Close()

	deadline := time.Now().Add(time.Second)
	for {
		gen.mu.Lock()
		done := gen.ctxDone
		gen.mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("generation context was not cancelled")
		}
		time.Sleep(time.Millisecond)
	}

	if !anim.runs[0].stopped.Load() {
		t.Fatal("animation not stopped on close")
	}
	if c.Create(context.Background()) {
		t.Fatal("create accepted after close")
	}
}

func TestSelectUnknownDish(t *testing.T) {
	c, _ := setup(t, newMockGenerator())
	if err := c.Select("soup"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListenerSeesTransitions(t *testing.T) {
	gen := newMockGenerator()
	gen.instant = &genResult{img: tartImage}

	var mu sync.Mutex
	var seen []domain.State
	var c *Coordinator
	c, anim := setup(t, gen, WithListener(func() {
		s := c.Snapshot()
		mu.Lock()
		seen = append(seen, s.State)
		mu.Unlock()
	}))

	c.Create(context.Background())
	waitDelivered(t, c, currentAttempt(t, c))
	anim.finish(t)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != domain.StateBusy || seen[1] != domain.StateComplete {
		t.Fatalf("expected [busy complete], got %v", seen)
	}
}

func TestRealTimelineFloor(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	gen := newMockGenerator()
	gen.instant = &genResult{img: tartImage}
	tl := timeline.New(log,
		timeline.WithStages(5*time.Millisecond, 10*time.Millisecond),
		timeline.WithDuration(50*time.Millisecond),
	)
	c := New(dish.NewCatalog(log), gen, tl, log)
	defer c.Close()

	start := time.Now()
	c.Create(context.Background())
	waitState(t, c, domain.StateComplete)

	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("terminal state reached after %s, before the animation ended", elapsed)
	}
}
