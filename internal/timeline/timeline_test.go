package timeline

import (
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/ottoplate/internal/domain"
	"github.com/hammamikhairi/ottoplate/internal/logger"
)

// stageRecorder collects stage hook calls.
type stageRecorder struct {
	mu     sync.Mutex
	stages []int
}

func (s *stageRecorder) hook(_ domain.DishKind, stage int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, stage)
}

func (s *stageRecorder) seen() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.stages...)
}

func TestRunCompletesAfterDuration(t *testing.T) {
	rec := &stageRecorder{}
	tl := New(logger.New(logger.LevelOff, nil),
		WithStages(5*time.Millisecond, 20*time.Millisecond, 35*time.Millisecond),
		WithDuration(60*time.Millisecond),
		WithStageHook(rec.hook),
	)

	start := time.Now()
	done := make(chan time.Duration, 1)
	tl.Start(domain.DishTart, func() { done <- time.Since(start) })

	select {
	case elapsed := <-done:
		if elapsed < 60*time.Millisecond {
			t.Fatalf("completion fired early after %s", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("completion never fired")
	}

	got := rec.seen()
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected stages [1 2 3], got %v", got)
	}
}

func TestStopCancelsCompletion(t *testing.T) {
	tl := New(logger.New(logger.LevelOff, nil),
		WithStages(10*time.Millisecond),
		WithDuration(40*time.Millisecond),
	)

	var mu sync.Mutex
	fired := 0
	r := tl.Start(domain.DishRing, func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	r.Stop()
	r.Stop()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired != 0 {
		t.Fatalf("expected no completion after Stop, got %d", fired)
	}
}

func TestStagesBeyondDurationAreSkipped(t *testing.T) {
	rec := &stageRecorder{}
	tl := New(logger.New(logger.LevelOff, nil),
		WithStages(5*time.Millisecond, 200*time.Millisecond),
		WithDuration(30*time.Millisecond),
		WithStageHook(rec.hook),
	)

	done := make(chan struct{})
	tl.Start(domain.DishTart, func() { close(done) })
	<-done
	time.Sleep(20 * time.Millisecond)

	if got := rec.seen(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only stage 1, got %v", got)
	}
}

func TestDefaults(t *testing.T) {
	tl := New(logger.New(logger.LevelOff, nil))
	if tl.Duration() != 4*time.Second {
		t.Fatalf("expected 4s default duration, got %s", tl.Duration())
	}
	if tl.Stages() != 3 {
		t.Fatalf("expected 3 default stages, got %d", tl.Stages())
	}
}
