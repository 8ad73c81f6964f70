package coordinator

import "github.com/hammamikhairi/ottoplate/internal/domain"

// slot holds at most one pending outcome. Each attempt owns a fresh slot,
// so an outcome can never leak into the next attempt. Guarded by
// Coordinator.mu.
type slot struct {
	out   domain.Outcome
	full  bool
	reads int
}

// put stores an outcome, replacing any unread one.
func (s *slot) put(out domain.Outcome) {
	s.out = out
	s.full = true
}

// take drains the slot. The second value is false when it was empty.
func (s *slot) take() (domain.Outcome, bool) {
	s.reads++
	if !s.full {
		return domain.Outcome{}, false
	}
	out := s.out
	s.out = domain.Outcome{}
	s.full = false
	return out, true
}
