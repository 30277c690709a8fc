package app

import (
	"sync"
	"time"
)

type taskKind string

const (
	taskStart    taskKind = "start"
	taskDeadline taskKind = "deadline"
	taskAdvance  taskKind = "advance"
)

// taskKey identifies a scheduled room task. Keying deadlines by
// (room, question index) lets a late-firing timer be re-validated against the
// room's actual state instead of acting on whatever round is current.
type taskKey struct {
	roomID        string
	questionIndex int
	kind          taskKind
}

// scheduler arms single-shot deadlines for room tasks. Cancellation is
// best-effort: callbacks must tolerate firing after a cancel attempt, so
// every callback re-checks room state before acting.
type scheduler struct {
	mu     sync.Mutex
	timers map[taskKey]*time.Timer
}

func newScheduler() *scheduler {
	return &scheduler{timers: make(map[taskKey]*time.Timer)}
}

// schedule arms fn to run after d, replacing any timer already armed for key.
func (s *scheduler) schedule(key taskKey, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
}

// cancel disarms the timer for key if it has not fired yet.
func (s *scheduler) cancel(key taskKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

// stop disarms everything; used on shutdown.
func (s *scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}
