package app

import (
	"sync"
	"time"
)

// waitingEntry is one participant parked in a subject queue.
type waitingEntry struct {
	id       string
	name     string
	queuedAt time.Time
}

// Matchmaker keeps one FIFO queue of waiting participants per subject and
// hands out the two longest-waiting entries as soon as a queue reaches two.
// A participant is in at most one queue at a time; re-enqueueing moves them.
type Matchmaker struct {
	mu      sync.Mutex
	queues  map[string][]*waitingEntry
	subject map[string]string // participant ID -> subject they wait in
	clock   func() time.Time
}

func NewMatchmaker() *Matchmaker {
	return &Matchmaker{
		queues:  make(map[string][]*waitingEntry),
		subject: make(map[string]string),
		clock:   time.Now,
	}
}

// Enqueue appends a participant to the subject's queue. If they were already
// waiting somewhere they are moved, never duplicated.
func (m *Matchmaker) Enqueue(subject, participantID, displayName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(participantID)
	entry := &waitingEntry{id: participantID, name: displayName, queuedAt: m.clock()}
	m.queues[subject] = append(m.queues[subject], entry)
	m.subject[participantID] = subject
}

// TakePair atomically removes and returns the two longest-waiting
// participants for a subject, or ok=false while fewer than two wait.
func (m *Matchmaker) TakePair(subject string) (first, second *waitingEntry, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	queue := m.queues[subject]
	if len(queue) < 2 {
		return nil, nil, false
	}
	first, second = queue[0], queue[1]
	m.queues[subject] = queue[2:]
	delete(m.subject, first.id)
	delete(m.subject, second.id)
	return first, second, true
}

// Requeue pushes a failed pairing back to the head of the queue, preserving
// the original wait order.
func (m *Matchmaker) Requeue(subject string, first, second *waitingEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[subject] = append([]*waitingEntry{first, second}, m.queues[subject]...)
	m.subject[first.id] = subject
	m.subject[second.id] = subject
}

// Remove drops a participant from whatever queue holds them. No-op if absent.
func (m *Matchmaker) Remove(participantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(participantID)
}

// Waiting reports whether a participant is currently queued, and where.
func (m *Matchmaker) Waiting(participantID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subject, ok := m.subject[participantID]
	return subject, ok
}

func (m *Matchmaker) removeLocked(participantID string) {
	subject, ok := m.subject[participantID]
	if !ok {
		return
	}
	queue := m.queues[subject]
	for i, entry := range queue {
		if entry.id == participantID {
			m.queues[subject] = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	if len(m.queues[subject]) == 0 {
		delete(m.queues, subject)
	}
	delete(m.subject, participantID)
}
