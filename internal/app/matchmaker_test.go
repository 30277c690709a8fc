package app

import "testing"

func TestPairingHappensAtExactlyTwo(t *testing.T) {
	m := NewMatchmaker()

	m.Enqueue("dsa", "u1", "Alice")
	if _, _, ok := m.TakePair("dsa"); ok {
		t.Fatalf("should not pair with a single waiting participant")
	}

	m.Enqueue("dsa", "u2", "Bob")
	first, second, ok := m.TakePair("dsa")
	if !ok {
		t.Fatalf("expected a pair once two participants wait")
	}
	if first.id != "u1" || second.id != "u2" {
		t.Fatalf("expected FIFO pairing u1+u2, got %s+%s", first.id, second.id)
	}

	if _, _, ok := m.TakePair("dsa"); ok {
		t.Fatalf("queue should be empty after pairing")
	}
}

func TestFIFOOrderWithThreeWaiting(t *testing.T) {
	m := NewMatchmaker()
	m.Enqueue("dsa", "u1", "Alice")
	m.Enqueue("dsa", "u2", "Bob")
	m.Enqueue("dsa", "u3", "Carol")

	first, second, _ := m.TakePair("dsa")
	if first.id != "u1" || second.id != "u2" {
		t.Fatalf("expected the two longest waiting, got %s+%s", first.id, second.id)
	}
	if subject, ok := m.Waiting("u3"); !ok || subject != "dsa" {
		t.Fatalf("third participant should keep waiting, got %q %v", subject, ok)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	m := NewMatchmaker()
	m.Enqueue("dsa", "u1", "Alice")
	m.Remove("u1")
	m.Remove("u1") // no-op
	m.Remove("never-queued")

	if _, ok := m.Waiting("u1"); ok {
		t.Fatalf("removed participant should not be waiting")
	}
	m.Enqueue("dsa", "u2", "Bob")
	if _, _, ok := m.TakePair("dsa"); ok {
		t.Fatalf("should not pair after the first participant left")
	}
}

func TestEnqueueMovesBetweenSubjects(t *testing.T) {
	m := NewMatchmaker()
	m.Enqueue("dsa", "u1", "Alice")
	m.Enqueue("general", "u1", "Alice")

	if subject, _ := m.Waiting("u1"); subject != "general" {
		t.Fatalf("participant should be in at most one queue, found %q", subject)
	}
	m.Enqueue("dsa", "u2", "Bob")
	if _, _, ok := m.TakePair("dsa"); ok {
		t.Fatalf("dsa queue should only hold u2")
	}
}

func TestRequeuePreservesWaitOrder(t *testing.T) {
	m := NewMatchmaker()
	m.Enqueue("dsa", "u1", "Alice")
	m.Enqueue("dsa", "u2", "Bob")
	m.Enqueue("dsa", "u3", "Carol")

	first, second, _ := m.TakePair("dsa")
	m.Requeue("dsa", first, second)

	a, b, ok := m.TakePair("dsa")
	if !ok || a.id != "u1" || b.id != "u2" {
		t.Fatalf("requeued pair should pair again first, got %+v %+v", a, b)
	}
}
