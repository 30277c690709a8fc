package app

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-battle-service/internal/domain"
)

// RoomRegistry exclusively owns room lifetime: creation, lookup, disposal.
// Completed rooms stay in the index for a bounded retention window so late
// result queries still resolve, then a background sweep purges them. This is
// plain time-based eviction keyed off the room's end timestamp, not an LRU.
type RoomRegistry struct {
	retention time.Duration
	clock     func() time.Time

	mu    sync.RWMutex
	rooms map[string]*Room

	stop chan struct{}
	wg   sync.WaitGroup
}

const sweepInterval = time.Minute

func NewRoomRegistry(retention time.Duration) *RoomRegistry {
	r := &RoomRegistry{
		retention: retention,
		clock:     time.Now,
		rooms:     make(map[string]*Room),
		stop:      make(chan struct{}),
	}
	r.wg.Add(1)
	go r.sweepLoop()
	return r
}

// Create builds a waiting room for the pair under a fresh identifier.
func (r *RoomRegistry) Create(subject string, a, b domain.Participant, questions []domain.Question, rules scoringRules) *Room {
	room := newRoom(uuid.NewString(), subject, a, b, questions, rules, r.clock())
	r.mu.Lock()
	r.rooms[room.id] = room
	r.mu.Unlock()
	return room
}

// Get returns the live room or domain.ErrRoomNotFound.
func (r *RoomRegistry) Get(roomID string) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// Dispose removes the room from the live index immediately.
func (r *RoomRegistry) Dispose(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
}

// Close stops the retention sweep.
func (r *RoomRegistry) Close() {
	close(r.stop)
	r.wg.Wait()
}

func (r *RoomRegistry) sweepLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.purgeExpired(r.clock())
		case <-r.stop:
			return
		}
	}
}

// purgeExpired drops rooms whose retention window has lapsed and returns how
// many were removed.
func (r *RoomRegistry) purgeExpired(now time.Time) int {
	cutoff := now.Add(-r.retention)
	r.mu.Lock()
	defer r.mu.Unlock()
	purged := 0
	for id, room := range r.rooms {
		if room.expiredBy(cutoff) {
			delete(r.rooms, id)
			purged++
		}
	}
	return purged
}
