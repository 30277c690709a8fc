package memory

import (
	"context"
	"log"
	"sync"

	"quiz-battle-service/internal/domain"
)

// RewardRecorder is an in-process RewardNotifier: it logs each notification
// and keeps the history for inspection. Used when no Redis stream is
// configured, and by tests asserting on emitted rewards.
type RewardRecorder struct {
	mu      sync.Mutex
	rewards []domain.Reward
}

func NewRewardRecorder() *RewardRecorder {
	return &RewardRecorder{}
}

func (r *RewardRecorder) Notify(_ context.Context, reward domain.Reward) error {
	r.mu.Lock()
	r.rewards = append(r.rewards, reward)
	r.mu.Unlock()
	log.Printf("reward: participant=%s subject=%s score=%d correct=%d win=%v",
		reward.ParticipantID, reward.Subject, reward.Score, reward.CorrectCount, reward.Win)
	return nil
}

// Rewards returns a copy of every notification seen so far.
func (r *RewardRecorder) Rewards() []domain.Reward {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Reward, len(r.rewards))
	copy(out, r.rewards)
	return out
}
