package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"quiz-battle-service/internal/domain"
)

// RewardStream is the stream key the wallet/progress service consumes from.
const RewardStream = "quiz:rewards"

// RewardNotifier publishes reward notifications to a Redis stream so the
// external wallet/ledger can consume them at its own pace.
type RewardNotifier struct {
	client *redis.Client
}

func NewRewardNotifier(client *redis.Client) *RewardNotifier {
	return &RewardNotifier{client: client}
}

func (n *RewardNotifier) Notify(ctx context.Context, reward domain.Reward) error {
	return n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: RewardStream,
		Values: map[string]interface{}{
			"participantId": reward.ParticipantID,
			"subject":       reward.Subject,
			"score":         strconv.Itoa(reward.Score),
			"correctCount":  strconv.Itoa(reward.CorrectCount),
			"win":           strconv.FormatBool(reward.Win),
		},
	}).Err()
}
