package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-battle-service/internal/domain"
)

// PoolLoader fetches a subject's question pool from a backing store.
type PoolLoader interface {
	LoadQuestions(ctx context.Context, subject string) ([]domain.Question, error)
}

// QuestionRepository caches question pools in Redis and falls back to the
// loader on cache miss. Pools are stored whole as JSON:
// SET questions:{subject} {json array}  (with TTL)
// Singleflight keeps a cold subject from stampeding the backing store when a
// burst of participants queue for it at once.
type QuestionRepository struct {
	client *redis.Client
	loader PoolLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader PoolLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) Questions(ctx context.Context, subject string) ([]domain.Question, error) {
	key := r.poolKey(subject)

	if cached, err := r.client.Get(ctx, key).Bytes(); err == nil && len(cached) > 0 {
		if pool, err := decodePool(cached); err == nil {
			return pool, nil
		}
	}

	result, err, _ := r.sf.Do(subject, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, err := r.client.Get(ctx, key).Bytes(); err == nil && len(cached) > 0 {
			if pool, err := decodePool(cached); err == nil {
				return pool, nil
			}
		}

		pool, err := r.loader.LoadQuestions(ctx, subject)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(pool); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) poolKey(subject string) string {
	return "questions:" + subject
}

func decodePool(data []byte) ([]domain.Question, error) {
	var pool []domain.Question
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
