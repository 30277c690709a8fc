package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-battle-service/internal/domain"
)

// PoolLoader fetches a subject's question pool from a backing store.
type PoolLoader interface {
	LoadQuestions(ctx context.Context, subject string) ([]domain.Question, error)
}

// QuestionRepository caches question pools with TTL to avoid repeated store
// hits while matches are being created for the same subject.
type QuestionRepository struct {
	loader PoolLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader PoolLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

func (r *QuestionRepository) Questions(ctx context.Context, subject string) ([]domain.Question, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[subject]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(subject, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[subject]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.loader.LoadQuestions(ctx, subject)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[subject] = cachedPool{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticPoolLoader is a simple loader backed by an in-memory map (useful for
// tests/demos and as a fallback when Postgres is not configured).
type StaticPoolLoader struct {
	pools map[string][]domain.Question
}

func NewStaticPoolLoader(pools map[string][]domain.Question) *StaticPoolLoader {
	return &StaticPoolLoader{pools: pools}
}

func (l *StaticPoolLoader) LoadQuestions(_ context.Context, subject string) ([]domain.Question, error) {
	if pool, ok := l.pools[subject]; ok {
		return pool, nil
	}
	return nil, domain.ErrSubjectNotFound
}
