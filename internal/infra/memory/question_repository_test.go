package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-battle-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		PoolLoader: NewStaticPoolLoader(map[string][]domain.Question{
			"dsa": samplePool(),
		}),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.Questions(context.Background(), "dsa"); err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.Questions(context.Background(), "dsa"); err != nil {
		t.Fatalf("get questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestUnknownSubjectSurfacesError(t *testing.T) {
	repo := NewQuestionRepository(NewStaticPoolLoader(nil), time.Minute)

	_, err := repo.Questions(context.Background(), "nope")
	if !errors.Is(err, domain.ErrSubjectNotFound) {
		t.Fatalf("expected ErrSubjectNotFound, got %v", err)
	}
}

type countingLoader struct {
	PoolLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, subject string) ([]domain.Question, error) {
	l.calls++
	return l.PoolLoader.LoadQuestions(ctx, subject)
}

func samplePool() []domain.Question {
	return []domain.Question{
		{
			ID:            "q1",
			Prompt:        "What is 2 + 2?",
			Options:       []string{"3", "4", "5"},
			CorrectOption: 1,
		},
	}
}
