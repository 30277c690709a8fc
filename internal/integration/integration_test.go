package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
	pgloader "quiz-battle-service/internal/infra/postgres"
	pgmigrations "quiz-battle-service/internal/infra/postgres/migrations"
	infraredis "quiz-battle-service/internal/infra/redis"
)

type recordingSink struct {
	ch chan domain.Event
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan domain.Event, 64)}
}

func (s *recordingSink) Send(event domain.Event) {
	select {
	case s.ch <- event:
	default:
	}
}

func (s *recordingSink) next(t *testing.T, eventType string) domain.Event {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case event := <-s.ch:
			if event.Type == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
}

func TestBattleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedPool(t, ctx, pgURL, "dsa", samplePool())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	loader := pgloader.NewQuestionLoader(pool)
	questions := infraredis.NewQuestionRepository(redisClient, loader, 5*time.Minute)
	rewards := infraredis.NewRewardNotifier(redisClient)

	settings := app.DefaultSettings()
	settings.QuestionsPerMatch = 1
	settings.StartDelay = 10 * time.Millisecond
	settings.RoundDelay = 10 * time.Millisecond
	service := app.NewBattleService(questions, rewards, settings)
	defer service.Close()

	alice, bob := newRecordingSink(), newRecordingSink()
	service.Connect("u1", "Alice", alice)
	service.Connect("u2", "Bob", bob)

	if err := service.JoinMatchmaking(ctx, "u1", "dsa", "Alice"); err != nil {
		t.Fatalf("join u1: %v", err)
	}
	if err := service.JoinMatchmaking(ctx, "u2", "dsa", "Bob"); err != nil {
		t.Fatalf("join u2: %v", err)
	}

	alice.next(t, domain.EventMatchFound)
	bob.next(t, domain.EventMatchFound)

	question := alice.next(t, domain.EventQuizQuestion).Payload.(domain.QuestionView)
	bob.next(t, domain.EventQuizQuestion)

	service.SubmitAnswer(ctx, "u1", question.QuestionID, 1, 1000) // correct
	service.SubmitAnswer(ctx, "u2", question.QuestionID, 0, 2000) // wrong

	result := alice.next(t, domain.EventAnswerResult).Payload.(domain.AnswerResult)
	if !result.Correct || result.NewScore != 10 {
		t.Fatalf("expected correct answer scoring 10, got %+v", result)
	}

	end := alice.next(t, domain.EventQuizEnd).Payload.(domain.BattleResult)
	if !end.You.Won || end.Opponent.Won {
		t.Fatalf("expected alice to win, got %+v", end)
	}
	bob.next(t, domain.EventQuizEnd)

	// Both reward notifications must land on the stream for the wallet.
	deadline := time.Now().Add(5 * time.Second)
	for {
		n, err := redisClient.XLen(ctx, infraredis.RewardStream).Result()
		if err != nil {
			t.Fatalf("xlen: %v", err)
		}
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 reward entries, got %d", n)
		}
		time.Sleep(50 * time.Millisecond)
	}

	// The pool should now be cached in Redis.
	if exists, _ := redisClient.Exists(ctx, "questions:dsa").Result(); exists != 1 {
		t.Fatalf("expected the question pool cached in redis")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedPool(t *testing.T, ctx context.Context, dsn, subject string, pool []domain.Question) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(pool)
	if err != nil {
		t.Fatalf("marshal pool: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO question_pools (subject, data) VALUES (?, ?::jsonb) ON CONFLICT (subject) DO UPDATE SET data=EXCLUDED.data`, subject, string(data)); err != nil {
		t.Fatalf("insert pool: %v", err)
	}
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

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
