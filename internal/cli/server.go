package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/config"
	"quiz-battle-service/internal/domain"
	"quiz-battle-service/internal/infra/memory"
	pgloader "quiz-battle-service/internal/infra/postgres"
	redisinfra "quiz-battle-service/internal/infra/redis"
	transport "quiz-battle-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz battle server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	cacheTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.PoolLoader = memory.NewStaticPoolLoader(samplePools())
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	var questions app.QuestionSource
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, cacheTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, cacheTTL)
	}

	var rewards app.RewardNotifier
	if redisClient != nil {
		rewards = redisinfra.NewRewardNotifier(redisClient)
	} else {
		rewards = memory.NewRewardRecorder()
	}

	service := app.NewBattleService(questions, rewards, battleSettings(cfg))
	defer service.Close()
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz battle service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func battleSettings(cfg config.Config) app.Settings {
	settings := app.DefaultSettings()
	if cfg.Battle.QuestionsPerMatch > 0 {
		settings.QuestionsPerMatch = cfg.Battle.QuestionsPerMatch
	}
	settings.RoundDuration = config.TTLDuration(cfg.Battle.RoundDuration, settings.RoundDuration)
	settings.TimeoutBuffer = config.TTLDuration(cfg.Battle.TimeoutBuffer, settings.TimeoutBuffer)
	settings.StartDelay = config.TTLDuration(cfg.Battle.StartDelay, settings.StartDelay)
	settings.RoundDelay = config.TTLDuration(cfg.Battle.RoundDelay, settings.RoundDelay)
	settings.Retention = config.TTLDuration(cfg.Battle.Retention, settings.Retention)
	return settings
}

// samplePools provides minimal question pools; swap the loader for the
// Postgres-backed one in production.
func samplePools() map[string][]domain.Question {
	return map[string][]domain.Question{
		"dsa": {
			{ID: "dsa-1", Prompt: "What is the average lookup cost of a hash table?", Options: []string{"O(1)", "O(log n)", "O(n)"}, CorrectOption: 0},
			{ID: "dsa-2", Prompt: "Which structure gives O(log n) ordered insertion?", Options: []string{"Array", "Balanced BST", "Linked list"}, CorrectOption: 1},
			{ID: "dsa-3", Prompt: "What does a queue provide?", Options: []string{"LIFO", "FIFO", "Random access"}, CorrectOption: 1},
			{ID: "dsa-4", Prompt: "Worst case of quicksort?", Options: []string{"O(n log n)", "O(n^2)", "O(n)"}, CorrectOption: 1},
			{ID: "dsa-5", Prompt: "Which traversal visits the root first?", Options: []string{"Pre-order", "In-order", "Post-order"}, CorrectOption: 0},
			{ID: "dsa-6", Prompt: "Best structure for shortest path with weights?", Options: []string{"Stack", "Priority queue", "Set"}, CorrectOption: 1},
		},
		"general": {
			{ID: "gen-1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: 1},
			{ID: "gen-2", Prompt: "How many continents are there?", Options: []string{"5", "6", "7"}, CorrectOption: 2},
			{ID: "gen-3", Prompt: "Which planet is closest to the sun?", Options: []string{"Venus", "Mercury", "Mars"}, CorrectOption: 1},
			{ID: "gen-4", Prompt: "What color results from mixing blue and yellow?", Options: []string{"Green", "Purple", "Orange"}, CorrectOption: 0},
		},
	}
}
