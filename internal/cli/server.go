package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"vitisco-room-service/internal/app"
	"vitisco-room-service/internal/config"
	"vitisco-room-service/internal/domain"
	"vitisco-room-service/internal/infra/memory"
	pgstore "vitisco-room-service/internal/infra/postgres"
	redisstore "vitisco-room-service/internal/infra/redis"
	transport "vitisco-room-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the room server",
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var bundb *bun.DB
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bundb = bun.NewDB(sqldb, pgdialect.New())
		defer bundb.Close()
	}

	// Question content: Postgres when available, the built-in sample bank
	// otherwise; Redis (or an in-process cache) sits in front of Postgres.
	var questions app.QuestionSource
	switch {
	case pool != nil && redisClient != nil:
		questions = redisstore.NewQuestionCache(redisClient, pgstore.NewQuestionSource(pool), questionTTL)
	case pool != nil:
		questions = memory.NewCachedQuestionSource(pgstore.NewQuestionSource(pool), questionTTL)
	default:
		questions = memory.NewStaticQuestionSource(sampleQuestions())
	}

	var results app.ResultStore
	switch {
	case bundb != nil:
		results = pgstore.NewResultStore(bundb)
	case redisClient != nil:
		results = redisstore.NewResultStore(redisClient)
	default:
		results = memory.NewResultStore()
	}

	var presence app.PresenceMarker
	if redisClient != nil {
		presence = redisstore.NewPresence(redisClient, redisTTL)
	}

	gameCfg := app.GameConfig{
		Capacity:      cfg.Game.Capacity,
		QuestionCount: cfg.Game.QuestionCount,
		RoundSeconds:  cfg.Game.RoundSeconds,
		SettleDelay:   time.Duration(cfg.Game.SettleSeconds) * time.Second,
		BasePoints:    cfg.Game.BasePoints,
		BonusFactor:   cfg.Game.BonusFactor,
	}

	service := app.NewRoomService(gameCfg, questions, results, presence)
	wsHandler := transport.NewWSHandler(service)
	apiHandler := transport.NewAPIHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/api/leaderboard", apiHandler.Leaderboard)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting room service on :%s", finalPort)
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

// sampleQuestions is the built-in bank used when no database is configured.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:     "q1",
			Prompt: `What is the sign for "Hello"?`,
			Options: []domain.Option{
				{ID: "o1", Text: "Wave hand"},
				{ID: "o2", Text: "Touch forehead"},
				{ID: "o3", Text: "Cross arms"},
				{ID: "o4", Text: "Point up"},
			},
			CorrectOptionID: "o1",
		},
		{
			ID:     "q2",
			Prompt: `What is the sign for "Thank you"?`,
			Options: []domain.Option{
				{ID: "o1", Text: "Touch lips and move hand forward"},
				{ID: "o2", Text: "Thumbs up"},
				{ID: "o3", Text: "Tap chest twice"},
				{ID: "o4", Text: "Pat head"},
			},
			CorrectOptionID: "o1",
		},
		{
			ID:     "q3",
			Prompt: `What is the sign for "Help"?`,
			Options: []domain.Option{
				{ID: "o1", Text: "One hand on top of other with thumbs up"},
				{ID: "o2", Text: "Hands crossed"},
				{ID: "o3", Text: "Fist in palm"},
				{ID: "o4", Text: "Finger pointing down"},
			},
			CorrectOptionID: "o1",
		},
		{
			ID:     "q4",
			Prompt: `What is the sign for "Sorry"?`,
			Options: []domain.Option{
				{ID: "o1", Text: "Fist circling chest"},
				{ID: "o2", Text: "Hand over heart"},
				{ID: "o3", Text: "Hands together as in prayer"},
				{ID: "o4", Text: "Two fingers crossed"},
			},
			CorrectOptionID: "o1",
		},
		{
			ID:     "q5",
			Prompt: `What is the sign for "Friend"?`,
			Options: []domain.Option{
				{ID: "o1", Text: "Hook index fingers together"},
				{ID: "o2", Text: "Shake hands"},
				{ID: "o3", Text: "Hands side by side"},
				{ID: "o4", Text: "Thumbs touching"},
			},
			CorrectOptionID: "o1",
		},
	}
}
