package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"globalquiz-service/internal/app"
	"globalquiz-service/internal/config"
	"globalquiz-service/internal/domain"
	"globalquiz-service/internal/infra/memory"
	pgstore "globalquiz-service/internal/infra/postgres"
	redisstore "globalquiz-service/internal/infra/redis"
	"globalquiz-service/internal/pin"
	"globalquiz-service/internal/retry"
	transport "globalquiz-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live quiz server",
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

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	tokenTTL := config.TTLDuration(cfg.Session.TokenTTL, 2*time.Hour)
	writeDelay := config.TTLDuration(cfg.Session.WriteDelay, 100*time.Millisecond)
	pinTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(demoQuizzes())
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var (
		sessions     app.SessionRepository
		participants app.ParticipantRepository
		practiceRepo app.PracticeRepository
	)
	if pool != nil {
		sessions = pgstore.NewSessionRepository(pool)
		participants = pgstore.NewParticipantRepository(pool)
		practiceRepo = pgstore.NewPracticeRepository(pool)
	} else {
		sessions = memory.NewSessionStore()
		participants = memory.NewParticipantStore()
		practiceRepo = memory.NewPracticeStore()
	}
	sessions = app.PaceSessions(sessions, writeDelay)
	participants = app.PaceParticipants(participants, writeDelay)

	var tokens app.TokenStore
	var pinIndex pin.Index
	if redisClient != nil {
		tokens = redisstore.NewTokenStore(redisClient)
		pinIndex = redisstore.NewPINIndex(redisClient, pinTTL)
	} else {
		tokens = memory.NewTokenStore()
		pinIndex = memory.NewPINIndex()
	}

	live := app.NewLiveService(app.Deps{
		Sessions:     sessions,
		Participants: participants,
		Quizzes:      quizRepo,
		Tokens:       tokens,
		PINs:         pin.NewGenerator(pinIndex),
		TokenTTL:     tokenTTL,
	})
	practice := app.NewPracticeService(quizRepo, practiceRepo)

	retryCfg := retry.Config{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  config.TTLDuration(cfg.Retry.BaseDelay, 200*time.Millisecond),
	}
	if retryCfg.MaxRetries == 0 {
		retryCfg.MaxRetries = 4
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(live, practice, retryCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting globalquiz service on :%s", finalPort)
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

// demoQuizzes seeds the in-memory loader when no Postgres is configured.
func demoQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"corleg-72": {
			ID:              "corleg-72",
			Title:           "Corleg 72",
			Description:     "Regole per prevenire gli abbordi in mare",
			QuestionSeconds: 30,
			Questions: []domain.Question{
				{
					Prompt:      "Due unità a motore navigano con rotte opposte: come manovrano?",
					Options:     []string{"Entrambe accostano a dritta", "Entrambe accostano a sinistra", "Solo la più veloce accosta"},
					Correct:     0,
					Explanation: "Con rotte opposte ciascuna unità accosta a dritta.",
				},
				{
					Prompt:      "Di notte, quale luce mostra a poppa un'unità a motore in navigazione?",
					Options:     []string{"Una luce rossa", "Una luce bianca", "Una luce verde"},
					Correct:     1,
					Explanation: "La luce di coronamento a poppa è bianca.",
				},
			},
		},
	}
}
