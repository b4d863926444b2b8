package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/mangatrack/mangatrack-backend/internal/api"
	"github.com/mangatrack/mangatrack-backend/internal/auth"
	"github.com/mangatrack/mangatrack-backend/internal/config"
	"github.com/mangatrack/mangatrack-backend/internal/database"
	"github.com/mangatrack/mangatrack-backend/internal/logging"
	"github.com/mangatrack/mangatrack-backend/internal/providers"
	"github.com/mangatrack/mangatrack-backend/internal/providers/openai"
	"github.com/mangatrack/mangatrack-backend/internal/providers/stub"
	"github.com/mangatrack/mangatrack-backend/internal/repository"
	"github.com/mangatrack/mangatrack-backend/internal/repository/postgres"
	"github.com/mangatrack/mangatrack-backend/internal/services"
	"github.com/mangatrack/mangatrack-backend/internal/session"
	"github.com/mangatrack/mangatrack-backend/internal/usage"
)

func main() {
	// A missing .env is fine; real deployments use the environment
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to configure logging:", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	var (
		ledger   usage.Ledger                    = usage.NewMemoryLedger()
		sessions session.Store                   = session.NewMemoryStore()
		saved    repository.SavedMangaRepository = repository.NewMemorySavedManga()
	)

	if cfg.Database.Enabled {
		// Connect to database
		db, err := database.NewConnection(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		// Run migrations
		if err := database.RunMigrations(cfg.Database.URL()); err != nil {
			return err
		}

		ledger = postgres.NewUsageRepository(db.DB)
		saved = postgres.NewSavedMangaRepository(db.DB)
		if cfg.Chat.SessionBackend == "postgres" {
			sessions = postgres.NewTurnRepository(db.DB)
		}
		log.WithField("driver", cfg.Database.Driver).Info("Using PostgreSQL storage")
	} else {
		log.Warn("Database disabled: quota, sessions and saved lists are kept in memory")
	}

	provider, err := newProvider(cfg.Generation)
	if err != nil {
		return err
	}
	provider = providers.WithBreaker(provider, providers.BreakerConfig{
		ConsecutiveFailures: cfg.Generation.BreakerFailures,
		OpenTimeout:         cfg.Generation.BreakerTimeout,
	}, log)

	chatbot := services.NewChatbot(
		usage.NewGovernor(ledger),
		saved,
		sessions,
		provider,
		services.ChatbotConfig{
			DailyLimit:  cfg.Chat.DailyLimit,
			Model:       cfg.Generation.Model,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			Timeout:     cfg.Generation.Timeout,
		},
		log,
	)

	jwtSecret, fallback := cfg.Auth.SigningSecret()
	if fallback {
		log.Warn("Using default JWT secret. Set MANGATRACK_AUTH_JWT_SECRET in production!")
	}

	app := api.NewApp(cfg.Server, log)
	api.SetupRoutes(app, api.Dependencies{
		Chatbot:        chatbot,
		JWT:            auth.NewJWTService(jwtSecret, cfg.Auth.Issuer),
		Logger:         log,
		BurstPerMinute: cfg.Chat.BurstPerMinute,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("Shutting down")
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("Shutdown failed")
		}
	}()

	log.WithFields(logrus.Fields{
		"address":  cfg.Server.Address(),
		"provider": provider.Name(),
		"model":    cfg.Generation.Model,
	}).Info("MangaTrack backend starting")

	return app.Listen(cfg.Server.Address())
}

func newProvider(cfg config.GenerationConfig) (providers.Provider, error) {
	switch cfg.Provider {
	case "stub":
		return stub.NewProvider(), nil
	case "openai":
		p, err := openai.NewProvider(cfg)
		if err != nil {
			return nil, err
		}
		if err := p.ValidateConfig(); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, errors.New("unknown generation provider: " + cfg.Provider)
	}
}
