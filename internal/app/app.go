package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"moderation/internal/bot"
	"moderation/internal/config"
	"moderation/internal/logger"
	"moderation/internal/moderation"
	"moderation/internal/storage"
	"moderation/internal/storage/ch"
	"moderation/internal/storage/sqlite"
	"moderation/internal/storage/stubs"
)

// App represents the application
type App struct {
	config *config.Config
	logger *zap.Logger
	db     storage.Storage
	audit  storage.AuditLog
	bot    *bot.Bot
	server *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{config: cfg, logger: zl}
	zl.Info("Starting moderation bot",
		zap.Bool("webhook_mode", cfg.WebhookMode),
		zap.Int("admins", len(cfg.AdminIDs)),
	)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initAudit(); err != nil {
		app.db.Close()
		return nil, err
	}
	if err := app.initBot(); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initHTTPServer()

	return app, nil
}

// initDatabase opens the primary store and applies its schema
func (a *App) initDatabase() error {
	var db storage.Storage
	if a.config.UseMockDB {
		a.logger.Info("Using mock database")
		db = stubs.NewMockDB()
	} else {
		a.logger.Info("Opening SQLite database", zap.String("path", a.config.DBPath))
		store, err := sqlite.Open(a.config.DBPath, a.logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		db = store
	}

	if err := db.Initialize(context.Background()); err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.logger.Info("Database initialized successfully")

	a.db = db
	return nil
}

// initAudit connects the optional ClickHouse decision journal
func (a *App) initAudit() error {
	cfg := a.config
	switch {
	case !cfg.AuditEnabled:
		a.logger.Info("Decision audit journal disabled")
		return nil
	case cfg.UseMockDB:
		a.logger.Info("Using in-memory decision audit journal")
		a.audit = stubs.NewAuditLog()
		return nil
	}

	tlsStatus := "without TLS"
	if cfg.ClickHouseUseTLS {
		tlsStatus = "with TLS"
	}
	a.logger.Info("Connecting to ClickHouse audit journal",
		zap.String("host", cfg.ClickHouseHost),
		zap.Int("port", cfg.ClickHousePort),
		zap.String("database", cfg.ClickHouseDatabase),
		zap.String("user", cfg.ClickHouseUser),
		zap.String("tls", tlsStatus),
	)

	sqlDB := ch.OpenSQL(cfg.ClickHouseHost, cfg.ClickHousePort, cfg.ClickHouseDatabase,
		cfg.ClickHouseUser, cfg.ClickHousePassword, cfg.ClickHouseUseTLS)
	err := ch.RunMigrations(sqlDB, a.logger)
	sqlDB.Close()
	if err != nil {
		return fmt.Errorf("failed to migrate audit journal: %w", err)
	}

	audit, err := ch.NewAuditDB(cfg.ClickHouseHost, cfg.ClickHousePort, cfg.ClickHouseDatabase,
		cfg.ClickHouseUser, cfg.ClickHousePassword, cfg.ClickHouseUseTLS)
	if err != nil {
		return err
	}
	a.audit = audit
	return nil
}

// initBot wires the Telegram client, notifier, moderation service and bot
func (a *App) initBot() error {
	api, err := bot.NewAPI(a.config.TelegramToken, a.config.NotifyTimeout, a.logger)
	if err != nil {
		return err
	}

	policy, err := moderation.ParseRejectPolicy(a.config.RejectPolicy)
	if err != nil {
		return err
	}

	svc := moderation.New(a.db, moderation.Options{
		Admins:       a.config.AdminIDs,
		Cooldown:     a.config.SubmissionCooldown,
		RejectPolicy: policy,
		Notifier:     bot.NewNotifier(api, a.config.AdminIDs, a.logger),
		Audit:        a.audit,
		Logger:       a.logger,
	})

	a.bot = bot.NewBot(api, svc, a.config.Workers, a.logger)
	a.logger.Info("Bot created successfully",
		zap.Int64s("admin_ids", a.config.AdminIDs),
		zap.Duration("cooldown", a.config.SubmissionCooldown),
		zap.String("reject_policy", string(policy)),
	)
	return nil
}

// initHTTPServer starts the health surface and, in webhook mode, the update endpoint
func (a *App) initHTTPServer() {
	mux := http.NewServeMux()
	bot.NewHTTPServer(a.db, a.config.AdminAPIKey, a.logger).RegisterRoutes(mux)
	mux.HandleFunc(bot.WebhookPath, a.bot.WebhookHandler())

	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if a.config.WebhookMode {
		a.logger.Info("Starting bot in WEBHOOK mode", zap.String("url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			a.Shutdown()
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
	} else {
		go func() {
			if err := a.bot.Start(); err != nil {
				a.logger.Error("Polling stopped", zap.Error(err))
			}
		}()
	}

	<-sigChan

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown stops intake first, then drains in-flight updates before closing the stores
func (a *App) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	a.bot.Stop()

	err := a.closeStores()
	a.logger.Info("Shutdown complete")
	a.logger.Sync()
	return err
}

func (a *App) closeStores() error {
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.logger.Warn("Error closing audit journal", zap.Error(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		return err
	}
	return nil
}
