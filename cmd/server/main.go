package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // user timezones must resolve on minimal images

	"github.com/jimdaga/morning-gist/internal/auth"
	"github.com/jimdaga/morning-gist/internal/calendar"
	"github.com/jimdaga/morning-gist/internal/config"
	"github.com/jimdaga/morning-gist/internal/database"
	"github.com/jimdaga/morning-gist/internal/gist"
	"github.com/jimdaga/morning-gist/internal/health"
	"github.com/jimdaga/morning-gist/internal/logging"
	"github.com/jimdaga/morning-gist/internal/models"
	"github.com/jimdaga/morning-gist/internal/news"
	"github.com/jimdaga/morning-gist/internal/server"
	"github.com/jimdaga/morning-gist/internal/store"
	"github.com/jimdaga/morning-gist/internal/streams"
	"github.com/jimdaga/morning-gist/internal/weather"
	"github.com/jimdaga/morning-gist/internal/worker"
	"gorm.io/gorm"
)

func main() {
	mode := flag.String("mode", envOr("APP_MODE", "all"), "run mode: server, worker or all")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger, *mode); err != nil {
		logger.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *gorm.DB
	store     *store.Store
	publisher *streams.Publisher
	batch     *gist.Batch
}

func run(cfg *config.Config, logger *slog.Logger, mode string) error {
	switch mode {
	case "server", "worker", "all":
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	a, err := newApp(cfg, logger, mode)
	if err != nil {
		return err
	}
	defer a.close()

	if err := worker.InitClient(cfg.RedisURL); err != nil {
		return fmt.Errorf("failed to init task client: %w", err)
	}
	defer worker.CloseClient()

	logger.Info("Starting morning gist", "mode", mode, "env", cfg.Env)

	if mode == "worker" {
		stopBackground, err := a.startBackground()
		if err != nil {
			return err
		}
		defer stopBackground()
		return worker.Run(cfg, a.batch, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if mode == "all" {
		stopBackground, err := a.startBackground()
		if err != nil {
			return err
		}
		defer stopBackground()

		stopWorker, err := worker.Start(cfg, a.batch, logger)
		if err != nil {
			return err
		}
		defer stopWorker()
	}

	return a.serveHTTP(ctx)
}

func newApp(cfg *config.Config, logger *slog.Logger, mode string) (*app, error) {
	if cfg.EncryptionKey != "" {
		if err := models.InitEncryption(cfg.EncryptionKey); err != nil {
			return nil, fmt.Errorf("failed to init token encryption: %w", err)
		}
	}

	db, err := database.Init(cfg.DatabaseURL, "morning-gist-"+mode)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db, logger); err != nil {
		return nil, err
	}
	if cfg.SeedDevData && !cfg.IsProduction() {
		if err := database.SeedDevData(db, logger); err != nil {
			return nil, fmt.Errorf("failed to seed dev data: %w", err)
		}
	}

	st := store.New(db)

	publisher, err := streams.NewPublisher(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	var feeds *news.FeedsConfig
	if cfg.NewsFeedsFile != "" {
		feeds, err = news.LoadFeeds(cfg.NewsFeedsFile)
		if err != nil {
			logger.Warn("Ignoring news feeds file", "path", cfg.NewsFeedsFile, "error", err)
		}
	}

	generator := gist.NewGenerator(gist.Deps{
		Store:    st,
		Weather:  weather.NewClient(cfg.WeatherBaseURL, cfg.WeatherAPIKey, cfg.WeatherStubMode),
		Calendar: calendar.NewClient(calendarOptions(cfg), st, logger),
		World:    news.NewSource(feeds, logger),
		Fax:      publisher,
	}, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		store:     st,
		publisher: publisher,
		batch:     gist.NewBatch(st, generator, logger),
	}, nil
}

func calendarOptions(cfg *config.Config) calendar.Options {
	return calendar.Options{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleOAuthRedirectURI,
	}
}

// startBackground runs the cron scheduler and the fax result consumer.
func (a *app) startBackground() (func(), error) {
	stopScheduler, err := worker.StartScheduler(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}

	stopConsumer, err := streams.StartResultConsumer(a.cfg.RedisURL, a.store, a.logger)
	if err != nil {
		stopScheduler()
		return nil, err
	}

	return func() {
		stopConsumer()
		stopScheduler()
	}, nil
}

func (a *app) serveHTTP(ctx context.Context) error {
	auth.InitProviders(a.cfg, a.logger)

	var verifier auth.IdentityVerifier
	if a.cfg.GoogleClientID != "" {
		verifier = auth.NewGoogleIDTokenVerifier(a.cfg.GoogleClientID)
	}

	router := server.NewRouter(server.Deps{
		Store:     a.store,
		Exchanger: calendar.NewExchanger(calendarOptions(a.cfg), a.store, verifier, a.logger),
		Verifier:  verifier,
		Enqueue:   worker.EnqueueGenerateGist,
		ReadyChecks: map[string]health.Check{
			"database": func(ctx context.Context) error { return database.Ping(ctx, a.db) },
			"redis":    a.publisher.Ping,
		},
		SessionSecret: a.cfg.SessionSecret,
		Production:    a.cfg.IsProduction(),
		Logger:        a.logger,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("Failed to close stream publisher", "error", err)
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("Failed to close database", "error", err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
