package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/propfolio/insight-engine/pkg/config"
	"github.com/propfolio/insight-engine/pkg/database"
	"github.com/propfolio/insight-engine/pkg/handlers"
	"github.com/propfolio/insight-engine/pkg/llm"
	"github.com/propfolio/insight-engine/pkg/middleware"
	"github.com/propfolio/insight-engine/pkg/repositories"
	"github.com/propfolio/insight-engine/pkg/schema"
	"github.com/propfolio/insight-engine/pkg/services"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	contract, err := schema.Load()
	if err != nil {
		return err
	}

	if err := applyMigrations(cfg, logger); err != nil {
		return err
	}

	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	generator, err := llm.NewGenerator(cfg.Generator.Provider, &llm.Config{
		Endpoint: cfg.Generator.Endpoint,
		Model:    cfg.Generator.Model,
		APIKey:   cfg.Generator.APIKey,
		Timeout:  cfg.Generator.Timeout(),
	}, logger)
	if err != nil {
		return err
	}

	executor := database.NewExecutor(db, &cfg.Insight, logger)
	shaper := services.NewShaper()
	canned := services.NewCannedLibrary(executor, logger)

	authz := repositories.NewAuthzProvider(db)
	portfolioRepo := repositories.NewPortfolioRepository(db)
	grounding := services.NewGroundingAssembler(authz, portfolioRepo, cfg.Insight.GroundingRowLimit, logger)

	sessions := services.NewSessionStore(cfg.Insight.SessionTTL(), logger)
	defer sessions.Stop()

	insights := services.NewInsightService(contract, generator, executor, shaper, canned, grounding, sessions, logger)
	stats := services.NewStatsService(executor, shaper, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, generator.Model(), logger).RegisterRoutes(mux)
	handlers.NewInsightHandler(insights, canned, logger).RegisterRoutes(mux)
	handlers.NewStatsHandler(stats, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting insight-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
			zap.String("env", cfg.Env),
			zap.String("generator_model", generator.Model()))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return nil
}

func applyMigrations(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
