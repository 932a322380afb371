package main

import (
	"context"
	"flag"
	"time"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/quadratic-poll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/quadratic-poll/internal/config"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("info").WithError(err).Fatal("failed to load configuration")
	}

	flag.StringVar(&cfg.Postgres.Host, "db-host", cfg.Postgres.Host, "Database host")
	flag.StringVar(&cfg.Postgres.Port, "db-port", cfg.Postgres.Port, "Database port")
	flag.StringVar(&cfg.Postgres.User, "db-user", cfg.Postgres.User, "Database user")
	flag.StringVar(&cfg.Postgres.Password, "db-pass", cfg.Postgres.Password, "Database password")
	flag.StringVar(&cfg.Postgres.DB, "db-name", cfg.Postgres.DB, "Database name")
	timeout := flag.Duration("timeout", 5*time.Minute, "Maximum job duration")
	flag.Parse()

	logger := config.NewLogger(cfg.LogLevel)
	log := logger.WithField("component", "recount")

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.Postgres.DSN(), cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, logger)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	pollRepo := postgres.NewPollRepository(db)
	actionRepo := postgres.NewActionRepository(db)

	counters := services.NewCounterService(actionRepo, userRepo, pollRepo)
	reconciler := services.NewReconcileService(postgres.NewTransactor(db), userRepo, pollRepo, counters, logger)

	log.Info("starting counter reconciliation...")

	if err := reconciler.ReconcileAll(ctx); err != nil {
		log.WithError(err).Fatal("counter reconciliation failed")
	}

	log.Info("counter reconciliation completed successfully")
}
