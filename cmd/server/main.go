package main

import (
	"context"
	"errors"
	stdhttp "net/http"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/quadratic-poll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/quadratic-poll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/quadratic-poll/internal/adapters/wallet"
	"github.com/vncsmyrnk/quadratic-poll/internal/config"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/services"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		config.NewLogger("info").WithError(err).Fatal("failed to load configuration")
	}
	logger := config.NewLogger(cfg.LogLevel)
	log := logger.WithField("component", "server")

	votingPower, err := cfg.VotingPowerDecimal()
	if err != nil {
		log.WithError(err).Fatal("invalid voting power")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres.DSN(), cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, logger)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	// Initialize Repositories
	tx := postgres.NewTransactor(db)
	userRepo := postgres.NewUserRepository(db)
	pollRepo := postgres.NewPollRepository(db)
	voteRepo := postgres.NewVoteRepository(db)
	actionRepo := postgres.NewActionRepository(db)
	authRepo := postgres.NewAuthRepository(db)

	// Initialize Services
	counters := services.NewCounterService(actionRepo, userRepo, pollRepo)
	pollService := services.NewPollService(tx, pollRepo, voteRepo, userRepo, actionRepo, counters, logger)
	voteService := services.NewVoteService(tx, pollRepo, voteRepo, userRepo, actionRepo, counters, domain.NewWeightValidator(votingPower), logger)
	userService := services.NewUserService(userRepo, actionRepo, pollRepo, voteRepo)
	authService := services.NewAuthService(userRepo, authRepo, wallet.NewVerifier(), cfg.Auth.JWTSecret, logger)

	handler := http.NewHandler(http.Handlers{
		Poll: http.NewPollHandler(pollService),
		Vote: http.NewVoteHandler(voteService),
		User: http.NewUserHandler(userService),
		Auth: http.NewAuthHandler(authService, cfg.CookieDomain, cfg.CookieSecure),
	}, authService, logger, cfg.WhitelistedOrigins)

	server := &stdhttp.Server{Addr: "0.0.0.0:" + cfg.Port, Handler: handler}

	go func() {
		log.WithField("addr", server.Addr).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("shutdown failed")
	}
}
