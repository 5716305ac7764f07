package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iliyamo/lang-learner-backend/internal/config"
	"github.com/iliyamo/lang-learner-backend/internal/database"
	"github.com/iliyamo/lang-learner-backend/internal/handler"
	"github.com/iliyamo/lang-learner-backend/internal/logging"
	"github.com/iliyamo/lang-learner-backend/internal/metrics"
	"github.com/iliyamo/lang-learner-backend/internal/middleware"
	"github.com/iliyamo/lang-learner-backend/internal/queue"
	"github.com/iliyamo/lang-learner-backend/internal/repository"
	"github.com/iliyamo/lang-learner-backend/internal/router"
	"github.com/iliyamo/lang-learner-backend/internal/service"
	"github.com/iliyamo/lang-learner-backend/internal/utils"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	// A missing or broken key must stop startup, not fail the first login.
	if err := cfg.ValidateSigning(); err != nil {
		logging.LogError(cmd.Context(), logger, "invalid signing configuration", err)
		return err
	}
	tokens, err := utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("driver", cfg.DBDriver).Wrap(err)
	}
	defer func() { _ = db.Close() }()

	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			return oops.Code("MIGRATION_FAILED").Wrap(err)
		}
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = service.NewAMQPPublisher(cfg.RabbitURL, logger)
	}
	if cfg.ConsumeEvents {
		go func() {
			err := queue.StartAccountConsumer(ctx, cfg.RabbitURL, cfg.AccountLogPath, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("account consumer stopped", "error", err)
			}
		}()
	}

	auth := service.NewAuthService(repository.NewUserRepo(db), tokens, events, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))

	var reg *prometheus.Registry
	if cfg.MetricsEnabled {
		reg = metrics.NewRegistry()
	}
	router.RegisterRoutes(e, reg)

	rdb := config.NewRedisClient(ctx)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	} else {
		logger.Info("redis unavailable, rate limiting disabled")
	}
	rlCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		return err
	}
	limiter := middleware.NewTokenBucket(rlCfg, rdb, logger)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, logger), tokens, limiter)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env, "driver", cfg.DBDriver)

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
