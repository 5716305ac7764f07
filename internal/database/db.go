package database

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/iliyamo/lang-learner-backend/internal/config"
)

// DSN builds the driver-specific connection string for cfg.
func DSN(cfg config.Config) (string, error) {
	switch cfg.DBDriver {
	case "mysql":
		auth := cfg.DBUser
		if cfg.DBPass != "" {
			auth = fmt.Sprintf("%s:%s", cfg.DBUser, cfg.DBPass)
		}
		// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
		return fmt.Sprintf("%s@tcp(%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			auth, net.JoinHostPort(cfg.DBHost, cfg.DBPort), cfg.DBName), nil
	case "pgx":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.DBUser, cfg.DBPass),
			Host:     net.JoinHostPort(cfg.DBHost, cfg.DBPort),
			Path:     "/" + cfg.DBName,
			RawQuery: url.Values{"sslmode": {cfg.DBSSLMode}}.Encode(),
		}
		if cfg.DBPass == "" {
			u.User = url.User(cfg.DBUser)
		}
		return u.String(), nil
	}
	return "", fmt.Errorf("unsupported driver %q", cfg.DBDriver)
}

// Open connects to the configured store and verifies the connection. The
// ping is retried with exponential backoff so the service can start before
// the database container is ready; request paths never retry.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlx.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}
	db, err := sqlx.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, oops.Code("DB_OPEN_FAILED").With("driver", cfg.DBDriver).Wrap(err)
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	backoff := retry.WithCappedDuration(5*time.Second,
		retry.WithMaxRetries(cfg.DBConnectRetries, retry.NewExponential(500*time.Millisecond)))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			logger.WarnContext(ctx, "database ping failed",
				"driver", cfg.DBDriver, "host", cfg.DBHost, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("driver", cfg.DBDriver, "host", cfg.DBHost, "name", cfg.DBName).
			Wrap(err)
	}
	logger.InfoContext(ctx, "database connected", "driver", cfg.DBDriver, "host", cfg.DBHost)
	return db, nil
}
