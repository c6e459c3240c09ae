// Package storage builds the session and email log stores selected by
// configuration.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/payslip-server/emaillogs"
	"github.com/jrsteele09/payslip-server/internal/config"
	"github.com/jrsteele09/payslip-server/sessions"
	"github.com/jrsteele09/payslip-server/storage/postgres"
	"github.com/jrsteele09/payslip-server/storage/redis"
	"github.com/jrsteele09/payslip-server/storage/sqlite"
	"github.com/rs/zerolog/log"
)

// Backend is a ready-to-use pair of stores sharing one connection.
type Backend struct {
	Name      string
	Sessions  sessions.Repo
	EmailLogs emaillogs.Repo
	close     func() error
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open connects to the configured backend, applying schema migrations where
// the backend has a schema. The returned Backend is owned by the caller.
func Open(ctx context.Context, cfg config.StoreConfig) (*Backend, error) {
	const op = "storage.Open"

	ctx, cancel := context.WithTimeout(ctx, openTimeout(cfg))
	defer cancel()

	var backend *Backend
	switch cfg.GetStoreBackend() {
	case config.StoreMemory, "":
		backend = &Backend{
			Name:      config.StoreMemory,
			Sessions:  sessions.NewInMemoryRepo(),
			EmailLogs: emaillogs.NewInMemoryRepo(),
		}

	case config.StorePostgres:
		if cfg.GetDatabaseURL() == "" {
			return nil, fmt.Errorf("%s: DATABASE_URL is required for the postgres store", op)
		}
		store, err := postgres.New(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		backend = &Backend{Name: config.StorePostgres, Sessions: store.Sessions(), EmailLogs: store.EmailLogs(), close: store.Close}

	case config.StoreSQLite:
		store, err := sqlite.New(ctx, cfg.GetSQLitePath())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		backend = &Backend{Name: config.StoreSQLite, Sessions: store.Sessions(), EmailLogs: store.EmailLogs(), close: store.Close}

	case config.StoreRedis:
		store, err := redis.New(ctx, cfg.GetRedisURL())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		backend = &Backend{Name: config.StoreRedis, Sessions: store.Sessions(), EmailLogs: store.EmailLogs(), close: store.Close}

	default:
		return nil, fmt.Errorf("%s: unknown store backend %q", op, cfg.GetStoreBackend())
	}

	log.Info().Str("backend", backend.Name).Msg("store ready")
	return backend, nil
}

// openTimeout allows for migrations, which take longer than a single call.
func openTimeout(cfg config.StoreConfig) time.Duration {
	if t := 6 * cfg.GetStoreTimeout(); t > 0 {
		return t
	}
	return 30 * time.Second
}
