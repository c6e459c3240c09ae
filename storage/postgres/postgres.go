// Package postgres stores sessions and email logs in PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/payslip-server/storage/migrations"
)

type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn, verifies the connection and applies migrations.
func New(ctx context.Context, dsn string) (*Store, error) {
	const op = "storage.postgres.New"

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: parsing dsn: %w", op, err)
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	if err := migrations.Up(migrateURL(dsn)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Sessions() *SessionRepo {
	return &SessionRepo{pool: s.pool}
}

func (s *Store) EmailLogs() *EmailLogRepo {
	return &EmailLogRepo{pool: s.pool}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// migrateURL rewrites a postgres DSN to the scheme golang-migrate registers
// for its pgx v5 driver.
func migrateURL(dsn string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, scheme) {
			return "pgx5://" + strings.TrimPrefix(dsn, scheme)
		}
	}
	return dsn
}
