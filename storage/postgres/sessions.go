package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/jrsteele09/payslip-server/sessions"
)

var _ sessions.Repo = (*SessionRepo)(nil)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func (r *SessionRepo) Create(ctx context.Context, s *sessions.Session) error {
	const op = "storage.postgres.Sessions.Create"

	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, email, name, access_token, refresh_token, expires_on, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.Email, s.Name, s.AccessToken, s.RefreshToken, s.ExpiresOn.UnixMilli(), s.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*sessions.Session, error) {
	const op = "storage.postgres.Sessions.Get"

	var (
		s                    sessions.Session
		expiresOn, createdAt int64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, access_token, refresh_token, expires_on, created_at
		FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.Email, &s.Name, &s.AccessToken, &s.RefreshToken, &expiresOn, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.ExpiresOn = time.UnixMilli(expiresOn).UTC()
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &s, nil
}

func (r *SessionRepo) UpdateTokens(ctx context.Context, id string, tokens sessions.Tokens) error {
	const op = "storage.postgres.Sessions.UpdateTokens"

	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions SET access_token = $2, refresh_token = $3, expires_on = $4
		WHERE id = $1`,
		id, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresOn.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	const op = "storage.postgres.Sessions.Delete"

	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *SessionRepo) ListExpired(ctx context.Context, before time.Time) ([]string, error) {
	const op = "storage.postgres.Sessions.ListExpired"

	rows, err := r.pool.Query(ctx, `SELECT id FROM sessions WHERE expires_on < $1`, before.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}
