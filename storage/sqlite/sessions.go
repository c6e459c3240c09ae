package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/jrsteele09/payslip-server/sessions"
)

var _ sessions.Repo = (*SessionRepo)(nil)

type SessionRepo struct {
	db *sql.DB
}

func (r *SessionRepo) Create(ctx context.Context, s *sessions.Session) error {
	const op = "storage.sqlite.Sessions.Create"

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, email, name, access_token, refresh_token, expires_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Email, s.Name, s.AccessToken, s.RefreshToken, s.ExpiresOn.UnixMilli(), s.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*sessions.Session, error) {
	const op = "storage.sqlite.Sessions.Get"

	var (
		s                    sessions.Session
		expiresOn, createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, access_token, refresh_token, expires_on, created_at
		FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.Email, &s.Name, &s.AccessToken, &s.RefreshToken, &expiresOn, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.ExpiresOn = time.UnixMilli(expiresOn).UTC()
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &s, nil
}

func (r *SessionRepo) UpdateTokens(ctx context.Context, id string, tokens sessions.Tokens) error {
	const op = "storage.sqlite.Sessions.UpdateTokens"

	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET access_token = ?, refresh_token = ?, expires_on = ?
		WHERE id = ?`,
		tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresOn.UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	const op = "storage.sqlite.Sessions.Delete"

	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *SessionRepo) ListExpired(ctx context.Context, before time.Time) ([]string, error) {
	const op = "storage.sqlite.Sessions.ListExpired"

	rows, err := r.db.QueryContext(ctx, `SELECT id FROM sessions WHERE expires_on < ?`, before.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}
