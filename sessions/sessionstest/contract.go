// Package sessionstest holds behaviour every sessions.Repo implementation
// must share.
package sessionstest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/jrsteele09/payslip-server/sessions"
	"github.com/stretchr/testify/require"
)

// RunRepoTests exercises repo implementations created by newRepo. Each subtest
// gets a fresh repo.
func RunRepoTests(t *testing.T, newRepo func(t *testing.T) sessions.Repo) {
	t.Run("CreateThenGet", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		s := NewSession(time.Now().Add(time.Hour))

		require.NoError(t, repo.Create(ctx, s))

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, s, got)
	})

	t.Run("CreateDuplicateFails", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		s := NewSession(time.Now().Add(time.Hour))

		require.NoError(t, repo.Create(ctx, s))
		require.Error(t, repo.Create(ctx, s))
	})

	t.Run("GetMissing", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Get(context.Background(), gofakeit.UUID())
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("UpdateTokensOnly", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		s := NewSession(time.Now().Add(time.Minute))
		require.NoError(t, repo.Create(ctx, s))

		tokens := sessions.Tokens{
			AccessToken:  "access-updated",
			RefreshToken: "refresh-updated",
			ExpiresOn:    sessions.NormaliseTime(time.Now().Add(2 * time.Hour)),
		}
		require.NoError(t, repo.UpdateTokens(ctx, s.ID, tokens))

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		require.Equal(t, s.ID, got.ID)
		require.Equal(t, s.Email, got.Email)
		require.Equal(t, s.Name, got.Name)
		require.Equal(t, s.CreatedAt, got.CreatedAt)
		require.Equal(t, tokens.AccessToken, got.AccessToken)
		require.Equal(t, tokens.RefreshToken, got.RefreshToken)
		require.Equal(t, tokens.ExpiresOn, got.ExpiresOn)
	})

	t.Run("UpdateTokensMissing", func(t *testing.T) {
		repo := newRepo(t)

		err := repo.UpdateTokens(context.Background(), gofakeit.UUID(), sessions.Tokens{AccessToken: "x", ExpiresOn: time.Now()})
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		s := NewSession(time.Now().Add(time.Hour))
		require.NoError(t, repo.Create(ctx, s))

		require.NoError(t, repo.Delete(ctx, s.ID))
		require.NoError(t, repo.Delete(ctx, s.ID))
		require.NoError(t, repo.Delete(ctx, gofakeit.UUID()))

		_, err := repo.Get(ctx, s.ID)
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("ListExpiredIsStrict", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := sessions.NormaliseTime(time.Now())

		var expired []string
		for i := 1; i <= 3; i++ {
			s := NewSession(now.Add(-time.Duration(i) * time.Minute))
			require.NoError(t, repo.Create(ctx, s))
			expired = append(expired, s.ID)
		}
		require.NoError(t, repo.Create(ctx, NewSession(now)))
		require.NoError(t, repo.Create(ctx, NewSession(now.Add(time.Hour))))

		ids, err := repo.ListExpired(ctx, now)
		require.NoError(t, err)
		sort.Strings(ids)
		sort.Strings(expired)
		require.Equal(t, expired, ids)
	})
}

// NewSession returns a populated session expiring at expiresOn.
func NewSession(expiresOn time.Time) *sessions.Session {
	return &sessions.Session{
		ID:           gofakeit.UUID(),
		Email:        gofakeit.Email(),
		Name:         gofakeit.Name(),
		AccessToken:  gofakeit.LetterN(40),
		RefreshToken: gofakeit.LetterN(40),
		ExpiresOn:    sessions.NormaliseTime(expiresOn),
		CreatedAt:    sessions.NormaliseTime(time.Now()),
	}
}
