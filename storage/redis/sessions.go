package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/jrsteele09/payslip-server/sessions"
	"github.com/redis/go-redis/v9"
)

var (
	_ sessions.Repo = (*SessionRepo)(nil)

	errDuplicateSession = errors.New("session id already exists")
)

type SessionRepo struct {
	client *redis.Client
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Create writes the hash, its TTL and the expiry index entry in one
// transaction, failing if the key already exists.
func (r *SessionRepo) Create(ctx context.Context, s *sessions.Session) error {
	const op = "storage.redis.Sessions.Create"
	key := sessionKey(s.ID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return errDuplicateSession
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]interface{}{
				"email":         s.Email,
				"name":          s.Name,
				"access_token":  s.AccessToken,
				"refresh_token": s.RefreshToken,
				"expires_on":    s.ExpiresOn.UnixMilli(),
				"created_at":    s.CreatedAt.UnixMilli(),
			})
			pipe.PExpireAt(ctx, key, s.ExpiresOn.Add(expiryGrace))
			pipe.ZAdd(ctx, expiryIndexKey, redis.Z{Score: float64(s.ExpiresOn.UnixMilli()), Member: s.ID})
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*sessions.Session, error) {
	const op = "storage.redis.Sessions.Get"

	data, err := r.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(data) == 0 {
		return nil, apperrors.ErrSessionNotFound
	}

	expiresOn, err := strconv.ParseInt(data["expires_on"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: expires_on: %w", op, err)
	}
	createdAt, err := strconv.ParseInt(data["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: created_at: %w", op, err)
	}

	return &sessions.Session{
		ID:           id,
		Email:        data["email"],
		Name:         data["name"],
		AccessToken:  data["access_token"],
		RefreshToken: data["refresh_token"],
		ExpiresOn:    time.UnixMilli(expiresOn).UTC(),
		CreatedAt:    time.UnixMilli(createdAt).UTC(),
	}, nil
}

func (r *SessionRepo) UpdateTokens(ctx context.Context, id string, tokens sessions.Tokens) error {
	const op = "storage.redis.Sessions.UpdateTokens"
	key := sessionKey(id)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.ErrSessionNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]interface{}{
				"access_token":  tokens.AccessToken,
				"refresh_token": tokens.RefreshToken,
				"expires_on":    tokens.ExpiresOn.UnixMilli(),
			})
			pipe.PExpireAt(ctx, key, tokens.ExpiresOn.Add(expiryGrace))
			pipe.ZAdd(ctx, expiryIndexKey, redis.Z{Score: float64(tokens.ExpiresOn.UnixMilli()), Member: id})
			return nil
		})
		return err
	}, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			return apperrors.ErrSessionNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	const op = "storage.redis.Sessions.Delete"

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.ZRem(ctx, expiryIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *SessionRepo) ListExpired(ctx context.Context, before time.Time) ([]string, error) {
	const op = "storage.redis.Sessions.ListExpired"

	ids, err := r.client.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}
