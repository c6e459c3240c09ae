package sessions

import (
	"context"
	"time"
)

// Repo is the session store. Implementations must make Create a single atomic
// write and Delete idempotent. Get and UpdateTokens return
// errors.ErrSessionNotFound when no record exists.
type Repo interface {
	// Create stores a new session; an existing id is an error
	Create(ctx context.Context, session *Session) error

	// Get returns the session stored under id
	Get(ctx context.Context, id string) (*Session, error)

	// UpdateTokens replaces the token fields of an existing session and nothing else
	UpdateTokens(ctx context.Context, id string, tokens Tokens) error

	// Delete removes a session; deleting an absent id succeeds
	Delete(ctx context.Context, id string) error

	// ListExpired returns the ids of sessions whose ExpiresOn is strictly before the given time
	ListExpired(ctx context.Context, before time.Time) ([]string, error)
}
