package sessions

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/pkg/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo keeps sessions in a map. It is used for single-instance
// deployments and tests; sessions do not survive a restart.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
	}
}

func (r *InMemoryRepo) Create(_ context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return errors.New("[InMemoryRepo.Create] session id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return errors.New("[InMemoryRepo.Create] duplicate session id")
	}
	r.sessions[session.ID] = *session
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return &session, nil
}

func (r *InMemoryRepo) UpdateTokens(_ context.Context, id string, tokens Tokens) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	session.AccessToken = tokens.AccessToken
	session.RefreshToken = tokens.RefreshToken
	session.ExpiresOn = tokens.ExpiresOn
	r.sessions[id] = session
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *InMemoryRepo) ListExpired(_ context.Context, before time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, session := range r.sessions {
		if session.ExpiresOn.Before(before) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Len returns the number of stored sessions
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
