package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/jrsteele09/payslip-server/internal/logging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const defaultStoreTimeout = 5 * time.Second

// Refresher obtains a new token set from a refresh token.
type Refresher interface {
	RefreshTokens(ctx context.Context, refreshToken string) (Tokens, error)
}

// Manager owns the session lifecycle and is the only component that talks to
// the session store.
type Manager struct {
	repo         Repo
	refresher    Refresher
	nowTime      func() time.Time
	newID        func() string
	storeTimeout time.Duration
	refreshes    singleflight.Group
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithStoreTimeout bounds every individual store call
func WithStoreTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		if timeout > 0 {
			m.storeTimeout = timeout
		}
	}
}

// WithIDGenerator replaces the session id generator
func WithIDGenerator(newID func() string) ManagerOption {
	return func(m *Manager) {
		m.newID = newID
	}
}

// NewManager creates a Manager over an already initialised store.
func NewManager(repo Repo, refresher Refresher, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] session repo is required")
	}
	if refresher == nil {
		return nil, errors.New("[NewManager] refresher is required")
	}

	m := &Manager{
		repo:         repo,
		refresher:    refresher,
		nowTime:      time.Now,
		newID:        uuid.NewString,
		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Create persists a new session for an authenticated identity. Sessions are
// never deduplicated per identity.
func (m *Manager) Create(ctx context.Context, profile Profile, tokens Tokens) (*Session, error) {
	session := &Session{
		ID:           m.newID(),
		Email:        profile.Email,
		Name:         profile.Name,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresOn:    NormaliseTime(tokens.ExpiresOn),
		CreatedAt:    NormaliseTime(m.nowTime()),
	}

	err := m.withStore(ctx, func(ctx context.Context) error {
		return m.repo.Create(ctx, session)
	})
	if err != nil {
		return nil, errors.Wrap(storeError(err), "[Manager.Create] storing session")
	}

	log.Debug().Str("session", logging.Fingerprint(session.ID)).Msg("session created")
	return session, nil
}

// GetValid returns the session for id if it exists and its access token has
// not expired. An expired session is deleted before returning
// ErrSessionExpired.
func (m *Manager) GetValid(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, apperrors.ErrSessionNotFound
	}

	var session *Session
	err := m.withStore(ctx, func(ctx context.Context) (err error) {
		session, err = m.repo.Get(ctx, id)
		return err
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, errors.Wrap(storeError(err), "[Manager.GetValid] reading session")
	}

	if session.IsExpired(m.nowTime()) {
		if err := m.Delete(ctx, id); err != nil {
			// The purge job will catch it; the caller still sees an expired session.
			log.Warn().Err(err).Str("session", logging.Fingerprint(id)).Msg("failed to evict expired session")
		}
		return nil, apperrors.ErrSessionExpired
	}
	return session, nil
}

// Refresh exchanges the stored refresh token for a new token set and writes
// only the token fields back. Concurrent refreshes of one session are
// collapsed into a single provider call.
func (m *Manager) Refresh(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, apperrors.ErrSessionNotFound
	}

	// The shared call outlives any one caller; store and provider timeouts
	// still bound it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := m.refreshes.Do(id, func() (interface{}, error) {
		return m.refresh(shared, id)
	})
	if err != nil {
		return nil, err
	}
	session := *v.(*Session)
	return &session, nil
}

func (m *Manager) refresh(ctx context.Context, id string) (*Session, error) {
	var session *Session
	err := m.withStore(ctx, func(ctx context.Context) (err error) {
		session, err = m.repo.Get(ctx, id)
		return err
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, errors.Wrap(storeError(err), "[Manager.Refresh] reading session")
	}

	if session.RefreshToken == "" {
		return nil, apperrors.ErrNoRefreshToken
	}

	tokens, err := m.refresher.RefreshTokens(ctx, session.RefreshToken)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrTokenRefresh) {
			err = apperrors.Mark(err, apperrors.ErrTokenRefresh)
		}
		return nil, errors.Wrap(err, "[Manager.Refresh] refreshing tokens")
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = session.RefreshToken
	}
	tokens.ExpiresOn = NormaliseTime(tokens.ExpiresOn)

	err = m.withStore(ctx, func(ctx context.Context) error {
		return m.repo.UpdateTokens(ctx, id, tokens)
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, errors.Wrap(storeError(err), "[Manager.Refresh] updating tokens")
	}

	session.AccessToken = tokens.AccessToken
	session.RefreshToken = tokens.RefreshToken
	session.ExpiresOn = tokens.ExpiresOn

	log.Debug().Str("session", logging.Fingerprint(id)).Time("expiresOn", tokens.ExpiresOn).Msg("session tokens refreshed")
	return session, nil
}

// Delete removes a session. Deleting an absent session succeeds.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	err := m.withStore(ctx, func(ctx context.Context) error {
		return m.repo.Delete(ctx, id)
	})
	if err != nil {
		return errors.Wrap(storeError(err), "[Manager.Delete] deleting session")
	}
	return nil
}

// PurgeExpired deletes every session whose access token expired before now.
// Each deletion is independent: a failure is collected and the remaining
// sessions are still processed. The count of deleted sessions is returned with
// the joined failures.
func (m *Manager) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	var ids []string
	err := m.withStore(ctx, func(ctx context.Context) (err error) {
		ids, err = m.repo.ListExpired(ctx, now)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(storeError(err), "[Manager.PurgeExpired] listing expired sessions")
	}

	var (
		deleted int
		errs    []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, errors.Wrap(err, "[Manager.PurgeExpired] cancelled"))
			break
		}
		if err := m.Delete(ctx, id); err != nil {
			errs = append(errs, errors.Wrapf(err, "session %s", logging.Fingerprint(id)))
			continue
		}
		deleted++
	}
	return deleted, apperrors.Join(errs...)
}

func (m *Manager) withStore(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	return fn(ctx)
}

func storeError(err error) error {
	if apperrors.Is(err, apperrors.ErrStore) {
		return err
	}
	return apperrors.Mark(err, apperrors.ErrStore)
}
