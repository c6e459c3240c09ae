package server

import (
	"context"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
)

type identityContextKey struct{}

// Identity is the authenticated caller as seen by protected handlers.
type Identity struct {
	SessionID   string
	Email       string
	Name        string
	AccessToken string
	ExpiresOn   time.Time
}

// IdentityFrom returns the identity attached by RequireSession.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}

// RequireSession validates the session cookie on every request. A missing,
// unknown or expired session gets a 401 and the cookie is cleared; a store
// failure gets a 500.
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := s.cookies.SessionID(r)
		if sessionID == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: msgAuthRequired})
			return
		}

		session, err := s.sessions.GetValid(r.Context(), sessionID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey{}, Identity{
			SessionID:   session.ID,
			Email:       session.Email,
			Name:        session.Name,
			AccessToken: session.AccessToken,
			ExpiresOn:   session.ExpiresOn,
		})
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) identityOrUnauthorized(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		s.writeError(w, r, apperrors.ErrSessionNotFound)
	}
	return identity, ok
}
