package server

import (
	"net/http"

	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/pkg/errors"
)

type statusResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
}

type currentUserResponse struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LoginHandler redirects to the provider's authorization page. The state it
// sends is remembered in a short-lived cookie and checked by the callback.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := generateRandomString(32)
		if err != nil {
			s.writeError(w, r, errors.Wrap(err, "[LoginHandler] generating state"))
			return
		}
		s.cookies.SetState(w, state)
		http.Redirect(w, r, s.idp.AuthCodeURL(state), http.StatusFound)
	}
}

// LogoutHandler deletes the session if there is one and redirects to the
// provider's sign-out page, which returns the browser to the front end.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionID := s.cookies.SessionID(r); sessionID != "" {
			if err := s.sessions.Delete(r.Context(), sessionID); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
		s.cookies.ClearSession(w)
		http.Redirect(w, r, s.idp.LogoutURL(s.config.GetFrontendOrigin()), http.StatusFound)
	}
}

// StatusHandler reports whether the caller has a valid session. A stale
// cookie is cleared; only a store failure is an error.
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := s.cookies.SessionID(r)
		if sessionID == "" {
			writeJSON(w, http.StatusOK, statusResponse{IsAuthenticated: false})
			return
		}

		session, err := s.sessions.GetValid(r.Context(), sessionID)
		switch {
		case apperrors.Is(err, apperrors.ErrSessionNotFound), apperrors.Is(err, apperrors.ErrSessionExpired):
			s.cookies.ClearSession(w)
			writeJSON(w, http.StatusOK, statusResponse{IsAuthenticated: false})
			return
		case err != nil:
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, statusResponse{
			IsAuthenticated: true,
			Name:            session.Name,
			Email:           session.Email,
		})
	}
}

func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := s.identityOrUnauthorized(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, currentUserResponse{
			Name:            identity.Name,
			Email:           identity.Email,
			IsAuthenticated: true,
		})
	}
}

// RefreshTokenHandler replaces the session's tokens. No token material is
// returned.
func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := s.identityOrUnauthorized(w, r)
		if !ok {
			return
		}
		if _, err := s.sessions.Refresh(r.Context(), identity.SessionID); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Token refreshed successfully"})
	}
}
