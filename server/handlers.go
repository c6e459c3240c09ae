package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/payslip-server/internal/errors"
	"github.com/rs/zerolog/log"
)

// Public error messages. Nothing from a wrapped error is ever sent.
const (
	msgAuthRequired     = "Authentication required"
	msgInvalidSession   = "Invalid session"
	msgSessionExpired   = "Session expired"
	msgNoRefreshToken   = "Invalid session or missing refresh token"
	msgRefreshFailed    = "Failed to refresh token"
	msgAuthFailed       = "Authentication failed"
	msgInvalidRequest   = "Invalid request"
	msgMailFailed       = "Failed to send email"
	msgInternal         = "Internal server error"
	msgCodeMissing      = "Authorization code missing"
	msgInvalidState     = "Invalid state parameter"
	msgNoFile           = "No file uploaded"
	msgInvalidLimit     = "Invalid limit parameter"
	msgInvalidLimitHint = "Limit must be a positive number"
	msgLogsFailed       = "Failed to fetch email logs"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps an error class to its status and public message. Session
// errors also clear the session cookie.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, msgInternal

	switch {
	case apperrors.Is(err, apperrors.ErrSessionNotFound):
		s.cookies.ClearSession(w)
		status, msg = http.StatusUnauthorized, msgInvalidSession
	case apperrors.Is(err, apperrors.ErrSessionExpired):
		s.cookies.ClearSession(w)
		status, msg = http.StatusUnauthorized, msgSessionExpired
	case apperrors.Is(err, apperrors.ErrNoRefreshToken):
		status, msg = http.StatusUnauthorized, msgNoRefreshToken
	case apperrors.Is(err, apperrors.ErrTokenRefresh):
		status, msg = http.StatusUnauthorized, msgRefreshFailed
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		status, msg = http.StatusBadRequest, msgInvalidRequest
	case apperrors.Is(err, apperrors.ErrAuthExchange), apperrors.Is(err, apperrors.ErrProfileFetch):
		msg = msgAuthFailed
	case apperrors.Is(err, apperrors.ErrMailSend):
		msg = msgMailFailed
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
