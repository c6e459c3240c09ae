package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog/log"
)

// OAuthCallbackHandler finishes the authorization-code flow: exchange the
// code, fetch the profile, create the session and hand the browser back to
// the front end. No session exists unless every step succeeded.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		code := query.Get("code")
		if code == "" {
			if errorParam := query.Get("error"); errorParam != "" {
				log.Warn().Str("error", errorParam).Str("description", query.Get("error_description")).Msg("authorization denied by provider")
			}
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgCodeMissing})
			return
		}

		expected := s.cookies.State(r)
		state := query.Get("state")
		s.cookies.ClearState(w)
		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidState})
			return
		}

		tokens, err := s.idp.ExchangeCode(r.Context(), code)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		profile, err := s.idp.FetchProfile(r.Context(), tokens.AccessToken)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		session, err := s.sessions.Create(r.Context(), profile, tokens)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.cookies.SetSession(w, session.ID)
		log.Info().Msg("authentication successful")
		http.Redirect(w, r, s.config.GetFrontendOrigin(), http.StatusFound)
	}
}
