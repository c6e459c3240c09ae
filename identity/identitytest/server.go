// Package identitytest runs an in-process stand-in for the Microsoft identity
// platform token endpoint and the Graph /me endpoint.
package identitytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/payslip-server/identity"
	"github.com/jrsteele09/payslip-server/sessions"
)

const (
	TenantID     = "test-tenant"
	ClientID     = "test-client-id"
	ClientSecret = "test-client-secret"
	RedirectURL  = "http://localhost:3000/auth/callback"
)

// Server is a fake provider. Codes registered with IssueCode can be redeemed
// once; every issued refresh token can be redeemed until revoked.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	codes         map[string]sessions.Profile
	refreshTokens map[string]sessions.Profile
	accessTokens  map[string]sessions.Profile
	issued        int
	tokenCalls    int
	profileCalls  int
	refreshScopes []string

	// ExpiresIn is the expires_in value returned with every token (seconds)
	ExpiresIn int
	// RotateRefreshTokens issues a new refresh token on every refresh grant
	RotateRefreshTokens bool
	// OmitRefreshToken leaves refresh_token out of code exchange responses
	OmitRefreshToken bool
	// ProfileStatus forces /me to fail with this status when non-zero
	ProfileStatus int
}

func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		codes:         make(map[string]sessions.Profile),
		refreshTokens: make(map[string]sessions.Profile),
		accessTokens:  make(map[string]sessions.Profile),
		ExpiresIn:     3600,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /"+TenantID+"/oauth2/v2.0/token", s.tokenHandler)
	mux.HandleFunc("GET /v1.0/me", s.meHandler)
	mux.HandleFunc("GET /"+TenantID+"/v2.0/.well-known/openid-configuration", s.discoveryHandler)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Settings returns client settings pointing at this server.
func (s *Server) Settings() identity.Settings {
	return identity.Settings{
		ClientID:     ClientID,
		ClientSecret: ClientSecret,
		TenantID:     TenantID,
		AuthorityURL: s.URL,
		GraphURL:     s.URL + "/v1.0",
		RedirectURL:  RedirectURL,
		Scopes:       []string{"openid", "profile", "email", "offline_access", "User.Read", "Mail.Send"},
		Timeout:      2 * time.Second,
	}
}

// IssueCode registers a one-time authorization code for profile.
func (s *Server) IssueCode(code string, profile sessions.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = profile
}

// RevokeRefreshToken makes further refresh grants with token fail.
func (s *Server) RevokeRefreshToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refreshTokens, token)
}

func (s *Server) TokenCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenCalls
}

func (s *Server) ProfileCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileCalls
}

// RefreshScopes returns the scope parameter of every refresh grant received.
func (s *Server) RefreshScopes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.refreshScopes...)
}

func (s *Server) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, "invalid_request")
		return
	}
	if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeOAuthError(w, "invalid_client")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenCalls++

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if r.PostForm.Get("redirect_uri") != RedirectURL {
			writeOAuthError(w, "invalid_grant")
			return
		}
		code := r.PostForm.Get("code")
		profile, ok := s.codes[code]
		if !ok {
			writeOAuthError(w, "invalid_grant")
			return
		}
		delete(s.codes, code)
		s.writeTokens(w, profile, !s.OmitRefreshToken)

	case "refresh_token":
		scope := r.PostForm.Get("scope")
		if scope == "" {
			writeOAuthError(w, "invalid_scope")
			return
		}
		s.refreshScopes = append(s.refreshScopes, scope)
		rt := r.PostForm.Get("refresh_token")
		profile, ok := s.refreshTokens[rt]
		if !ok {
			writeOAuthError(w, "invalid_grant")
			return
		}
		if s.RotateRefreshTokens {
			delete(s.refreshTokens, rt)
		}
		s.writeTokens(w, profile, s.RotateRefreshTokens)

	default:
		writeOAuthError(w, "unsupported_grant_type")
	}
}

func (s *Server) writeTokens(w http.ResponseWriter, profile sessions.Profile, withRefresh bool) {
	s.issued++
	resp := map[string]interface{}{
		"token_type":   "Bearer",
		"access_token": fmt.Sprintf("access-%d", s.issued),
		"expires_in":   s.ExpiresIn,
	}
	s.accessTokens[resp["access_token"].(string)] = profile
	if withRefresh {
		rt := fmt.Sprintf("refresh-%d", s.issued)
		s.refreshTokens[rt] = profile
		resp["refresh_token"] = rt
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileCalls++

	if s.ProfileStatus != 0 {
		http.Error(w, `{"error":{"code":"forced"}}`, s.ProfileStatus)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	profile, ok := s.accessTokens[token]
	if !ok {
		http.Error(w, `{"error":{"code":"InvalidAuthenticationToken"}}`, http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"mail":              profile.Email,
		"userPrincipalName": profile.Email,
		"displayName":       profile.Name,
	})
}

func (s *Server) discoveryHandler(w http.ResponseWriter, _ *http.Request) {
	issuer := s.URL + "/" + TenantID + "/v2.0"
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"issuer":                 issuer,
		"authorization_endpoint": s.URL + "/" + TenantID + "/oauth2/v2.0/authorize",
		"token_endpoint":         s.URL + "/" + TenantID + "/oauth2/v2.0/token",
		"end_session_endpoint":   s.URL + "/" + TenantID + "/oauth2/v2.0/logout",
		"jwks_uri":               s.URL + "/" + TenantID + "/discovery/v2.0/keys",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func writeOAuthError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
