package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/payslip-server/emaillogs"
	"github.com/jrsteele09/payslip-server/internal/config"
	"github.com/jrsteele09/payslip-server/payslips"
	"github.com/jrsteele09/payslip-server/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SessionManager is the part of sessions.Manager the HTTP surface uses.
type SessionManager interface {
	Create(ctx context.Context, profile sessions.Profile, tokens sessions.Tokens) (*sessions.Session, error)
	GetValid(ctx context.Context, id string) (*sessions.Session, error)
	Refresh(ctx context.Context, id string) (*sessions.Session, error)
	Delete(ctx context.Context, id string) error
}

// IdentityProvider is the part of identity.Client the HTTP surface uses.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (sessions.Tokens, error)
	FetchProfile(ctx context.Context, accessToken string) (sessions.Profile, error)
	LogoutURL(postLogoutRedirect string) string
}

type PayslipService interface {
	Send(ctx context.Context, req payslips.Request) (payslips.Result, error)
	Logs(ctx context.Context, limit int) ([]emaillogs.EmailLog, error)
}

type Dependencies struct {
	Sessions SessionManager
	Identity IdentityProvider
	Payslips PayslipService
}

type Server struct {
	env      string // Environment (e.g., "DEV", "production")
	mux      *http.ServeMux
	handler  http.Handler
	routes   []string
	config   config.Config
	sessions SessionManager
	idp      IdentityProvider
	payslips PayslipService
	cookies  CookieCodec
}

func New(config config.Config, deps Dependencies) (*Server, error) {
	if deps.Sessions == nil {
		return nil, errors.New("[server.New] session manager is required")
	}
	if deps.Identity == nil {
		return nil, errors.New("[server.New] identity provider is required")
	}
	if deps.Payslips == nil {
		return nil, errors.New("[server.New] payslip service is required")
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		sessions: deps.Sessions,
		idp:      deps.Identity,
		payslips: deps.Payslips,
		cookies:  NewCookieCodec(config.IsProduction(), config.GetSessionMaxAge()),
	}

	// CORS preflight must be answered before the method-specific mux patterns
	// reject OPTIONS.
	s.handler = ChainMiddleware(s.mux.ServeHTTP,
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.FrameSecurityMiddleware,
		s.CorsMiddleware,
	)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
