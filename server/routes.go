package server

func (s *Server) initRoutes() {
	// Public auth routes
	s.RegisterRouteFunc("GET "+RouteAuthLogin, s.LoginHandler())
	s.RegisterRouteFunc("GET "+RouteAuthCallback, s.OAuthCallbackHandler())
	s.RegisterRouteFunc("GET "+RouteAuthLogout, s.LogoutHandler())
	s.RegisterRouteFunc("GET "+RouteAuthStatus, s.StatusHandler())

	// Session protected routes
	s.RegisterRouteHandler("GET "+RouteAuthCurrentUser, ChainMiddleware(s.CurrentUserHandler(), s.RequireSession))
	s.RegisterRouteHandler("POST "+RouteAuthRefreshToken, ChainMiddleware(s.RefreshTokenHandler(), s.RequireSession))
	s.RegisterRouteHandler("POST "+RouteSendPayslip, ChainMiddleware(s.SendPayslipHandler(), s.RequireSession))
	s.RegisterRouteHandler("GET "+RoutePayslipLogs, ChainMiddleware(s.PayslipLogsHandler(), s.RequireSession))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}
