package server

// Route path constants
const (
	// Auth Routes
	RouteAuthLogin        = "/auth/login"
	RouteAuthCallback     = "/auth/callback"
	RouteAuthLogout       = "/auth/logout"
	RouteAuthStatus       = "/auth/status"
	RouteAuthCurrentUser  = "/auth/get-current-user"
	RouteAuthRefreshToken = "/auth/refresh-token"

	// Payslip Routes
	RouteSendPayslip = "/email/send-payslip"
	RoutePayslipLogs = "/logs/get-payslip-logs"

	RouteHealth = "/healthz"
)
