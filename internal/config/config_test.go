package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/payslip-server/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("ENV", "")

	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":3000", c.GetPort())
	require.False(t, c.IsProduction())
	require.Equal(t, 24*time.Hour, c.GetSessionMaxAge())
	require.Equal(t, 24*time.Hour, c.GetSessionCleanupInterval())
	require.Equal(t, config.StoreMemory, c.GetStoreBackend())
	require.Equal(t, "http://localhost:5173", c.GetFrontendOrigin())
	require.Contains(t, c.GetScopes(), "offline_access")
}

func TestNewProductionSelectsProdEndpoints(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("OAUTH_REDIRECT_URI_PROD", "https://api.example.com/auth/callback")
	t.Setenv("OAUTH_REDIRECT_URI_LOCAL", "http://localhost:3000/auth/callback")
	t.Setenv("FRONTEND_ORIGIN_PROD", "https://payroll.example.com")
	t.Setenv("FRONTEND_ORIGIN_LOCAL", "http://localhost:5173")
	t.Setenv("OAUTH_SCOPES", "User.Read Mail.Send")

	c, err := config.New()
	require.NoError(t, err)

	require.True(t, c.IsProduction())
	require.Equal(t, "https://api.example.com/auth/callback", c.GetRedirectURI())
	require.Equal(t, "https://payroll.example.com", c.GetFrontendOrigin())
	require.Equal(t, []string{"User.Read", "Mail.Send"}, c.GetScopes())

	origins := c.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://payroll.example.com"))
	require.True(t, origins.IsAllowedOrigin("http://localhost:5173"))
	require.False(t, origins.IsAllowedOrigin("https://evil.example.com"))
}
