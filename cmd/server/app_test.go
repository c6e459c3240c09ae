package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/payslip-server/internal/config"
	"github.com/jrsteele09/payslip-server/mail"
	"github.com/stretchr/testify/require"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV", "test")
	t.Setenv("MICROSOFT_CLIENT_ID", "client-id")
	t.Setenv("MICROSOFT_CLIENT_SECRET", "secret")
	t.Setenv("MICROSOFT_TENANT_ID", "tenant")
	t.Setenv("STORE_BACKEND", config.StoreMemory)
	t.Setenv("MAIL_TRANSPORT", config.MailTransportGraph)
}

func TestNewAppWiresMemoryBackend(t *testing.T) {
	setTestEnv(t)
	c, err := config.New()
	require.NoError(t, err)

	a, err := newApp(context.Background(), c)
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, config.StoreMemory, a.backend.Name)

	handler, err := a.handler(c)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	deleted, err := a.manager.PurgeExpired(context.Background(), time.Now())
	require.NoError(t, err)
	require.Zero(t, deleted)
}

func TestNewSenderSelectsTransport(t *testing.T) {
	setTestEnv(t)
	c, err := config.New()
	require.NoError(t, err)
	sender, err := newSender(c)
	require.NoError(t, err)
	require.IsType(t, &mail.GraphSender{}, sender)

	t.Setenv("MAIL_TRANSPORT", config.MailTransportSendGrid)
	t.Setenv("SENDGRID_API_KEY", "sg-key")
	t.Setenv("MAIL_FROM_ADDRESS", "payroll@example.com")
	c, err = config.New()
	require.NoError(t, err)
	sender, err = newSender(c)
	require.NoError(t, err)
	require.IsType(t, &mail.SendGridSender{}, sender)

	t.Setenv("MAIL_TRANSPORT", "carrier-pigeon")
	c, err = config.New()
	require.NoError(t, err)
	_, err = newSender(c)
	require.Error(t, err)
}

func TestNewAppRejectsUnknownStore(t *testing.T) {
	setTestEnv(t)
	t.Setenv("STORE_BACKEND", "floppy")
	c, err := config.New()
	require.NoError(t, err)

	_, err = newApp(context.Background(), c)
	require.Error(t, err)
}
