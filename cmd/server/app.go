package main

import (
	"context"

	"github.com/jrsteele09/payslip-server/identity"
	"github.com/jrsteele09/payslip-server/internal/config"
	"github.com/jrsteele09/payslip-server/mail"
	"github.com/jrsteele09/payslip-server/payslips"
	"github.com/jrsteele09/payslip-server/server"
	"github.com/jrsteele09/payslip-server/sessions"
	"github.com/jrsteele09/payslip-server/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// app holds every long-lived component. Close releases the store.
type app struct {
	backend  *storage.Backend
	manager  *sessions.Manager
	identity *identity.Client
	payslips *payslips.Service
}

func newApp(ctx context.Context, c config.Config) (*app, error) {
	client, err := identity.New(identity.Settings{
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		TenantID:     c.GetTenantID(),
		AuthorityURL: c.GetAuthorityURL(),
		GraphURL:     c.GetGraphURL(),
		RedirectURL:  c.GetRedirectURI(),
		Scopes:       c.GetScopes(),
		Timeout:      c.GetIdentityTimeout(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] identity client")
	}
	if c.GetOIDCDiscovery() {
		if err := client.Discover(ctx, client.IssuerURL()); err != nil {
			return nil, errors.Wrap(err, "[newApp] oidc discovery")
		}
	}

	sender, err := newSender(c)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] mail sender")
	}

	backend, err := storage.Open(ctx, c)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] store")
	}

	manager, err := sessions.NewManager(backend.Sessions, client, sessions.WithStoreTimeout(c.GetStoreTimeout()))
	if err != nil {
		_ = backend.Close()
		return nil, errors.Wrap(err, "[newApp] session manager")
	}

	payslipService, err := payslips.NewService(sender, backend.EmailLogs)
	if err != nil {
		_ = backend.Close()
		return nil, errors.Wrap(err, "[newApp] payslip service")
	}

	return &app{
		backend:  backend,
		manager:  manager,
		identity: client,
		payslips: payslipService,
	}, nil
}

func newSender(c config.Config) (mail.Sender, error) {
	switch c.GetMailTransport() {
	case config.MailTransportGraph, "":
		return mail.NewGraphSender(c.GetGraphURL(), c.GetMailTimeout()), nil
	case config.MailTransportSendGrid:
		log.Info().Str("from", c.GetMailFromAddress()).Msg("sending mail through sendgrid")
		return mail.NewSendGridSender(c.GetSendGridAPIKey(), c.GetMailFromName(), c.GetMailFromAddress(), c.GetMailTimeout())
	default:
		return nil, errors.Errorf("unknown mail transport %q", c.GetMailTransport())
	}
}

func (a *app) handler(c config.Config) (*server.Server, error) {
	return server.New(c, server.Dependencies{
		Sessions: a.manager,
		Identity: a.identity,
		Payslips: a.payslips,
	})
}

func (a *app) Close() error {
	return a.backend.Close()
}
