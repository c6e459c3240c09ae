package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/payslip-server/cleanup"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the session cleanup scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		displayAppname(c.GetAppName())

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, c)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Error().Err(err).Msg("closing store")
			}
		}()

		handler, err := a.handler(c)
		if err != nil {
			return err
		}
		httpServer := &http.Server{
			Addr:              c.GetPort(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		scheduler := cleanup.New(a.manager, c.GetSessionCleanupInterval())

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info().Str("addr", httpServer.Addr).Msg("server listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "server.ListenAndServe")
			}
			return nil
		})
		g.Go(func() error {
			return scheduler.Run(ctx)
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return errors.Wrap(err, "server.Shutdown")
			}
			return nil
		})

		err = g.Wait()
		log.Info().Msg("server stopped")
		return err
	},
}
