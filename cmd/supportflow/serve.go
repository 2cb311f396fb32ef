package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/supportflow/auth"
	"github.com/randalmurphal/supportflow/retrieval"
	"github.com/randalmurphal/supportflow/server"
)

var (
	serveAddr     string
	serveNoWatch  bool
	serveShutdown time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from listen_addr)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload the knowledge base when its files change")
	serveCmd.Flags().DurationVar(&serveShutdown, "shutdown-timeout", 30*time.Second, "Time allowed for in-flight runs on shutdown")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the ticket API, health check and Prometheus metrics.

When jwt_secret is set every /api/v1 route requires a bearer token; issue
one with "supportflow token".

Examples:
  supportflow serve --addr :8080

  curl -X POST localhost:8080/api/v1/tickets \
    -H 'Content-Type: application/json' \
    -d '{"subject":"Refund request","description":"I was charged twice"}'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			cfg := server.Config{
				Addr:     settings.ListenAddr,
				Gatherer: a.registry,
				Logger:   logger,
			}
			if serveAddr != "" {
				cfg.Addr = serveAddr
			}
			if settings.JWTSecret != "" {
				cfg.Auth = &auth.JWTConfig{Secret: []byte(settings.JWTSecret), Issuer: settings.JWTIssuer}
			} else {
				logger.Warn("jwt_secret is not set, the API is unauthenticated")
			}

			srv, err := server.New(a.orch, cfg)
			if err != nil {
				return err
			}

			if !serveNoWatch {
				go watchKnowledgeBase(ctx, a.kb)
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serveShutdown)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	},
}

func watchKnowledgeBase(ctx context.Context, kb *retrieval.KnowledgeBase) {
	err := kb.Watch(ctx)
	switch {
	case errors.Is(err, retrieval.ErrNoDirectory):
		logger.Info("knowledge base uses built-in samples, not watching")
	case err != nil:
		logger.Warn("knowledge base watch stopped", "error", err)
	}
}
