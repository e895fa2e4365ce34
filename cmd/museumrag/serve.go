package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/museumrag/internal/metrics"
	chiTransport "github.com/kailas-cloud/museumrag/internal/transport/chi"
	"github.com/kailas-cloud/museumrag/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question page and the JSON API",
	Long: `Start the HTTP server.

With the in-memory index the corpus is embedded on every start. Persistent
indexes are only populated when index.seed_on_start is set; existing records
are overwritten, never dropped. Without an OpenAI key the server still starts
and every page and API request reports the missing credential.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	logger.Info("Starting museumrag server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", a.cfg.HTTP.Port),
		zap.String("index_backend", a.cfg.Index.Backend),
		zap.String("embedding_mode", a.cfg.Index.EmbeddingMode),
		zap.Int("documents", len(a.docs)),
	)

	if a.credErr != nil {
		logger.Warn("OpenAI credential missing, requests will be rejected", zap.Error(a.credErr))
	} else if a.cfg.EphemeralIndex() || a.cfg.Index.SeedOnStart {
		// Population completes before the listener opens.
		if _, err := a.population().Populate(ctx, a.docs); err != nil {
			return fmt.Errorf("populate index: %w", err)
		}
	}

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(a),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// newRouter wires middleware and handlers.
func newRouter(a *app) http.Handler {
	// Nil interface, not a typed nil *raguc.Service.
	var answerer chiTransport.Answerer
	if rag := a.rag(); rag != nil {
		answerer = rag
	}
	server := chiTransport.NewServer(answerer, a.docs, a.health(), a.logger)
	if answerer == nil {
		server.WithConfigError(a.credErr)
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(a.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(a.logger))
	r.Use(metrics.Middleware())
	server.Register(r, chiTransport.BearerAuthMiddleware(a.cfg.Auth.APIKeys))
	return r
}
