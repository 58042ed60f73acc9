package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/irgordon/ak/api/internal/api/handlers"
	"github.com/irgordon/ak/api/internal/api/middleware"
	"github.com/irgordon/ak/api/internal/api/router"
	"github.com/irgordon/ak/api/internal/telemetry"
	"github.com/irgordon/ak/api/internal/workers"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for the web interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	logger.Info("🚀 Booting ak vault API...",
		slog.String("config_dir", a.cfg.ConfigDir),
		slog.String("backend", a.enc.Name()),
		slog.Bool("encryption_available", a.enc.Available()),
	)

	// --- 1. Storage ---
	if err := a.store.EnsureDefaultProfile(ctx); err != nil {
		return err
	}

	// 🛡️ In-memory event bus for the web interface
	hub := telemetry.NewHub()
	vault := a.vault(hub)

	// --- 2. Background Workers ---
	// Request contexts derive from workerCtx so open event streams end
	// before Shutdown waits on them.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	if a.cfg.ReconcileInterval > 0 {
		go workers.NewReconciler(a.store, logger, a.cfg.ReconcileInterval).Start(workerCtx)
	}

	// --- 3. HTTP Gateway ---
	mux := router.NewRouter(router.RouterConfig{
		AllowedOrigins: a.cfg.AllowedOrigins,
		ProfileHandler: handlers.NewProfileHandler(vault),
		KeyHandler:     handlers.NewKeyHandler(vault),
		HealthHandler:  handlers.NewHealthHandler(a.cfg, a.enc),
		EventsHandler:  handlers.NewEventsHandler(hub, logger),
		RateLimiter:    middleware.NewRateLimiter(workerCtx, 20, 40),
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return workerCtx },
	}

	// --- 4. Graceful Exit ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("🌐 ak API active", slog.String("port", a.cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error("CRITICAL: Server crashed", slog.Any("error", err))
		return err
	case <-ctx.Done():
	}

	logger.Info("🛑 Shutting down...")
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("ERROR: Forced shutdown", slog.Any("error", err))
		return err
	}
	logger.Info("✅ ak API stopped")
	return nil
}
