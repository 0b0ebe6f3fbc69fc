package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FACorreiaa/smart-finance-import/pkg/metrics"
	"github.com/FACorreiaa/smart-finance-import/pkg/middleware"
)

// newRouter mounts the API routes behind the middleware chain.
func newRouter(d *Dependencies) http.Handler {
	mux := http.NewServeMux()
	d.ImportHandler.Register(mux)

	if d.DB != nil {
		mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.DB.Health(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
	}

	srv := d.Config.Server
	return middleware.Chain(mux,
		middleware.Recovery(d.Logger),
		middleware.RequestID,
		middleware.Logger(d.Logger),
		middleware.CORS(srv.CORSAllowedOrigins),
		middleware.RateLimit(srv.RateLimitPerSecond, srv.RateLimitBurst),
	)
}

// serve runs the API server, and the metrics server when enabled, until ctx is done.
func serve(ctx context.Context, d *Dependencies) error {
	cfg := d.Config

	// No WriteTimeout: a request may wait on several model batches.
	api := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           newRouter(d),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	servers := []*http.Server{api}
	if cfg.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *http.Server) {
			d.Logger.Info("http server listening", slog.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", s.Addr, err)
			}
		}(s)
	}

	if d.Scheduler != nil {
		if err := d.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		// Catch up on pruning missed while the server was down.
		d.Scheduler.RunNow()
	}

	var runErr error
	select {
	case <-ctx.Done():
		d.Logger.Info("shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			d.Logger.Error("server forced to shutdown", slog.String("addr", s.Addr), slog.Any("error", err))
		}
	}
	return runErr
}
