package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewOpsRouter builds the operations router with metrics, health and readiness.
// mount lets callers add their own routes (cron triggers).
func NewOpsRouter(healthChecker *HealthChecker, mount func(r chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	if healthChecker != nil {
		r.Get("/health", healthChecker.HealthHandler())
		r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
			if healthChecker.Check(req.Context()).Status != "healthy" {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready"))
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
		})
	}

	if mount != nil {
		mount(r)
	}
	return r
}

// StartOpsServer starts the operations HTTP server in the background
func StartOpsServer(port string, handler http.Handler, logger *zap.Logger) *http.Server {
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Minute, // a manual sweep can take a while
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ops server error", zap.Error(err))
		}
	}()

	return server
}

// ShutdownOpsServer gracefully shuts down the ops server
func ShutdownOpsServer(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
