package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"verity/internal/platform/middleware"
)

// HealthChecker is implemented by infrastructure components main wires in.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig carries the cross-cutting dependencies for the route tree.
type RouterConfig struct {
	Logger    *slog.Logger
	Validator middleware.JWTValidator
	Health    map[string]HealthChecker
}

// NewRouter wires the public endpoints. The verification routes sit behind
// the full middleware chain including auth; health and metrics stay open.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Channel)
	r.Use(middleware.Logger(cfg.Logger))

	r.Get("/healthz", healthHandler(cfg.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(cfg.Validator, cfg.Logger))
		h.Register(r)
	})
	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			}
		}
		writeJSON(w, status, body)
	}
}
