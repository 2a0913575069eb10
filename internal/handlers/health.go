package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/myphotos/backend/internal/logging"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds with service health information. When DB is set the
// database is pinged and an unreachable database yields 503.
type HealthHandler struct {
	DB Pinger
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	payload := map[string]string{"status": "ok"}
	status := http.StatusOK

	if h.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()

		payload["database"] = "ok"
		if err := h.DB.Ping(pingCtx); err != nil {
			logging.FromContext(ctx).Error("health check database ping failed", "error", err)
			payload["status"] = "degraded"
			payload["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	respondJSON(ctx, w, status, payload)
}
