package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/busreg/internal/core"
)

const healthCheckTimeout = 3 * time.Second

// HealthResponse reports dependency state and pipeline load.
type HealthResponse struct {
	Status      string             `json:"status"`
	Checks      map[string]string  `json:"checks"`
	Submissions int                `json:"active_submissions"`
	Limiter     core.LimiterStatus `json:"limiter"`
}

// handleHealth probes every dependency. Any failure returns 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:      "ok",
		Checks:      make(map[string]string, len(s.opts.Checks)),
		Submissions: s.service.ActiveSubmissions(),
		Limiter:     s.service.LimiterStatus(),
	}
	status := http.StatusOK
	for name, check := range s.opts.Checks {
		if err := check.Health(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}
