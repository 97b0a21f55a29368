package http

import (
	"log/slog"
	"net/http"

	"github.com/tuanvumaihuynh/event-pos/internal/storage/db"
)

type healthHandler struct {
	svc    *Service
	health db.HealthChecker
}

func newHealthHandler(svc *Service, health db.HealthChecker) *healthHandler {
	return &healthHandler{svc: svc, health: health}
}

func (h *healthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		h.svc.writeJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	ok, err := h.health.IsHealthy(r.Context())
	if err != nil || !ok {
		h.svc.logger.WarnContext(r.Context(), "storage is unhealthy", slog.Any("error", err))
		h.svc.writeJSON(w, r, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}

	h.svc.writeJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}
