package handler

import "net/http"

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns service health status for load balancer probes.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
