package gateway

import (
	"net/http"
)

// HealthResponse is the JSON response for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"` // "ok" or "degraded"
	Model  string `json:"model,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /healthz.
// Returns 200 once an assistant is bound, 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.assistant == nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{
			Status: "ok",
			Model:  g.assistant.Status().Model,
		})
	}
}
