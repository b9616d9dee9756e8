package gateway

import (
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime    time.Duration `json:"uptime_seconds"`
	Assistant *Status       `json:"assistant,omitempty"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime: time.Since(g.startedAt).Truncate(time.Second),
		}
		if g.assistant != nil {
			st := g.assistant.Status()
			resp.Assistant = &st
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
