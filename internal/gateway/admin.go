package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/flemzord/mategen/internal/core"
	"github.com/flemzord/mategen/internal/provider"
	"github.com/flemzord/mategen/internal/security"
)

// messageJSON is a serializable history entry.
type messageJSON struct {
	Role       string `json:"role"`
	Content    string `json:"content,omitempty"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolCall   string `json:"tool_call,omitempty"`
}

func toMessageJSON(m provider.Message) messageJSON {
	out := messageJSON{
		Role:       string(m.Role),
		Content:    m.Content,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}
	if m.ToolCall != nil {
		out.ToolCall = m.ToolCall.Name
	}
	return out
}

// handleGetHistory returns the conversation history as JSON.
func (g *Gateway) handleGetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.assistant == nil {
			http.Error(w, "assistant not available", http.StatusServiceUnavailable)
			return
		}
		msgs := g.assistant.Transcript()
		out := make([]messageJSON, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, toMessageJSON(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleResetHistory clears the conversation history.
func (g *Gateway) handleResetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.assistant == nil {
			http.Error(w, "assistant not available", http.StatusServiceUnavailable)
			return
		}
		if err := g.assistant.Reset(r.Context()); err != nil {
			g.logger.Error("history reset failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		meta := requestMetadata(r)
		meta["principal"] = principalFrom(r.Context())
		g.audit.Log(security.AuditEvent{
			Type:     security.EventHistoryReset,
			Detail:   "admin api",
			Metadata: meta,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleListTools lists the tools registered with the assistant.
func (g *Gateway) handleListTools() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		tools := []string{}
		if g.assistant != nil {
			if st := g.assistant.Status(); st.Tools != nil {
				tools = st.Tools
			}
		}
		writeJSON(w, http.StatusOK, tools)
	}
}

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// handleListModules lists all compiled modules.
func (g *Gateway) handleListModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Name:      m.ID.Name(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
