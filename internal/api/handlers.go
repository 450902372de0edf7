package api

import (
	"encoding/json"
	"io"
	"net/http"

	callflow "github.com/koscakluka/receptionist/core"
	"github.com/koscakluka/receptionist/core/telephony/telnyx"
)

// Handler serves the telephony webhook and health endpoints.
type Handler struct {
	Router *callflow.Router
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "AI receptionist is running"})
}

// Webhook consumes Telnyx call events. The response is always 200: internal
// failures are logged and folded into spoken fallbacks, never surfaced as
// webhook failure codes, so the provider does not start a retry storm.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		logger.Warn("failed to read webhook body", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	defer r.Body.Close()

	event, err := telnyx.ParseEvent(body)
	if err != nil {
		logger.Warn("unparseable webhook body", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if err := h.Router.HandleEvent(r.Context(), *event); err != nil {
		// Already logged with call context inside the router.
		writeJSON(w, http.StatusOK, map[string]string{"status": "error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
