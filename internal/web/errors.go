package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ludexcms/ludex/internal/core"
	"github.com/ludexcms/ludex/internal/logging"
)

// errorResponse is the JSON body for failed requests.
type errorResponse struct {
	Error core.UserMessage `json:"error"`
}

// writeErr maps err to a user-facing message and writes it with the
// given status. The technical error is logged server-side only.
func writeErr(w http.ResponseWriter, r *http.Request, status int, err error) {
	logging.FromContext(r.Context()).Warn("request failed",
		"status", status,
		"path", r.URL.Path,
		"error", err,
	)

	respondError(w, r, status, core.MapError(err))
}

// respondError writes an already-mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, status int, msg core.UserMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: msg}); err != nil {
		logging.FromContext(r.Context()).Error("encode error response", "error", err)
	}
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent, nothing to do but log.
		slog.Error("encode json response", "error", err)
	}
}
