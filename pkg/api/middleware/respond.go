package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError answers with the same JSON error body the API handlers use
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error     string `json:"error"`
		Message   string `json:"message"`
		Code      int    `json:"code"`
		RequestID string `json:"request_id,omitempty"`
	}{http.StatusText(status), message, status, GetRequestID(r)})
}
