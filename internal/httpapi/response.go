package httpapi

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type webhookResponse struct {
	OK         bool    `json:"ok"`
	Idempotent bool    `json:"idempotent,omitempty"`
	Status     string  `json:"status"`
	RawStatus  *string `json:"raw_status,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, ErrorResponse{Error: err.Error()})
}

func respondWebhookError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, webhookResponse{OK: false, Status: code, Error: msg})
}
