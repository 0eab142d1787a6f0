package common

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope every endpoint responds with.
type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// NewAPIResponse builds a success envelope; Success is derived from the code.
func NewAPIResponse(code int, data any, message string) APIResponse {
	return APIResponse{
		StatusCode: code,
		Data:       data,
		Message:    message,
		Success:    code < http.StatusBadRequest,
	}
}

// Respond writes data wrapped in the standard envelope.
func Respond(w http.ResponseWriter, code int, data any, message string) {
	WriteJSON(w, code, NewAPIResponse(code, data, message))
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
