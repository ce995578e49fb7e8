package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON shape of every error response:
// {"error": {"kind": "...", "message": "...", ...details}}
type ErrorBody struct {
	Error map[string]any `json:"error"`
}

func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// RespondError writes an error with a kind derived from the status.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondErrorKind(w, status, kindForStatus(status), message, nil)
}

// RespondErrorKind writes an error whose details are merged next to kind and message.
func RespondErrorKind(w http.ResponseWriter, status int, kind, message string, details map[string]any) {
	body := make(map[string]any, len(details)+2)
	for k, v := range details {
		body[k] = v
	}
	body["kind"] = kind
	body["message"] = message
	RespondJSON(w, status, ErrorBody{Error: body})
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}
