package utils

import (
	"encoding/json"
	"net/http"
)

type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Error: message})
}

// WriteErrorDetails always includes the details list, even when empty.
func WriteErrorDetails(w http.ResponseWriter, status int, message string, details []string) {
	if details == nil {
		details = []string{}
	}
	WriteJSON(w, status, struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}{message, details})
}
