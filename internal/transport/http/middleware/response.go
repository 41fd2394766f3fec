package middleware

import (
	"encoding/json"
	"net/http"
)

// writeFailure writes the failure envelope used across the API.
func writeFailure(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "failure",
		"code":    code,
		"message": msg,
	})
}
