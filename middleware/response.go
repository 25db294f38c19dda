package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError writes the API envelope with isSuccess false.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"isSuccess": false,
		"data":      nil,
		"message":   message,
	})
}
