// Package api provides the REST handlers for exercises and sessions.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// splitPath trims prefix from path and returns the resource ID and the
// remaining sub-resource, e.g. "/api/sessions/abc/events" gives
// ("abc", "events").
func splitPath(path, prefix string) (id, sub string) {
	path = strings.Trim(strings.TrimPrefix(path, prefix), "/")
	id, sub, _ = strings.Cut(path, "/")
	return id, sub
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
