// Package shared holds the JSON helpers common to all handlers.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "parite/pkg/domain-errors"
)

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Plain
// errors render as an opaque 500 so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, dErrors.ToHTTPStatus(dErrors.CodeOf(err)), map[string]string{
		"error": dErrors.MessageOf(err),
	})
}

// Decode reads the request body as JSON into a generic document.
func Decode(r *http.Request) (map[string]any, error) {
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "corps de requête JSON invalide")
	}
	return doc, nil
}
