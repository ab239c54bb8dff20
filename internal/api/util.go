package api

import (
	"encoding/json"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	// Payment redirect URLs are embedded in responses, so don't escape
	// &, < and > inside JSON strings.
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(data)
}

// ParseJSON decodes the request body, rejecting unknown fields.
func ParseJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
