package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/tabbas97/hf-codecomplete-server/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeAborted writes the fixed client-disconnect payload. The body shape is
// part of the wire contract and deliberately carries no code field.
func writeAborted(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.AbortedResponse{Error: "Request aborted"})
}
