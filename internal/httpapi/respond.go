package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Int("status", status).Msg("Failed to write JSON response")
	}
}

// httpError sends {"error": clientMsg, "details": details}. An empty details
// string is omitted from the body.
func httpError(w http.ResponseWriter, status int, clientMsg, details string) {
	respondJSON(w, status, errorBody{Error: clientMsg, Details: details})
}
