package server

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/wedstudio/pagefeed/pkg/logger"
)

// respondJSON writes v as a JSON body with the given status.
func respondJSON(w http.ResponseWriter, log logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(v)
	if err != nil {
		log.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Error("Failed to write JSON response", "error", err)
	}
}
