package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
)

// atoiDefault parses a positive integer, falling back to def otherwise.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps catalog errors onto HTTP status codes and answers with a
// JSON error payload.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrConflict), errors.Is(err, catalog.ErrForeignKey):
		status = http.StatusConflict
	case errors.Is(err, catalog.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrClassification):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
