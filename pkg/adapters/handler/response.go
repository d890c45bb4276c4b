package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrLinkNotFound), errors.Is(err, domain.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrShortcodeTaken), errors.Is(err, domain.ErrSlugTaken):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidLink),
		errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidDimension),
		errors.Is(err, domain.ErrInvalidFormat):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError hides internal error text behind a generic message.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// httpError is the plain-text variant used by the link and collection routes.
func httpError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	http.Error(w, msg, status)
}
