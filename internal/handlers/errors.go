package handlers

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/httpx"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/services"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/validation"
)

// writeError maps service errors onto the API error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := validation.As(err); ok {
		httpx.JSONError(w, http.StatusBadRequest, "Validation failed", v)
		return
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "Not found", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.JSONError(w, http.StatusUnauthorized, "Invalid credentials", nil)
	default:
		log.WithError(err).WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Error("request failed")
		httpx.JSONError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// decode reads a JSON body, answering 400 itself when it cannot.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}
	return true
}

type deleted struct {
	Success bool `json:"success"`
}
