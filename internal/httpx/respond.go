package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/retailops/checkout-api/internal/shop"
)

// Response is the envelope every endpoint answers with: a success flag, a
// human-readable message and either the resulting data or an error detail.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondOK(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, Response{Success: true, Message: message, Data: data})
}

func respondErr(w http.ResponseWriter, message string, err error) {
	writeJSON(w, statusFor(err), Response{Success: false, Message: message, Error: err.Error()})
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
// Anything outside the taxonomy is an unexpected storage/infra failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shop.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shop.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shop.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shop.ErrUnavailable),
		errors.Is(err, shop.ErrInsufficientStock),
		errors.Is(err, shop.ErrEmptyCart),
		errors.Is(err, shop.ErrConflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
