package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"marketplace/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// ReadJSON decodes exactly one JSON object into dst and rejects unknown
// fields.
func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", domain.ErrInvalidInput)
	}
	return nil
}

// StatusFor maps a domain error to its HTTP status and the message shown to
// the client. Unknown errors become a bare 500.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusBadRequest, "invalid signature"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidResource):
		return http.StatusBadRequest, "invalid resource"
	case errors.Is(err, domain.ErrFreeResource):
		return http.StatusBadRequest, "resource is free"
	case errors.Is(err, domain.ErrAlreadyOwned):
		return http.StatusConflict, "already owned"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid transition"
	case errors.Is(err, domain.ErrSellerUnavailable):
		return http.StatusUnprocessableEntity, "seller unavailable"
	case errors.Is(err, domain.ErrUpstreamFailure):
		return http.StatusBadGateway, "upstream failure"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func WriteDomainError(w http.ResponseWriter, err error) {
	status, message := StatusFor(err)
	WriteError(w, status, message)
}
