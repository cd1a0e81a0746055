package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/teamterraforge/tgmsauth/internal/common"
)

const internalErrorMessage = "An unexpected error occurred"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	Path             string            `json:"path"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, fields map[string]string) {
	writeJSON(w, status, ErrorResponse{
		Status:           status,
		Error:            http.StatusText(status),
		Message:          message,
		Path:             r.URL.Path,
		Timestamp:        time.Now().UTC(),
		ValidationErrors: fields,
	})
}

// statusFor maps service errors onto HTTP status codes. Unknown errors are
// internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidArgument),
		errors.Is(err, common.ErrPasswordMismatch),
		errors.Is(err, common.ErrNoOpChange),
		errors.Is(err, common.ErrInvalidOrExpiredToken):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrDuplicateEmail):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, r, status, internalErrorMessage, nil)
		return
	}
	writeError(w, r, status, err.Error(), nil)
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		writeError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	fields := make(map[string]string, len(verrs))
	for field, e := range verrs {
		fields[field] = e.Error()
	}
	writeError(w, r, http.StatusBadRequest, "Validation failed", fields)
}
