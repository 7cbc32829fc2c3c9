package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// statusFor maps a domain error onto an HTTP status
func statusFor(err error) int {
	var (
		insufficient *resources.ErrInsufficientResources
		negative     *resources.ErrNegativeAmount
		invalid      *construction.ErrInvalidTaskTransition
		duplicate    *player.ErrDuplicateUser
		validation   validator.ValidationErrors
	)
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &insufficient):
		return http.StatusBadRequest
	case errors.As(err, &invalid):
		return http.StatusConflict
	case errors.As(err, &duplicate):
		return http.StatusBadRequest
	case errors.As(err, &negative), errors.As(err, &validation), shared.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()

	var validation validator.ValidationErrors
	if errors.As(err, &validation) {
		message = formatValidation(validation)
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zapRequest(r, err)...)
		message = "internal server error"
	}

	writeError(w, status, message)
}

func formatValidation(errs validator.ValidationErrors) string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be an email", field))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must not be less than %s", field, e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", field, e.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    msg,
	})
}
