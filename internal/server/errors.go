package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/resume-importer/internal/importer"
)

// ErrSessionNotFound indicates no live or stored session has the requested ID.
type ErrSessionNotFound struct {
	ID string
}

func (e *ErrSessionNotFound) Error() string {
	return "import session not found: " + e.ID
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return "validation error: " + e.Field + " - " + e.Message
}

var kindStatus = map[importer.Kind]int{
	importer.KindUnsupportedFormat:       http.StatusUnsupportedMediaType,
	importer.KindCorruptFile:             http.StatusUnprocessableEntity,
	importer.KindPasswordProtected:       http.StatusUnprocessableEntity,
	importer.KindEmptyOrInsufficientText: http.StatusUnprocessableEntity,
	importer.KindSchemaViolation:         http.StatusBadGateway,
	importer.KindServiceRateLimited:      http.StatusTooManyRequests,
	importer.KindServicePaymentRequired:  http.StatusPaymentRequired,
	importer.KindServiceUnavailable:      http.StatusServiceUnavailable,
	importer.KindSessionCancelled:        http.StatusConflict,
	importer.KindInvalidDraft:            http.StatusUnprocessableEntity,
	importer.KindApplyFailed:             http.StatusInternalServerError,
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		importErr  *importer.Error
		notFound   *ErrSessionNotFound
		validation *ErrValidation
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.Is(err, importer.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, importer.ErrNoApplier):
		return http.StatusNotImplemented
	case errors.As(err, &importErr):
		if status, ok := kindStatus[importErr.Kind]; ok {
			return status
		}
		return http.StatusInternalServerError
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
