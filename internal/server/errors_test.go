package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/resume-importer/internal/importer"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid transition", fmt.Errorf("%w: cannot regenerate", importer.ErrInvalidTransition), http.StatusConflict},
		{"not ready for review", importer.ErrNotReadyForReview, http.StatusConflict},
		{"no applier", importer.ErrNoApplier, http.StatusNotImplemented},
		{"unsupported format", &importer.Error{Kind: importer.KindUnsupportedFormat}, http.StatusUnsupportedMediaType},
		{"password protected", &importer.Error{Kind: importer.KindPasswordProtected}, http.StatusUnprocessableEntity},
		{"schema violation", &importer.Error{Kind: importer.KindSchemaViolation}, http.StatusBadGateway},
		{"payment required", &importer.Error{Kind: importer.KindServicePaymentRequired}, http.StatusPaymentRequired},
		{"service rate limited", &importer.Error{Kind: importer.KindServiceRateLimited}, http.StatusTooManyRequests},
		{"invalid draft", &importer.Error{Kind: importer.KindInvalidDraft}, http.StatusUnprocessableEntity},
		{"unknown kind", &importer.Error{Kind: "mystery"}, http.StatusInternalServerError},
		{"wrapped import error", fmt.Errorf("apply: %w", &importer.Error{Kind: importer.KindApplyFailed}), http.StatusInternalServerError},
		{"not found", &ErrSessionNotFound{ID: "x"}, http.StatusNotFound},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"validation", &ErrValidation{Field: "file", Message: "required"}, http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "import session not found: abc", (&ErrSessionNotFound{ID: "abc"}).Error())
	assert.Equal(t, "validation error: file - file is required", (&ErrValidation{Field: "file", Message: "file is required"}).Error())
}
