package extraction

import (
	"fmt"

	"github.com/jonathan/resume-importer/internal/schemas"
)

// ServiceErrorKind names why the extraction service could not produce a draft.
type ServiceErrorKind string

const (
	KindRateLimited        ServiceErrorKind = "rate_limited"
	KindPaymentRequired    ServiceErrorKind = "payment_required"
	KindInvalidResponse    ServiceErrorKind = "invalid_response"
	KindServiceUnavailable ServiceErrorKind = "service_unavailable"
)

// ServiceError is the failure variant of an extraction call.
type ServiceError struct {
	Kind    ServiceErrorKind
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("extraction service %s", e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// SchemaViolationError is returned when the service output is JSON but does not
// conform to the draft schema.
type SchemaViolationError struct {
	Validation *schemas.ValidationError
	// Raw is the offending output, kept for diagnostics.
	Raw string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("service output violates the draft schema: %v", e.Validation)
}

func (e *SchemaViolationError) Unwrap() error {
	return e.Validation
}
