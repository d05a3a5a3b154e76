package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-importer/internal/extraction"
	"github.com/jonathan/resume-importer/internal/ingestion"
	"github.com/jonathan/resume-importer/internal/types"
)

// Kind classifies an import failure.
type Kind string

const (
	KindUnsupportedFormat       Kind = "unsupported_format"
	KindCorruptFile             Kind = "corrupt_file"
	KindPasswordProtected       Kind = "password_protected"
	KindEmptyOrInsufficientText Kind = "empty_or_insufficient_text"
	KindSchemaViolation         Kind = "schema_violation"
	KindServiceRateLimited      Kind = "service_rate_limited"
	KindServicePaymentRequired  Kind = "service_payment_required"
	KindServiceUnavailable      Kind = "service_unavailable"
	KindSessionCancelled        Kind = "session_cancelled"
	KindInvalidDraft            Kind = "invalid_draft"
	KindApplyFailed             Kind = "apply_failed"
)

// Recovery is the action a caller should offer after a failure.
type Recovery string

const (
	RecoveryReupload Recovery = "reupload"
	RecoveryRetry    Recovery = "retry"
	RecoveryPay      Recovery = "pay"
	RecoveryEdit     Recovery = "edit"
	RecoveryNone     Recovery = "none"
)

// Recovery returns the action that can get past a failure of kind k.
func (k Kind) Recovery() Recovery {
	switch k {
	case KindUnsupportedFormat, KindCorruptFile, KindPasswordProtected, KindEmptyOrInsufficientText:
		return RecoveryReupload
	case KindSchemaViolation, KindServiceRateLimited, KindServiceUnavailable, KindApplyFailed:
		return RecoveryRetry
	case KindServicePaymentRequired:
		return RecoveryPay
	case KindInvalidDraft:
		return RecoveryEdit
	default:
		return RecoveryNone
	}
}

var kindMessages = map[Kind]string{
	KindUnsupportedFormat:       "only PDF and DOCX files can be imported",
	KindCorruptFile:             "the file is damaged or is not what its name says",
	KindPasswordProtected:       "the PDF is password protected",
	KindEmptyOrInsufficientText: "no usable text could be read from the file",
	KindSchemaViolation:         "the extraction service returned a draft that does not match the résumé schema",
	KindServiceRateLimited:      "the extraction service is rate limiting requests",
	KindServicePaymentRequired:  "the extraction service requires payment",
	KindServiceUnavailable:      "the extraction service is unavailable",
	KindSessionCancelled:        "the import was cancelled",
	KindInvalidDraft:            "the edited draft is invalid",
	KindApplyFailed:             "the draft could not be applied",
}

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("operation not allowed in current session state")
	// ErrNotReadyForReview is returned by Apply before a draft is available.
	ErrNotReadyForReview = fmt.Errorf("%w: session is not ready for review", ErrInvalidTransition)
	// ErrNoApplier is returned by Apply when the session has nowhere to apply drafts.
	ErrNoApplier = errors.New("no applier configured")
)

// Error is a classified import failure recorded on a Session.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	Cause   error
}

func newError(stage Stage, kind Kind, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Message: kindMessages[kind], Cause: cause}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (%s stage)", e.Message, e.Stage)
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Recovery returns e.Kind.Recovery().
func (e *Error) Recovery() Recovery {
	return e.Kind.Recovery()
}

// MarshalJSON renders the failure for API clients without the Go cause chain.
func (e *Error) MarshalJSON() ([]byte, error) {
	detail := ""
	if e.Cause != nil {
		detail = e.Cause.Error()
	}
	return json.Marshal(struct {
		Kind     Kind     `json:"kind"`
		Stage    Stage    `json:"stage"`
		Message  string   `json:"message"`
		Detail   string   `json:"detail,omitempty"`
		Recovery Recovery `json:"recovery"`
	}{e.Kind, e.Stage, e.Message, detail, e.Kind.Recovery()})
}

// Classify maps an error from any pipeline stage to its Kind.
// Unrecognized errors default to KindServiceUnavailable.
func Classify(err error) Kind {
	kind, ok := classify(err)
	if !ok {
		return KindServiceUnavailable
	}
	return kind
}

func classify(err error) (Kind, bool) {
	var (
		importErr   *Error
		unsupported *ingestion.UnsupportedFormatError
		corrupt     *ingestion.CorruptFileError
		short       *ingestion.InsufficientTextError
		violation   *extraction.SchemaViolationError
		serviceErr  *extraction.ServiceError
		duplicate   *types.DuplicateIDError
		invalid     validator.ValidationErrors
	)

	switch {
	case err == nil:
		return "", false
	case errors.As(err, &importErr):
		return importErr.Kind, true
	case errors.Is(err, context.Canceled):
		return KindSessionCancelled, true
	case errors.As(err, &unsupported):
		return KindUnsupportedFormat, true
	case errors.Is(err, ingestion.ErrEncryptedPDF):
		return KindPasswordProtected, true
	case errors.As(err, &corrupt), errors.Is(err, ingestion.ErrInvalidPDF):
		return KindCorruptFile, true
	case errors.As(err, &short), errors.Is(err, ingestion.ErrNoTextLayer):
		return KindEmptyOrInsufficientText, true
	case errors.As(err, &violation):
		return KindSchemaViolation, true
	case errors.As(err, &serviceErr):
		switch serviceErr.Kind {
		case extraction.KindRateLimited:
			return KindServiceRateLimited, true
		case extraction.KindPaymentRequired:
			return KindServicePaymentRequired, true
		case extraction.KindInvalidResponse:
			return KindSchemaViolation, true
		default:
			return KindServiceUnavailable, true
		}
	case errors.As(err, &duplicate), errors.As(err, &invalid):
		return KindInvalidDraft, true
	case errors.Is(err, context.DeadlineExceeded):
		return KindServiceUnavailable, true
	}
	return "", false
}

// classifyAt classifies err raised during stage. Unrecognized errors take the
// stage's default: an unreadable file, an unavailable service or a failed apply.
func classifyAt(stage Stage, err error) *Error {
	kind, ok := classify(err)
	if !ok || (stage == StageApply && kind != KindSessionCancelled) {
		switch stage {
		case StageText:
			kind = KindCorruptFile
		case StageApply:
			kind = KindApplyFailed
		default:
			kind = KindServiceUnavailable
		}
	}
	return newError(stage, kind, err)
}

// Wrap classifies err raised during stage into an *Error.
func Wrap(stage Stage, err error) *Error {
	return classifyAt(stage, err)
}
