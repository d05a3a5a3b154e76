package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind classifies a failed provider call by what the caller can do about it.
type ErrorKind string

const (
	// KindRateLimited means the provider throttled the request; retry later.
	KindRateLimited ErrorKind = "rate_limited"
	// KindPaymentRequired means the account has no credit or billing is disabled.
	KindPaymentRequired ErrorKind = "payment_required"
	// KindUnavailable means the provider could not be reached or failed internally.
	KindUnavailable ErrorKind = "unavailable"
	// KindInvalidResponse means the provider answered but the answer was unusable.
	KindInvalidResponse ErrorKind = "invalid_response"
	// KindRequest means the provider rejected the request itself (bad key, bad model).
	KindRequest ErrorKind = "request"
)

// APIError is returned by every Client for failed provider calls.
type APIError struct {
	Kind       ErrorKind
	Provider   Provider
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s error", e.Provider, e.Kind)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// classifyHTTPStatus maps an HTTP status and error body to an ErrorKind.
// OpenAI reports exhausted credit as 429 with code "insufficient_quota".
func classifyHTTPStatus(code int, body string) ErrorKind {
	lower := strings.ToLower(body)
	switch {
	case code == http.StatusPaymentRequired:
		return KindPaymentRequired
	case code == http.StatusTooManyRequests:
		if strings.Contains(lower, "insufficient_quota") || strings.Contains(lower, "billing") {
			return KindPaymentRequired
		}
		return KindRateLimited
	case code == http.StatusForbidden && strings.Contains(lower, "billing"):
		return KindPaymentRequired
	case code == http.StatusRequestTimeout || code >= 500:
		return KindUnavailable
	default:
		return KindRequest
	}
}

// classifyGRPCCode maps a gRPC status to an ErrorKind.
func classifyGRPCCode(code codes.Code, message string) ErrorKind {
	billing := strings.Contains(strings.ToLower(message), "billing")
	switch code {
	case codes.ResourceExhausted:
		if billing {
			return KindPaymentRequired
		}
		return KindRateLimited
	case codes.FailedPrecondition, codes.PermissionDenied:
		if billing {
			return KindPaymentRequired
		}
		return KindRequest
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Unknown, codes.Aborted:
		return KindUnavailable
	default:
		return KindRequest
	}
}

// classifyGoogleError wraps an error from the Gemini SDK into an *APIError.
func classifyGoogleError(err error) *APIError {
	var existing *APIError
	if errors.As(err, &existing) {
		return existing
	}
	out := &APIError{Provider: ProviderGemini, Cause: err}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		if code := apiErr.HTTPCode(); code > 0 {
			out.StatusCode = code
			out.Kind = classifyHTTPStatus(code, apiErr.Error()+" "+apiErr.Reason())
			return out
		}
		if st := apiErr.GRPCStatus(); st != nil {
			out.Kind = classifyGRPCCode(st.Code(), st.Message()+" "+apiErr.Reason())
			return out
		}
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		out.StatusCode = gErr.Code
		out.Kind = classifyHTTPStatus(gErr.Code, gErr.Message+" "+string(gErr.Body))
		return out
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK {
		out.Kind = classifyGRPCCode(st.Code(), st.Message())
		return out
	}

	out.Kind = classifyTransportError(err)
	return out
}

// classifyTransportError handles failures that never produced a provider status.
func classifyTransportError(err error) ErrorKind {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindUnavailable
	case errors.As(err, &netErr):
		return KindUnavailable
	default:
		return KindRequest
	}
}
