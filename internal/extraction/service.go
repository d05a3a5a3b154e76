// Package extraction turns raw résumé text into a schema-validated StructuredDraft.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/resume-importer/internal/llm"
	"github.com/jonathan/resume-importer/internal/schemas"
	"github.com/jonathan/resume-importer/internal/types"
	schemafiles "github.com/jonathan/resume-importer/schemas"
)

// Request is one extraction call: the résumé text and the JSON Schema the answer must meet.
type Request struct {
	Text   string
	Schema []byte
}

// NewRequest builds a Request against the embedded résumé draft schema.
func NewRequest(text string) Request {
	return Request{Text: text, Schema: schemafiles.ResumeDraft()}
}

// Service extracts a structured draft from résumé text.
// It returns either a draft that passed schema validation, a *ServiceError, or a
// *SchemaViolationError. It never returns partial results.
type Service interface {
	Extract(ctx context.Context, req Request) (*types.StructuredDraft, error)
}

// DecodeDraft validates raw service output against schema and decodes it.
// Markdown fences and surrounding chatter are stripped first.
func DecodeDraft(raw string, schema []byte) (*types.StructuredDraft, error) {
	cleaned := llm.CleanJSONBlock(raw)

	var err error
	if len(schema) == 0 {
		err = schemas.ValidateResumeDraft([]byte(cleaned))
	} else {
		err = schemas.ValidateJSONString(string(schema), cleaned)
	}
	if err != nil {
		var verr *schemas.ValidationError
		var derr *schemas.DocumentError
		switch {
		case errors.As(err, &verr):
			return nil, &SchemaViolationError{Validation: verr, Raw: cleaned}
		case errors.As(err, &derr):
			return nil, &ServiceError{Kind: KindInvalidResponse, Message: "output is not JSON", Cause: err}
		default:
			return nil, fmt.Errorf("failed to validate service output: %w", err)
		}
	}

	var draft types.StructuredDraft
	if err := json.Unmarshal([]byte(cleaned), &draft); err != nil {
		return nil, &ServiceError{Kind: KindInvalidResponse, Message: "output does not decode into a draft", Cause: err}
	}
	return &draft, nil
}
