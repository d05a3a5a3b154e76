// Package schemas provides JSON Schema validation for extraction service responses.
package schemas

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	schemafiles "github.com/jonathan/resume-importer/schemas"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// DocumentError is returned when the document under validation is not JSON at all.
type DocumentError struct {
	Cause error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document is not valid JSON: %v", e.Cause)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Fields returns the offending field paths in report order.
func (ve *ValidationError) Fields() []string {
	fields := make([]string, 0, len(ve.Errors))
	for _, e := range ve.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

var (
	resumeDraftOnce   sync.Once
	resumeDraftSchema *gojsonschema.Schema
	resumeDraftErr    error
)

// compiledResumeDraft compiles the embedded résumé draft schema once per process.
// A compiled gojsonschema.Schema is read-only and safe to share between sessions.
func compiledResumeDraft() (*gojsonschema.Schema, error) {
	resumeDraftOnce.Do(func() {
		loader := gojsonschema.NewBytesLoader(schemafiles.ResumeDraft())
		resumeDraftSchema, resumeDraftErr = gojsonschema.NewSchema(loader)
		if resumeDraftErr != nil {
			resumeDraftErr = &SchemaLoadError{
				Path:    schemafiles.ResumeDraftFile,
				Message: "schema compilation failed",
				Cause:   resumeDraftErr,
			}
		}
	})
	return resumeDraftSchema, resumeDraftErr
}

// ValidateResumeDraft validates raw JSON against the embedded résumé draft schema.
func ValidateResumeDraft(data []byte) error {
	schema, err := compiledResumeDraft()
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		var v any
		return &DocumentError{Cause: json.Unmarshal(data, &v)}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &DocumentError{Cause: err}
	}
	return toValidationError(result)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	if !json.Valid([]byte(jsonContent)) {
		var v any
		return &DocumentError{Cause: json.Unmarshal([]byte(jsonContent), &v)}
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return toValidationError(result)
}

// toValidationError converts a gojsonschema result into a *ValidationError, or nil when valid.
func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := fieldPath(desc)
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}

// fieldPath names the offending field. For "required" errors gojsonschema reports the
// parent object, so the missing property is appended.
func fieldPath(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if field == "" {
		field = "(root)"
	}
	if desc.Type() != "required" {
		return field
	}
	prop, ok := desc.Details()["property"].(string)
	if !ok || prop == "" {
		return field
	}
	if field == "(root)" {
		return prop
	}
	return field + "." + prop
}
