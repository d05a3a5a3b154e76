package ingestion

import (
	"errors"
	"fmt"
)

// PDF decoding failures. They are wrapped with the decoder's own error text.
var (
	// ErrInvalidPDF is returned when the data is not a readable PDF stream.
	ErrInvalidPDF = errors.New("invalid PDF stream")
	// ErrEncryptedPDF is returned for password-protected documents.
	ErrEncryptedPDF = errors.New("PDF is password protected")
	// ErrNoTextLayer is returned when no page carries extractable text (scanned documents).
	ErrNoTextLayer = errors.New("PDF has no extractable text layer")
)

// UnsupportedFormatError is returned when the file extension is neither .pdf nor .docx.
type UnsupportedFormatError struct {
	Name      string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("unsupported file format: %q has no extension (accepted: .pdf, .docx)", e.Name)
	}
	return fmt.Sprintf("unsupported file format %q (accepted: .pdf, .docx)", e.Extension)
}

// CorruptFileError is returned when the content does not match its declared format
// or its internal structure cannot be read.
type CorruptFileError struct {
	Message string
	Cause   error
}

func (e *CorruptFileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CorruptFileError) Unwrap() error {
	return e.Cause
}

// InsufficientTextError is returned when the recovered text is too short to be a résumé.
type InsufficientTextError struct {
	Length int
	Min    int
}

func (e *InsufficientTextError) Error() string {
	if e.Length == 0 {
		return "no text could be recovered from the document"
	}
	return fmt.Sprintf("recovered text too short: %d characters (minimum %d)", e.Length, e.Min)
}
