package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format is the detected document format of an upload.
type Format string

const (
	FormatPDF         Format = "pdf"
	FormatDOCX        Format = "docx"
	FormatUnsupported Format = "unsupported"
)

const pdfMIME = "application/pdf"

// UploadedFile is one upload attempt. It is held in memory only and never persisted.
type UploadedFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ReadFile loads an UploadedFile from disk.
func ReadFile(path string) (UploadedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return UploadedFile{}, fmt.Errorf("file not found: %w", err)
		}
		return UploadedFile{}, fmt.Errorf("failed to read file: %w", err)
	}
	return UploadedFile{
		Name:     filepath.Base(path),
		MIMEType: mimetype.Detect(data).String(),
		Data:     data,
	}, nil
}

// SniffFormat decides the format from the declared name and checks that the leading
// bytes agree with it. A .docx must start with the ZIP signature "PK"; a .pdf must
// carry the PDF magic header.
func SniffFormat(name string, data []byte) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var format Format
	switch ext {
	case ".pdf":
		format = FormatPDF
	case ".docx":
		format = FormatDOCX
	default:
		return FormatUnsupported, &UnsupportedFormatError{Name: name, Extension: ext}
	}

	if len(data) == 0 {
		return format, &CorruptFileError{Message: "corrupt or renamed file: empty upload"}
	}

	switch format {
	case FormatDOCX:
		if len(data) < 2 || data[0] != 'P' || data[1] != 'K' {
			return format, &CorruptFileError{Message: "corrupt or renamed file: missing ZIP signature"}
		}
	case FormatPDF:
		if !mimetype.Detect(data).Is(pdfMIME) {
			return format, &CorruptFileError{Message: "corrupt or renamed file: missing PDF header"}
		}
	}
	return format, nil
}
