package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

const (
	docxBodyPath = "word/document.xml"
	// MaxDocumentXMLBytes caps the decompressed size of word/document.xml.
	MaxDocumentXMLBytes = 32 << 20
)

var (
	xmlTagRe = regexp.MustCompile(`<[^>]*>`)
	// Tab stop definitions inside <w:tabs> carry attributes and are not matched.
	docxTabRe   = regexp.MustCompile(`<w:tab\s*/>`)
	docxBreakRe = regexp.MustCompile(`<w:br(\s[^>]*)?/>`)

	xmlEntities = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&amp;", "&",
	)
)

// DOCXExtractor recovers paragraph text from the main body of a DOCX package.
// Tables, headers, footers and images are not represented.
type DOCXExtractor struct{}

// NewDOCXExtractor returns a DOCXExtractor.
func NewDOCXExtractor() *DOCXExtractor {
	return &DOCXExtractor{}
}

// Extract reads word/document.xml, turns paragraph ends and line breaks into newlines
// and tabs into tab characters, strips the remaining markup and decodes the five
// predefined XML entities.
func (e *DOCXExtractor) Extract(ctx context.Context, data []byte) (*ExtractedText, error) {
	start := time.Now()

	body, err := readDocumentXML(data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	xml := string(body)
	parts := strings.Count(xml, "</w:p>")

	xml = strings.ReplaceAll(xml, "</w:p>", "\n")
	xml = docxTabRe.ReplaceAllString(xml, "\t")
	xml = docxBreakRe.ReplaceAllString(xml, "\n")
	xml = xmlTagRe.ReplaceAllString(xml, "")
	text := strings.TrimSpace(xmlEntities.Replace(xml))

	meta := NewMetadata(FormatDOCX, text)
	meta.Parts = parts
	meta.Duration = time.Since(start)
	return &ExtractedText{Text: text, Metadata: meta}, nil
}

func readDocumentXML(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &CorruptFileError{Message: "unreadable DOCX structure", Cause: err}
	}

	for _, f := range zr.File {
		if f.Name != docxBodyPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &CorruptFileError{Message: "unreadable DOCX structure", Cause: err}
		}
		defer func() { _ = rc.Close() }()

		body, err := io.ReadAll(io.LimitReader(rc, MaxDocumentXMLBytes+1))
		if err != nil {
			return nil, &CorruptFileError{Message: "unreadable DOCX structure", Cause: err}
		}
		if len(body) > MaxDocumentXMLBytes {
			return nil, &CorruptFileError{
				Message: "unreadable DOCX structure",
				Cause:   fmt.Errorf("%s exceeds %d bytes", docxBodyPath, MaxDocumentXMLBytes),
			}
		}
		return body, nil
	}

	return nil, &CorruptFileError{
		Message: "unreadable DOCX structure",
		Cause:   fmt.Errorf("%s not found", docxBodyPath),
	}
}
