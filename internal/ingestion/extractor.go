package ingestion

import (
	"context"
	"fmt"
)

// PageTextExtractor is the PDF half of an Extractor.
type PageTextExtractor interface {
	Extract(ctx context.Context, data []byte, onPage ProgressFunc) (*ExtractedText, error)
}

// DocumentTextExtractor is the DOCX half of an Extractor.
type DocumentTextExtractor interface {
	Extract(ctx context.Context, data []byte) (*ExtractedText, error)
}

// Extractor sniffs an upload and dispatches it to the matching format extractor.
type Extractor struct {
	pdf  PageTextExtractor
	docx DocumentTextExtractor
}

// NewExtractor builds an Extractor. Nil arguments select the default implementations.
func NewExtractor(pdfExtractor PageTextExtractor, docxExtractor DocumentTextExtractor) *Extractor {
	if pdfExtractor == nil {
		pdfExtractor = NewPDFExtractor(nil)
	}
	if docxExtractor == nil {
		docxExtractor = NewDOCXExtractor()
	}
	return &Extractor{pdf: pdfExtractor, docx: docxExtractor}
}

// Extract recovers the raw text of file. onPage only fires for PDFs.
func (e *Extractor) Extract(ctx context.Context, file UploadedFile, onPage ProgressFunc) (*ExtractedText, error) {
	format, err := SniffFormat(file.Name, file.Data)
	if err != nil {
		return nil, err
	}

	var out *ExtractedText
	switch format {
	case FormatPDF:
		out, err = e.pdf.Extract(ctx, file.Data, onPage)
	case FormatDOCX:
		out, err = e.docx.Extract(ctx, file.Data)
	default:
		return nil, fmt.Errorf("no extractor for format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if out.Metadata != nil {
		out.Metadata.SourceName = file.Name
	}
	return out, nil
}
