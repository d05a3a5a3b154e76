package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// PageProgress reports that page CurrentPage of TotalPages has been consumed.
type PageProgress struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

// ProgressFunc receives per-page progress. It may be nil.
type ProgressFunc func(PageProgress)

// PDFDecoder opens a PDF held in memory.
type PDFDecoder interface {
	Open(data []byte) (PDFDocument, error)
}

// PDFDocument gives lazy, one-page-at-a-time access to an opened PDF.
// Pages are numbered from 1.
type PDFDocument interface {
	NumPages() int
	PageText(n int) (string, error)
}

// LedongthucDecoder decodes PDFs with github.com/ledongthuc/pdf.
// It holds no state; each Open builds its own reader.
type LedongthucDecoder struct{}

// Open parses the cross-reference table and trailer of data.
func (LedongthucDecoder) Open(data []byte) (doc PDFDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: decoder panic: %v", ErrInvalidPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if isEncryptionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrEncryptedPDF, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return &ledongthucDocument{reader: reader}, nil
}

func isEncryptionError(err error) bool {
	if errors.Is(err, pdf.ErrInvalidPassword) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypt") || strings.Contains(msg, "password")
}

type ledongthucDocument struct {
	reader *pdf.Reader
}

func (d *ledongthucDocument) NumPages() int {
	return d.reader.NumPage()
}

func (d *ledongthucDocument) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page %d: decoder panic: %v", n, r)
		}
	}()

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// PDFExtractor recovers the text layer of a PDF page by page.
type PDFExtractor struct {
	decoder PDFDecoder
}

// NewPDFExtractor returns an extractor over decoder, or over LedongthucDecoder when nil.
func NewPDFExtractor(decoder PDFDecoder) *PDFExtractor {
	if decoder == nil {
		decoder = LedongthucDecoder{}
	}
	return &PDFExtractor{decoder: decoder}
}

// Extract returns the page texts joined by "\n" in page order. onPage is called once
// per page after it is consumed. ctx is checked before each page.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte, onPage ProgressFunc) (*ExtractedText, error) {
	start := time.Now()

	doc, err := e.decoder.Open(data)
	if err != nil {
		return nil, err
	}

	total := doc.NumPages()
	if total <= 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidPDF)
	}

	pages := make([]string, 0, total)
	skipped := 0
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := doc.PageText(n)
		if err != nil {
			skipped++
			text = ""
		}
		pages = append(pages, CleanText(text))

		if onPage != nil {
			onPage(PageProgress{CurrentPage: n, TotalPages: total})
		}
	}

	joined := strings.Join(pages, "\n")
	if strings.TrimSpace(joined) == "" {
		return nil, ErrNoTextLayer
	}

	meta := NewMetadata(FormatPDF, joined)
	meta.Pages = total
	meta.SkippedPages = skipped
	meta.Duration = time.Since(start)
	return &ExtractedText{Text: joined, Metadata: meta}, nil
}
