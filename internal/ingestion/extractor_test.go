package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDOCX struct {
	calls int
}

func (c *countingDOCX) Extract(ctx context.Context, data []byte) (*ExtractedText, error) {
	c.calls++
	return &ExtractedText{Text: "docx", Metadata: NewMetadata(FormatDOCX, "docx")}, nil
}

type countingPDF struct {
	calls int
}

func (c *countingPDF) Extract(ctx context.Context, data []byte, onPage ProgressFunc) (*ExtractedText, error) {
	c.calls++
	if onPage != nil {
		onPage(PageProgress{CurrentPage: 1, TotalPages: 1})
	}
	return &ExtractedText{Text: "pdf", Metadata: NewMetadata(FormatPDF, "pdf")}, nil
}

func TestExtractor_RenamedTextAsDOCXNeverReachesExtractor(t *testing.T) {
	docx := &countingDOCX{}
	extractor := NewExtractor(&countingPDF{}, docx)

	_, err := extractor.Extract(context.Background(), UploadedFile{Name: "resume.docx", Data: []byte("Jean Dupont\nDéveloppeur")}, nil)

	var corrupt *CorruptFileError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, 0, docx.calls)
}

func TestExtractor_Dispatch(t *testing.T) {
	pdf := &countingPDF{}
	docx := &countingDOCX{}
	extractor := NewExtractor(pdf, docx)

	out, err := extractor.Extract(context.Background(), UploadedFile{Name: "a.pdf", Data: buildTestPDF(t, "x")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "pdf", out.Text)
	assert.Equal(t, "a.pdf", out.Metadata.SourceName)

	out, err = extractor.Extract(context.Background(), UploadedFile{Name: "b.docx", Data: buildTestDOCX(t, "")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "docx", out.Text)

	assert.Equal(t, 1, pdf.calls)
	assert.Equal(t, 1, docx.calls)
}

func TestExtractor_UnsupportedFormat(t *testing.T) {
	_, err := NewExtractor(nil, nil).Extract(context.Background(), UploadedFile{Name: "cv.odt", Data: []byte("PK")}, nil)

	var unsupported *UnsupportedFormatError
	assert.ErrorAs(t, err, &unsupported)
}

func TestExtractor_DefaultDOCX(t *testing.T) {
	data := buildTestDOCX(t, `<w:p><w:r><w:t>Jean Dupont</w:t></w:r></w:p>`)

	out, err := NewExtractor(nil, nil).Extract(context.Background(), UploadedFile{Name: "cv.docx", Data: data}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Jean Dupont", out.Text)
}
