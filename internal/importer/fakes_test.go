package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-importer/internal/extraction"
	"github.com/jonathan/resume-importer/internal/ingestion"
	"github.com/jonathan/resume-importer/internal/types"
)

const longText = "Jean Dupont\nBackend Engineer\njean@example.fr\n\nSkills: Go (expert), PostgreSQL, Kubernetes - advanced\nLanguages: French (native), English - fluent"

// fakeText emits one progress callback per page and returns the joined pages.
type fakeText struct {
	mu     sync.Mutex
	calls  int
	pages  []string
	err    error
	onPage func(page int)
}

func (f *fakeText) Extract(ctx context.Context, file ingestion.UploadedFile, onPage ingestion.ProgressFunc) (*ingestion.ExtractedText, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var buf bytes.Buffer
	for i, p := range f.pages {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(p)
		if onPage != nil {
			onPage(ingestion.PageProgress{CurrentPage: i + 1, TotalPages: len(f.pages)})
		}
		if f.onPage != nil {
			f.onPage(i + 1)
		}
	}
	text := buf.String()
	return &ingestion.ExtractedText{Text: text, Metadata: ingestion.NewMetadata(ingestion.FormatPDF, text)}, nil
}

func (f *fakeText) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeService returns queued results in order, repeating the last one.
type fakeService struct {
	mu      sync.Mutex
	calls   int
	results []fakeResult
	block   chan struct{}
	texts   []string
}

type fakeResult struct {
	draft *types.StructuredDraft
	err   error
}

func (f *fakeService) Extract(ctx context.Context, req extraction.Request) (*types.StructuredDraft, error) {
	f.mu.Lock()
	f.calls++
	f.texts = append(f.texts, req.Text)
	i := f.calls - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	res := f.results[i]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return res.draft, res.err
}

func (f *fakeService) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingApplier struct {
	mu     sync.Mutex
	drafts []*types.CanonicalDraft
	err    error
}

func (a *recordingApplier) Apply(ctx context.Context, draft *types.CanonicalDraft) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.drafts = append(a.drafts, draft)
	return nil
}

func (a *recordingApplier) Applied() []*types.CanonicalDraft {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*types.CanonicalDraft(nil), a.drafts...)
}

func sampleDraft(name string) *types.StructuredDraft {
	return &types.StructuredDraft{
		PersonalInfo: &types.RawPersonalInfo{FullName: types.Str(name), JobTitle: types.Str("Backend Engineer")},
		Skills: []types.RawSkill{
			{Name: types.Str("Go"), Level: types.Str("expert")},
		},
	}
}

// drain reads every event until the stream closes or blocks.
func drain(t *testing.T, stream *Stream) []Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var events []Event
	for {
		ev, ok := stream.Next(ctx)
		if !ok {
			return events
		}
		events = append(events, ev)
	}
}

func states(events []Event) []State {
	out := make([]State, 0, len(events))
	for _, ev := range events {
		if ev.Page == nil {
			out = append(out, ev.State)
		}
	}
	return out
}

func pages(events []Event) []int {
	var out []int
	for _, ev := range events {
		if ev.Page != nil {
			out = append(out, ev.Page.CurrentPage)
		}
	}
	return out
}

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body bytes.Buffer
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><w:document><w:body>` + body.String() + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
