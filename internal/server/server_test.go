package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jonathan/resume-importer/internal/db"
	"github.com/jonathan/resume-importer/internal/extraction"
	"github.com/jonathan/resume-importer/internal/importer"
	"github.com/jonathan/resume-importer/internal/ingestion"
	"github.com/jonathan/resume-importer/internal/server/ratelimit"
	"github.com/jonathan/resume-importer/internal/types"
)

const resumeText = "Jean Dupont, Développeur\njean@example.fr\n\nExperience\nAcme Corp, Backend Engineer\n2019 - 2023"

type fakeDecoder struct{ pages []string }

func (d fakeDecoder) Open(data []byte) (ingestion.PDFDocument, error) {
	return fakeDocument(d.pages), nil
}

type fakeDocument []string

func (d fakeDocument) NumPages() int                  { return len(d) }
func (d fakeDocument) PageText(n int) (string, error) { return d[n-1], nil }

type fakeService struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (f *fakeService) Extract(ctx context.Context, req extraction.Request) (*types.StructuredDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &types.StructuredDraft{
		PersonalInfo: &types.RawPersonalInfo{FullName: types.Str("Jean Dupont"), JobTitle: types.Str("Développeur")},
		Experiences:  []types.RawExperience{{Company: types.Str("Acme Corp"), Position: types.Str("Backend Engineer")}},
	}, nil
}

func (f *fakeService) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	records map[string]*db.SessionRecord
}

func (f *fakeStore) GetSession(ctx context.Context, id string) (*db.SessionRecord, error) {
	return f.records[id], nil
}

type testServer struct {
	*Server
	service *fakeService

	mu        sync.Mutex
	applied   []*types.CanonicalDraft
	applyErrs []error
}

func newTestServer(t *testing.T, withApplier bool, rate *ratelimit.Config) *testServer {
	t.Helper()
	ts := &testServer{service: &fakeService{}}
	deps := importer.Deps{
		Text:          ingestion.NewExtractor(ingestion.NewPDFExtractor(fakeDecoder{pages: strings.SplitN(resumeText, "\n\n", 2)}), nil),
		Service:       ts.service,
		MinTextLength: 40,
		Logger:        zaptest.NewLogger(t),
	}
	var opts []importer.ManagerOption
	if withApplier {
		opts = append(opts, importer.WithApplierFor(func(flowID string) importer.Applier {
			return importer.ApplierFunc(func(ctx context.Context, draft *types.CanonicalDraft) error {
				ts.mu.Lock()
				defer ts.mu.Unlock()
				if err := ctx.Err(); err != nil {
					return err
				}
				if len(ts.applyErrs) > 0 {
					err := ts.applyErrs[0]
					ts.applyErrs = ts.applyErrs[1:]
					return err
				}
				ts.applied = append(ts.applied, draft)
				return nil
			})
		}))
	}
	if rate == nil {
		rate = &ratelimit.Config{Enabled: false}
	}
	ts.Server = New(Config{MaxUploadBytes: 1 << 20, RateLimit: rate}, importer.NewManager(deps, opts...), nil, zaptest.NewLogger(t))
	t.Cleanup(ts.rateLimiter.Stop)
	return ts
}

func upload(t *testing.T, h http.Handler, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("flow_id", "user-1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func do(h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func startImport(t *testing.T, ts *testServer) string {
	t.Helper()
	w := upload(t, ts.Handler(), "jean.pdf", []byte("%PDF-1.4\n%âãÏÓ\n"))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "/imports/"+resp.SessionID+"/events", resp.EventsURL)
	return resp.SessionID
}

func waitForState(t *testing.T, ts *testServer, id string, want importer.State) importer.Snapshot {
	t.Helper()
	var snap importer.Snapshot
	require.Eventually(t, func() bool {
		w := do(ts.Handler(), http.MethodGet, "/imports/"+id, nil)
		if w.Code != http.StatusOK {
			return false
		}
		snap = importer.Snapshot{}
		if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
			return false
		}
		return snap.State == want
	}, 2*time.Second, 10*time.Millisecond)
	return snap
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, false, nil)

	w := do(ts.Handler(), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSchemaEndpoint(t *testing.T) {
	ts := newTestServer(t, false, nil)

	w := do(ts.Handler(), http.MethodGet, "/schema", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/schema+json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "personalInfo")
}

func TestImportLifecycle(t *testing.T) {
	ts := newTestServer(t, true, nil)
	id := startImport(t, ts)

	snap := waitForState(t, ts, id, importer.StateReadyForReview)
	require.NotNil(t, snap.Draft)
	assert.True(t, snap.ProducedByExtraction)
	assert.Equal(t, "Jean Dupont", snap.Draft.PersonalInfo.FullName)
	require.Len(t, snap.Draft.Experiences, 1)
	assert.NotEmpty(t, snap.Draft.Experiences[0].ID)
	assert.Equal(t, "Acme Corp", snap.Draft.Experiences[0].Company)
	require.NotNil(t, snap.Text)
	assert.Equal(t, 2, snap.Text.Pages)

	edited := *snap.Draft
	edited.PersonalInfo.JobTitle = "Staff Engineer"
	body, err := json.Marshal(edited)
	require.NoError(t, err)

	w := do(ts.Handler(), http.MethodPost, "/imports/"+id+"/apply", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ts.mu.Lock()
	require.Len(t, ts.applied, 1)
	assert.Equal(t, "Staff Engineer", ts.applied[0].PersonalInfo.JobTitle)
	ts.mu.Unlock()

	w = do(ts.Handler(), http.MethodPost, "/imports/"+id+"/apply", nil)
	assert.Equal(t, http.StatusOK, w.Code, "applying twice is a no-op")

	w = do(ts.Handler(), http.MethodPost, "/imports/"+id+"/regenerate", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestApply_FailureCanBeRetried(t *testing.T) {
	ts := newTestServer(t, true, nil)
	ts.applyErrs = []error{errors.New("connection reset by peer")}
	id := startImport(t, ts)
	waitForState(t, ts, id, importer.StateReadyForReview)

	w := do(ts.Handler(), http.MethodPost, "/imports/"+id+"/apply", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"kind":"apply_failed"`)
	assert.Contains(t, w.Body.String(), `"recovery":"retry"`)

	snap := waitForState(t, ts, id, importer.StateReadyForReview)
	require.NotNil(t, snap.Draft, "the reviewed draft survives the failure")

	w = do(ts.Handler(), http.MethodPost, "/imports/"+id+"/apply", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ts.mu.Lock()
	assert.Len(t, ts.applied, 1)
	ts.mu.Unlock()
}

func TestApply_OutlivesClientDisconnect(t *testing.T) {
	ts := newTestServer(t, true, nil)
	id := startImport(t, ts)
	waitForState(t, ts, id, importer.StateReadyForReview)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequestWithContext(ctx, http.MethodPost, "/imports/"+id+"/apply", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	waitForState(t, ts, id, importer.StateApplied)
}

func TestImportEvents(t *testing.T) {
	ts := newTestServer(t, false, nil)
	id := startImport(t, ts)
	waitForState(t, ts, id, importer.StateReadyForReview)

	w := do(ts.Handler(), http.MethodGet, "/imports/"+id+"/events", nil)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	names := sseEventNames(t, w.Body.String())
	assert.Equal(t, []string{"state", "progress", "progress", "state", "state", "complete"}, names)
	assert.Contains(t, w.Body.String(), `"currentPage":2,"totalPages":2`)
}

func TestImportEvents_Resume(t *testing.T) {
	ts := newTestServer(t, false, nil)
	id := startImport(t, ts)
	waitForState(t, ts, id, importer.StateReadyForReview)

	req := httptest.NewRequest(http.MethodGet, "/imports/"+id+"/events", nil)
	req.Header.Set("Last-Event-ID", "3")
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)

	assert.Equal(t, []string{"state", "state", "complete"}, sseEventNames(t, w.Body.String()))
}

func sseEventNames(t *testing.T, body string) []string {
	t.Helper()
	var names []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			names = append(names, name)
		}
	}
	require.NoError(t, scanner.Err())
	return names
}

func TestCreateImport_RejectsBeforeSession(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		data   []byte
		status int
		kind   importer.Kind
	}{
		{"unsupported extension", "cv.txt", []byte("Jean Dupont"), http.StatusUnsupportedMediaType, importer.KindUnsupportedFormat},
		{"renamed docx", "cv.docx", []byte("plain text renamed"), http.StatusUnprocessableEntity, importer.KindCorruptFile},
		{"renamed pdf", "cv.pdf", []byte("plain text renamed"), http.StatusUnprocessableEntity, importer.KindCorruptFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, false, nil)

			w := upload(t, ts.Handler(), tt.file, tt.data)

			assert.Equal(t, tt.status, w.Code)
			var resp struct {
				Failure struct {
					Kind     importer.Kind     `json:"kind"`
					Recovery importer.Recovery `json:"recovery"`
				} `json:"failure"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.kind, resp.Failure.Kind)
			assert.Equal(t, importer.RecoveryReupload, resp.Failure.Recovery)
			assert.Equal(t, 0, ts.manager.Len())
			assert.Equal(t, 0, ts.service.Calls())
		})
	}
}

func TestCreateImport_MissingFile(t *testing.T) {
	ts := newTestServer(t, false, nil)

	w := do(ts.Handler(), http.MethodPost, "/imports", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateImport_TooLarge(t *testing.T) {
	ts := newTestServer(t, false, nil)
	ts.maxUpload = 16

	w := upload(t, ts.Handler(), "cv.pdf", bytes.Repeat([]byte("x"), 64))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestPaymentRequiredThenRegenerate(t *testing.T) {
	ts := newTestServer(t, false, nil)
	ts.service.errs = []error{&extraction.ServiceError{Kind: extraction.KindPaymentRequired}}
	id := startImport(t, ts)

	snap := waitForState(t, ts, id, importer.StateFailed)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, importer.KindServicePaymentRequired, snap.Failure.Kind)
	assert.False(t, snap.ProducedByExtraction)
	assert.NotNil(t, snap.Text, "text is kept for regeneration")

	w := do(ts.Handler(), http.MethodPost, "/imports/"+id+"/regenerate", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	waitForState(t, ts, id, importer.StateReadyForReview)
	assert.Equal(t, 2, ts.service.Calls())
}

func TestApplyWithoutApplier(t *testing.T) {
	ts := newTestServer(t, false, nil)
	id := startImport(t, ts)
	waitForState(t, ts, id, importer.StateReadyForReview)

	w := do(ts.Handler(), http.MethodPost, "/imports/"+id+"/apply", nil)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestApplyInvalidBody(t *testing.T) {
	ts := newTestServer(t, true, nil)
	id := startImport(t, ts)
	waitForState(t, ts, id, importer.StateReadyForReview)

	w := do(ts.Handler(), http.MethodPost, "/imports/"+id+"/apply", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(ts.Handler(), http.MethodPost, "/imports/"+id+"/apply", []byte(`{"personalInfo":{"fullName":""}}`))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDiscard(t *testing.T) {
	ts := newTestServer(t, true, nil)
	id := startImport(t, ts)
	waitForState(t, ts, id, importer.StateReadyForReview)

	w := do(ts.Handler(), http.MethodDelete, "/imports/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap importer.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, importer.StateDiscarded, snap.State)
	assert.Nil(t, snap.Draft)

	w = do(ts.Handler(), http.MethodPost, "/imports/"+id+"/apply", nil)
	assert.Equal(t, http.StatusOK, w.Code, "apply after discard is a no-op")
	assert.Empty(t, ts.applied)
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t, false, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/imports/missing"},
		{http.MethodGet, "/imports/missing/events"},
		{http.MethodPost, "/imports/missing/regenerate"},
		{http.MethodPost, "/imports/missing/apply"},
		{http.MethodDelete, "/imports/missing"},
	} {
		w := do(ts.Handler(), tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.method+" "+tc.path)
	}
}

func TestGetImport_StoreFallback(t *testing.T) {
	ts := newTestServer(t, false, nil)
	ts.store = &fakeStore{records: map[string]*db.SessionRecord{
		"old": {ID: "old", State: "applied", ProducedByExtraction: true},
	}}

	w := do(ts.Handler(), http.MethodGet, "/imports/old", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"applied"`)
}

func TestUploadRateLimit(t *testing.T) {
	ts := newTestServer(t, false, &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/imports", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
		},
	})

	startImport(t, ts)
	w := upload(t, ts.Handler(), "jean.pdf", []byte("%PDF-1.4\n"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rate limit exceeded", body.Error)
	assert.Positive(t, body.RetryAfter)
}
