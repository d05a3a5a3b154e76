package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/jonathan/resume-importer/internal/importer"
	"github.com/jonathan/resume-importer/internal/ingestion"
	"github.com/jonathan/resume-importer/internal/types"
	"github.com/jonathan/resume-importer/schemas"
)

// ImportResponse is returned when a session starts or restarts work.
type ImportResponse struct {
	SessionID string         `json:"session_id"`
	State     importer.State `json:"state"`
	EventsURL string         `json:"events_url"`
}

func newImportResponse(session *importer.Session) ImportResponse {
	return ImportResponse{
		SessionID: session.ID(),
		State:     session.State(),
		EventsURL: "/imports/" + session.ID() + "/events",
	}
}

// handleCreateImport accepts a multipart upload and starts a session for it.
func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, err)
			return
		}
		s.writeError(w, &ErrValidation{Field: "file", Message: "expected a multipart form upload"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, &ErrValidation{Field: "file", Message: "file is required"})
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}
	if int64(len(data)) > s.maxUpload {
		s.writeError(w, &http.MaxBytesError{Limit: s.maxUpload})
		return
	}

	// Reject wrong or renamed files before a session exists.
	if _, err := ingestion.SniffFormat(header.Filename, data); err != nil {
		s.writeError(w, importer.Wrap(importer.StageText, err))
		return
	}

	flowID := r.FormValue("flow_id")
	if flowID == "" {
		flowID = defaultFlowID
	}

	session := s.manager.Start(flowID)
	done, err := session.SubmitAsync(context.Background(), ingestion.UploadedFile{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	go s.logOutcome(session, "submit", done)

	s.jsonResponse(w, http.StatusAccepted, newImportResponse(session))
}

// handleGetImport returns the session snapshot, falling back to the stored record.
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if session, ok := s.manager.Get(id); ok {
		s.jsonResponse(w, http.StatusOK, session.Snapshot())
		return
	}

	if s.store != nil {
		rec, err := s.store.GetSession(r.Context(), id)
		if err != nil {
			s.logger.Error("http.session_lookup_failed", zap.String("session_id", id), zap.Error(err))
			s.errorResponse(w, http.StatusInternalServerError, "failed to load session")
			return
		}
		if rec != nil {
			s.jsonResponse(w, http.StatusOK, rec)
			return
		}
	}
	s.writeError(w, &ErrSessionNotFound{ID: id})
}

// handleImportEvents streams session events until the session settles: ready
// for review, or in a terminal state. Clients resume with Last-Event-ID.
func (s *Server) handleImportEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	session, ok := s.manager.Get(id)
	if !ok {
		s.writeError(w, &ErrSessionNotFound{ID: id})
		return
	}

	after := lastEventID(r)
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	stream := session.Events()
	for {
		ev, ok := stream.Next(r.Context())
		if !ok {
			if r.Context().Err() == nil {
				_ = sse.Complete(id, session.State())
			}
			return
		}
		if ev.Seq <= after {
			continue
		}

		if err := sse.Send(ev); err != nil {
			return
		}

		settled := ev.Page == nil && (ev.State == importer.StateReadyForReview || ev.State.Terminal())
		if settled && !stream.Pending() {
			_ = sse.Complete(id, ev.State)
			return
		}
	}
}

func lastEventID(r *http.Request) int {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("after")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// handleRegenerate re-runs structure extraction on the session's cached text.
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	session, ok := s.manager.Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, &ErrSessionNotFound{ID: r.PathValue("id")})
		return
	}

	done, err := session.RegenerateAsync(context.Background())
	if err != nil {
		s.writeError(w, err)
		return
	}
	go s.logOutcome(session, "regenerate", done)

	s.jsonResponse(w, http.StatusAccepted, newImportResponse(session))
}

// handleApply applies the reviewed draft. An optional JSON body replaces the
// extracted draft with the user's edited version.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	session, ok := s.manager.Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, &ErrSessionNotFound{ID: r.PathValue("id")})
		return
	}

	var edited *types.CanonicalDraft
	if r.Body != nil {
		var draft types.CanonicalDraft
		err := json.NewDecoder(r.Body).Decode(&draft)
		switch {
		case errors.Is(err, io.EOF):
		case err != nil:
			s.writeError(w, &ErrValidation{Field: "draft", Message: "invalid JSON: " + err.Error()})
			return
		default:
			edited = &draft
		}
	}

	// The write outlives a client disconnect so a reviewed draft is never half applied.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), applyTimeout)
	defer cancel()
	if err := session.Apply(ctx, edited); err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, session.Snapshot())
}

// handleDiscard discards the session and cancels any in-flight work.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	session, ok := s.manager.Get(id)
	if !ok {
		s.writeError(w, &ErrSessionNotFound{ID: id})
		return
	}
	session.Discard()
	s.jsonResponse(w, http.StatusOK, session.Snapshot())
}

// handleSchema serves the JSON Schema that extraction output must satisfy.
func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(schemas.ResumeDraft()); err != nil {
		s.logger.Warn("http.write_failed", zap.Error(err))
	}
}

func (s *Server) logOutcome(session *importer.Session, op string, done <-chan error) {
	err := <-done
	fields := []zap.Field{
		zap.String("session_id", session.ID()),
		zap.String("op", op),
		zap.String("state", string(session.State())),
	}
	if err != nil {
		s.logger.Info("import.session.settled", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Info("import.session.settled", fields...)
}
