package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-importer/internal/canonical"
	"github.com/jonathan/resume-importer/internal/extraction"
	"github.com/jonathan/resume-importer/internal/ingestion"
	"github.com/jonathan/resume-importer/internal/types"
)

const recordTimeout = 5 * time.Second

// TextExtractor turns an uploaded file into plain text.
// *ingestion.Extractor is the production implementation.
type TextExtractor interface {
	Extract(ctx context.Context, file ingestion.UploadedFile, onPage ingestion.ProgressFunc) (*ingestion.ExtractedText, error)
}

// Deps are the collaborators a Session runs its pipeline with.
type Deps struct {
	Text          TextExtractor
	Service       extraction.Service
	Canonicalizer *canonical.Canonicalizer
	Applier       Applier
	// Recorder is optional.
	Recorder Recorder
	// Schema overrides the embedded draft schema when non-empty.
	Schema []byte
	// MinTextLength rejects extracted text shorter than this many characters.
	MinTextLength int
	Logger        *zap.Logger
	Now           func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Text == nil {
		d.Text = ingestion.NewExtractor(nil, nil)
	}
	if d.Canonicalizer == nil {
		d.Canonicalizer = canonical.New()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Snapshot is a point-in-time copy of a session's observable state.
type Snapshot struct {
	ID                   string                `json:"id"`
	FlowID               string                `json:"flowId,omitempty"`
	State                State                 `json:"state"`
	Stage                Stage                 `json:"stage,omitempty"`
	Failure              *Error                `json:"failure,omitempty"`
	Text                 *ingestion.Metadata   `json:"text,omitempty"`
	Draft                *types.CanonicalDraft `json:"draft,omitempty"`
	ProducedByExtraction bool                  `json:"producedByExtraction"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

// Session is one import attempt. Operations never overlap: an operation that
// is not allowed in the current state returns ErrInvalidTransition.
// Work completing after Discard is dropped.
type Session struct {
	id     string
	flowID string
	deps   Deps
	logger *zap.Logger

	// ctx is cancelled by Discard and bounds all pipeline work.
	ctx    context.Context
	cancel context.CancelFunc
	log    *eventLog

	mu         sync.Mutex
	state      State
	stage      Stage
	generation uint64
	applying   bool
	text       *ingestion.ExtractedText
	draft      *types.CanonicalDraft
	failure    *Error
	createdAt  time.Time
	updatedAt  time.Time
}

// NewSession creates an idle session. An empty id gets a fresh UUID.
func NewSession(id, flowID string, deps Deps) *Session {
	deps = deps.withDefaults()
	if id == "" {
		id = uuid.NewString()
	}
	ctx, cancel := context.WithCancel(context.Background())
	now := deps.Now()
	return &Session{
		id:        id,
		flowID:    flowID,
		deps:      deps,
		logger:    deps.Logger.With(zap.String("session_id", id)),
		ctx:       ctx,
		cancel:    cancel,
		log:       newEventLog(),
		state:     StateIdle,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// FlowID returns the flow the session belongs to.
func (s *Session) FlowID() string { return s.flowID }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft returns the canonical draft, or nil before one is ready.
func (s *Session) Draft() *types.CanonicalDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Text returns the extracted text, or nil before text extraction succeeds.
func (s *Session) Text() *ingestion.ExtractedText {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Failure returns the last failure, or nil.
func (s *Session) Failure() *Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// ProducedByExtraction reports whether the current draft came from the extraction service.
func (s *Session) ProducedByExtraction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft != nil && s.draft.ProducedByExtraction
}

// Events opens a Stream over the session's events from the first one.
func (s *Session) Events() *Stream {
	return &Stream{log: s.log}
}

// Snapshot returns a copy of the session's observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:        s.id,
		FlowID:    s.flowID,
		State:     s.state,
		Stage:     s.stage,
		Failure:   s.failure,
		Draft:     s.draft,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	if s.text != nil {
		snap.Text = s.text.Metadata
	}
	snap.ProducedByExtraction = s.draft != nil && s.draft.ProducedByExtraction
	return snap
}

// Submit runs text and structure extraction for file. It returns when the
// session reaches ready_for_review, fails, or is discarded.
func (s *Session) Submit(ctx context.Context, file ingestion.UploadedFile) error {
	gen, err := s.beginSubmit()
	if err != nil {
		return err
	}
	return s.runSubmit(ctx, gen, file)
}

// SubmitAsync validates the transition like Submit, then runs the pipeline in
// a goroutine. The channel receives Submit's result.
func (s *Session) SubmitAsync(ctx context.Context, file ingestion.UploadedFile) (<-chan error, error) {
	gen, err := s.beginSubmit()
	if err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		done <- s.runSubmit(ctx, gen, file)
	}()
	return done, nil
}

func (s *Session) beginSubmit() (uint64, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: cannot submit from %s", ErrInvalidTransition, state)
	}
	gen := s.generation
	snap := s.transitionLocked(StateExtractingText, StageText)
	s.mu.Unlock()
	s.record(snap)
	return gen, nil
}

func (s *Session) runSubmit(ctx context.Context, gen uint64, file ingestion.UploadedFile) error {
	runCtx, stop := s.runContext(ctx)
	defer stop()

	text, err := s.deps.Text.Extract(runCtx, file, func(p ingestion.PageProgress) {
		s.publishPage(gen, p)
	})
	if err == nil {
		err = ingestion.RequireMinLength(text.Text, s.deps.MinTextLength)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return newError(StageText, KindSessionCancelled, context.Canceled)
	}
	if err != nil {
		failure, snap := s.failLocked(StageText, err)
		s.mu.Unlock()
		s.record(snap)
		return failure
	}
	s.text = text
	snap := s.transitionLocked(StateExtractingStructure, StageStructure)
	s.mu.Unlock()
	s.record(snap)

	return s.extractStructure(runCtx, gen, text.Text)
}

// Regenerate discards the current draft and re-runs structure extraction on
// the cached text. It is allowed from ready_for_review, or after a failure at
// the structure stage.
func (s *Session) Regenerate(ctx context.Context) error {
	gen, text, err := s.beginRegenerate()
	if err != nil {
		return err
	}
	runCtx, stop := s.runContext(ctx)
	defer stop()
	return s.extractStructure(runCtx, gen, text)
}

// RegenerateAsync validates the transition like Regenerate, then calls the
// service in a goroutine. The channel receives Regenerate's result.
func (s *Session) RegenerateAsync(ctx context.Context) (<-chan error, error) {
	gen, text, err := s.beginRegenerate()
	if err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		runCtx, stop := s.runContext(ctx)
		defer stop()
		done <- s.extractStructure(runCtx, gen, text)
	}()
	return done, nil
}

func (s *Session) beginRegenerate() (uint64, string, error) {
	s.mu.Lock()
	regenerable := s.state == StateReadyForReview || s.retryableFailureLocked()
	if !regenerable || s.text == nil || s.applying {
		state := s.state
		s.mu.Unlock()
		return 0, "", fmt.Errorf("%w: cannot regenerate from %s", ErrInvalidTransition, state)
	}
	gen := s.generation
	text := s.text.Text
	s.draft = nil
	s.failure = nil
	snap := s.transitionLocked(StateExtractingStructure, StageStructure)
	s.mu.Unlock()
	s.record(snap)
	return gen, text, nil
}

func (s *Session) extractStructure(ctx context.Context, gen uint64, text string) error {
	req := extraction.NewRequest(text)
	if len(s.deps.Schema) > 0 {
		req.Schema = s.deps.Schema
	}

	start := s.deps.Now()
	draft, err := s.deps.Service.Extract(ctx, req)
	var result *types.CanonicalDraft
	if err == nil {
		result = s.deps.Canonicalizer.Canonicalize(draft)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Debug("import.session.result_dropped", zap.String("stage", string(StageStructure)))
		return newError(StageStructure, KindSessionCancelled, context.Canceled)
	}
	if err != nil {
		failure, snap := s.failLocked(StageStructure, err)
		s.mu.Unlock()
		s.record(snap)
		return failure
	}
	s.draft = result
	snap := s.transitionLocked(StateReadyForReview, StageStructure)
	s.mu.Unlock()
	s.record(snap)

	s.logger.Info("import.session.draft_ready",
		zap.Int("entities", result.Count()),
		zap.Duration("duration", s.deps.Now().Sub(start)),
	)
	return nil
}

// Apply hands the draft to the Applier. A non-nil edited draft replaces the
// extracted one after validation. Apply is a no-op once the session is
// applied or discarded. When the Applier fails the session stays in
// ready_for_review, so Apply can be retried with the same draft.
func (s *Session) Apply(ctx context.Context, edited *types.CanonicalDraft) error {
	s.mu.Lock()
	switch {
	case s.state == StateApplied, s.state == StateDiscarded:
		s.mu.Unlock()
		return nil
	case s.state != StateReadyForReview, s.applying:
		s.mu.Unlock()
		return ErrNotReadyForReview
	case s.deps.Applier == nil:
		s.mu.Unlock()
		return ErrNoApplier
	}

	draft := s.draft
	if edited != nil {
		if err := types.ValidateCanonicalDraft(edited); err != nil {
			s.mu.Unlock()
			return newError(StageApply, KindInvalidDraft, err)
		}
		edited.Normalize()
		edited.ProducedByExtraction = s.draft.ProducedByExtraction
		draft = edited
	}
	gen := s.generation
	s.applying = true
	s.mu.Unlock()

	runCtx, stop := s.runContext(ctx)
	defer stop()
	err := s.deps.Applier.Apply(withSessionID(runCtx, s.id), draft)

	s.mu.Lock()
	s.applying = false
	if s.generation != gen {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		failure := newError(StageApply, KindApplyFailed, err)
		s.failure = failure
		s.updatedAt = s.deps.Now()
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.logger.Warn("import.session.apply_failed", zap.Error(err))
		s.record(snap)
		return failure
	}
	s.draft = draft
	s.failure = nil
	snap := s.transitionLocked(StateApplied, StageApply)
	s.mu.Unlock()
	s.record(snap)
	return nil
}

// Discard abandons the session. In-flight work is cancelled and its results
// are dropped. A session that failed at the structure stage is still
// regenerable, so it moves to discarded too. Discarding any other applied,
// discarded or failed session only releases its resources.
func (s *Session) Discard() {
	s.mu.Lock()
	if s.state.Terminal() && !s.retryableFailureLocked() {
		s.mu.Unlock()
		s.cancel()
		s.log.close()
		return
	}
	s.generation++
	s.draft = nil
	snap := s.transitionLocked(StateDiscarded, s.stage)
	s.mu.Unlock()

	s.cancel()
	s.record(snap)
}

// retryableFailureLocked reports whether the session failed at the structure
// stage and can still be regenerated from its cached text.
func (s *Session) retryableFailureLocked() bool {
	return s.state == StateFailed && s.failure != nil && s.failure.Stage == StageStructure
}

// runContext derives a context that ends when either ctx or the session ends.
func (s *Session) runContext(ctx context.Context) (context.Context, func()) {
	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) publishPage(gen uint64, p ingestion.PageProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.state != StateExtractingText {
		return
	}
	page := p
	s.updatedAt = s.deps.Now()
	s.log.append(Event{
		SessionID: s.id,
		State:     s.state,
		Stage:     StageText,
		Page:      &page,
		Time:      s.updatedAt,
	})
}

// transitionLocked moves to state and publishes the change. The stream is
// closed when no further operation can produce events.
func (s *Session) transitionLocked(state State, stage Stage) Snapshot {
	from := s.state
	s.state = state
	s.stage = stage
	s.updatedAt = s.deps.Now()

	s.log.append(Event{
		SessionID: s.id,
		State:     state,
		Stage:     stage,
		Failure:   s.failure,
		Time:      s.updatedAt,
	})
	if state == StateApplied || state == StateDiscarded ||
		(state == StateFailed && (s.failure == nil || s.failure.Stage != StageStructure)) {
		s.log.close()
	}

	s.logger.Info("import.session.transition",
		zap.String("from", string(from)),
		zap.String("to", string(state)),
		zap.String("stage", string(stage)),
	)
	return s.snapshotLocked()
}

func (s *Session) failLocked(stage Stage, err error) (*Error, Snapshot) {
	failure := classifyAt(stage, err)
	s.failure = failure
	s.logger.Warn("import.session.failed",
		zap.String("kind", string(failure.Kind)),
		zap.String("stage", string(stage)),
		zap.Error(err),
	)
	return failure, s.transitionLocked(StateFailed, stage)
}

func (s *Session) record(snap Snapshot) {
	if s.deps.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := s.deps.Recorder.Record(ctx, snap); err != nil {
		s.logger.Warn("import.session.record_failed", zap.Error(err))
	}
}
