package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/resume-importer/internal/llm"
	"github.com/jonathan/resume-importer/internal/prompts"
	"github.com/jonathan/resume-importer/internal/types"
)

const schemaName = "resume_draft"

// LLMService extracts drafts with a language model under a schema constraint.
type LLMService struct {
	client llm.Client
	tier   llm.ModelTier
	log    *zap.Logger
}

// NewLLMService wraps client. The standard tier is used.
func NewLLMService(client llm.Client, logger *zap.Logger) *LLMService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMService{client: client, tier: llm.TierStandard, log: logger}
}

// Extract makes exactly one model call.
func (s *LLMService) Extract(ctx context.Context, req Request) (*types.StructuredDraft, error) {
	start := time.Now()

	var schemaDoc map[string]any
	if err := json.Unmarshal(req.Schema, &schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to decode extraction schema: %w", err)
	}

	catalog, err := prompts.Importing()
	if err != nil {
		return nil, err
	}
	system, err := catalog.Get(prompts.ExtractSystem)
	if err != nil {
		return nil, err
	}
	prompt, err := catalog.Render(prompts.ExtractDraft, map[string]string{
		"Schema":     string(req.Schema),
		"ResumeText": req.Text,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("extraction.llm.start",
		zap.String("model", s.client.GetModel(s.tier)),
		zap.Int("text_len", len(req.Text)),
	)

	raw, err := s.client.GenerateStructured(ctx, llm.StructuredRequest{
		System:     system,
		Prompt:     prompt,
		SchemaName: schemaName,
		Schema:     schemaDoc,
	}, s.tier)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		serr := toServiceError(err)
		s.log.Warn("extraction.llm.failed",
			zap.String("kind", string(serr.Kind)),
			zap.Error(err),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
		return nil, serr
	}

	draft, err := DecodeDraft(raw, req.Schema)
	if err != nil {
		s.log.Warn("extraction.llm.rejected",
			zap.Error(err),
			zap.Int("raw_bytes", len(raw)),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
		return nil, err
	}

	s.log.Info("extraction.llm.done",
		zap.Int("experiences", len(draft.Experiences)),
		zap.Int("education", len(draft.Education)),
		zap.Int("skills", len(draft.Skills)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return draft, nil
}

// toServiceError maps a transport failure onto the service error variants.
func toServiceError(err error) *ServiceError {
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		return &ServiceError{Kind: KindServiceUnavailable, Cause: err}
	}

	kind := KindServiceUnavailable
	switch apiErr.Kind {
	case llm.KindRateLimited:
		kind = KindRateLimited
	case llm.KindPaymentRequired:
		kind = KindPaymentRequired
	case llm.KindInvalidResponse:
		kind = KindInvalidResponse
	}
	return &ServiceError{Kind: kind, Cause: err}
}
