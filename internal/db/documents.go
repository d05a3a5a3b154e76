package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-importer/internal/importer"
	"github.com/jonathan/resume-importer/internal/types"
)

// ReplaceDocument stores draft as the owner's live résumé, replacing any previous one in full.
// sessionID records which import produced it and may be empty.
func (db *DB) ReplaceDocument(ctx context.Context, ownerID, sessionID string, draft *types.CanonicalDraft) error {
	if ownerID == "" {
		return fmt.Errorf("owner id cannot be empty")
	}
	if draft == nil {
		return fmt.Errorf("draft cannot be nil")
	}

	content, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	var source *string
	if sessionID != "" {
		source = &sessionID
	}

	_, err = db.q.Exec(ctx,
		`INSERT INTO resume_documents (owner_id, document, produced_by_extraction, source_session_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner_id) DO UPDATE SET
		   document = EXCLUDED.document,
		   produced_by_extraction = EXCLUDED.produced_by_extraction,
		   source_session_id = EXCLUDED.source_session_id,
		   version = resume_documents.version + 1,
		   updated_at = NOW()`,
		ownerID, content, draft.ProducedByExtraction, source,
	)
	if err != nil {
		return fmt.Errorf("failed to replace document for %s: %w", ownerID, err)
	}
	return nil
}

// GetDocument retrieves the owner's live résumé, or nil if there is none.
func (db *DB) GetDocument(ctx context.Context, ownerID string) (*Document, error) {
	var doc Document
	err := db.q.QueryRow(ctx,
		`SELECT owner_id, document, produced_by_extraction, source_session_id, version, updated_at
		 FROM resume_documents WHERE owner_id = $1`,
		ownerID,
	).Scan(&doc.OwnerID, &doc.Content, &doc.ProducedByExtraction, &doc.SourceSessionID, &doc.Version, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// DocumentApplier applies accepted drafts to one owner's live résumé.
type DocumentApplier struct {
	db      *DB
	ownerID string
}

// Applier returns an importer.Applier writing to ownerID's document.
func (db *DB) Applier(ownerID string) *DocumentApplier {
	return &DocumentApplier{db: db, ownerID: ownerID}
}

// Apply implements importer.Applier. The applying session becomes the
// document's source.
func (a *DocumentApplier) Apply(ctx context.Context, draft *types.CanonicalDraft) error {
	return a.db.ReplaceDocument(ctx, a.ownerID, importer.SessionIDFrom(ctx), draft)
}

var _ importer.Applier = (*DocumentApplier)(nil)
