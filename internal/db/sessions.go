package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-importer/internal/importer"
)

// SaveSession upserts the latest snapshot of an import session.
func (db *DB) SaveSession(ctx context.Context, snap importer.Snapshot) error {
	var (
		failureKind *string
		failure     []byte
		text        []byte
		draft       []byte
		err         error
	)
	if snap.Failure != nil {
		kind := string(snap.Failure.Kind)
		failureKind = &kind
		if failure, err = json.Marshal(snap.Failure); err != nil {
			return fmt.Errorf("failed to marshal failure: %w", err)
		}
	}
	if snap.Text != nil {
		if text, err = json.Marshal(snap.Text); err != nil {
			return fmt.Errorf("failed to marshal text metadata: %w", err)
		}
	}
	if snap.Draft != nil {
		if draft, err = json.Marshal(snap.Draft); err != nil {
			return fmt.Errorf("failed to marshal draft: %w", err)
		}
	}

	_, err = db.q.Exec(ctx,
		`INSERT INTO import_sessions
		   (id, flow_id, state, stage, failure_kind, failure, text_metadata, draft,
		    produced_by_extraction, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		   state = EXCLUDED.state,
		   stage = EXCLUDED.stage,
		   failure_kind = EXCLUDED.failure_kind,
		   failure = EXCLUDED.failure,
		   text_metadata = EXCLUDED.text_metadata,
		   draft = EXCLUDED.draft,
		   produced_by_extraction = EXCLUDED.produced_by_extraction,
		   updated_at = EXCLUDED.updated_at`,
		snap.ID, snap.FlowID, string(snap.State), string(snap.Stage), failureKind, failure, text, draft,
		snap.ProducedByExtraction, snap.CreatedAt, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", snap.ID, err)
	}
	return nil
}

// GetSession retrieves a stored session snapshot by ID, or nil if unknown.
func (db *DB) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	var rec SessionRecord
	err := db.q.QueryRow(ctx,
		`SELECT id, flow_id, state, stage, failure_kind, failure, text_metadata, draft,
		        produced_by_extraction, created_at, updated_at
		 FROM import_sessions WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.FlowID, &rec.State, &rec.Stage, &rec.FailureKind, &rec.Failure,
		&rec.TextMetadata, &rec.Draft, &rec.ProducedByExtraction, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &rec, nil
}

// SessionRecorder returns an importer.Recorder persisting every transition.
func (db *DB) SessionRecorder() importer.Recorder {
	return importer.RecorderFunc(db.SaveSession)
}

