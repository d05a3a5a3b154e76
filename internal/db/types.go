package db

import (
	"encoding/json"
	"time"
)

// Document is the live résumé of one owner.
type Document struct {
	OwnerID              string          `json:"owner_id"`
	Content              json.RawMessage `json:"document"`
	ProducedByExtraction bool            `json:"produced_by_extraction"`
	SourceSessionID      *string         `json:"source_session_id,omitempty"`
	Version              int             `json:"version"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// SessionRecord is the stored snapshot of an import session.
type SessionRecord struct {
	ID                   string          `json:"id"`
	FlowID               string          `json:"flow_id"`
	State                string          `json:"state"`
	Stage                string          `json:"stage"`
	FailureKind          *string         `json:"failure_kind,omitempty"`
	Failure              json.RawMessage `json:"failure,omitempty"`
	TextMetadata         json.RawMessage `json:"text_metadata,omitempty"`
	Draft                json.RawMessage `json:"draft,omitempty"`
	ProducedByExtraction bool            `json:"produced_by_extraction"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
