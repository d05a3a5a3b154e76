package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// ExtractedText is the raw text recovered from one upload.
type ExtractedText struct {
	Text     string    `json:"text"`
	Metadata *Metadata `json:"metadata"`
}

// Metadata describes how a text was recovered.
type Metadata struct {
	SourceName   string        `json:"source_name,omitempty"`
	Format       Format        `json:"format"`
	Pages        int           `json:"pages,omitempty"`         // PDF page count
	Parts        int           `json:"parts,omitempty"`         // DOCX paragraph count
	SkippedPages int           `json:"skipped_pages,omitempty"` // PDF pages whose text could not be decoded
	Characters   int           `json:"characters"`
	Duration     time.Duration `json:"duration_ns"`
	Timestamp    string        `json:"timestamp"` // RFC3339
	Hash         string        `json:"hash"`      // SHA256 hex digest of the text
}

// NewMetadata creates Metadata for text with the current timestamp.
func NewMetadata(format Format, text string) *Metadata {
	return &Metadata{
		Format:     format,
		Characters: len([]rune(text)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Hash:       computeHash(text),
	}
}

func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// ToJSON marshals Metadata to pretty-printed JSON.
func (m *Metadata) ToJSON() ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata to JSON: %w", err)
	}
	return jsonBytes, nil
}
