//go:build integration
// +build integration

package db

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-importer/internal/importer"
	"github.com/jonathan/resume-importer/internal/types"
)

func setupTestDB(t *testing.T) *DB {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := Connect(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to DB: %v", err)
	}
	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

func TestReplaceDocument_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()
	owner := "owner-" + uuid.NewString()

	require.NoError(t, db.ReplaceDocument(ctx, owner, "", testDraft()))

	replacement := testDraft()
	replacement.PersonalInfo.FullName = "Jean-Pierre Dupont"
	replacement.Experiences = []types.Experience{}
	require.NoError(t, db.ReplaceDocument(ctx, owner, "session-2", replacement))

	doc, err := db.GetDocument(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 2, doc.Version)
	assert.Equal(t, "session-2", *doc.SourceSessionID)

	var stored types.CanonicalDraft
	require.NoError(t, json.Unmarshal(doc.Content, &stored))
	assert.Equal(t, "Jean-Pierre Dupont", stored.PersonalInfo.FullName)
	assert.Empty(t, stored.Experiences, "apply replaces the whole document")
}

func TestSaveSession_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	id := uuid.NewString()

	snap := importer.Snapshot{ID: id, FlowID: "flow", State: importer.StateExtractingText, Stage: importer.StageText, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.SaveSession(ctx, snap))

	snap.State = importer.StateReadyForReview
	snap.Stage = importer.StageStructure
	snap.Draft = testDraft()
	snap.ProducedByExtraction = true
	snap.UpdatedAt = now.Add(time.Second)
	require.NoError(t, db.SaveSession(ctx, snap))

	rec, err := db.GetSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "ready_for_review", rec.State)
	assert.True(t, rec.ProducedByExtraction)
	assert.Nil(t, rec.FailureKind)
	assert.NotEmpty(t, rec.Draft)
}
