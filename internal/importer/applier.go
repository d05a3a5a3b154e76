package importer

import (
	"context"

	"github.com/jonathan/resume-importer/internal/types"
)

// Applier persists an accepted draft into the user's profile. The applying
// session's ID is available from the context through SessionIDFrom.
type Applier interface {
	Apply(ctx context.Context, draft *types.CanonicalDraft) error
}

// ApplierFunc adapts a function to Applier.
type ApplierFunc func(ctx context.Context, draft *types.CanonicalDraft) error

func (f ApplierFunc) Apply(ctx context.Context, draft *types.CanonicalDraft) error {
	return f(ctx, draft)
}

type sessionIDKey struct{}

// withSessionID returns a context carrying the applying session's ID.
func withSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFrom returns the ID of the session applying a draft, or "" outside
// an Apply call.
func SessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// Recorder receives a snapshot after every state change, for audit or resume.
// Recorder errors are logged and never fail the session.
type Recorder interface {
	Record(ctx context.Context, snap Snapshot) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, snap Snapshot) error

func (f RecorderFunc) Record(ctx context.Context, snap Snapshot) error {
	return f(ctx, snap)
}
