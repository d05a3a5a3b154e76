// Package importer drives one résumé import from uploaded file to applied draft.
package importer

// State is the lifecycle position of a Session.
type State string

const (
	StateIdle                State = "idle"
	StateExtractingText      State = "extracting_text"
	StateExtractingStructure State = "extracting_structure"
	StateReadyForReview      State = "ready_for_review"
	StateApplied             State = "applied"
	StateDiscarded           State = "discarded"
	StateFailed              State = "failed"
)

// Terminal reports whether no further work happens without a new operation.
// A failed session may still be regenerated when it failed at the structure stage.
func (s State) Terminal() bool {
	return s == StateApplied || s == StateDiscarded || s == StateFailed
}

// Stage names the pipeline step a state or failure belongs to.
type Stage string

const (
	StageText      Stage = "text"
	StageStructure Stage = "structure"
	StageApply     Stage = "apply"
)
