package pipeline

import "fmt"

// State tracks where a run is in its lifecycle. A run moves
// Idle -> Extracting -> Draining -> Completed, detouring through Aborting
// when the source iterator itself fails. A pipeline never returns to Idle;
// a fresh run needs a fresh Pipeline and a fresh Importer.
type State string

const (
	StateIdle               State = "idle"
	StateExtracting         State = "extracting"
	StateAborting           State = "aborting"
	StateDraining           State = "draining"
	StateCompleted          State = "completed"
	StateCompletedWithError State = "completed_with_error"
)

// Failure records one record that exhausted its retry budget.
type Failure struct {
	RecordID string
	Err      error
}

// Summary is the aggregate outcome of one run. Per-record failures live in
// Failures; Cause is set only when extraction itself was cut short.
type Summary struct {
	// Estimated is the importer's best-effort total, or negative when
	// unknown.
	Estimated int

	Attempted int
	Succeeded int
	Failed    int

	Failures []Failure

	// Aborted is true when the source iterator failed or the run context
	// was canceled before extraction finished.
	Aborted bool
	Cause   error
}

// ExtractionError wraps a failure of the source iterator itself. It stops
// further extraction but not tasks already queued.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
