package runs

import (
	"encoding/json"
	"time"
)

// Store persists run history so outcomes survive the process.
type Store interface {
	Close() error

	// RecordRun upserts a run info into a persistent store.
	RecordRun(r *RunInfo) (id string, err error)

	// GetRun retrieves a run info from a persistent store.
	GetRun(id string) (info *RunInfo, err error)

	// ListRuns retrieves a list of run info from a persistent store.
	// The result is sorted oldest first.
	ListRuns(skip uint64, limit uint64) (info []RunInfo, err error)

	// UpdateRun updates a run info atomically.
	// It returns true if the run info exists and is updated.
	UpdateRun(id string, upd func(*RunInfo) bool) (ok bool, err error)
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusAborted   RunStatus = "aborted"
)

// Failure is one record that exhausted its retry budget during a run.
type Failure struct {
	RecordID string `json:"recordId"`
	Reason   string `json:"reason"`
}

type RunInfo struct {
	ID        string
	Importer  string
	Status    RunStatus
	StartedAt time.Time

	Estimated int
	Attempted int
	Succeeded int
	Failed    int

	Reason   string
	Failures []Failure

	CompletedAt time.Time
}

func NewRunInfo(importerName string) *RunInfo {
	return &RunInfo{
		Importer:  importerName,
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
		Estimated: -1,
	}
}

func EncodeRun(r *RunInfo) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (*RunInfo, error) {
	r := &RunInfo{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

var BucketRunInfo = ns("run_info")

func ns(name string) string {
	return "extraq:" + name
}

// RunKey builds a key used by a single run info.
func RunKey(uuid string) string {
	return ns("run:" + uuid)
}
