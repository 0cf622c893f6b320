package domain

import "time"

// RunStatus is the lifecycle state of a run record.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusAborted   RunStatus = "aborted"
)

// RunRecord is the auditable record of one run. It is persisted right
// before the start item executes so an abrupt failure still leaves the last
// known good state behind.
type RunRecord struct {
	ID         string            `json:"id"`
	Experiment string            `json:"experiment"`
	Start      string            `json:"start"`
	Status     RunStatus         `json:"status"`
	StartedAt  time.Time         `json:"started_at"`
	EndedAt    time.Time         `json:"ended_at,omitzero"`
	Globals    map[string]string `json:"globals"`
	Error      string            `json:"error,omitempty"`
	// TeardownErrors lists cleanup failures; they never fail the run.
	TeardownErrors []string `json:"teardown_errors,omitempty"`
}

// Clone returns a deep copy of r.
func (r *RunRecord) Clone() *RunRecord {
	c := *r
	c.Globals = make(map[string]string, len(r.Globals))
	for k, v := range r.Globals {
		c.Globals[k] = v
	}
	c.TeardownErrors = append([]string(nil), r.TeardownErrors...)
	return &c
}
