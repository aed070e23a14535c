package sync

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// RunStatus is the terminal status of a sync cycle.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// Run is one sync cycle: created at cycle start, closed at cycle end,
// immutable afterwards.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	Polled     int
	Pushed     int
	Skipped    int
	Failed     int
	Error      string
}

// NewRun opens a cycle record.
func NewRun() *Run {
	return &Run{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		Status:    RunStatusRunning,
	}
}

// Complete closes the run. Item-level failures downgrade success to partial;
// they never fail the cycle.
func (r *Run) Complete() {
	now := time.Now().UTC()
	r.FinishedAt = &now
	if r.Failed == 0 {
		r.Status = RunStatusSuccess
	} else {
		r.Status = RunStatusPartial
	}
}

// Fail closes the run with a cycle-level failure.
func (r *Run) Fail(msg string) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.Status = RunStatusFailed
	r.Error = msg
}

// ---------------------------------------------------------------------------
// LogEntry
// ---------------------------------------------------------------------------

// PushAction is the outcome of a successful push.
type PushAction string

const (
	PushActionCreated PushAction = "created"
	PushActionUpdated PushAction = "updated"
	PushActionSkipped PushAction = "skipped"
)

// LogEntry records one successful push. Append-only; this is the audit trail
// surfaced to operators.
type LogEntry struct {
	ID            uuid.UUID
	RunID         uuid.UUID
	SKU           string
	ProductName   string
	Action        PushAction
	ChangedFields map[string]FieldChange
	CreatedAt     time.Time
}

// NewLogEntry builds an audit entry for a completed push.
func NewLogEntry(runID uuid.UUID, sku, name string, action PushAction, changes map[string]FieldChange) *LogEntry {
	return &LogEntry{
		ID:            uuid.New(),
		RunID:         runID,
		SKU:           sku,
		ProductName:   name,
		Action:        action,
		ChangedFields: changes,
		CreatedAt:     time.Now().UTC(),
	}
}

// ---------------------------------------------------------------------------
// ItemError
// ---------------------------------------------------------------------------

// ItemError records one item-level failure within a run. Append-only.
type ItemError struct {
	ID        uuid.UUID
	RunID     uuid.UUID
	SKU       string
	SourceID  int64
	Class     ErrorClass
	Message   string
	CreatedAt time.Time
}

// NewItemError builds an audit record for a failed item.
func NewItemError(runID uuid.UUID, sku string, sourceID int64, err error) *ItemError {
	return &ItemError{
		ID:        uuid.New(),
		RunID:     runID,
		SKU:       sku,
		SourceID:  sourceID,
		Class:     Classify(err),
		Message:   err.Error(),
		CreatedAt: time.Now().UTC(),
	}
}
