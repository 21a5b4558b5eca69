package bulk

import (
	"errors"
	"time"

	"github.com/adsync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Bulk Errors
// ---------------------------------------------------------------------------

var (
	ErrOperationNotFound = errors.New("bulk: bulk operation not found")
	ErrInvalidDirection  = errors.New("bulk: invalid bulk direction")
	ErrNoRows            = errors.New("bulk: bulk sheet contains no data rows")
	ErrEmptySelection    = errors.New("bulk: generation requires at least one campaign")
)

// ---------------------------------------------------------------------------
// Direction represents which way a bulk operation moves data
// ---------------------------------------------------------------------------

// Direction represents which way a bulk operation moves data
type Direction string

const (
	// DirectionGenerate exports campaigns into a bulk sheet
	DirectionGenerate Direction = "generate"
	// DirectionIngest imports a bulk sheet into campaigns
	DirectionIngest Direction = "ingest"
)

// IsValid returns true if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionGenerate || d == DirectionIngest
}

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// ---------------------------------------------------------------------------
// OperationState represents the lifecycle state of a bulk operation
// ---------------------------------------------------------------------------

// OperationState represents the lifecycle state of a bulk operation
type OperationState string

const (
	OperationStatePending   OperationState = "pending"
	OperationStateRunning   OperationState = "running"
	OperationStateSucceeded OperationState = "succeeded"
	OperationStateFailed    OperationState = "failed"
	OperationStatePartial   OperationState = "partial"
)

// IsTerminal returns true if the state is terminal
func (s OperationState) IsTerminal() bool {
	switch s {
	case OperationStateSucceeded, OperationStateFailed, OperationStatePartial:
		return true
	default:
		return false
	}
}

// String returns the string representation of OperationState
func (s OperationState) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// RowOutcome records the result of one sheet row
// ---------------------------------------------------------------------------

// RowState is the outcome of one sheet row
type RowState string

const (
	RowStateApplied RowState = "applied"
	RowStateStaged  RowState = "staged"
	RowStateFailed  RowState = "failed"
)

// RowOutcome records the result of one sheet row. Index is the position in
// the input sheet, counted from the first data row; outcomes always come
// back in input order regardless of how rows were processed.
type RowOutcome struct {
	Index int      `json:"index"`
	Ref   string   `json:"ref,omitempty"`
	State RowState `json:"state"`
	Field string   `json:"field,omitempty"`
	Error string   `json:"error,omitempty"`
}

// ---------------------------------------------------------------------------
// Operation Aggregate
// ---------------------------------------------------------------------------

// Operation is a bulk transfer run. One malformed row never fails the run;
// every operation reaches a terminal state even when all rows fail.
type Operation struct {
	shared.BaseAggregateRoot
	Direction Direction      `json:"direction"`
	State     OperationState `json:"state"`
	// ValidateOnly stages row changes without committing them
	ValidateOnly bool `json:"validate_only"`
	// ArtifactKey is the object storage key of the generated sheet
	ArtifactKey string       `json:"artifact_key,omitempty"`
	TotalRows   int          `json:"total_rows"`
	AppliedRows int          `json:"applied_rows"`
	FailedRows  int          `json:"failed_rows"`
	Rows        []RowOutcome `json:"rows,omitempty"`
	Message     string       `json:"message,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// NewOperation creates a pending bulk operation
func NewOperation(direction Direction, validateOnly bool) (*Operation, error) {
	if !direction.IsValid() {
		return nil, ErrInvalidDirection
	}

	return &Operation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Direction:         direction,
		State:             OperationStatePending,
		ValidateOnly:      validateOnly,
		Rows:              make([]RowOutcome, 0),
	}, nil
}

// Start transitions the operation from pending to running
func (o *Operation) Start() error {
	if o.State != OperationStatePending {
		return shared.ErrInvalidState
	}
	now := time.Now()
	o.State = OperationStateRunning
	o.StartedAt = &now
	o.touch()
	return nil
}

// RecordRow appends one row outcome and updates the counters
func (o *Operation) RecordRow(outcome RowOutcome) error {
	if o.State != OperationStateRunning {
		return shared.ErrInvalidState
	}
	o.Rows = append(o.Rows, outcome)
	o.TotalRows++
	switch outcome.State {
	case RowStateFailed:
		o.FailedRows++
	default:
		o.AppliedRows++
	}
	o.touch()
	return nil
}

// Finalize computes the terminal state from the row counters.
// All rows failing is still a terminal outcome, never a hang.
func (o *Operation) Finalize() error {
	if o.State != OperationStateRunning {
		return shared.ErrInvalidState
	}

	switch {
	case o.FailedRows == 0:
		o.State = OperationStateSucceeded
	case o.AppliedRows == 0:
		o.State = OperationStateFailed
	default:
		o.State = OperationStatePartial
	}

	now := time.Now()
	o.CompletedAt = &now
	o.touch()
	return nil
}

// Fail terminates the operation with an operation-level fault, for
// failures that precede row processing such as an unreadable sheet
func (o *Operation) Fail(message string) error {
	if o.State.IsTerminal() {
		return shared.ErrInvalidState
	}
	o.State = OperationStateFailed
	o.Message = message
	now := time.Now()
	o.CompletedAt = &now
	o.touch()
	return nil
}

// SetArtifact records the object storage key of the generated sheet
func (o *Operation) SetArtifact(key string) {
	o.ArtifactKey = key
	o.touch()
}

// FailedOutcomes returns the outcomes of failed rows, in input order
func (o *Operation) FailedOutcomes() []RowOutcome {
	failed := make([]RowOutcome, 0)
	for _, row := range o.Rows {
		if row.State == RowStateFailed {
			failed = append(failed, row)
		}
	}
	return failed
}

func (o *Operation) touch() {
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

// Event types emitted by bulk operations
const (
	EventTypeSheetGenerated  = "bulk.sheet.generated"
	EventTypeReportGenerated = "report.generated"
)

// SheetGeneratedEvent is emitted when a bulk sheet artifact is stored
type SheetGeneratedEvent struct {
	shared.BaseDomainEvent
	ArtifactKey string `json:"artifact_key"`
	Rows        int    `json:"rows"`
}

// NewSheetGeneratedEvent creates a sheet generated event
func NewSheetGeneratedEvent(o *Operation) *SheetGeneratedEvent {
	return &SheetGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSheetGenerated, "BulkOperation", o.ID),
		ArtifactKey:     o.ArtifactKey,
		Rows:            o.TotalRows,
	}
}

// ReportGeneratedEvent is emitted when an ingest outcome report is ready
type ReportGeneratedEvent struct {
	shared.BaseDomainEvent
	State       string `json:"state"`
	TotalRows   int    `json:"total_rows"`
	AppliedRows int    `json:"applied_rows"`
	FailedRows  int    `json:"failed_rows"`
}

// NewReportGeneratedEvent creates a report generated event
func NewReportGeneratedEvent(o *Operation) *ReportGeneratedEvent {
	return &ReportGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReportGenerated, "BulkOperation", o.ID),
		State:           o.State.String(),
		TotalRows:       o.TotalRows,
		AppliedRows:     o.AppliedRows,
		FailedRows:      o.FailedRows,
	}
}
