package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/adsync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Direction represents which way campaign state flows
// ---------------------------------------------------------------------------

// Direction represents which way campaign state flows
type Direction string

const (
	// DirectionPush sends intent fields to the execution platform
	DirectionPush Direction = "push"
	// DirectionPull retrieves delivery facts from the execution platform
	DirectionPull Direction = "pull"
)

// IsValid returns true if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionPush || d == DirectionPull
}

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// ---------------------------------------------------------------------------
// JobState represents the lifecycle state of a sync job
// ---------------------------------------------------------------------------

// JobState represents the lifecycle state of a sync job
type JobState string

const (
	// JobStatePending indicates the job is admitted but not started
	JobStatePending JobState = "pending"
	// JobStateRunning indicates scope items are being executed
	JobStateRunning JobState = "running"
	// JobStateSucceeded indicates every scope item succeeded
	JobStateSucceeded JobState = "succeeded"
	// JobStateFailed indicates no scope item succeeded
	JobStateFailed JobState = "failed"
	// JobStatePartial indicates some scope items succeeded and some failed
	JobStatePartial JobState = "partial"
	// JobStateCancelled indicates the job was cancelled before completion
	JobStateCancelled JobState = "cancelled"
)

// IsValid returns true if the state is valid
func (s JobState) IsValid() bool {
	switch s {
	case JobStatePending, JobStateRunning, JobStateSucceeded,
		JobStateFailed, JobStatePartial, JobStateCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the state is terminal
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStatePartial, JobStateCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of JobState
func (s JobState) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Scope selects which parts of a campaign a push job transfers
// ---------------------------------------------------------------------------

// Scope selects which parts of a campaign a push job transfers. The
// campaign shell is always pushed first; scope flags select the rest.
type Scope struct {
	Creatives bool `json:"creatives"`
	Targeting bool `json:"targeting"`
	Budget    bool `json:"budget"`
}

// IsEmpty returns true when no scope flag is set
func (s Scope) IsEmpty() bool {
	return !s.Creatives && !s.Targeting && !s.Budget
}

// FullScope returns a scope covering every transferable part
func FullScope() Scope {
	return Scope{Creatives: true, Targeting: true, Budget: true}
}

// ---------------------------------------------------------------------------
// Item is one unit of work inside a job
// ---------------------------------------------------------------------------

// ItemKind identifies the unit of work a scope item performs
type ItemKind string

const (
	// ItemCampaign pushes the campaign shell; always first in a push job
	ItemCampaign ItemKind = "campaign"
	// ItemCreative pushes one creative
	ItemCreative ItemKind = "creative"
	// ItemTargeting pushes the targeting intent
	ItemTargeting ItemKind = "targeting"
	// ItemBudget pushes the budget ceiling
	ItemBudget ItemKind = "budget"
	// ItemPerformance pulls delivery facts
	ItemPerformance ItemKind = "performance"
)

// ItemState represents the outcome state of one scope item
type ItemState string

const (
	ItemStatePending   ItemState = "pending"
	ItemStateSucceeded ItemState = "succeeded"
	ItemStateFailed    ItemState = "failed"
	ItemStateCancelled ItemState = "cancelled"
)

// Item is the recorded outcome of one unit of work inside a job.
// Items keep their planning order so the outcome log is deterministic.
type Item struct {
	Kind ItemKind `json:"kind"`
	// CreativeID is set only for creative items
	CreativeID uuid.UUID `json:"creative_id,omitempty"`
	State      ItemState `json:"state"`
	Reason     Reason    `json:"reason,omitempty"`
	Message    string    `json:"message,omitempty"`
	// Attempts counts how many times the item was tried, including the
	// first attempt
	Attempts int `json:"attempts"`
}

// ---------------------------------------------------------------------------
// Job Aggregate
// ---------------------------------------------------------------------------

// Job is a sync job transferring campaign state between platforms.
// A campaign admits at most one non-terminal job at a time.
type Job struct {
	shared.BaseAggregateRoot
	CampaignID  uuid.UUID    `json:"campaign_id"`
	Platform    PlatformCode `json:"platform"`
	Direction   Direction    `json:"direction"`
	Scope       Scope        `json:"scope"`
	State       JobState     `json:"state"`
	Items       []Item       `json:"items"`
	Reason      Reason       `json:"reason,omitempty"`
	Message     string       `json:"message,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// NewPushJob creates a pending push job for the given scope
func NewPushJob(campaignID uuid.UUID, platform PlatformCode, scope Scope) (*Job, error) {
	if campaignID == uuid.Nil {
		return nil, Invalid("campaign_id", "campaign id is required")
	}
	if !platform.IsValid() {
		return nil, ErrUnknownPlatform
	}
	if scope.IsEmpty() {
		return nil, ErrEmptyScope
	}

	return &Job{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CampaignID:        campaignID,
		Platform:          platform,
		Direction:         DirectionPush,
		Scope:             scope,
		State:             JobStatePending,
		Items:             make([]Item, 0),
	}, nil
}

// NewPullJob creates a pending performance pull job
func NewPullJob(campaignID uuid.UUID, platform PlatformCode) (*Job, error) {
	if campaignID == uuid.Nil {
		return nil, Invalid("campaign_id", "campaign id is required")
	}
	if !platform.IsValid() {
		return nil, ErrUnknownPlatform
	}

	return &Job{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CampaignID:        campaignID,
		Platform:          platform,
		Direction:         DirectionPull,
		State:             JobStatePending,
		Items:             make([]Item, 0),
	}, nil
}

// PlanItem appends a pending scope item. Planning happens before Start
// so the outcome log covers every unit of work the job will attempt.
func (j *Job) PlanItem(kind ItemKind, creativeID uuid.UUID) error {
	if j.State != JobStatePending {
		return shared.ErrInvalidState
	}
	j.Items = append(j.Items, Item{
		Kind:       kind,
		CreativeID: creativeID,
		State:      ItemStatePending,
	})
	return nil
}

// Start transitions the job from pending to running
func (j *Job) Start() error {
	if j.State != JobStatePending {
		return shared.ErrInvalidState
	}
	now := time.Now()
	j.State = JobStateRunning
	j.StartedAt = &now
	j.touch()
	return nil
}

// CompleteItem records a successful item outcome
func (j *Job) CompleteItem(index, attempts int) error {
	if err := j.checkItem(index); err != nil {
		return err
	}
	j.Items[index].State = ItemStateSucceeded
	j.Items[index].Reason = ReasonNone
	j.Items[index].Attempts = attempts
	j.touch()
	return nil
}

// FailItem records a failed item outcome with its taxonomy reason
func (j *Job) FailItem(index, attempts int, reason Reason, message string) error {
	if err := j.checkItem(index); err != nil {
		return err
	}
	j.Items[index].State = ItemStateFailed
	j.Items[index].Reason = reason
	j.Items[index].Message = message
	j.Items[index].Attempts = attempts
	j.touch()
	return nil
}

func (j *Job) checkItem(index int) error {
	if j.State != JobStateRunning {
		return shared.ErrInvalidState
	}
	if index < 0 || index >= len(j.Items) {
		return Invalid("item", "item index out of range")
	}
	return nil
}

// Finalize computes the terminal state from the item outcomes and emits
// the completion event. Items still pending are recorded as cancelled.
func (j *Job) Finalize() error {
	if j.State != JobStateRunning {
		return shared.ErrInvalidState
	}

	var succeeded, failed, cancelled int
	for i := range j.Items {
		switch j.Items[i].State {
		case ItemStateSucceeded:
			succeeded++
		case ItemStateFailed:
			failed++
		default:
			j.Items[i].State = ItemStateCancelled
			j.Items[i].Reason = ReasonCancelled
			cancelled++
		}
	}

	switch {
	case cancelled > 0:
		j.State = JobStateCancelled
		j.Reason = ReasonCancelled
	case failed == 0:
		j.State = JobStateSucceeded
	case succeeded == 0:
		j.State = JobStateFailed
		j.Reason = j.dominantFailureReason()
	default:
		j.State = JobStatePartial
		j.Reason = j.dominantFailureReason()
	}

	j.complete()
	return nil
}

// Abort terminates the job with a job-level failure before or during item
// execution, for faults that invalidate the whole job rather than one item
func (j *Job) Abort(reason Reason, message string) error {
	if j.State.IsTerminal() {
		return shared.ErrInvalidState
	}
	for i := range j.Items {
		if j.Items[i].State == ItemStatePending {
			j.Items[i].State = ItemStateCancelled
			j.Items[i].Reason = ReasonCancelled
		}
	}
	j.State = JobStateFailed
	j.Reason = reason
	j.Message = message
	j.complete()
	return nil
}

// Cancel stops the job; pending items are never attempted and completed
// item outcomes are kept
func (j *Job) Cancel() error {
	if j.State.IsTerminal() {
		return shared.ErrInvalidState
	}
	for i := range j.Items {
		if j.Items[i].State == ItemStatePending {
			j.Items[i].State = ItemStateCancelled
			j.Items[i].Reason = ReasonCancelled
		}
	}
	j.State = JobStateCancelled
	j.Reason = ReasonCancelled
	j.complete()
	return nil
}

func (j *Job) complete() {
	now := time.Now()
	j.CompletedAt = &now
	j.touch()
	j.AddDomainEvent(NewSyncCompletedEvent(j))
}

// dominantFailureReason picks the reason reported on the job itself:
// any internal fault outranks the rest, otherwise the first failed
// item's reason stands for the job
func (j *Job) dominantFailureReason() Reason {
	var first Reason
	for _, item := range j.Items {
		if item.State != ItemStateFailed {
			continue
		}
		if item.Reason == ReasonInternal {
			return ReasonInternal
		}
		if first == ReasonNone {
			first = item.Reason
		}
	}
	return first
}

// FailedScope derives the scope for a follow-up job covering only the
// items that failed; succeeded items are excluded so a retry never
// re-sends confirmed work
func (j *Job) FailedScope() (Scope, []uuid.UUID) {
	var scope Scope
	var creativeIDs []uuid.UUID
	for _, item := range j.Items {
		if item.State != ItemStateFailed {
			continue
		}
		switch item.Kind {
		case ItemCreative:
			scope.Creatives = true
			creativeIDs = append(creativeIDs, item.CreativeID)
		case ItemTargeting:
			scope.Targeting = true
		case ItemBudget:
			scope.Budget = true
		}
	}
	return scope, creativeIDs
}

func (j *Job) touch() {
	j.UpdatedAt = time.Now()
	j.IncrementVersion()
}
