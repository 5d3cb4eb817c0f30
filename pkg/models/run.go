package models

import "time"

// RunStatus is the lifecycle state of one workflow execution.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSuspended RunStatus = "suspended" // Parked at a delay action until ResumeAt
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// OutcomeStatus records how one recipient fared for one action.
type OutcomeStatus string

const (
	OutcomeSent    OutcomeStatus = "sent"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// ActionOutcome is one per-action-per-recipient entry of a run's outcome log.
type ActionOutcome struct {
	ActionID    string        `json:"action_id"`
	RecipientID string        `json:"recipient_id"`
	Outcome     OutcomeStatus `json:"outcome"`
	Error       string        `json:"error,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// WorkflowRun is one execution instance of a workflow. It is the executor's
// sole resumption input: CurrentActionIndex and ResumeAt carry a suspended run
// across delays with no in-memory state.
type WorkflowRun struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`

	// GuestIDs limits the run to specific guests. Empty means the run spans
	// every guest the per-action recipient filter selects. Conditional
	// triggers set this to the single guest that tripped the conditions.
	GuestIDs []string `json:"guest_ids,omitempty"`

	Status             RunStatus  `json:"status"`
	CurrentActionIndex int        `json:"current_action_index"`
	ResumeAt           *time.Time `json:"resume_at,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	Error              string     `json:"error,omitempty"`

	Outcomes []ActionOutcome `json:"outcomes,omitempty"`
}

// Targets reports whether the run includes the given guest.
func (r *WorkflowRun) Targets(guestID string) bool {
	if len(r.GuestIDs) == 0 {
		return true
	}

	for _, id := range r.GuestIDs {
		if id == guestID {
			return true
		}
	}

	return false
}

// ResumeDue reports whether a suspended run is ready to continue.
func (r *WorkflowRun) ResumeDue(now time.Time) bool {
	return r.Status == RunStatusSuspended && r.ResumeAt != nil && !r.ResumeAt.After(now)
}
