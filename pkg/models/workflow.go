// Package models defines the core domain models for invitation workflow automation.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusActive    WorkflowStatus = "active"    // Eligible for triggering
	WorkflowStatusPaused    WorkflowStatus = "paused"    // Not triggered, suspended runs stay parked
	WorkflowStatusCompleted WorkflowStatus = "completed" // Finished, kept for history
)

// TriggerType decides when a workflow run starts.
type TriggerType string

const (
	TriggerTypeManual      TriggerType = "manual"      // Started only by an explicit API call
	TriggerTypeScheduled   TriggerType = "scheduled"   // Started when the cron schedule is due
	TriggerTypeConditional TriggerType = "conditional" // Started per guest when the conditions first pass
)

// Workflow is a named, ordered sequence of communication actions attached to one event.
type Workflow struct {
	ID          string      `json:"id"`
	EventID     string      `json:"event_id"    validate:"required"`
	Name        string      `json:"name"        validate:"required,min=3"`
	Description string      `json:"description"`
	TriggerType TriggerType `json:"trigger_type" validate:"required,oneof=manual scheduled conditional"`

	// TriggerCron holds the cron expression for scheduled workflows.
	// Ignored for other trigger types.
	TriggerCron string `json:"trigger_cron,omitempty"`

	// TriggerConditions gate conditional triggers. Ignored for other trigger types.
	TriggerConditions []*Condition `json:"trigger_conditions,omitempty"`

	// Actions run strictly in list order.
	Actions []*Action `json:"actions"`

	Status         WorkflowStatus `json:"status" validate:"required,oneof=active paused completed"`
	ExecutionCount int64          `json:"execution_count"`
	LastExecutedAt *time.Time     `json:"last_executed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Runnable reports whether the executor may start a run for this workflow.
// A definition with no actions is a valid draft but is never runnable.
func (w *Workflow) Runnable() bool {
	return w.Status == WorkflowStatusActive && len(w.Actions) > 0
}

// Validate checks cross-field invariants that struct tags cannot express.
func (w *Workflow) Validate() error {
	for _, action := range w.Actions {
		if err := action.Validate(); err != nil {
			return err
		}
	}

	for _, condition := range w.TriggerConditions {
		if err := condition.Validate(); err != nil {
			return err
		}
	}

	return nil
}
