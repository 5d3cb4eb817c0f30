package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerSchedule is the persisted scheduling entry for one scheduled
// workflow. It carries the cron expression and the precomputed next due time
// so the scheduler can poll for due workflows without holding per-workflow
// timers.
type TriggerSchedule struct {
	// ID uniquely identifies this schedule entry
	ID string `json:"id" validate:"required"`

	// WorkflowID identifies the workflow this schedule triggers
	WorkflowID string `json:"workflow_id" validate:"required"`

	// CronExpression defines when this schedule fires.
	// Standard 5-field cron format (minute hour day month weekday).
	CronExpression string `json:"cron_expression" validate:"required"`

	// NextDueAt is the precomputed next trigger time
	NextDueAt time.Time `json:"next_due_at" validate:"required"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Active mirrors the workflow's active status. Inactive schedules are
	// skipped by the poller.
	Active bool `json:"active"`
}

// ErrInvalidSchedule is returned when schedule validation fails.
var ErrInvalidSchedule = errors.New("invalid schedule configuration")

// NewTriggerSchedule creates a schedule entry with its first due time computed.
func NewTriggerSchedule(id, workflowID, cronExpression string) (*TriggerSchedule, error) {
	now := time.Now().UTC()
	schedule := &TriggerSchedule{
		ID:             id,
		WorkflowID:     workflowID,
		CronExpression: cronExpression,
		CreatedAt:      now,
		UpdatedAt:      now,
		Active:         true,
	}

	if err := schedule.calculateNextDueAt(now); err != nil {
		return nil, err
	}

	return schedule, nil
}

// UpdateNextDueAt advances the due time past the given reference time. Called
// after a due schedule fires so it is not re-fired on the next poll.
func (s *TriggerSchedule) UpdateNextDueAt(after time.Time) error {
	return s.calculateNextDueAt(after)
}

func (s *TriggerSchedule) calculateNextDueAt(referenceTime time.Time) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	cronSchedule, err := parser.Parse(s.CronExpression)
	if err != nil {
		return err
	}

	s.NextDueAt = cronSchedule.Next(referenceTime)
	s.UpdatedAt = time.Now().UTC()

	return nil
}

// IsDue checks if this schedule should fire at the given time.
func (s *TriggerSchedule) IsDue(now time.Time) bool {
	return s.Active && !s.NextDueAt.After(now)
}

// Validate performs validation on the schedule fields.
func (s *TriggerSchedule) Validate() error {
	if s.ID == "" || s.WorkflowID == "" || s.CronExpression == "" {
		return ErrInvalidSchedule
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(s.CronExpression)

	return err
}
