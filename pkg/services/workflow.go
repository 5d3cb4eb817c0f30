package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/convoca/convoca/pkg/eventbus"
	"github.com/convoca/convoca/pkg/events"
	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/persistence"
	"github.com/convoca/convoca/pkg/workflow"
)

type Workflow struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validator   *validator.Validate
}

// NewWorkflow creates the workflow service. The publisher carries run-now
// trigger events to the workers and may be nil in read-only contexts.
func NewWorkflow(persistence persistence.Persistence, publisher eventbus.EventPublisher) *Workflow {
	return &Workflow{
		persistence: persistence,
		publisher:   publisher,
		validator:   validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List retrieves all workflow definitions, newest first.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create adds a new workflow. New workflows start paused unless a status is
// given, so nothing fires before the author activates the definition.
func (w *Workflow) Create(ctx context.Context, definition *models.Workflow) (*models.Workflow, error) {
	if definition == nil {
		return nil, ErrWorkflowNil
	}

	now := time.Now().UTC()
	definition.ID = "wf-" + uuid.New().String()[:8]
	definition.CreatedAt = now
	definition.UpdatedAt = now
	definition.ExecutionCount = 0
	definition.LastExecutedAt = nil

	if definition.Status == "" {
		definition.Status = models.WorkflowStatusPaused
	}

	if err := w.validate(definition); err != nil {
		return nil, err
	}

	if err := w.persistence.WorkflowRepository().Save(ctx, definition); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	if err := w.syncSchedule(ctx, definition); err != nil {
		return nil, err
	}

	return definition, nil
}

// Update modifies an existing workflow, preserving its creation time and
// execution counters.
func (w *Workflow) Update(ctx context.Context, workflowID string, definition *models.Workflow) (*models.Workflow, error) {
	if definition == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	definition.ID = workflowID
	definition.CreatedAt = existing.CreatedAt
	definition.UpdatedAt = time.Now().UTC()
	definition.ExecutionCount = existing.ExecutionCount
	definition.LastExecutedAt = existing.LastExecutedAt

	if definition.Status == "" {
		definition.Status = existing.Status
	}

	if err := w.validate(definition); err != nil {
		return nil, err
	}

	if err := w.persistence.WorkflowRepository().Save(ctx, definition); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	if err := w.syncSchedule(ctx, definition); err != nil {
		return nil, err
	}

	return definition, nil
}

// Delete removes a workflow and its trigger schedule.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	if _, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID); err != nil {
		return err
	}

	if err := w.persistence.WorkflowRepository().Delete(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	if err := w.persistence.ScheduleRepository().Delete(ctx, workflowID); err != nil &&
		!persistence.IsScheduleNotFound(err) {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	return nil
}

// Pause stops the scheduler from starting or resuming runs for the workflow.
// An already-executing run finishes its in-flight action undisturbed.
func (w *Workflow) Pause(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.setStatus(ctx, workflowID, models.WorkflowStatusPaused)
}

// Activate makes the workflow eligible for triggering again.
func (w *Workflow) Activate(ctx context.Context, workflowID string) (*models.Workflow, error) {
	return w.setStatus(ctx, workflowID, models.WorkflowStatusActive)
}

func (w *Workflow) setStatus(ctx context.Context, workflowID string, status models.WorkflowStatus) (*models.Workflow, error) {
	definition, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	definition.Status = status
	definition.UpdatedAt = time.Now().UTC()

	if err := w.persistence.WorkflowRepository().Save(ctx, definition); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	if err := w.syncSchedule(ctx, definition); err != nil {
		return nil, err
	}

	return definition, nil
}

// RunNow triggers a manual run. Non-runnable workflows are rejected
// synchronously; no run record or event is produced for them.
func (w *Workflow) RunNow(ctx context.Context, workflowID string, guestIDs []string) error {
	definition, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if !definition.Runnable() {
		return fmt.Errorf("workflow %s (status %s, %d actions): %w",
			workflowID, definition.Status, len(definition.Actions), ErrNotRunnable)
	}

	event := events.WorkflowTriggered{
		BaseEvent:   events.NewBaseEvent(events.WorkflowTriggeredEvent, definition.ID),
		TriggerType: string(models.TriggerTypeManual),
		GuestIDs:    guestIDs,
	}

	if err := w.publisher.Publish(ctx, definition.ID, event); err != nil {
		return fmt.Errorf("failed to publish trigger event: %w", err)
	}

	return nil
}

// Export returns the portable form of a workflow definition.
func (w *Workflow) Export(ctx context.Context, workflowID string) (*workflow.ExportDocument, error) {
	definition, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return workflow.Export(definition), nil
}

// Import creates a new paused workflow for the event from an export document.
func (w *Workflow) Import(ctx context.Context, eventID string, data []byte) (*models.Workflow, error) {
	definition, err := workflow.Import(data, eventID)
	if err != nil {
		return nil, NewValidationError("Import", err.Error(), ErrInvalidImport)
	}

	now := time.Now().UTC()
	definition.CreatedAt = now
	definition.UpdatedAt = now

	if err := w.validate(definition); err != nil {
		return nil, err
	}

	if err := w.persistence.WorkflowRepository().Save(ctx, definition); err != nil {
		return nil, fmt.Errorf("failed to save imported workflow: %w", err)
	}

	if err := w.syncSchedule(ctx, definition); err != nil {
		return nil, err
	}

	return definition, nil
}

// validate combines struct-tag validation with the model's cross-field checks
// and the cron check for scheduled workflows.
func (w *Workflow) validate(definition *models.Workflow) error {
	if err := w.validator.Struct(definition); err != nil {
		return NewValidationError("validate", err.Error(), ErrInvalidWorkflow)
	}

	if err := definition.Validate(); err != nil {
		return NewValidationError("validate", err.Error(), ErrInvalidWorkflow)
	}

	if definition.TriggerType == models.TriggerTypeScheduled {
		if definition.TriggerCron == "" {
			return NewValidationError("validate", "scheduled workflows require a cron expression", ErrInvalidCron)
		}

		probe := &models.TriggerSchedule{
			ID:             "probe",
			WorkflowID:     definition.ID,
			CronExpression: definition.TriggerCron,
		}
		if err := probe.Validate(); err != nil {
			return NewValidationError("validate", err.Error(), ErrInvalidCron)
		}
	}

	return nil
}

// syncSchedule keeps the persisted trigger schedule aligned with the
// definition: present and active for active scheduled workflows, absent
// otherwise.
func (w *Workflow) syncSchedule(ctx context.Context, definition *models.Workflow) error {
	schedules := w.persistence.ScheduleRepository()

	if definition.TriggerType != models.TriggerTypeScheduled {
		if err := schedules.Delete(ctx, definition.ID); err != nil && !persistence.IsScheduleNotFound(err) {
			return fmt.Errorf("failed to remove stale schedule: %w", err)
		}

		return nil
	}

	existing, err := schedules.GetByWorkflow(ctx, definition.ID)

	switch {
	case err == nil:
		existing.Active = definition.Status == models.WorkflowStatusActive

		if existing.CronExpression != definition.TriggerCron {
			existing.CronExpression = definition.TriggerCron
			if err := existing.UpdateNextDueAt(time.Now().UTC()); err != nil {
				return NewValidationError("syncSchedule", err.Error(), ErrInvalidCron)
			}
		}

		return schedules.Save(ctx, existing)
	case persistence.IsScheduleNotFound(err):
		schedule, err := models.NewTriggerSchedule("sched-"+uuid.New().String()[:8], definition.ID, definition.TriggerCron)
		if err != nil {
			return NewValidationError("syncSchedule", err.Error(), ErrInvalidCron)
		}

		schedule.Active = definition.Status == models.WorkflowStatusActive

		return schedules.Save(ctx, schedule)
	default:
		return fmt.Errorf("failed to load schedule: %w", err)
	}
}
