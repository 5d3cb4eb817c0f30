// Package workflow implements the run state machine: starting runs, walking
// the action list, suspending at delays, and resuming from the persisted run
// record.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/convoca/convoca/pkg/eventbus"
	"github.com/convoca/convoca/pkg/events"
	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/persistence"
	"github.com/convoca/convoca/pkg/protocol"
	"github.com/convoca/convoca/pkg/recipients"
	"github.com/convoca/convoca/pkg/registry"
	"github.com/convoca/convoca/pkg/template"
)

type Executor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	guests      protocol.GuestStore
	publisher   eventbus.EventPublisher
	clock       protocol.Clock
	logger      *slog.Logger
}

func NewExecutor(
	persistence persistence.Persistence,
	registry *registry.Registry,
	guests protocol.GuestStore,
	publisher eventbus.EventPublisher,
	clock protocol.Clock,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		persistence: persistence,
		registry:    registry,
		guests:      guests,
		publisher:   publisher,
		clock:       clock,
		logger:      logger.With("module", "workflow_executor"),
	}
}

// Start creates a fresh run for the workflow and advances it until it
// completes, suspends at a delay, or fails. An empty guestIDs runs against
// every guest of the event.
func (e *Executor) Start(ctx context.Context, workflowID string, guestIDs []string) (*models.WorkflowRun, error) {
	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if !workflow.Runnable() {
		return nil, fmt.Errorf("workflow %s (status %s, %d actions): %w",
			workflowID, workflow.Status, len(workflow.Actions), ErrNotRunnable)
	}

	run := &models.WorkflowRun{
		ID:         "run-" + uuid.New().String()[:8],
		WorkflowID: workflowID,
		GuestIDs:   guestIDs,
		Status:     models.RunStatusRunning,
		StartedAt:  e.clock.Now(),
	}

	if err := e.persistence.RunRepository().Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to persist run: %w", err)
	}

	e.logger.Info("Starting workflow run",
		"workflow_id", workflowID, "run_id", run.ID, "guest_ids", guestIDs)

	return run, e.advance(ctx, workflow, run)
}

// Resume continues a previously claimed suspended run from its persisted
// CurrentActionIndex. The caller must have claimed the run (status flipped
// back to running) before calling Resume.
func (e *Executor) Resume(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	run, err := e.persistence.RunRepository().GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run %s: %w", runID, err)
	}

	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, run.WorkflowID)
	if err != nil {
		return run, e.fail(ctx, run, NewFatalError(run.ID, err))
	}

	e.logger.Info("Resuming workflow run",
		"workflow_id", workflow.ID, "run_id", run.ID, "action_index", run.CurrentActionIndex)

	return run, e.advance(ctx, workflow, run)
}

// advance walks the action list from run.CurrentActionIndex. Already-completed
// actions are never revisited; the run record is saved after each action so a
// crash loses at most the action in flight.
func (e *Executor) advance(ctx context.Context, workflow *models.Workflow, run *models.WorkflowRun) error {
	for run.CurrentActionIndex < len(workflow.Actions) {
		action := workflow.Actions[run.CurrentActionIndex]

		switch {
		case action.Type == models.ActionTypeDelay:
			resumeAt := e.clock.Now().Add(action.Delay.Duration())
			run.CurrentActionIndex++
			run.Status = models.RunStatusSuspended
			run.ResumeAt = &resumeAt

			if err := e.persistence.RunRepository().Save(ctx, run); err != nil {
				return e.fail(ctx, run, NewFatalError(run.ID, err))
			}

			e.logger.Info("Run suspended at delay",
				"run_id", run.ID, "resume_at", resumeAt, "action_index", run.CurrentActionIndex)
			e.publish(ctx, workflow.ID, events.RunSuspended{
				BaseEvent: events.NewBaseEvent(events.RunSuspendedEvent, workflow.ID),
				RunID:     run.ID,
				ResumeAt:  resumeAt,
			})

			return nil
		case action.IsMessaging():
			if err := e.executeMessaging(ctx, workflow, run, action); err != nil {
				return e.fail(ctx, run, err)
			}

			run.CurrentActionIndex++
			if err := e.persistence.RunRepository().Save(ctx, run); err != nil {
				return e.fail(ctx, run, NewFatalError(run.ID, err))
			}
		default:
			return e.fail(ctx, run, NewFatalError(run.ID,
				fmt.Errorf("%w: %q", models.ErrUnknownActionType, action.Type)))
		}
	}

	return e.complete(ctx, workflow, run)
}

// executeMessaging dispatches one messaging action to every resolved
// recipient. Recipient failures are recorded in the outcome log and never
// abort the action; only infrastructure errors bubble up as fatal.
func (e *Executor) executeMessaging(ctx context.Context, workflow *models.Workflow, run *models.WorkflowRun, action *models.Action) error {
	guests, err := e.guests.Guests(ctx, workflow.EventID)
	if err != nil {
		return NewFatalError(run.ID, fmt.Errorf("failed to load guests for event %s: %w", workflow.EventID, err))
	}

	eventDate, err := e.guests.EventDate(ctx, workflow.EventID)
	if err != nil {
		return NewFatalError(run.ID, fmt.Errorf("failed to load event %s: %w", workflow.EventID, err))
	}

	targeted := make([]models.GuestRecord, 0, len(guests))

	for _, guest := range guests {
		if run.Targets(guest.ID) {
			targeted = append(targeted, guest)
		}
	}

	resolved := recipients.Resolve(action.Message.Recipients, targeted, e.logger)

	selected := make(map[string]bool, len(resolved))
	for _, guest := range resolved {
		selected[guest.ID] = true
	}

	sender, senderErr := e.registry.CreateSender(action.Type, nil)

	for _, guest := range targeted {
		if !selected[guest.ID] {
			run.Outcomes = append(run.Outcomes, models.ActionOutcome{
				ActionID:    action.ID,
				RecipientID: guest.ID,
				Outcome:     models.OutcomeSkipped,
				Timestamp:   e.clock.Now(),
			})

			continue
		}

		run.Outcomes = append(run.Outcomes, e.dispatch(ctx, workflow, run, action, guest, eventDate, sender, senderErr))
	}

	return nil
}

// dispatch sends to a single recipient and returns its outcome log entry.
func (e *Executor) dispatch(
	ctx context.Context,
	workflow *models.Workflow,
	run *models.WorkflowRun,
	action *models.Action,
	guest models.GuestRecord,
	eventDate time.Time,
	sender protocol.Sender,
	senderErr error,
) models.ActionOutcome {
	outcome := models.ActionOutcome{
		ActionID:    action.ID,
		RecipientID: guest.ID,
		Outcome:     models.OutcomeSent,
		Timestamp:   e.clock.Now(),
	}

	if senderErr != nil {
		outcome.Outcome = models.OutcomeFailed
		outcome.Error = senderErr.Error()

		return outcome
	}

	message, err := template.RenderForGuest(action.Message.Message, guest, eventDate)
	if err != nil {
		e.logger.Warn("Failed to render message",
			"run_id", run.ID, "action_id", action.ID, "recipient_id", guest.ID, "error", err)

		outcome.Outcome = models.OutcomeFailed
		outcome.Error = err.Error()

		return outcome
	}

	err = sender.Send(ctx, protocol.SendRequest{
		Channel:    action.Type,
		WorkflowID: workflow.ID,
		RunID:      run.ID,
		ActionID:   action.ID,
		Recipient:  guest,
		Message:    message,
		Template:   action.Message.Template,
	})
	if err != nil {
		e.logger.Warn("Failed to dispatch message",
			"run_id", run.ID, "action_id", action.ID, "recipient_id", guest.ID, "error", err)

		outcome.Outcome = models.OutcomeFailed
		outcome.Error = err.Error()
	}

	return outcome
}

func (e *Executor) complete(ctx context.Context, workflow *models.Workflow, run *models.WorkflowRun) error {
	now := e.clock.Now()
	run.Status = models.RunStatusCompleted
	run.ResumeAt = nil
	run.CompletedAt = &now

	if err := e.persistence.RunRepository().Save(ctx, run); err != nil {
		return e.fail(ctx, run, NewFatalError(run.ID, err))
	}

	workflow.ExecutionCount++
	workflow.LastExecutedAt = &now

	if err := e.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return e.fail(ctx, run, NewFatalError(run.ID, err))
	}

	e.logger.Info("Workflow run completed",
		"workflow_id", workflow.ID, "run_id", run.ID, "outcomes", len(run.Outcomes))
	e.publish(ctx, workflow.ID, events.RunCompleted{
		BaseEvent: events.NewBaseEvent(events.RunCompletedEvent, workflow.ID),
		RunID:     run.ID,
		Duration:  now.Sub(run.StartedAt),
	})

	return nil
}

// fail marks the run failed and surfaces the error through the run record.
// Best effort: if even the failure save fails, the original error still wins.
func (e *Executor) fail(ctx context.Context, run *models.WorkflowRun, cause error) error {
	now := e.clock.Now()
	run.Status = models.RunStatusFailed
	run.ResumeAt = nil
	run.CompletedAt = &now
	run.Error = cause.Error()

	if err := e.persistence.RunRepository().Save(ctx, run); err != nil {
		e.logger.Error("Failed to persist failed run", "run_id", run.ID, "error", err)
	}

	e.logger.Error("Workflow run failed", "run_id", run.ID, "error", cause)
	e.publish(ctx, run.WorkflowID, events.RunFailed{
		BaseEvent: events.NewBaseEvent(events.RunFailedEvent, run.WorkflowID),
		RunID:     run.ID,
		Error:     cause.Error(),
		Duration:  now.Sub(run.StartedAt),
	})

	return cause
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
