// Package scheduler decides when workflow runs start. It polls trigger
// schedules, evaluates conditional triggers per guest, and wakes suspended
// runs whose delay has elapsed. All coordination goes through persisted
// records, so multiple instances can run concurrently behind the lock.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/convoca/convoca/pkg/eventbus"
	"github.com/convoca/convoca/pkg/events"
	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/otelhelper"
	"github.com/convoca/convoca/pkg/persistence"
	"github.com/convoca/convoca/pkg/protocol"
)

const defaultPollInterval = 1 * time.Minute

type Scheduler struct {
	schedulerID  string
	persistence  persistence.Persistence
	guests       protocol.GuestStore
	publisher    eventbus.EventPublisher
	lock         Lock
	clock        protocol.Clock
	pollInterval time.Duration
	tracer       trace.Tracer
	logger       *slog.Logger

	ticker  *time.Ticker
	done    chan bool
	started bool
	mu      sync.Mutex
}

type Config struct {
	SchedulerID  string
	Persistence  persistence.Persistence
	Guests       protocol.GuestStore
	Publisher    eventbus.EventPublisher
	Lock         Lock
	Clock        protocol.Clock
	PollInterval time.Duration
	Tracer       trace.Tracer
	Logger       *slog.Logger
}

func NewScheduler(config Config) *Scheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}

	if config.Clock == nil {
		config.Clock = protocol.SystemClock{}
	}

	if config.Lock == nil {
		config.Lock = NewLocalLock()
	}

	if config.Tracer == nil {
		config.Tracer = noop.NewTracerProvider().Tracer("scheduler")
	}

	return &Scheduler{
		schedulerID:  config.SchedulerID,
		persistence:  config.Persistence,
		guests:       config.Guests,
		publisher:    config.Publisher,
		lock:         config.Lock,
		clock:        config.Clock,
		pollInterval: config.PollInterval,
		tracer:       config.Tracer,
		logger: config.Logger.With(
			"module", "scheduler",
			"scheduler_id", config.SchedulerID,
		),
	}
}

// Start begins the poll loop. It returns immediately; polling happens in a
// background goroutine until Stop or context cancellation.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info("Starting scheduler", "poll_interval", s.pollInterval)

	s.ticker = time.NewTicker(s.pollInterval)
	s.done = make(chan bool)
	s.started = true

	go s.poll(ctx)

	return nil
}

// Stop gracefully shuts down the poll loop.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info("Stopping scheduler")

	if s.ticker != nil {
		s.ticker.Stop()
	}

	select {
	case s.done <- true:
	default:
	}

	s.started = false

	return nil
}

func (s *Scheduler) poll(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-s.ticker.C:
			s.RunPass(ctx)
		}
	}
}

// RunPass executes one polling pass: due schedules, conditional triggers,
// then resume duty. Failures are isolated per workflow; one broken workflow
// never stalls the rest of the pass.
func (s *Scheduler) RunPass(ctx context.Context) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "scheduler_pass",
		attribute.String(otelhelper.SchedulerIDKey, s.schedulerID),
	)
	defer span.End()

	s.processDueSchedules(ctx)
	s.processConditionalTriggers(ctx)
	s.processDueResumes(ctx)
}

func (s *Scheduler) processDueSchedules(ctx context.Context) {
	now := s.clock.Now()

	dueSchedules, err := s.persistence.ScheduleRepository().ListDue(ctx, now)
	if err != nil {
		s.logger.Error("Failed to list due schedules", "error", err)

		return
	}

	for _, schedule := range dueSchedules {
		if err := s.fireSchedule(ctx, schedule, now); err != nil {
			s.logger.Error("Failed to fire schedule",
				"workflow_id", schedule.WorkflowID, "error", err)
		}
	}
}

func (s *Scheduler) fireSchedule(ctx context.Context, schedule *models.TriggerSchedule, now time.Time) error {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, schedule.WorkflowID)
	if err != nil {
		return NewEvaluationError(schedule.WorkflowID, err)
	}

	if !workflow.Runnable() || workflow.TriggerType != models.TriggerTypeScheduled {
		s.logger.Debug("Skipping schedule for non-runnable workflow",
			"workflow_id", workflow.ID, "status", workflow.Status)

		return nil
	}

	// One firing per due time across scheduler instances.
	lockKey := "schedule:" + schedule.WorkflowID + ":" + strconv.FormatInt(schedule.NextDueAt.Unix(), 10)

	acquired, err := s.lock.Acquire(ctx, lockKey, s.pollInterval)
	if err != nil {
		return NewEvaluationError(schedule.WorkflowID, err)
	}

	if !acquired {
		return nil
	}

	s.logger.Info("Schedule due, triggering workflow",
		"workflow_id", workflow.ID, "due_at", schedule.NextDueAt)

	event := events.WorkflowTriggered{
		BaseEvent:   events.NewBaseEvent(events.WorkflowTriggeredEvent, workflow.ID),
		TriggerType: string(models.TriggerTypeScheduled),
	}
	event.WorkerID = s.schedulerID

	if err := s.publisher.Publish(ctx, workflow.ID, event); err != nil {
		return NewEvaluationError(workflow.ID, err)
	}

	if err := schedule.UpdateNextDueAt(now); err != nil {
		return NewEvaluationError(workflow.ID, err)
	}

	if err := s.persistence.ScheduleRepository().Save(ctx, schedule); err != nil {
		return NewEvaluationError(workflow.ID, err)
	}

	return nil
}

func (s *Scheduler) processConditionalTriggers(ctx context.Context) {
	workflows, err := s.persistence.WorkflowRepository().List(ctx)
	if err != nil {
		s.logger.Error("Failed to list workflows", "error", err)

		return
	}

	for _, workflow := range workflows {
		if workflow.TriggerType != models.TriggerTypeConditional || !workflow.Runnable() {
			continue
		}

		if err := s.evaluateConditionalWorkflow(ctx, workflow); err != nil {
			s.logger.Error("Failed to evaluate conditional trigger",
				"workflow_id", workflow.ID, "error", err)
		}
	}
}

// evaluateConditionalWorkflow fires the workflow once per guest, on the first
// pass where the guest's conditions hold. The persisted trigger mark keeps a
// guest whose condition stays true from firing on every poll.
func (s *Scheduler) evaluateConditionalWorkflow(ctx context.Context, workflow *models.Workflow) error {
	guests, err := s.guests.Guests(ctx, workflow.EventID)
	if err != nil {
		return NewEvaluationError(workflow.ID, err)
	}

	eventDate, err := s.guests.EventDate(ctx, workflow.EventID)
	if err != nil {
		return NewEvaluationError(workflow.ID, err)
	}

	now := s.clock.Now()
	marks := s.persistence.TriggerMarkRepository()

	for _, guest := range guests {
		marked, err := marks.Marked(ctx, workflow.ID, guest.ID)
		if err != nil {
			return NewEvaluationError(workflow.ID, err)
		}

		if marked {
			continue
		}

		guestCtx := models.GuestContext{Guest: guest, EventDate: eventDate, Now: now}
		if !models.EvaluateConditions(workflow.TriggerConditions, guestCtx) {
			continue
		}

		acquired, err := s.lock.Acquire(ctx, "conditional:"+workflow.ID+":"+guest.ID, s.pollInterval)
		if err != nil {
			return NewEvaluationError(workflow.ID, err)
		}

		if !acquired {
			continue
		}

		if err := marks.Mark(ctx, workflow.ID, guest.ID); err != nil {
			return NewEvaluationError(workflow.ID, err)
		}

		s.logger.Info("Conditional trigger passed, triggering workflow",
			"workflow_id", workflow.ID, "guest_id", guest.ID)

		event := events.WorkflowTriggered{
			BaseEvent:   events.NewBaseEvent(events.WorkflowTriggeredEvent, workflow.ID),
			TriggerType: string(models.TriggerTypeConditional),
			GuestIDs:    []string{guest.ID},
		}
		event.WorkerID = s.schedulerID

		if err := s.publisher.Publish(ctx, workflow.ID, event); err != nil {
			return NewEvaluationError(workflow.ID, err)
		}
	}

	return nil
}

// processDueResumes claims suspended runs whose delay has elapsed and hands
// them to the workers. Claiming flips the run back to running first, so at
// most one executor advances a given run.
func (s *Scheduler) processDueResumes(ctx context.Context) {
	now := s.clock.Now()

	dueRuns, err := s.persistence.RunRepository().ListSuspendedDue(ctx, now)
	if err != nil {
		s.logger.Error("Failed to list suspended runs", "error", err)

		return
	}

	for _, run := range dueRuns {
		if err := s.resumeRun(ctx, run); err != nil {
			s.logger.Error("Failed to resume run",
				"run_id", run.ID, "workflow_id", run.WorkflowID, "error", err)
		}
	}
}

func (s *Scheduler) resumeRun(ctx context.Context, run *models.WorkflowRun) error {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, run.WorkflowID)
	if err != nil {
		return NewEvaluationError(run.WorkflowID, err)
	}

	// Paused workflows keep their suspended runs parked until reactivated.
	if workflow.Status != models.WorkflowStatusActive {
		return nil
	}

	claimed, err := s.persistence.RunRepository().ClaimResume(ctx, run.ID)
	if err != nil {
		return NewEvaluationError(run.WorkflowID, err)
	}

	if !claimed {
		return nil
	}

	s.logger.Info("Waking suspended run", "run_id", run.ID, "workflow_id", run.WorkflowID)

	event := events.WorkflowTriggered{
		BaseEvent:   events.NewBaseEvent(events.WorkflowTriggeredEvent, run.WorkflowID),
		TriggerType: string(workflow.TriggerType),
		RunID:       run.ID,
	}
	event.WorkerID = s.schedulerID

	if err := s.publisher.Publish(ctx, run.WorkflowID, event); err != nil {
		return fmt.Errorf("failed to publish resume event for run %s: %w", run.ID, err)
	}

	return nil
}
