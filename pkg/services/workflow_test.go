package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoca/convoca/pkg/eventbus"
	"github.com/convoca/convoca/pkg/events"
	"github.com/convoca/convoca/pkg/models"
	"github.com/convoca/convoca/pkg/persistence"
	"github.com/convoca/convoca/pkg/persistence/file"
	"github.com/convoca/convoca/pkg/workflow"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *capturePublisher) Events() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]eventbus.Event(nil), p.events...)
}

func newWorkflowService(t *testing.T) (*Workflow, persistence.Persistence, *capturePublisher) {
	t.Helper()

	persist := file.NewPersistence(t.TempDir())
	publisher := &capturePublisher{}

	return NewWorkflow(persist, publisher), persist, publisher
}

func validDefinition() *models.Workflow {
	return &models.Workflow{
		EventID:     "event-1",
		Name:        "Welcome sequence",
		TriggerType: models.TriggerTypeManual,
		Actions: []*models.Action{
			{
				ID:   "a1",
				Type: models.ActionTypeEmail,
				Message: &models.MessageConfig{
					Recipients: models.RecipientsAll,
					Message:    "Welcome!",
				},
			},
		},
	}
}

func TestWorkflowService_Create(t *testing.T) {
	service, _, _ := newWorkflowService(t)

	created, err := service.Create(context.Background(), validDefinition())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusPaused, created.Status, "new workflows start paused")
	assert.False(t, created.CreatedAt.IsZero())
	assert.Zero(t, created.ExecutionCount)

	fetched, err := service.FetchByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, fetched.Name)
}

func TestWorkflowService_Create_Invalid(t *testing.T) {
	service, _, _ := newWorkflowService(t)

	short := validDefinition()
	short.Name = "ab"

	_, err := service.Create(context.Background(), short)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	mismatch := validDefinition()
	mismatch.Actions[0].Type = models.ActionTypeDelay

	_, err = service.Create(context.Background(), mismatch)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = service.Create(context.Background(), nil)
	assert.ErrorIs(t, err, ErrWorkflowNil)
}

func TestWorkflowService_Create_ScheduledNeedsValidCron(t *testing.T) {
	service, persist, _ := newWorkflowService(t)

	missing := validDefinition()
	missing.TriggerType = models.TriggerTypeScheduled

	_, err := service.Create(context.Background(), missing)
	assert.ErrorIs(t, err, ErrInvalidCron)

	invalid := validDefinition()
	invalid.TriggerType = models.TriggerTypeScheduled
	invalid.TriggerCron = "not a cron"

	_, err = service.Create(context.Background(), invalid)
	assert.ErrorIs(t, err, ErrInvalidCron)

	valid := validDefinition()
	valid.TriggerType = models.TriggerTypeScheduled
	valid.TriggerCron = "0 9 * * *"
	valid.Status = models.WorkflowStatusActive

	created, err := service.Create(context.Background(), valid)
	require.NoError(t, err)

	schedule, err := persist.ScheduleRepository().GetByWorkflow(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, schedule.Active)
	assert.Equal(t, "0 9 * * *", schedule.CronExpression)
	assert.False(t, schedule.NextDueAt.IsZero())
}

func TestWorkflowService_Update_PreservesCounters(t *testing.T) {
	service, persist, _ := newWorkflowService(t)

	created, err := service.Create(context.Background(), validDefinition())
	require.NoError(t, err)

	// Simulate past executions.
	now := time.Now().UTC()
	created.ExecutionCount = 7
	created.LastExecutedAt = &now
	require.NoError(t, persist.WorkflowRepository().Save(context.Background(), created))

	updated := validDefinition()
	updated.Name = "Renamed sequence"

	result, err := service.Update(context.Background(), created.ID, updated)
	require.NoError(t, err)

	assert.Equal(t, "Renamed sequence", result.Name)
	assert.Equal(t, int64(7), result.ExecutionCount)
	assert.Equal(t, created.CreatedAt, result.CreatedAt)
}

func TestWorkflowService_Update_NotFound(t *testing.T) {
	service, _, _ := newWorkflowService(t)

	_, err := service.Update(context.Background(), "missing", validDefinition())
	assert.True(t, IsNotFoundError(err))
}

func TestWorkflowService_PauseAndActivate(t *testing.T) {
	service, persist, _ := newWorkflowService(t)

	definition := validDefinition()
	definition.TriggerType = models.TriggerTypeScheduled
	definition.TriggerCron = "0 9 * * *"
	definition.Status = models.WorkflowStatusActive

	created, err := service.Create(context.Background(), definition)
	require.NoError(t, err)

	paused, err := service.Pause(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPaused, paused.Status)

	schedule, err := persist.ScheduleRepository().GetByWorkflow(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, schedule.Active, "pausing deactivates the schedule")

	activated, err := service.Activate(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusActive, activated.Status)

	schedule, err = persist.ScheduleRepository().GetByWorkflow(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, schedule.Active)
}

func TestWorkflowService_RunNow(t *testing.T) {
	service, _, publisher := newWorkflowService(t)

	definition := validDefinition()
	definition.Status = models.WorkflowStatusActive

	created, err := service.Create(context.Background(), definition)
	require.NoError(t, err)

	require.NoError(t, service.RunNow(context.Background(), created.ID, []string{"g1"}))

	published := publisher.Events()
	require.Len(t, published, 1)

	triggered, ok := published[0].(events.WorkflowTriggered)
	require.True(t, ok)
	assert.Equal(t, created.ID, triggered.WorkflowID)
	assert.Equal(t, "manual", triggered.TriggerType)
	assert.Equal(t, []string{"g1"}, triggered.GuestIDs)
}

func TestWorkflowService_RunNow_NotRunnable(t *testing.T) {
	service, _, publisher := newWorkflowService(t)

	created, err := service.Create(context.Background(), validDefinition())
	require.NoError(t, err)

	err = service.RunNow(context.Background(), created.ID, nil)
	require.ErrorIs(t, err, ErrNotRunnable)
	assert.True(t, IsConflictError(err))
	assert.Empty(t, publisher.Events(), "rejected runs must not emit trigger events")
}

func TestWorkflowService_Delete(t *testing.T) {
	service, persist, _ := newWorkflowService(t)

	definition := validDefinition()
	definition.TriggerType = models.TriggerTypeScheduled
	definition.TriggerCron = "0 9 * * *"

	created, err := service.Create(context.Background(), definition)
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), created.ID))

	_, err = service.FetchByID(context.Background(), created.ID)
	assert.True(t, IsNotFoundError(err))

	_, err = persist.ScheduleRepository().GetByWorkflow(context.Background(), created.ID)
	assert.True(t, persistence.IsScheduleNotFound(err))
}

func TestWorkflowService_ImportExport(t *testing.T) {
	service, _, _ := newWorkflowService(t)

	definition := validDefinition()
	definition.Status = models.WorkflowStatusActive

	created, err := service.Create(context.Background(), definition)
	require.NoError(t, err)

	document, err := service.Export(context.Background(), created.ID)
	require.NoError(t, err)

	data, err := json.Marshal(document)
	require.NoError(t, err)

	imported, err := service.Import(context.Background(), "event-2", data)
	require.NoError(t, err)

	assert.Equal(t, created.Name+workflow.ImportedNameSuffix, imported.Name)
	assert.Equal(t, "event-2", imported.EventID)
	assert.Equal(t, models.WorkflowStatusPaused, imported.Status)
	assert.NotEqual(t, created.ID, imported.ID)

	_, err = service.Import(context.Background(), "event-2", []byte(`{"name":"x"}`))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestRunsService_History(t *testing.T) {
	persist := file.NewPersistence(t.TempDir())
	service := NewRuns(persist)

	wf := validDefinition()
	wf.ID = "wf-1"
	require.NoError(t, persist.WorkflowRepository().Save(context.Background(), wf))

	_, err := service.History(context.Background(), "missing")
	assert.True(t, IsNotFoundError(err))

	require.NoError(t, persist.RunRepository().Save(context.Background(), &models.WorkflowRun{
		ID:         "run-1",
		WorkflowID: "wf-1",
		Status:     models.RunStatusCompleted,
		StartedAt:  time.Now().UTC().Add(-time.Hour),
	}))
	require.NoError(t, persist.RunRepository().Save(context.Background(), &models.WorkflowRun{
		ID:         "run-2",
		WorkflowID: "wf-1",
		Status:     models.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}))

	runs, err := service.History(context.Background(), "wf-1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID, "runs are listed newest first")

	run, err := service.FetchByID(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
}
