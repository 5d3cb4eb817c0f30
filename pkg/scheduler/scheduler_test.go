package scheduler

import (
	"context"
	"errors"
	"log/slog"
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
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fakeGuestStore struct {
	mu        sync.Mutex
	guests    map[string][]models.GuestRecord
	eventDate time.Time
	failFor   map[string]bool
}

func newFakeGuestStore(eventDate time.Time) *fakeGuestStore {
	return &fakeGuestStore{
		guests:    map[string][]models.GuestRecord{},
		eventDate: eventDate,
		failFor:   map[string]bool{},
	}
}

func (s *fakeGuestStore) addGuest(eventID string, guest models.GuestRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.guests[eventID] = append(s.guests[eventID], guest)
}

func (s *fakeGuestStore) Guests(_ context.Context, eventID string) ([]models.GuestRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failFor[eventID] {
		return nil, errors.New("guest store unavailable")
	}

	return s.guests[eventID], nil
}

func (s *fakeGuestStore) EventDate(_ context.Context, eventID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failFor[eventID] {
		return time.Time{}, errors.New("guest store unavailable")
	}

	return s.eventDate, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.WorkflowTriggered
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if triggered, ok := event.(events.WorkflowTriggered); ok {
		p.events = append(p.events, triggered)
	}

	return nil
}

func (p *capturePublisher) Triggered() []events.WorkflowTriggered {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]events.WorkflowTriggered(nil), p.events...)
}

type schedulerFixture struct {
	scheduler   *Scheduler
	persistence persistence.Persistence
	clock       *fakeClock
	store       *fakeGuestStore
	publisher   *capturePublisher
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)}
	store := newFakeGuestStore(time.Date(2026, 9, 12, 18, 0, 0, 0, time.UTC))
	publisher := &capturePublisher{}
	persist := file.NewPersistence(t.TempDir())

	sched := NewScheduler(Config{
		SchedulerID: "scheduler-test",
		Persistence: persist,
		Guests:      store,
		Publisher:   publisher,
		Lock:        NewLocalLock(),
		Clock:       clock,
		Logger:      slog.Default(),
	})

	return &schedulerFixture{
		scheduler:   sched,
		persistence: persist,
		clock:       clock,
		store:       store,
		publisher:   publisher,
	}
}

func (f *schedulerFixture) saveWorkflow(t *testing.T, workflow *models.Workflow) {
	t.Helper()
	require.NoError(t, f.persistence.WorkflowRepository().Save(context.Background(), workflow))
}

func emailAction(id string) *models.Action {
	return &models.Action{
		ID:   id,
		Type: models.ActionTypeEmail,
		Message: &models.MessageConfig{
			Recipients: models.RecipientsAll,
			Message:    "hello",
		},
	}
}

func TestScheduler_FiresDueSchedules(t *testing.T) {
	fixture := newSchedulerFixture(t)

	fixture.saveWorkflow(t, &models.Workflow{
		ID:          "wf-daily",
		EventID:     "event-1",
		Name:        "Daily digest",
		TriggerType: models.TriggerTypeScheduled,
		TriggerCron: "0 9 * * *",
		Status:      models.WorkflowStatusActive,
		Actions:     []*models.Action{emailAction("a1")},
	})

	schedule := &models.TriggerSchedule{
		ID:             "sched-1",
		WorkflowID:     "wf-daily",
		CronExpression: "0 9 * * *",
		NextDueAt:      fixture.clock.Now().Add(-time.Hour),
		Active:         true,
	}
	require.NoError(t, fixture.persistence.ScheduleRepository().Save(context.Background(), schedule))

	fixture.scheduler.RunPass(context.Background())

	triggered := fixture.publisher.Triggered()
	require.Len(t, triggered, 1)
	assert.Equal(t, "wf-daily", triggered[0].WorkflowID)
	assert.Equal(t, "scheduled", triggered[0].TriggerType)
	assert.Empty(t, triggered[0].RunID)

	updated, err := fixture.persistence.ScheduleRepository().GetByWorkflow(context.Background(), "wf-daily")
	require.NoError(t, err)
	assert.True(t, updated.NextDueAt.After(fixture.clock.Now()), "next due time must advance past now")

	// The advanced schedule is no longer due, so a second pass is a no-op.
	fixture.scheduler.RunPass(context.Background())
	assert.Len(t, fixture.publisher.Triggered(), 1)
}

func TestScheduler_SkipsPausedWorkflows(t *testing.T) {
	fixture := newSchedulerFixture(t)

	fixture.saveWorkflow(t, &models.Workflow{
		ID:          "wf-paused",
		EventID:     "event-1",
		Name:        "Paused digest",
		TriggerType: models.TriggerTypeScheduled,
		TriggerCron: "0 9 * * *",
		Status:      models.WorkflowStatusPaused,
		Actions:     []*models.Action{emailAction("a1")},
	})

	schedule := &models.TriggerSchedule{
		ID:             "sched-1",
		WorkflowID:     "wf-paused",
		CronExpression: "0 9 * * *",
		NextDueAt:      fixture.clock.Now().Add(-time.Hour),
		Active:         true,
	}
	require.NoError(t, fixture.persistence.ScheduleRepository().Save(context.Background(), schedule))

	fixture.saveWorkflow(t, &models.Workflow{
		ID:          "wf-paused-cond",
		EventID:     "event-1",
		Name:        "Paused follow-up",
		TriggerType: models.TriggerTypeConditional,
		Status:      models.WorkflowStatusPaused,
		Actions:     []*models.Action{emailAction("a1")},
		TriggerConditions: []*models.Condition{
			{Field: models.FieldRSVPStatus, Operator: models.OperatorEquals, Value: "pending"},
		},
	})

	fixture.store.addGuest("event-1", models.GuestRecord{
		ID: "g1", EventID: "event-1", RSVPStatus: models.RSVPPending,
	})

	fixture.scheduler.RunPass(context.Background())

	assert.Empty(t, fixture.publisher.Triggered(),
		"paused workflows must be skipped even when their triggers would pass")
}

func TestScheduler_ConditionalFiresOncePerGuest(t *testing.T) {
	fixture := newSchedulerFixture(t)

	fixture.saveWorkflow(t, &models.Workflow{
		ID:          "wf-nudge",
		EventID:     "event-1",
		Name:        "RSVP nudge",
		TriggerType: models.TriggerTypeConditional,
		Status:      models.WorkflowStatusActive,
		Actions:     []*models.Action{emailAction("a1")},
		TriggerConditions: []*models.Condition{
			{Field: models.FieldRSVPStatus, Operator: models.OperatorEquals, Value: "pending"},
		},
	})

	fixture.store.addGuest("event-1", models.GuestRecord{
		ID: "g-pending", EventID: "event-1", RSVPStatus: models.RSVPPending,
	})
	fixture.store.addGuest("event-1", models.GuestRecord{
		ID: "g-confirmed", EventID: "event-1", RSVPStatus: models.RSVPConfirmed,
	})

	fixture.scheduler.RunPass(context.Background())

	triggered := fixture.publisher.Triggered()
	require.Len(t, triggered, 1)
	assert.Equal(t, []string{"g-pending"}, triggered[0].GuestIDs)

	// The guest's condition still holds but the trigger mark blocks re-firing.
	fixture.scheduler.RunPass(context.Background())
	fixture.scheduler.RunPass(context.Background())
	assert.Len(t, fixture.publisher.Triggered(), 1)

	fixture.store.addGuest("event-1", models.GuestRecord{
		ID: "g-late", EventID: "event-1", RSVPStatus: models.RSVPPending,
	})

	fixture.scheduler.RunPass(context.Background())

	triggered = fixture.publisher.Triggered()
	require.Len(t, triggered, 2)
	assert.Equal(t, []string{"g-late"}, triggered[1].GuestIDs)
}

func TestScheduler_ResumesDueSuspendedRuns(t *testing.T) {
	fixture := newSchedulerFixture(t)

	fixture.saveWorkflow(t, &models.Workflow{
		ID:          "wf-1",
		EventID:     "event-1",
		Name:        "Sequence",
		TriggerType: models.TriggerTypeManual,
		Status:      models.WorkflowStatusActive,
		Actions:     []*models.Action{emailAction("a1")},
	})

	resumeAt := fixture.clock.Now().Add(-time.Minute)
	run := &models.WorkflowRun{
		ID:                 "run-1",
		WorkflowID:         "wf-1",
		Status:             models.RunStatusSuspended,
		CurrentActionIndex: 1,
		ResumeAt:           &resumeAt,
		StartedAt:          fixture.clock.Now().Add(-time.Hour),
	}
	require.NoError(t, fixture.persistence.RunRepository().Save(context.Background(), run))

	fixture.scheduler.RunPass(context.Background())

	triggered := fixture.publisher.Triggered()
	require.Len(t, triggered, 1)
	assert.Equal(t, "run-1", triggered[0].RunID)

	claimed, err := fixture.persistence.RunRepository().GetByID(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, claimed.Status)

	// Claimed runs are no longer suspended, so they cannot be woken twice.
	fixture.scheduler.RunPass(context.Background())
	assert.Len(t, fixture.publisher.Triggered(), 1)
}

func TestScheduler_LeavesSuspendedRunsOfPausedWorkflowsParked(t *testing.T) {
	fixture := newSchedulerFixture(t)

	fixture.saveWorkflow(t, &models.Workflow{
		ID:          "wf-1",
		EventID:     "event-1",
		Name:        "Sequence",
		TriggerType: models.TriggerTypeManual,
		Status:      models.WorkflowStatusPaused,
		Actions:     []*models.Action{emailAction("a1")},
	})

	resumeAt := fixture.clock.Now().Add(-time.Minute)
	run := &models.WorkflowRun{
		ID:                 "run-1",
		WorkflowID:         "wf-1",
		Status:             models.RunStatusSuspended,
		CurrentActionIndex: 1,
		ResumeAt:           &resumeAt,
		StartedAt:          fixture.clock.Now().Add(-time.Hour),
	}
	require.NoError(t, fixture.persistence.RunRepository().Save(context.Background(), run))

	fixture.scheduler.RunPass(context.Background())

	assert.Empty(t, fixture.publisher.Triggered())

	parked, err := fixture.persistence.RunRepository().GetByID(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuspended, parked.Status)
}

func TestScheduler_IsolatesPerWorkflowFailures(t *testing.T) {
	fixture := newSchedulerFixture(t)

	fixture.saveWorkflow(t, &models.Workflow{
		ID:          "wf-broken",
		EventID:     "event-broken",
		Name:        "Broken event",
		TriggerType: models.TriggerTypeConditional,
		Status:      models.WorkflowStatusActive,
		Actions:     []*models.Action{emailAction("a1")},
	})
	fixture.store.failFor["event-broken"] = true

	fixture.saveWorkflow(t, &models.Workflow{
		ID:          "wf-healthy",
		EventID:     "event-1",
		Name:        "Healthy event",
		TriggerType: models.TriggerTypeConditional,
		Status:      models.WorkflowStatusActive,
		Actions:     []*models.Action{emailAction("a1")},
	})
	fixture.store.addGuest("event-1", models.GuestRecord{
		ID: "g1", EventID: "event-1", RSVPStatus: models.RSVPConfirmed,
	})

	fixture.scheduler.RunPass(context.Background())

	triggered := fixture.publisher.Triggered()
	require.Len(t, triggered, 1, "one workflow's failure must not block the others")
	assert.Equal(t, "wf-healthy", triggered[0].WorkflowID)
}

func TestLocalLock(t *testing.T) {
	lock := NewLocalLock()

	acquired, err := lock.Acquire(context.Background(), "key", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = lock.Acquire(context.Background(), "key", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, lock.Release(context.Background(), "key"))

	acquired, err = lock.Acquire(context.Background(), "key", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}
