// Package events defines event types and structures for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the broker topic workflow lifecycle events are published to.
const Topic = "convoca.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowTriggeredEvent EventType = "workflow.triggered"
	RunSuspendedEvent      EventType = "run.suspended"
	RunCompletedEvent      EventType = "run.completed"
	RunFailedEvent         EventType = "run.failed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// WorkflowTriggered asks a worker to start a run of a workflow. GuestIDs
// narrows the run to specific guests; empty means every guest of the event.
// RunID set means the scheduler already claimed a suspended run and the worker
// resumes it instead of starting a new one.
type WorkflowTriggered struct {
	BaseEvent

	TriggerType string   `json:"trigger_type"`
	GuestIDs    []string `json:"guest_ids,omitempty"`
	RunID       string   `json:"run_id,omitempty"`
}

func (w WorkflowTriggered) GetType() EventType {
	return WorkflowTriggeredEvent
}

// RunSuspended signals that a run hit a delay action and parked itself until
// ResumeAt.
type RunSuspended struct {
	BaseEvent

	RunID    string    `json:"run_id"`
	ResumeAt time.Time `json:"resume_at"`
}

func (r RunSuspended) GetType() EventType {
	return RunSuspendedEvent
}

type RunCompleted struct {
	BaseEvent

	RunID    string        `json:"run_id"`
	Duration time.Duration `json:"duration"`
}

func (r RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	RunID    string        `json:"run_id"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (r RunFailed) GetType() EventType {
	return RunFailedEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}
