// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"encoding/json"

	"github.com/convoca/convoca/pkg/models"
)

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	EventID           string                `json:"event_id"     validate:"required"`
	Name              string                `json:"name"         validate:"required,min=3"`
	Description       string                `json:"description"`
	TriggerType       models.TriggerType    `json:"trigger_type" validate:"required,oneof=manual scheduled conditional"`
	TriggerCron       string                `json:"trigger_cron,omitempty"`
	TriggerConditions []*models.Condition   `json:"trigger_conditions,omitempty"`
	Actions           []*models.Action      `json:"actions"`
	Status            models.WorkflowStatus `json:"status,omitempty" validate:"omitempty,oneof=active paused completed"`
}

// UpdateWorkflowRequest represents the request body for updating an existing
// workflow. All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name              *string               `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description       *string               `json:"description,omitempty"`
	TriggerType       *models.TriggerType   `json:"trigger_type,omitempty" validate:"omitempty,oneof=manual scheduled conditional"`
	TriggerCron       *string               `json:"trigger_cron,omitempty"`
	TriggerConditions []*models.Condition   `json:"trigger_conditions,omitempty"`
	Actions           []*models.Action      `json:"actions,omitempty"`
	Status            models.WorkflowStatus `json:"status,omitempty" validate:"omitempty,oneof=active paused completed"`
}

// RunNowRequest represents the optional request body for triggering a manual
// run. An empty GuestIDs runs against every guest of the event.
type RunNowRequest struct {
	GuestIDs []string `json:"guest_ids,omitempty"`
}

// ImportWorkflowRequest represents the request body for importing a workflow
// definition document.
type ImportWorkflowRequest struct {
	EventID  string          `json:"event_id" validate:"required"`
	Document json.RawMessage `json:"document" validate:"required"`
}

func (r *CreateWorkflowRequest) toModel() *models.Workflow {
	return &models.Workflow{
		EventID:           r.EventID,
		Name:              r.Name,
		Description:       r.Description,
		TriggerType:       r.TriggerType,
		TriggerCron:       r.TriggerCron,
		TriggerConditions: r.TriggerConditions,
		Actions:           r.Actions,
		Status:            r.Status,
	}
}

func (r *UpdateWorkflowRequest) applyTo(workflow *models.Workflow) {
	if r.Name != nil {
		workflow.Name = *r.Name
	}

	if r.Description != nil {
		workflow.Description = *r.Description
	}

	if r.TriggerType != nil {
		workflow.TriggerType = *r.TriggerType
	}

	if r.TriggerCron != nil {
		workflow.TriggerCron = *r.TriggerCron
	}

	if r.TriggerConditions != nil {
		workflow.TriggerConditions = r.TriggerConditions
	}

	if r.Actions != nil {
		workflow.Actions = r.Actions
	}

	if r.Status != "" {
		workflow.Status = r.Status
	}
}
