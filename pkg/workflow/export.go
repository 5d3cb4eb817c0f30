package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/convoca/convoca/pkg/models"
)

// ImportedNameSuffix marks workflows created through Import.
const ImportedNameSuffix = " (imported)"

// ExportDocument is the portable form of a workflow definition. It excludes
// identifiers and execution history, so an imported workflow starts as a new
// draft.
type ExportDocument struct {
	Name              string              `json:"name"`
	Description       string              `json:"description,omitempty"`
	TriggerType       models.TriggerType  `json:"trigger_type"`
	TriggerCron       string              `json:"trigger_cron,omitempty"`
	TriggerConditions []*models.Condition `json:"trigger_conditions,omitempty"`
	Actions           []*models.Action    `json:"actions"`
}

var importSchema = map[string]any{
	"type":     "object",
	"required": []string{"name", "trigger_type", "actions"},
	"properties": map[string]any{
		"name": map[string]any{
			"type":      "string",
			"minLength": 3,
		},
		"description": map[string]any{"type": "string"},
		"trigger_type": map[string]any{
			"type": "string",
			"enum": []string{"manual", "scheduled", "conditional"},
		},
		"trigger_cron": map[string]any{"type": "string"},
		"trigger_conditions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"field", "operator"},
			},
		},
		"actions": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []string{"type", "config"},
			},
		},
	},
}

// Export strips identifiers and counters from a workflow, leaving only the
// portable definition.
func Export(workflow *models.Workflow) *ExportDocument {
	return &ExportDocument{
		Name:              workflow.Name,
		Description:       workflow.Description,
		TriggerType:       workflow.TriggerType,
		TriggerCron:       workflow.TriggerCron,
		TriggerConditions: workflow.TriggerConditions,
		Actions:           workflow.Actions,
	}
}

// Import validates an export document and builds a fresh paused workflow for
// the given event: new identifiers, zeroed execution counters, and the name
// marked as imported.
func Import(data []byte, eventID string) (*models.Workflow, error) {
	if err := validateImportDocument(data); err != nil {
		return nil, err
	}

	var doc ExportDocument

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse import document: %w", err)
	}

	workflow := &models.Workflow{
		ID:                "wf-" + uuid.New().String()[:8],
		EventID:           eventID,
		Name:              doc.Name + ImportedNameSuffix,
		Description:       doc.Description,
		TriggerType:       doc.TriggerType,
		TriggerCron:       doc.TriggerCron,
		TriggerConditions: doc.TriggerConditions,
		Actions:           doc.Actions,
		Status:            models.WorkflowStatusPaused,
	}

	for _, action := range workflow.Actions {
		action.ID = "action-" + uuid.New().String()[:8]
	}

	if err := workflow.Validate(); err != nil {
		return nil, err
	}

	return workflow, nil
}

func validateImportDocument(data []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(importSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate import document: %w", err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("invalid import document: %s", strings.Join(descriptions, "; "))
	}

	return nil
}
