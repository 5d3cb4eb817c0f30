package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_Validate_ShapeMatchesType(t *testing.T) {
	messaging := &Action{
		ID:      "a1",
		Type:    ActionTypeEmail,
		Message: &MessageConfig{Recipients: RecipientsAll, Message: "hi"},
	}
	require.NoError(t, messaging.Validate())

	delay := &Action{
		ID:    "a2",
		Type:  ActionTypeDelay,
		Delay: &DelayConfig{Value: 2, Unit: DelayUnitHours},
	}
	require.NoError(t, delay.Validate())

	// Messaging action carrying a delay config is rejected before persistence.
	wrongShape := &Action{
		ID:    "a3",
		Type:  ActionTypeSMS,
		Delay: &DelayConfig{Value: 1, Unit: DelayUnitDays},
	}
	assert.ErrorIs(t, wrongShape.Validate(), ErrActionConfigMismatch)

	// And a delay action carrying a message config, likewise.
	wrongShape = &Action{
		ID:      "a4",
		Type:    ActionTypeDelay,
		Message: &MessageConfig{Recipients: RecipientsAll, Message: "hi"},
	}
	assert.ErrorIs(t, wrongShape.Validate(), ErrActionConfigMismatch)

	unknown := &Action{ID: "a5", Type: "carrier_pigeon"}
	assert.ErrorIs(t, unknown.Validate(), ErrUnknownActionType)

	nonPositiveDelay := &Action{
		ID:    "a6",
		Type:  ActionTypeDelay,
		Delay: &DelayConfig{Value: 0, Unit: DelayUnitMinutes},
	}
	assert.Error(t, nonPositiveDelay.Validate())
}

func TestAction_JSONVariantDecoding(t *testing.T) {
	payload := `{
		"id": "a1",
		"type": "whatsapp",
		"config": {"recipients": "pending", "message": "see you there?", "template": "reminder"}
	}`

	var action Action
	require.NoError(t, json.Unmarshal([]byte(payload), &action))

	require.NotNil(t, action.Message)
	assert.Nil(t, action.Delay)
	assert.Equal(t, RecipientsPending, action.Message.Recipients)
	assert.Equal(t, "reminder", action.Message.Template)

	payload = `{"id": "a2", "type": "delay", "config": {"value": 3, "unit": "days"}}`

	action = Action{}
	require.NoError(t, json.Unmarshal([]byte(payload), &action))

	require.NotNil(t, action.Delay)
	assert.Nil(t, action.Message)
	assert.Equal(t, 72*time.Hour, action.Delay.Duration())
}

func TestAction_JSONUnknownType(t *testing.T) {
	payload := `{"id": "a1", "type": "fax", "config": {"message": "hello"}}`

	var action Action
	assert.ErrorIs(t, json.Unmarshal([]byte(payload), &action), ErrUnknownActionType)
}

func TestAction_JSONRoundTrip(t *testing.T) {
	original := &Action{
		ID:      "a1",
		Type:    ActionTypeTelegram,
		Message: &MessageConfig{Recipients: RecipientsDeclined, Message: "we'll miss you"},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Action
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, &decoded)
}

func TestDelayConfig_Duration(t *testing.T) {
	assert.Equal(t, 30*time.Minute, (&DelayConfig{Value: 30, Unit: DelayUnitMinutes}).Duration())
	assert.Equal(t, 6*time.Hour, (&DelayConfig{Value: 6, Unit: DelayUnitHours}).Duration())
	assert.Equal(t, 48*time.Hour, (&DelayConfig{Value: 2, Unit: DelayUnitDays}).Duration())
}

func TestWorkflow_Runnable(t *testing.T) {
	workflow := &Workflow{
		Status: WorkflowStatusActive,
		Actions: []*Action{
			{ID: "a1", Type: ActionTypeEmail, Message: &MessageConfig{Recipients: RecipientsAll, Message: "hi"}},
		},
	}
	assert.True(t, workflow.Runnable())

	workflow.Status = WorkflowStatusPaused
	assert.False(t, workflow.Runnable())

	// A draft with no actions is valid to persist but never runnable.
	workflow.Status = WorkflowStatusActive
	workflow.Actions = nil
	assert.False(t, workflow.Runnable())
}
