package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ActionType discriminates the action config variant.
type ActionType string

const (
	ActionTypeEmail    ActionType = "email"
	ActionTypeSMS      ActionType = "sms"
	ActionTypeWhatsApp ActionType = "whatsapp"
	ActionTypeTelegram ActionType = "telegram"
	ActionTypeDelay    ActionType = "delay"
)

// RecipientFilter narrows which guests a messaging action targets.
type RecipientFilter string

const (
	RecipientsAll       RecipientFilter = "all"
	RecipientsConfirmed RecipientFilter = "confirmed"
	RecipientsPending   RecipientFilter = "pending"
	RecipientsDeclined  RecipientFilter = "declined"
)

// DelayUnit is the unit of a delay action's duration.
type DelayUnit string

const (
	DelayUnitMinutes DelayUnit = "minutes"
	DelayUnitHours   DelayUnit = "hours"
	DelayUnitDays    DelayUnit = "days"
)

// MessageConfig configures the messaging action types.
type MessageConfig struct {
	Recipients RecipientFilter `json:"recipients" validate:"required,oneof=all confirmed pending declined"`
	Message    string          `json:"message"    validate:"required"`
	Template   string          `json:"template,omitempty"`
}

// DelayConfig configures a delay action.
type DelayConfig struct {
	Value int       `json:"value" validate:"required,gt=0"`
	Unit  DelayUnit `json:"unit"  validate:"required,oneof=minutes hours days"`
}

// Duration converts the configured delay into a time.Duration.
func (d *DelayConfig) Duration() time.Duration {
	switch d.Unit {
	case DelayUnitMinutes:
		return time.Duration(d.Value) * time.Minute
	case DelayUnitHours:
		return time.Duration(d.Value) * time.Hour
	case DelayUnitDays:
		return time.Duration(d.Value) * 24 * time.Hour
	default:
		return 0
	}
}

// Action is one step of a workflow. Exactly one config variant is set,
// matching Type: Message for the messaging types, Delay for delays.
type Action struct {
	ID      string         `json:"id"`
	Type    ActionType     `json:"type" validate:"required,oneof=email sms whatsapp telegram delay"`
	Message *MessageConfig `json:"-"`
	Delay   *DelayConfig   `json:"-"`
}

// IsMessaging reports whether this action dispatches messages.
func (a *Action) IsMessaging() bool {
	switch a.Type {
	case ActionTypeEmail, ActionTypeSMS, ActionTypeWhatsApp, ActionTypeTelegram:
		return true
	default:
		return false
	}
}

var (
	// ErrActionConfigMismatch indicates the config variant does not match the action type.
	ErrActionConfigMismatch = errors.New("action config does not match action type")

	// ErrUnknownActionType indicates an unrecognized action type.
	ErrUnknownActionType = errors.New("unknown action type")
)

// Validate enforces the config-shape-matches-type invariant at create/update time.
func (a *Action) Validate() error {
	switch {
	case a.IsMessaging():
		if a.Message == nil || a.Delay != nil {
			return fmt.Errorf("action %s (%s): %w", a.ID, a.Type, ErrActionConfigMismatch)
		}
	case a.Type == ActionTypeDelay:
		if a.Delay == nil || a.Message != nil {
			return fmt.Errorf("action %s (%s): %w", a.ID, a.Type, ErrActionConfigMismatch)
		}

		if a.Delay.Value <= 0 {
			return fmt.Errorf("action %s: delay value must be positive", a.ID)
		}
	default:
		return fmt.Errorf("action %s: %w: %q", a.ID, ErrUnknownActionType, a.Type)
	}

	return nil
}

// actionEnvelope is the wire form of an action: the config variant is keyed
// under "config" and decoded according to "type".
type actionEnvelope struct {
	ID     string          `json:"id"`
	Type   ActionType      `json:"type"`
	Config json.RawMessage `json:"config"`
}

func (a *Action) MarshalJSON() ([]byte, error) {
	var (
		config []byte
		err    error
	)

	switch {
	case a.Message != nil:
		config, err = json.Marshal(a.Message)
	case a.Delay != nil:
		config, err = json.Marshal(a.Delay)
	default:
		config = []byte("{}")
	}

	if err != nil {
		return nil, err
	}

	return json.Marshal(actionEnvelope{ID: a.ID, Type: a.Type, Config: config})
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var envelope actionEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	a.ID = envelope.ID
	a.Type = envelope.Type
	a.Message = nil
	a.Delay = nil

	if len(envelope.Config) == 0 {
		return nil
	}

	switch envelope.Type {
	case ActionTypeEmail, ActionTypeSMS, ActionTypeWhatsApp, ActionTypeTelegram:
		a.Message = &MessageConfig{}

		return json.Unmarshal(envelope.Config, a.Message)
	case ActionTypeDelay:
		a.Delay = &DelayConfig{}

		return json.Unmarshal(envelope.Config, a.Delay)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownActionType, envelope.Type)
	}
}
