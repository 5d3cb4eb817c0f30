package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ConditionField names a guest or event-relative field a condition reads.
type ConditionField string

const (
	FieldRSVPStatus          ConditionField = "rsvp_status"
	FieldGuestCount          ConditionField = "guest_count"
	FieldDaysBeforeEvent     ConditionField = "days_before_event"
	FieldHoursBeforeEvent    ConditionField = "hours_before_event"
	FieldTableNumber         ConditionField = "table_number"
	FieldDietaryRestrictions ConditionField = "dietary_restrictions"
	FieldCheckedIn           ConditionField = "checked_in"
	FieldInvitationMethod    ConditionField = "invitation_method"
	FieldEmailOpened         ConditionField = "email_opened"
	FieldLinkClicked         ConditionField = "link_clicked"
)

// ConditionOperator is the comparison applied between field and value.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorContains    ConditionOperator = "contains"
	OperatorNotContains ConditionOperator = "not_contains"
	OperatorIsEmpty     ConditionOperator = "is_empty"
	OperatorIsNotEmpty  ConditionOperator = "is_not_empty"
)

// LogicOperator chains a condition with the cumulative result of the
// conditions before it. Meaningful only from the second condition on.
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// Condition is a single field/operator/value predicate. Value is ignored for
// the emptiness operators.
type Condition struct {
	ID            string            `json:"id"`
	Field         ConditionField    `json:"field"    validate:"required"`
	Operator      ConditionOperator `json:"operator" validate:"required"`
	Value         string            `json:"value,omitempty"`
	LogicOperator LogicOperator     `json:"logic_operator,omitempty"`
}

var validConditionFields = map[ConditionField]bool{
	FieldRSVPStatus:          true,
	FieldGuestCount:          true,
	FieldDaysBeforeEvent:     true,
	FieldHoursBeforeEvent:    true,
	FieldTableNumber:         true,
	FieldDietaryRestrictions: true,
	FieldCheckedIn:           true,
	FieldInvitationMethod:    true,
	FieldEmailOpened:         true,
	FieldLinkClicked:         true,
}

var validConditionOperators = map[ConditionOperator]bool{
	OperatorEquals:      true,
	OperatorNotEquals:   true,
	OperatorGreaterThan: true,
	OperatorLessThan:    true,
	OperatorContains:    true,
	OperatorNotContains: true,
	OperatorIsEmpty:     true,
	OperatorIsNotEmpty:  true,
}

// ErrInvalidCondition is returned when a condition fails validation.
var ErrInvalidCondition = errors.New("invalid condition")

// Validate rejects unknown fields and operators at create/update time.
// Evaluation stays fail-closed for anything that slips through persistence.
func (c *Condition) Validate() error {
	if !validConditionFields[c.Field] {
		return fmt.Errorf("%w: unknown field %q", ErrInvalidCondition, c.Field)
	}

	if !validConditionOperators[c.Operator] {
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, c.Operator)
	}

	if c.LogicOperator != "" && c.LogicOperator != LogicAnd && c.LogicOperator != LogicOr {
		return fmt.Errorf("%w: unknown logic operator %q", ErrInvalidCondition, c.LogicOperator)
	}

	return nil
}

// EvaluateConditions folds the condition list left to right against one guest
// context. The first condition seeds the result; each later condition combines
// with the cumulative result through its logic operator. There is no operator
// precedence or grouping. An empty list always passes.
func EvaluateConditions(conditions []*Condition, ctx GuestContext) bool {
	if len(conditions) == 0 {
		return true
	}

	result := conditions[0].evaluate(ctx)

	for _, condition := range conditions[1:] {
		predicate := condition.evaluate(ctx)

		if condition.LogicOperator == LogicOr {
			result = result || predicate
		} else {
			result = result && predicate
		}
	}

	return result
}

// evaluate computes a single predicate. Unknown fields and operators evaluate
// to false so one malformed condition cannot abort a batch evaluation.
func (c *Condition) evaluate(ctx GuestContext) bool {
	fieldValue, ok := ctx.Field(c.Field)
	if !ok {
		return false
	}

	switch c.Operator {
	case OperatorEquals:
		return fieldValue == c.Value
	case OperatorNotEquals:
		return fieldValue != c.Value
	case OperatorGreaterThan, OperatorLessThan:
		left, errLeft := strconv.ParseFloat(fieldValue, 64)
		right, errRight := strconv.ParseFloat(c.Value, 64)

		if errLeft != nil || errRight != nil {
			return false
		}

		if c.Operator == OperatorGreaterThan {
			return left > right
		}

		return left < right
	case OperatorContains:
		return strings.Contains(fieldValue, c.Value)
	case OperatorNotContains:
		return !strings.Contains(fieldValue, c.Value)
	case OperatorIsEmpty:
		return fieldValue == ""
	case OperatorIsNotEmpty:
		return fieldValue != ""
	default:
		return false
	}
}
