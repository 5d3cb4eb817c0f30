package scheduler

import (
	"errors"
	"fmt"
)

// EvaluationError is a transient failure while evaluating one workflow's
// trigger. It is logged and skipped so one workflow cannot stall a poll pass.
type EvaluationError struct {
	WorkflowID string
	Err        error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("failed to evaluate workflow %s: %s", e.WorkflowID, e.Err.Error())
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

func NewEvaluationError(workflowID string, err error) *EvaluationError {
	return &EvaluationError{WorkflowID: workflowID, Err: err}
}

// IsEvaluationError checks whether err is a per-workflow evaluation failure.
func IsEvaluationError(err error) bool {
	var evaluation *EvaluationError

	return errors.As(err, &evaluation)
}
