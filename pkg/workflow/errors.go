package workflow

import (
	"errors"
	"fmt"
)

// ErrNotRunnable is returned when a run is requested for a workflow that is
// not active or has no actions. No run record is created.
var ErrNotRunnable = errors.New("workflow is not runnable")

// FatalError is an infrastructure-level failure during a run: the definition
// vanished, persistence is unavailable, guest data cannot be loaded. It aborts
// the run and marks it failed; per-recipient dispatch failures never become a
// FatalError.
type FatalError struct {
	RunID string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("run %s aborted: %s", e.RunID, e.Err.Error())
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func NewFatalError(runID string, err error) *FatalError {
	return &FatalError{RunID: runID, Err: err}
}

// IsFatalError checks whether err is an infrastructure-level run failure.
func IsFatalError(err error) bool {
	var fatal *FatalError

	return errors.As(err, &fatal)
}
