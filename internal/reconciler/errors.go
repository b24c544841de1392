package reconciler

import (
	"errors"
	"fmt"

	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

// Steps of a reconcile pass reported by ReconcileError.
const (
	StepObserve       = "observe"
	StepInitialStatus = "initial-status"
	StepStatus        = "status"
)

// ReconcileError is the error of a pass that stopped at a failing step.
// Step is either one of the Step constants or the kind of the failing action.
type ReconcileError struct {
	Phase doodbav1.Phase
	Step  string
	Err   error
}

func (e *ReconcileError) Error() string {
	phase := string(e.Phase)
	if phase == "" {
		phase = "None"
	}
	return fmt.Sprintf("reconcile step %s in phase %s failed: %v", e.Step, phase, e.Err)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// IsStatusError reports whether err stopped a pass while writing status.
func IsStatusError(err error) bool {
	var re *ReconcileError
	if !errors.As(err, &re) {
		return false
	}
	return re.Step == StepInitialStatus || re.Step == StepStatus
}
