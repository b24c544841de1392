package phase

import (
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"

	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

// Observed is the cluster state a decision is based on.
type Observed struct {
	// BeforeCreateJob is the <name>-before-create Job, nil when absent.
	BeforeCreateJob *batchv1.Job

	// BeforeUpdateJob is the <name>-before-update Job, nil when absent.
	BeforeUpdateJob *batchv1.Job

	// Deployments are the existing instance Deployments keyed by instance name.
	Deployments map[string]*appsv1.Deployment
}

// ActionKind names a side effect on the Doodba's children.
type ActionKind string

const (
	// ApplyConfig applies the claim, ConfigMap and Secrets hook Job pods read.
	ApplyConfig ActionKind = "ApplyConfig"

	// EnsureBeforeCreateJob creates the before-create Job unless it exists.
	EnsureBeforeCreateJob ActionKind = "EnsureBeforeCreateJob"

	// EnsureBeforeUpdateJob creates the before-update Job for Action.Image unless it exists.
	EnsureBeforeUpdateJob ActionKind = "EnsureBeforeUpdateJob"

	// DeleteBeforeUpdateJob removes a before-update Job left over from an earlier upgrade.
	DeleteBeforeUpdateJob ActionKind = "DeleteBeforeUpdateJob"

	// ScaleForUpgrade applies the Deployments in Action.Replicas with those counts.
	ScaleForUpgrade ActionKind = "ScaleForUpgrade"

	// ApplyChildren applies every steady-state child running Action.Image.
	ApplyChildren ActionKind = "ApplyChildren"
)

// Action is one side effect to perform, in order.
type Action struct {
	Kind ActionKind

	// Image is the image reference the action runs with, where relevant.
	Image string

	// Replicas are per-instance replica counts for ScaleForUpgrade and ApplyChildren.
	Replicas map[string]int32
}

// Directive tells the caller when to run the next pass.
type Directive int

const (
	// Await waits for the next watch event.
	Await Directive = iota

	// RequeueSoon runs again after the short wait interval.
	RequeueSoon

	// Resync runs again after the steady-state resync interval.
	Resync
)

func (d Directive) String() string {
	switch d {
	case Await:
		return "Await"
	case RequeueSoon:
		return "RequeueSoon"
	case Resync:
		return "Resync"
	default:
		return "Unknown"
	}
}

// Transition records one phase change made by a decision.
type Transition struct {
	From doodbav1.Phase
	To   doodbav1.Phase
}

// Decision is the outcome of Decide.
type Decision struct {
	// Initial is written before any action. It is only set when the Doodba
	// had no status yet.
	Initial *doodbav1.DoodbaStatus

	// Actions are performed in order after Initial is written.
	Actions []Action

	// Status is written after the actions. Nil means unchanged.
	Status *doodbav1.DoodbaStatus

	// Directive schedules the next pass.
	Directive Directive

	// Transitions lists the phase changes in the order they were taken.
	Transitions []Transition
}

// Final returns the status the Doodba has once the decision is executed.
func (d Decision) Final(current *doodbav1.DoodbaStatus) *doodbav1.DoodbaStatus {
	switch {
	case d.Status != nil:
		return d.Status
	case d.Initial != nil:
		return d.Initial
	default:
		return current
	}
}
