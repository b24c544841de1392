package v1

// Phase is the coarse-grained lifecycle state of a Doodba.
// +kubebuilder:validation:Enum=Pending;Creating;Upgrading;Running;Failed;Suspended
type Phase string

const (
	// PhasePending is the initial phase; the operator derives what to do next.
	PhasePending Phase = "Pending"

	// PhaseCreating means the before-create Job is running.
	PhaseCreating Phase = "Creating"

	// PhaseUpgrading means instances are scaled down and the before-update Job runs.
	PhaseUpgrading Phase = "Upgrading"

	// PhaseRunning means the installation is healthy and serving.
	PhaseRunning Phase = "Running"

	// PhaseFailed means a hook Job failed. It requires operator attention.
	PhaseFailed Phase = "Failed"

	// PhaseSuspended means reconciliation of children is paused by spec.suspend.
	PhaseSuspended Phase = "Suspended"
)

// Phases lists every phase this API version knows about.
var Phases = []Phase{
	PhasePending,
	PhaseCreating,
	PhaseUpgrading,
	PhaseRunning,
	PhaseFailed,
	PhaseSuspended,
}

// Known reports whether p is one of the phases of this API version.
// Status written by a newer operator may carry other values.
func (p Phase) Known() bool {
	switch p {
	case PhasePending, PhaseCreating, PhaseUpgrading, PhaseRunning, PhaseFailed, PhaseSuspended:
		return true
	default:
		return false
	}
}

func (p Phase) String() string {
	return string(p)
}
