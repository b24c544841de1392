package events

// EventType represents the type/severity of a Kubernetes Event.
type EventType string

const (
	// EventTypeNormal indicates normal, non-problematic events.
	EventTypeNormal EventType = "Normal"

	// EventTypeWarning indicates events that may require attention.
	EventTypeWarning EventType = "Warning"
)

// EventReason represents the reason code for an event.
type EventReason string

// Doodba event reasons
const (
	// ReasonPhaseChanged indicates the Doodba moved to a new phase.
	ReasonPhaseChanged EventReason = "PhaseChanged"

	// ReasonJobCreated indicates a before-create or before-update Job was created.
	ReasonJobCreated EventReason = "JobCreated"

	// ReasonJobDeleted indicates a stale before-update Job was removed.
	ReasonJobDeleted EventReason = "JobDeleted"

	// ReasonHookFailed indicates a hook Job failed and the Doodba is waiting
	// for manual intervention.
	ReasonHookFailed EventReason = "HookFailed"

	// ReasonReconcileFailed indicates a reconcile pass stopped at a failing step.
	ReasonReconcileFailed EventReason = "ReconcileFailed"

	// ReasonImageDowngrade indicates an upgrade to an image with a lower
	// version tag than the one running.
	ReasonImageDowngrade EventReason = "ImageDowngrade"

	// ReasonDeleted indicates finalizer cleanup finished for a deleted Doodba.
	ReasonDeleted EventReason = "Deleted"
)

// EventData holds contextual information for event message templating.
type EventData struct {
	// Name is the name of the object involved in the event.
	Name string

	// Namespace is the namespace of the object involved in the event.
	Namespace string

	// From and To are the phases of a transition.
	From string
	To   string

	// Job is the name of the hook Job involved in the event.
	Job string

	// Image is the image reference the event refers to.
	Image string

	// PreviousImage is the image that was applied before Image.
	PreviousImage string

	// Error contains error information for failure events.
	Error string
}

// getEventType returns the appropriate EventType for a given EventReason.
func getEventType(reason EventReason) EventType {
	switch reason {
	case ReasonHookFailed, ReasonReconcileFailed, ReasonImageDowngrade:
		return EventTypeWarning
	default:
		return EventTypeNormal
	}
}
