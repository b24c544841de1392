package reconciler

import (
	"context"
	"time"
)

// ResourceType names a kind of object the manager can reconcile.
type ResourceType string

// ResourceTypeDoodba is the only resource type the operator reconciles.
const ResourceTypeDoodba ResourceType = "Doodba"

// ChangeEvent tells the manager that a resource may need a pass.
type ChangeEvent struct {
	Type      ResourceType
	Name      string
	Namespace string
	Operation ChangeOperation
	Timestamp time.Time
	Source    ChangeSource
}

// ChangeOperation is what happened to the object behind a ChangeEvent.
type ChangeOperation string

const (
	OperationCreate ChangeOperation = "Create"
	OperationUpdate ChangeOperation = "Update"
	OperationDelete ChangeOperation = "Delete"
)

// ChangeSource is where a ChangeEvent came from.
type ChangeSource string

const (
	// SourceKubernetes is the informer of the reconciled resource itself.
	SourceKubernetes ChangeSource = "Kubernetes"

	// SourceOwned is an owned Job or Deployment, mapped to its controlling
	// Doodba.
	SourceOwned ChangeSource = "Owned"

	// SourceManual is TriggerReconcile.
	SourceManual ChangeSource = "Manual"
)

// ReconcileResult tells the manager what to do after a pass.
//
// The zero value means done until the next change event. RequeueAfter
// schedules another pass; together with Error it replaces the manager's
// exponential backoff. Error alone is retried with backoff.
type ReconcileResult struct {
	Requeue      bool
	RequeueAfter time.Duration
	Error        error
}

// ReconcileRequest asks for one pass over a resource.
type ReconcileRequest struct {
	Type      ResourceType
	Name      string
	Namespace string

	// Attempt counts consecutive passes for this resource that failed,
	// starting at 1.
	Attempt int

	// LastError is the error of the previous attempt, if any.
	LastError error
}

// Reconciler runs passes for one resource type.
type Reconciler interface {
	// Reconcile runs one idempotent pass. It never blocks waiting for the
	// cluster to converge; waits are returned as RequeueAfter.
	Reconcile(ctx context.Context, req ReconcileRequest) ReconcileResult

	GetResourceType() ResourceType
}

// ChangeDetector feeds ChangeEvents to the manager.
type ChangeDetector interface {
	// Start begins sending events to changes. It returns once watching has
	// started.
	Start(ctx context.Context, changes chan<- ChangeEvent) error

	Stop() error

	GetSource() ChangeSource

	// AddResourceType adds a type to watch. It must be called before Start.
	AddResourceType(resourceType ResourceType) error
}

// ReconcileQueue holds requests awaiting a worker. Requests are keyed by
// resource; the same resource is never handed out twice before Done.
type ReconcileQueue interface {
	// Add queues a request, replacing one already queued for the resource.
	Add(req ReconcileRequest)

	// AddAfter queues a request once delay has passed.
	AddAfter(req ReconcileRequest, delay time.Duration)

	// Get blocks until a request is available. It returns false once the
	// context ends or the queue shuts down.
	Get(ctx context.Context) (ReconcileRequest, bool)

	// Done releases the resource of a request returned by Get.
	Done(req ReconcileRequest)

	// Len returns the number of requests waiting for a worker.
	Len() int

	// Shutdown drops waiting requests and stops accepting new ones.
	Shutdown()
}

// ManagerConfig configures a Manager. Zero fields take the defaults noted.
type ManagerConfig struct {
	// WorkerCount defaults to 2.
	WorkerCount int

	// InitialBackoff is the first retry delay after an error without
	// RequeueAfter. Defaults to 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the doubling retry delay. Defaults to 5m.
	MaxBackoff time.Duration

	// ReconcileTimeout bounds a single pass. Defaults to 30s.
	ReconcileTimeout time.Duration
}

// ReconcileStatus is the manager's view of one resource, independent of
// the status the reconciler writes to the object.
type ReconcileStatus struct {
	ResourceType ResourceType
	Name         string
	Namespace    string

	// LastReconcileTime is the end of the last successful pass.
	LastReconcileTime *time.Time

	// LastError is the sanitized error of the last failed pass.
	LastError string

	// RetryCount is the number of consecutive failed passes.
	RetryCount int

	State ReconcileState
}

// ReconcileState is the position of a resource in the manager's pipeline.
type ReconcileState string

const (
	StatePending     ReconcileState = "Pending"
	StateReconciling ReconcileState = "Reconciling"
	StateSynced      ReconcileState = "Synced"
	StateError       ReconcileState = "Error"
)
