// Package reconciler drives Doodba resources towards their declared state.
//
// # Architecture
//
// The reconciliation system consists of:
//
//   - Manager: worker pool that owns the queue, retries and status tracking
//   - Reconciler: interface for resource-specific reconciliation logic
//   - ChangeDetector: interface for sources of change events
//   - KubernetesDetector: informer-backed detector for Doodbas and the Jobs
//     and Deployments they own
//   - DoodbaReconciler: runs one pass of the phase pipeline for a Doodba
//
// # Passes
//
// A pass reads the Doodba, observes its hook Jobs and Deployments and lets
// the phase machine decide. The decided actions run in a fixed order:
// initial status, child actions, status transition. The pass stops at the
// first failing step and the next pass resumes from what is stored.
//
// Waiting is never done in place. A pass returns a ReconcileResult and the
// manager schedules the next one:
//
//   - nothing to wait for: the next watch event triggers the next pass
//   - RequeueAfter: the resource is queued again after the delay
//   - Error: the resource is queued again after RequeueAfter when set,
//     otherwise after an exponential backoff
//
// # Ordering
//
// The queue never hands the same resource to two workers at once. Events
// for a resource that is being processed are folded into a single follow-up
// pass.
//
// # Shutdown
//
// Stop waits for passes already running and drops everything still queued.
// A stopped Manager cannot be started again.
package reconciler
