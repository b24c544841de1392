// Package finalizer guards Doodba deletion with the operator's finalizer.
//
// A pass either applies the desired state (adding the finalizer first when it
// is missing) or, once the resource is being deleted, runs cleanup and then
// releases the resource by removing the finalizer.
package finalizer

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"doodba-operator/internal/store"
	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
	"doodba-operator/pkg/logging"
)

// Op names the finalizer step that failed.
type Op string

const (
	OpAdd     Op = "add"
	OpCleanup Op = "cleanup"
	OpRemove  Op = "remove"
)

// Error is returned when adding or removing the finalizer, or the cleanup
// callback, fails. Errors returned by the apply callback are passed through.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("finalizer %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Func is a callback run by Run.
type Func func(ctx context.Context) error

// Manager runs passes under the finalizer protocol.
type Manager struct {
	store     store.Store
	finalizer string
}

// NewManager creates a Manager that maintains doodbav1.Finalizer through s.
func NewManager(s store.Store) *Manager {
	return &Manager{store: s, finalizer: doodbav1.Finalizer}
}

// Run executes one pass for obj.
//
// While obj is live the finalizer is added if missing and apply runs in the
// same pass. Once obj carries a deletion timestamp cleanup runs and the
// finalizer is removed afterwards; a failing cleanup keeps the finalizer so
// the next pass retries. A deleted obj without the finalizer is left alone.
// obj is updated in place with the stored state after finalizer edits.
func (m *Manager) Run(ctx context.Context, obj client.Object, apply, cleanup Func) error {
	if obj.GetDeletionTimestamp().IsZero() {
		if !controllerutil.ContainsFinalizer(obj, m.finalizer) {
			controllerutil.AddFinalizer(obj, m.finalizer)
			if err := m.store.Update(ctx, obj); err != nil {
				return &Error{Op: OpAdd, Err: err}
			}
			logging.Debug("Finalizer", "Added finalizer to %s/%s", obj.GetNamespace(), obj.GetName())
		}
		return apply(ctx)
	}

	if !controllerutil.ContainsFinalizer(obj, m.finalizer) {
		return nil
	}

	if err := cleanup(ctx); err != nil {
		return &Error{Op: OpCleanup, Err: err}
	}

	controllerutil.RemoveFinalizer(obj, m.finalizer)
	if err := m.store.Update(ctx, obj); err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return &Error{Op: OpRemove, Err: err}
	}
	logging.Debug("Finalizer", "Removed finalizer from %s/%s", obj.GetNamespace(), obj.GetName())
	return nil
}
