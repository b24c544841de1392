package store

import (
	"context"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"

	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

// DefaultFieldManager is the identity used for every server-side apply.
const DefaultFieldManager = "doodba-operator"

// Store is the set of object operations the operator consumes.
type Store interface {
	// Get fetches the object identified by key into obj.
	Get(ctx context.Context, key client.ObjectKey, obj client.Object) error

	// List fills list. Namespace, label selector and limit options are honoured.
	List(ctx context.Context, list client.ObjectList, opts ...client.ListOption) error

	// Create creates obj. It fails with AlreadyExists if the name is taken.
	Create(ctx context.Context, obj client.Object) error

	// Apply force-applies obj (without status) under the store's field manager.
	Apply(ctx context.Context, obj client.Object) error

	// ApplyStatus force-applies the status of obj under the store's field manager.
	ApplyStatus(ctx context.Context, obj client.Object) error

	// Update replaces obj guarded by its resourceVersion.
	Update(ctx context.Context, obj client.Object) error

	// Delete marks obj for deletion.
	Delete(ctx context.Context, obj client.Object, opts ...client.DeleteOption) error
}

// NewScheme returns a scheme with the built-in Kubernetes types and the Doodba API.
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(doodbav1.AddToScheme(scheme))
	return scheme
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

// IsAlreadyExists reports whether err means a create hit an existing name.
func IsAlreadyExists(err error) bool {
	return apierrors.IsAlreadyExists(err)
}

// IsConflict reports whether err is an optimistic-concurrency conflict.
func IsConflict(err error) bool {
	return apierrors.IsConflict(err)
}

// IsNoKindMatch reports whether err means the kind is not served, e.g. the CRD is not installed.
func IsNoKindMatch(err error) bool {
	return meta.IsNoMatchError(err) || runtime.IsNotRegisteredError(err)
}
