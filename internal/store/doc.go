// Package store is the operator's view of the cluster: a typed object store
// keyed by (kind, namespace, name).
//
// NewKubernetesStore wraps a controller-runtime client. Apply and
// ApplyStatus are server-side apply patches with force=true under a fixed
// field manager, so repeating an identical apply is a no-op on the server.
// Tests use storetest.MemoryStore instead. Unlike the controller-runtime fake
// client it garbage-collects owned objects and counts writes, so no-op
// applies can be asserted.
//
// Errors are Kubernetes API status errors. Use
// IsNotFound, IsAlreadyExists, IsConflict and IsNoKindMatch to classify them.
package store
