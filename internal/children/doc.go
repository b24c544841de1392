// Package children builds and reconciles the objects a Doodba owns.
//
// Builders are pure functions of the Doodba (and, where relevant, the image
// and replica counts to run). Every object they return carries a controller
// owner reference to the Doodba and the standard app.kubernetes.io labels,
// so garbage collection removes them when the Doodba goes away.
//
// Hook Jobs are get-or-create: a Job's pod template cannot be changed, so an
// existing Job is never patched. Steady-state objects (ConfigMap, Secrets,
// PersistentVolumeClaim, Deployments, Services, Ingresses) are force-applied,
// which makes re-applying an unchanged object a no-op.
package children
