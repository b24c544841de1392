// Package logging provides structured logging for doodba-operator.
//
// It is a thin layer over log/slog. Every entry carries a subsystem
// attribute so output can be filtered by component:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Reconciler", "Reconciling %s/%s", ns, name)
//	logging.Error("Store", err, "Failed to apply %s", name)
//
// InitForCLI also installs the same handler as the controller-runtime
// logger, so client-go and informer output ends up in the same stream with
// the same level filter.
//
// The level can be changed at runtime with SetLevel; the configuration
// watcher uses this to apply logLevel edits without a restart.
//
// # Subsystems
//
//   - Bootstrap: startup, CRD check, shutdown
//   - Config: configuration loading and reloads
//   - ReconcileManager: worker pool and queue
//   - KubernetesDetector: informer events
//   - Reconciler: Doodba reconcile passes
//   - Finalizer: finalizer add/cleanup/release
//   - Children: Job and child resource writes
//   - Events: Kubernetes Event recording
//   - Metrics: metrics endpoint
package logging
