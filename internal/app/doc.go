// Package app bootstraps and runs the Doodba operator.
//
// # Bootstrap
//
// NewApplication performs the startup sequence:
//
//  1. Logging is initialized at info level so loading errors are visible
//  2. config.yaml is loaded from Config.ConfigPath, missing files yield defaults
//  3. Command line overrides are applied and the result is validated
//  4. The configured log level takes effect, or debug when Config.Debug is set
//  5. InitializeServices connects to the cluster and wires the store, the
//     change detector, the reconcile manager and the Doodba reconciler
//
// # Running
//
// Application.Run first lists Doodbas to prove the CRD is installed. When
// that fails it returns ErrCRDNotQueryable without starting anything.
// Otherwise it runs until the context ends:
//
//   - the reconcile manager with its workers and change detector
//   - an HTTP endpoint serving /metrics and /healthz, unless the bind
//     address is "0"
//   - a watcher on the configuration directory that applies log level
//     changes without a restart
//
// On cancellation the manager lets in-flight passes finish and drops queued
// work; the metrics server is shut down gracefully.
//
// # Usage
//
//	cfg := app.NewConfig(false, "/etc/doodba-operator")
//	cfg.Overrides.Namespace = "erp"
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("bootstrap failed: %w", err)
//	}
//	return application.Run(ctx)
package app
