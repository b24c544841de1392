package config

import "time"

// OperatorConfig is the configuration of the operator process, read from
// config.yaml in the configuration directory.
type OperatorConfig struct {
	// Namespace restricts the operator to one namespace. Empty watches all namespaces.
	Namespace string `yaml:"namespace,omitempty"`

	// Workers is the number of concurrent reconcile workers.
	Workers int `yaml:"workers,omitempty"`

	// FieldManager is the identity used for server-side apply.
	FieldManager string `yaml:"fieldManager,omitempty"`

	// ReconcileTimeout bounds a single reconcile pass.
	ReconcileTimeout time.Duration `yaml:"reconcileTimeout,omitempty"`

	// WaitInterval is the requeue delay while a multi-step change converges.
	WaitInterval time.Duration `yaml:"waitInterval,omitempty"`

	// ResyncInterval is the requeue delay of a Running Doodba.
	ResyncInterval time.Duration `yaml:"resyncInterval,omitempty"`

	// ErrorBackoff is the requeue delay after a failed pass.
	ErrorBackoff time.Duration `yaml:"errorBackoff,omitempty"`

	// MaxBackoff caps the exponential backoff of the reconcile manager.
	MaxBackoff time.Duration `yaml:"maxBackoff,omitempty"`

	// MetricsBindAddress is where /metrics is served. "0" disables it.
	MetricsBindAddress string `yaml:"metricsBindAddress,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel,omitempty"`
}

// MetricsEnabled reports whether the metrics endpoint should be served.
func (c OperatorConfig) MetricsEnabled() bool {
	return c.MetricsBindAddress != "" && c.MetricsBindAddress != MetricsDisabled
}
