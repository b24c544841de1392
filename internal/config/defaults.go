package config

import "time"

const (
	// DefaultConfigPath is the directory config.yaml is read from.
	DefaultConfigPath = "/etc/doodba-operator"

	// DefaultFieldManager is the server-side apply identity.
	DefaultFieldManager = "doodba-operator"

	// DefaultMetricsBindAddress is where metrics are served by default.
	DefaultMetricsBindAddress = ":8080"

	// MetricsDisabled as metrics bind address turns the endpoint off.
	MetricsDisabled = "0"
)

// GetDefaultConfig returns the configuration used when no config.yaml exists.
func GetDefaultConfig() OperatorConfig {
	return OperatorConfig{
		Workers:            2,
		FieldManager:       DefaultFieldManager,
		ReconcileTimeout:   30 * time.Second,
		WaitInterval:       2 * time.Second,
		ResyncInterval:     5 * time.Minute,
		ErrorBackoff:       5 * time.Minute,
		MaxBackoff:         5 * time.Minute,
		MetricsBindAddress: DefaultMetricsBindAddress,
		LogLevel:           "info",
	}
}
