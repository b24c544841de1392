package app

import (
	"doodba-operator/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces the debug log level regardless of the configured one.
	Debug bool

	// ConfigPath is the directory config.yaml is read from.
	ConfigPath string

	// Overrides holds values given on the command line. Zero values keep
	// what the configuration file says.
	Overrides Overrides

	// OperatorConfig is the loaded configuration. When set before
	// NewApplication runs, the file is not read.
	OperatorConfig *config.OperatorConfig
}

// Overrides are command line settings that take precedence over config.yaml.
type Overrides struct {
	Namespace          string
	MetricsBindAddress string
	Workers            int
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}

// apply copies the non-zero overrides onto c.
func (o Overrides) apply(c *config.OperatorConfig) {
	if o.Namespace != "" {
		c.Namespace = o.Namespace
	}
	if o.MetricsBindAddress != "" {
		c.MetricsBindAddress = o.MetricsBindAddress
	}
	if o.Workers > 0 {
		c.Workers = o.Workers
	}
}
