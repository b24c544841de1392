package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/validation"

	"doodba-operator/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidatePositiveDuration checks that a duration is greater than zero.
func ValidatePositiveDuration(field string, value time.Duration) error {
	if value <= 0 {
		return ValidationError{Field: field, Value: value, Message: "must be a positive duration"}
	}
	return nil
}

// Validate checks config and returns every problem found. filePath is only
// used to annotate the errors.
func Validate(config OperatorConfig, filePath string) *ConfigurationErrorCollection {
	errs := NewConfigurationErrorCollection()
	add := func(err error, suggestions ...string) {
		if err == nil {
			return
		}
		ce := ConfigurationError{
			FilePath:    filePath,
			Message:     err.Error(),
			Suggestions: suggestions,
		}
		if ve, ok := err.(ValidationError); ok {
			ce.Field = ve.Field
			ce.Message = ve.Message
		}
		errs.Add(ce)
	}

	if config.Namespace != "" {
		if msgs := validation.IsDNS1123Label(config.Namespace); len(msgs) > 0 {
			add(ValidationError{Field: "namespace", Value: config.Namespace, Message: strings.Join(msgs, "; ")},
				"leave namespace empty to watch all namespaces")
		}
	}

	if config.Workers < 1 {
		add(ValidationError{Field: "workers", Value: config.Workers, Message: "must be at least 1"})
	}

	if strings.TrimSpace(config.FieldManager) == "" {
		add(ValidationError{Field: "fieldManager", Message: "must not be empty"})
	}

	for _, d := range []struct {
		field string
		value time.Duration
	}{
		{"reconcileTimeout", config.ReconcileTimeout},
		{"waitInterval", config.WaitInterval},
		{"resyncInterval", config.ResyncInterval},
		{"errorBackoff", config.ErrorBackoff},
		{"maxBackoff", config.MaxBackoff},
	} {
		add(ValidatePositiveDuration(d.field, d.value), "use a Go duration such as 30s or 5m")
	}

	if config.MetricsEnabled() {
		if _, _, err := net.SplitHostPort(config.MetricsBindAddress); err != nil {
			add(ValidationError{Field: "metricsBindAddress", Value: config.MetricsBindAddress, Message: err.Error()},
				`use host:port such as ":8080", or "0" to disable metrics`)
		}
	}

	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		add(ValidateOneOf("logLevel", config.LogLevel, []string{"debug", "info", "warn", "error"}))
	}

	return errs
}
