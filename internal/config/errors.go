package config

import (
	"fmt"
	"strings"
)

// ConfigurationError is one problem found in a configuration file.
type ConfigurationError struct {
	FilePath string
	// Field is the YAML key at fault, empty for problems with the whole file.
	Field       string
	Message     string
	Suggestions []string
}

func (ce ConfigurationError) Error() string {
	if ce.Field == "" {
		return fmt.Sprintf("%s: %s", ce.FilePath, ce.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ce.FilePath, ce.Field, ce.Message)
}

// ConfigurationErrorCollection reports every problem of a configuration
// at once instead of stopping at the first.
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError
}

// NewConfigurationErrorCollection returns an empty collection.
func NewConfigurationErrorCollection() *ConfigurationErrorCollection {
	return &ConfigurationErrorCollection{}
}

func (cec *ConfigurationErrorCollection) Error() string {
	switch len(cec.Errors) {
	case 0:
		return "no configuration errors"
	case 1:
		return cec.Errors[0].Error()
	}
	msgs := make([]string, 0, len(cec.Errors))
	for _, e := range cec.Errors {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("%d configuration errors: %s", len(cec.Errors), strings.Join(msgs, "; "))
}

func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

func (cec *ConfigurationErrorCollection) Count() int {
	return len(cec.Errors)
}

func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// Report renders the errors one per line with their suggestions, for
// printing to an operator.
func (cec *ConfigurationErrorCollection) Report() string {
	var b strings.Builder
	for _, e := range cec.Errors {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteByte('\n')
		for _, s := range e.Suggestions {
			fmt.Fprintf(&b, "    hint: %s\n", s)
		}
	}
	return b.String()
}
