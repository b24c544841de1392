package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"doodba-operator/pkg/logging"
)

const configFileName = "config.yaml"

// ConfigFilePath returns the path of config.yaml inside configPath.
func ConfigFilePath(configPath string) string {
	return filepath.Join(configPath, configFileName)
}

// LoadConfig loads config.yaml from configPath on top of the defaults and
// validates the result. A missing file yields the defaults.
func LoadConfig(configPath string) (OperatorConfig, error) {
	configFilePath := ConfigFilePath(configPath)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return OperatorConfig{}, fmt.Errorf("failed to read %s: %w", configFilePath, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return OperatorConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}

	if errs := Validate(config, configFilePath); errs.HasErrors() {
		return OperatorConfig{}, errs
	}

	logging.Info("Config", "Loaded configuration from %s", configFilePath)
	return config, nil
}
