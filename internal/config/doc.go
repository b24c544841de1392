// Package config loads the operator configuration.
//
// Configuration is read from config.yaml in a single directory, by default
// /etc/doodba-operator and otherwise the one given with --config-path. A
// missing file yields the defaults; a present file is decoded on top of
// them, so only the keys that differ need to be set:
//
//	namespace: erp
//	workers: 4
//	resyncInterval: 10m
//	logLevel: debug
//
// Durations use Go syntax (30s, 5m). LoadConfig validates the result and
// reports every problem at once as a ConfigurationErrorCollection.
//
// A Watcher reloads the file when it changes. Only settings that can be
// applied to a running process, such as the log level, are picked up by the
// operator; the rest take effect on restart.
package config
