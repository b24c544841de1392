package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"doodba-operator/pkg/logging"
)

// DefaultDebounceInterval is the time to wait before reloading after the
// last change to config.yaml.
const DefaultDebounceInterval = 500 * time.Millisecond

// Watcher reloads config.yaml when it changes and hands every valid result
// to OnChange. Invalid configurations are logged and skipped.
type Watcher struct {
	configPath string
	debounce   time.Duration
	onChange   func(OperatorConfig)

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for config.yaml in configPath.
func NewWatcher(configPath string, onChange func(OperatorConfig)) *Watcher {
	return &Watcher{
		configPath: configPath,
		debounce:   DefaultDebounceInterval,
		onChange:   onChange,
	}
}

// Run watches the configuration directory until ctx is cancelled. The
// directory is watched rather than the file so that atomic replacements, as
// done for mounted ConfigMaps, are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(w.configPath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.configPath, err)
	}
	logging.Info("Config", "Watching %s for configuration changes", w.configPath)

	target := ConfigFilePath(w.configPath)
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event, target) {
				continue
			}
			logging.Debug("Config", "Detected change: %s %s", event.Op, event.Name)
			w.schedule()

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("Config", "Config watcher error: %v", err)
		}
	}
}

// relevant reports whether event may have changed config.yaml. ConfigMap
// volumes swap a ..data symlink, so any change to it counts as well.
func (w *Watcher) relevant(event fsnotify.Event, target string) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == target || filepath.Base(name) == "..data"
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	config, err := LoadConfig(w.configPath)
	if err != nil {
		logging.Error("Config", err, "Ignoring invalid configuration change")
		return
	}
	w.onChange(config)
}
