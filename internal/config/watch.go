package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/marmos91/iscsitgt/internal/logger"
)

// Watcher reloads SessionDefaults from the config file on change, so a TPG
// parameter default update takes effect for new logins without a daemon
// restart. Targets/TPGs/portals themselves are never hot-reloaded; those
// live in the control-plane store and change only through the API.
type Watcher struct {
	v    *viper.Viper
	path string

	mu       sync.RWMutex
	defaults SessionDefaults

	onChange func(SessionDefaults)
}

// NewWatcher starts watching the config file at path for changes and
// returns a Watcher seeded with initial's session defaults.
func NewWatcher(path string, initial SessionDefaults) (*Watcher, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: watcher read config: %w", err)
	}

	w := &Watcher{v: v, path: path, defaults: initial}

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
			logger.Warn("config: failed to reload defaults", logger.Err(err))
			return
		}
		applySessionDefaults(&cfg.Defaults)

		w.mu.Lock()
		w.defaults = cfg.Defaults
		cb := w.onChange
		w.mu.Unlock()

		logger.Info("config: session defaults reloaded", logger.Reason(e.Name))
		if cb != nil {
			cb(cfg.Defaults)
		}
	})
	v.WatchConfig()

	return w, nil
}

// Defaults returns the most recently loaded SessionDefaults.
func (w *Watcher) Defaults() SessionDefaults {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.defaults
}

// OnChange registers a callback invoked with the new SessionDefaults after
// each reload. Only one callback is retained; a later call replaces the
// former.
func (w *Watcher) OnChange(fn func(SessionDefaults)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}
