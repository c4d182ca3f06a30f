package web

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/adsmith-io/adsmith/internal/config"
	"github.com/adsmith-io/adsmith/internal/events"
	"github.com/adsmith-io/adsmith/internal/logging"
)

// ConfigWatcher watches the config file during serve and publishes a
// config_reloaded event on every change. Invalid edits are reported as
// a warning on the event; the running configuration stays untouched.
type ConfigWatcher struct {
	configFile string
	bus        *events.Bus
	log        *logging.Logger
	onChange   func(*config.Config)

	watcher  *fsnotify.Watcher
	stop     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	pending *time.Timer
}

// debounceDelay coalesces the event bursts editors produce on save.
const debounceDelay = 200 * time.Millisecond

// NewConfigWatcher creates a watcher for the given config file.
// onChange, if non-nil, receives every successfully reloaded config.
func NewConfigWatcher(configFile string, bus *events.Bus, log *logging.Logger, onChange func(*config.Config)) (*ConfigWatcher, error) {
	if log == nil {
		log = logging.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &ConfigWatcher{
		configFile: configFile,
		bus:        bus,
		log:        log.WithComponent("config-watcher"),
		onChange:   onChange,
		watcher:    fsw,
		stop:       make(chan struct{}),
	}

	// Watch the directory: editors replace files by rename, which a
	// file-level watch loses track of.
	if err := fsw.Add(filepath.Dir(configFile)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	go w.loop()
	w.log.Info("watching config file", "path", configFile)
	return w, nil
}

func (w *ConfigWatcher) loop() {
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.configFile) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// scheduleReload debounces reloads so one save triggers one reload.
func (w *ConfigWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(debounceDelay, w.reload)
}

func (w *ConfigWatcher) reload() {
	loader := config.NewLoader().WithConfigFile(w.configFile)

	cfg, err := loader.Load()
	if err != nil {
		w.log.Warn("config reload failed", "path", w.configFile, "error", err)
		w.publish(err.Error())
		return
	}

	if err := config.ValidateConfig(cfg); err != nil {
		w.log.Warn("reloaded config is invalid", "path", w.configFile, "error", err)
		w.publish(err.Error())
		return
	}

	w.log.Info("config reloaded", "path", w.configFile)
	w.publish("")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

func (w *ConfigWatcher) publish(warning string) {
	if w.bus == nil {
		return
	}
	w.bus.Publish(events.NewConfigReloadedEvent(w.configFile, warning))
}

// Close stops the watcher.
func (w *ConfigWatcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		w.mu.Lock()
		if w.pending != nil {
			w.pending.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}
