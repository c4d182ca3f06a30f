package web

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adsmith-io/adsmith/internal/config"
	"github.com/adsmith-io/adsmith/internal/events"
	"github.com/adsmith-io/adsmith/internal/logging"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
}

func watcherRig(t *testing.T) (string, *events.Bus, <-chan events.Event, chan *config.Config) {
	t.Helper()

	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, file, "log:\n  level: info\n")

	bus := events.New(16)
	t.Cleanup(bus.Close)
	ch := bus.Subscribe(events.TypeConfigReloaded)

	applied := make(chan *config.Config, 4)
	w, err := NewConfigWatcher(file, bus, logging.NewNop(), func(cfg *config.Config) {
		applied <- cfg
	})
	if err != nil {
		t.Fatalf("NewConfigWatcher() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	// Give the watch loop a moment to register before touching the file.
	time.Sleep(100 * time.Millisecond)
	return file, bus, ch, applied
}

func waitReloadEvent(t *testing.T, ch <-chan events.Event) events.ConfigReloadedEvent {
	t.Helper()
	select {
	case ev := <-ch:
		re, ok := ev.(events.ConfigReloadedEvent)
		if !ok {
			t.Fatalf("event type = %T, want ConfigReloadedEvent", ev)
		}
		return re
	case <-time.After(3 * time.Second):
		t.Fatal("no config_reloaded event")
		return events.ConfigReloadedEvent{}
	}
}

func TestConfigWatcher_ReloadsOnWrite(t *testing.T) {
	file, _, ch, applied := watcherRig(t)

	writeConfigFile(t, file, "log:\n  level: debug\n")

	ev := waitReloadEvent(t, ch)
	if ev.Warning != "" {
		t.Errorf("warning = %q, want none", ev.Warning)
	}
	if ev.ConfigPath != file {
		t.Errorf("config_path = %q, want %q", ev.ConfigPath, file)
	}

	select {
	case cfg := <-applied:
		if cfg.Log.Level != "debug" {
			t.Errorf("applied log level = %q, want debug", cfg.Log.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was never called")
	}
}

func TestConfigWatcher_InvalidConfigKeepsOldOne(t *testing.T) {
	file, _, ch, applied := watcherRig(t)

	writeConfigFile(t, file, "server:\n  port: 70000\n")

	ev := waitReloadEvent(t, ch)
	if ev.Warning == "" {
		t.Error("expected a warning for an out-of-range port")
	}

	select {
	case cfg := <-applied:
		t.Errorf("invalid config must not be applied, got %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestConfigWatcher_SurvivesRenameReplace(t *testing.T) {
	file, _, ch, _ := watcherRig(t)

	// Editors write a temp file and rename it over the original.
	tmp := file + ".tmp"
	writeConfigFile(t, tmp, "log:\n  level: warn\n")
	if err := os.Rename(tmp, file); err != nil {
		t.Fatalf("rename: %v", err)
	}

	ev := waitReloadEvent(t, ch)
	if ev.Warning != "" {
		t.Errorf("warning = %q, want none", ev.Warning)
	}
}

func TestConfigWatcher_IgnoresSiblingFiles(t *testing.T) {
	file, _, ch, _ := watcherRig(t)

	other := filepath.Join(filepath.Dir(file), "notes.txt")
	writeConfigFile(t, other, "unrelated\n")

	select {
	case ev := <-ch:
		t.Errorf("unexpected reload event for a sibling file: %+v", ev)
	case <-time.After(600 * time.Millisecond):
	}
}

func TestConfigWatcher_CloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	writeConfigFile(t, file, "log:\n  level: info\n")

	w, err := NewConfigWatcher(file, nil, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewConfigWatcher() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
