package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/adsmith-io/adsmith/internal/agent"
	"github.com/adsmith-io/adsmith/internal/config"
	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/logging"
	"github.com/adsmith-io/adsmith/internal/pipeline"
	"github.com/adsmith-io/adsmith/internal/store"
)

// loadConfig loads configuration through the global viper so flag
// bindings apply. The result is not validated; commands that execute
// runs call config.ValidateConfig themselves, while doctor reports
// validation problems as check results instead of refusing to start.
func loadConfig() (*config.Config, *config.Loader, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, loader, nil
}

// buildLogger creates the process logger on stderr, leaving stdout for
// command output.
func buildLogger(cfg *config.Config) *logging.Logger {
	format := cfg.Log.Format
	if jsonLogs {
		format = "json"
	}
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: format,
		Output: os.Stderr,
	})
}

// buildTaskClients creates the agent clients: HTTP clients against the
// configured service, or the scripted fakes when fake mode is selected.
func buildTaskClients(cfg *config.Config, log *logging.Logger, forceFake bool) (core.UnaryClient, core.StreamingClient) {
	if forceFake || cfg.Agents.Mode == config.AgentModeFake {
		script := agent.DefaultScript()
		script.StepDelay = cfg.Agents.StepDelay()
		return agent.NewFakeUnaryClient(script), agent.NewFakeStreamingClient(script)
	}

	acfg := agent.Config{
		BaseURL: cfg.Agents.BaseURL,
		APIKey:  cfg.Agents.APIKey,
		Headers: cfg.Agents.Headers,
	}
	return agent.NewUnaryHTTPClient(acfg, log), agent.NewStreamingHTTPClient(acfg, log)
}

// openStore opens the configured run store. Callers own Close.
func openStore(cfg *config.Config) (core.RunStore, error) {
	st, err := store.New(store.Config{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	return st, nil
}

// orchestratorConfig maps file config onto orchestrator tuning.
func orchestratorConfig(cfg *config.Config) pipeline.Config {
	unary, stream := cfg.Agents.Timeouts()
	return pipeline.Config{
		UnaryTimeout:   unary,
		StreamTimeout:  stream,
		PersistTimeout: cfg.Pipeline.PersistTimeoutDuration(),
		MaxHistory:     cfg.Pipeline.MaxHistory,
	}
}

// outputJSON writes the given value to stdout as indented JSON.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// slogLevel maps the configured level name onto the slog level used by
// handlers built outside the logging package.
func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// truncateText removes newlines and truncates the string to maxLen.
func truncateText(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")

	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
