package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Agents   AgentsConfig   `mapstructure:"agents"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	SSEHeartbeat string   `mapstructure:"sse_heartbeat"`
	WatchConfig  bool     `mapstructure:"watch_config"`
}

// AgentsConfig configures how agent services are reached.
type AgentsConfig struct {
	// Mode selects the client set: "real" calls the configured agent
	// service, "fake" replays the built-in offline scenario.
	Mode          string            `mapstructure:"mode"`
	BaseURL       string            `mapstructure:"base_url"`
	APIKey        string            `mapstructure:"api_key"`
	Headers       map[string]string `mapstructure:"headers"`
	UnaryTimeout  string            `mapstructure:"unary_timeout"`
	StreamTimeout string            `mapstructure:"stream_timeout"`
	FakeStepDelay string            `mapstructure:"fake_step_delay"`
}

// PipelineConfig configures run execution.
type PipelineConfig struct {
	PersistTimeout string `mapstructure:"persist_timeout"`
	MaxHistory     int    `mapstructure:"max_history"`
}

// StorageConfig configures run persistence.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// Agent mode values.
const (
	AgentModeReal = "real"
	AgentModeFake = "fake"
)

// Timeouts returns the per-call agent timeouts. Strings the validator
// rejected (or empty ones) fall back to the defaults.
func (c AgentsConfig) Timeouts() (unary, stream time.Duration) {
	return parseDurationOr(c.UnaryTimeout, 60*time.Second),
		parseDurationOr(c.StreamTimeout, 10*time.Minute)
}

// StepDelay returns the fake-mode event spacing.
func (c AgentsConfig) StepDelay() time.Duration {
	return parseDurationOr(c.FakeStepDelay, 250*time.Millisecond)
}

// PersistTimeoutDuration returns the bound on the final store write.
func (c PipelineConfig) PersistTimeoutDuration() time.Duration {
	return parseDurationOr(c.PersistTimeout, 30*time.Second)
}

// Heartbeat returns the SSE keep-alive interval.
func (c ServerConfig) Heartbeat() time.Duration {
	return parseDurationOr(c.SSEHeartbeat, 15*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
