package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateServer(&cfg.Server)
	v.validateAgents(&cfg.Agents)
	v.validatePipeline(&cfg.Pipeline)
	v.validateStorage(&cfg.Storage)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}

	if cfg.File != "" && !isValidPath(cfg.File) {
		v.addError("log.file", cfg.File, "invalid file path")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Host == "" {
		v.addError("server.host", cfg.Host, "host required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be between 1 and 65535")
	}
	v.validateDuration("server.sse_heartbeat", cfg.SSEHeartbeat)
}

func (v *Validator) validateAgents(cfg *AgentsConfig) {
	switch cfg.Mode {
	case AgentModeReal, AgentModeFake:
	default:
		v.addError("agents.mode", cfg.Mode, "must be one of: real, fake")
	}

	if cfg.Mode == AgentModeReal {
		if cfg.BaseURL == "" {
			v.addError("agents.base_url", cfg.BaseURL, "base URL required in real mode")
		} else if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			v.addError("agents.base_url", cfg.BaseURL, "must be an absolute URL")
		}
	}

	v.validateDuration("agents.unary_timeout", cfg.UnaryTimeout)
	v.validateDuration("agents.stream_timeout", cfg.StreamTimeout)
	if cfg.FakeStepDelay != "" {
		if _, err := time.ParseDuration(cfg.FakeStepDelay); err != nil {
			v.addError("agents.fake_step_delay", cfg.FakeStepDelay, "invalid duration format")
		}
	}
}

func (v *Validator) validatePipeline(cfg *PipelineConfig) {
	v.validateDuration("pipeline.persist_timeout", cfg.PersistTimeout)
	if cfg.MaxHistory < 1 {
		v.addError("pipeline.max_history", cfg.MaxHistory, "must be at least 1")
	}
}

func (v *Validator) validateStorage(cfg *StorageConfig) {
	validBackends := map[string]bool{
		"sqlite": true, "json": true,
	}
	if !validBackends[cfg.Backend] {
		v.addError("storage.backend", cfg.Backend, "must be one of: sqlite, json")
	}
	if cfg.Path == "" {
		v.addError("storage.path", cfg.Path, "path required")
	}
}

func (v *Validator) validateDuration(field, value string) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		v.addError(field, value, "invalid duration format")
		return
	}
	if d <= 0 {
		v.addError(field, value, "must be positive")
	}
}

func isValidPath(path string) bool {
	dir := filepath.Dir(path)
	_, err := os.Stat(dir)
	return err == nil || os.IsNotExist(err)
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}
