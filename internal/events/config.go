package events

// Event type constants for config-related events.
const (
	TypeConfigReloaded = "config_reloaded"
)

// ConfigReloadedEvent is emitted when the serve command picks up a
// changed config file. Not tied to a run.
type ConfigReloadedEvent struct {
	BaseEvent
	ConfigPath string `json:"config_path"`
	Warning    string `json:"warning,omitempty"`
}

// NewConfigReloadedEvent creates a new config_reloaded event.
func NewConfigReloadedEvent(configPath, warning string) ConfigReloadedEvent {
	return ConfigReloadedEvent{
		BaseEvent:  NewBaseEvent(TypeConfigReloaded, ""),
		ConfigPath: configPath,
		Warning:    warning,
	}
}
