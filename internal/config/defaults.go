package config

// DefaultConfigYAML contains the default configuration YAML content.
// Written by `adsmith init`; values not specified here use built-in defaults.
const DefaultConfigYAML = `# adsmith configuration
#
# Values not specified here use sensible defaults.

# Agent service connection
agents:
  # "real" calls the agent service below; "fake" replays the built-in
  # offline scenario (useful for demos and development).
  mode: real
  base_url: http://localhost:8700
  # api_key:           # or set ADSMITH_AGENTS_API_KEY
  unary_timeout: 60s
  stream_timeout: 10m

# Run persistence
storage:
  backend: sqlite      # sqlite | json
  path: .adsmith/runs.db

# HTTP service (adsmith serve)
server:
  host: 127.0.0.1
  port: 8640
  cors_origins:
    - http://localhost:3000
  sse_heartbeat: 15s
  watch_config: true

# Pipeline execution
pipeline:
  persist_timeout: 30s
  max_history: 50

# Logging
log:
  level: info          # debug | info | warn | error
  format: auto         # auto | text | json
`
