package tui

import (
	"os"

	"golang.org/x/term"
)

// OutputMode represents the run output mode.
type OutputMode int

const (
	// ModeTUI uses the full Bubbletea view.
	ModeTUI OutputMode = iota

	// ModePlain uses plain line output.
	ModePlain

	// ModeQuiet suppresses progress output entirely.
	ModeQuiet
)

// String returns the string representation of the output mode.
func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModePlain:
		return "plain"
	case ModeQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// Detector determines the appropriate output mode.
type Detector struct {
	forceMode *OutputMode
	noColor   bool
}

// NewDetector creates a new output mode detector.
func NewDetector() *Detector {
	return &Detector{}
}

// ForceMode forces a specific output mode.
func (d *Detector) ForceMode(mode OutputMode) *Detector {
	d.forceMode = &mode
	return d
}

// NoColor disables color output.
func (d *Detector) NoColor(disable bool) *Detector {
	d.noColor = disable
	return d
}

// Detect determines the appropriate output mode.
func (d *Detector) Detect() OutputMode {
	if d.forceMode != nil {
		return *d.forceMode
	}

	switch os.Getenv("ADSMITH_OUTPUT") {
	case "plain":
		return ModePlain
	case "quiet":
		return ModeQuiet
	}

	if os.Getenv("ADSMITH_QUIET") == "1" {
		return ModeQuiet
	}

	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return ModePlain
	}

	if !d.isTTY() {
		return ModePlain
	}

	return ModeTUI
}

// isTTY checks if stdout is a terminal.
func (d *Detector) isTTY() bool {
	fd := int(os.Stdout.Fd())
	return term.IsTerminal(fd)
}

// ShouldUseColor determines if color should be used.
func (d *Detector) ShouldUseColor() bool {
	if d.noColor {
		return false
	}

	// NO_COLOR convention, https://no-color.org
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	if os.Getenv("TERM") == "dumb" {
		return false
	}

	return d.isTTY()
}

// TerminalSize returns terminal dimensions, defaulting to 80x24 when
// stdout is not a terminal.
func TerminalSize() (width, height int) {
	fd := int(os.Stdout.Fd())
	w, h, err := term.GetSize(fd)
	if err != nil {
		return 80, 24
	}
	return w, h
}

// ParseOutputMode parses an output mode from a flag value.
func ParseOutputMode(s string) OutputMode {
	switch s {
	case "tui":
		return ModeTUI
	case "plain":
		return ModePlain
	case "quiet":
		return ModeQuiet
	default:
		return ModeTUI
	}
}
