// Package tui renders a live pipeline run in the terminal and the
// assembled campaign as markdown afterwards. Non-interactive sessions
// fall back to plain line output.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorAccent    = lipgloss.Color("#F59E0B") // Amber

	ColorSuccess = lipgloss.Color("#10B981") // Green
	ColorWarning = lipgloss.Color("#F59E0B") // Amber
	ColorError   = lipgloss.Color("#EF4444") // Red
	ColorInfo    = lipgloss.Color("#3B82F6") // Blue

	ColorText       = lipgloss.Color("#E5E7EB") // Light gray
	ColorTextMuted  = lipgloss.Color("#9CA3AF") // Muted gray
	ColorBorder     = lipgloss.Color("#374151") // Dark gray
	ColorBackground = lipgloss.Color("#1F2937") // Dark background
	ColorHighlight  = lipgloss.Color("#374151") // Selection

	// Phase colors
	ColorResearch = lipgloss.Color("#8B5CF6") // Purple
	ColorIdeation = lipgloss.Color("#06B6D4") // Cyan
	ColorAssembly = lipgloss.Color("#10B981") // Green
)

// agentColors keys the pipeline's agent IDs to display colors.
var agentColors = map[string]lipgloss.Color{
	"business-analyst":   lipgloss.Color("#8B5CF6"),
	"market-scout":       lipgloss.Color("#06B6D4"),
	"copywriter":         lipgloss.Color("#F59E0B"),
	"audience-planner":   lipgloss.Color("#3B82F6"),
	"budget-planner":     lipgloss.Color("#10B981"),
	"creative-director":  lipgloss.Color("#EC4899"),
	"campaign-assembler": lipgloss.Color("#7C3AED"),
}

// AgentColor returns the display color for an agent ID.
func AgentColor(agentID string) lipgloss.Color {
	if c, ok := agentColors[agentID]; ok {
		return c
	}
	return ColorTextMuted
}
