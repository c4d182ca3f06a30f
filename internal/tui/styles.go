package tui

import "github.com/charmbracelet/lipgloss"

// Base styles
var (
	// HeaderStyle is the style for the run header.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(0, 1)

	// InputStyle renders the campaign input line under the header.
	InputStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true).
			Padding(0, 1)

	// FooterStyle is the style for the key help footer.
	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			MarginTop(1)

	// AgentRowStyle is the style for agent rows.
	AgentRowStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			PaddingLeft(2)

	// SelectedAgentStyle is the style for the selected agent row.
	SelectedAgentStyle = lipgloss.NewStyle().
				Foreground(ColorText).
				Background(ColorHighlight).
				Bold(true).
				PaddingLeft(2)

	// Status styles
	IdleStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	WorkingStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	DoneStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStatusStyle = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)

	// Log styles
	LogStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	ErrorLogStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	WarnLogStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	InfoLogStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	DebugLogStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// ErrorStyle is for error display.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorError).
			Padding(1, 2)

	// Phase badge styles
	ResearchBadge = lipgloss.NewStyle().
			Background(ColorResearch).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Bold(true)

	IdeationBadge = lipgloss.NewStyle().
			Background(ColorIdeation).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Bold(true)

	AssemblyBadge = lipgloss.NewStyle().
			Background(ColorAssembly).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Bold(true)

	// HelpStyle is for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true)

	// TitleStyle is for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	// SubtleStyle is for subtle text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// ActivityStyle renders the recent activity feed.
	ActivityStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			PaddingLeft(2)

	// StreamLinkStyle highlights a copied or displayed stream URL.
	StreamLinkStyle = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Underline(true)

	// NoticeStyle is for transient notices such as clipboard feedback.
	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Padding(0, 1)
)

// StatusStyle returns the style for an agent task state.
func StatusStyle(state string) lipgloss.Style {
	switch state {
	case "idle":
		return IdleStyle
	case "working":
		return WorkingStyle
	case "done":
		return DoneStyle
	case "error":
		return ErrorStatusStyle
	default:
		return AgentRowStyle
	}
}

// PhaseBadge returns the badge style for a phase name.
func PhaseBadge(phase string) lipgloss.Style {
	switch phase {
	case "research":
		return ResearchBadge
	case "ideation":
		return IdeationBadge
	case "assembly":
		return AssemblyBadge
	default:
		return lipgloss.NewStyle()
	}
}
