package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Accent color for the docchat banner and headers.
const accentTeal = "#2DD4BF"

// DOCCHAT ASCII art banner.
var bannerArt = []string{
	"  ██████╗  ██████╗  ██████╗ ██████╗██╗  ██╗ █████╗ ████████╗",
	"  ██╔══██╗██╔═══██╗██╔════╝██╔════╝██║  ██║██╔══██╗╚══██╔══╝",
	"  ██║  ██║██║   ██║██║     ██║     ███████║███████║   ██║   ",
	"  ██║  ██║██║   ██║██║     ██║     ██╔══██║██╔══██║   ██║   ",
	"  ██████╔╝╚██████╔╝╚██████╗╚██████╗██║  ██║██║  ██║   ██║   ",
	"  ╚═════╝  ╚═════╝  ╚═════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner    lipgloss.Style
	Header    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Tips      lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
	StatusBar lipgloss.Style

	// Citations side panel
	Sidebar       lipgloss.Style
	SidebarTitle  lipgloss.Style
	SidebarSource lipgloss.Style
	SidebarPages  lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentTeal)),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentTeal)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),

		Sidebar: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		SidebarTitle:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentTeal)),
		SidebarSource: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		SidebarPages:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// RenderBanner returns the ASCII art banner as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range bannerArt {
		_, _ = b.WriteString(s.Banner.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// welcomeTips contains getting started tips displayed under the banner.
var welcomeTips = []string{
	"Tips for getting started:",
	"  • Ask questions about your indexed documents",
	"  • Sources and page numbers appear in the side panel",
	"  • Use /help to see available commands",
	"  • Press Ctrl+C to cancel, Ctrl+D to exit",
}

// RenderWelcomeTips returns styled welcome tips.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		_, _ = b.WriteString(s.Tips.Render(tip))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
