package tui

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/magpie-ai/magpie/internal/attribute"
	"github.com/magpie-ai/magpie/internal/ui"
)

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner    lipgloss.Style
	User      lipgloss.Style
	System    lipgloss.Style
	Tips      lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
	StatusBar lipgloss.Style

	// Agents maps agent IDs to label styles. Unknown agents use Fallback.
	Agents   map[string]lipgloss.Style
	Fallback lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	label := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	}
	coordinator := label("#4285F4")

	return Styles{
		Banner:    label("#4285F4"),
		User:      label("86"),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    label("86"),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),

		Agents: map[string]lipgloss.Style{
			attribute.Coordinator:   coordinator,
			attribute.Engineering:   label("#FBBC04"),
			attribute.DataScientist: label("#34A853"),
			attribute.GeneralChat:   label("#EA4335"),
		},
		Fallback: coordinator,
	}
}

// RenderAgentLabel returns the styled display label for an agent.
func (s Styles) RenderAgentLabel(agentID string) string {
	style, ok := s.Agents[agentID]
	if !ok {
		style = s.Fallback
	}
	return style.Render(attribute.DisplayName(agentID) + "> ")
}

// RenderBanner returns the MAGPIE ASCII art banner.
func (s Styles) RenderBanner() string {
	return ui.Banner()
}

// welcomeTips contains getting started tips displayed under the banner.
var welcomeTips = []string{
	"Tips for getting started:",
	"  • Ask about maintenance procedures, data queries, or anything else",
	"  • The coordinator hands your question to the right specialist",
	"  • Use /agents to see the roster, /help for commands",
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
