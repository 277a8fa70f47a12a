package ui

import (
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"

	"github.com/magpie-ai/magpie/internal/assemble"
	"github.com/magpie-ai/magpie/internal/attribute"
	"github.com/magpie-ai/magpie/internal/session"
)

// Per-agent label colors. Unknown agents fall back to the coordinator color.
var agentColors = map[string]string{
	attribute.Coordinator:   magpieBlue,
	attribute.Engineering:   "#FBBC04", // Yellow
	attribute.DataScientist: "#34A853", // Green
	attribute.GeneralChat:   "#EA4335", // Red
}

// Console renders answers and session listings to a writer.
// Intended for one-shot commands and non-TTY output.
type Console struct {
	w        io.Writer
	markdown *glamour.TermRenderer
	label    lipgloss.Style
	dim      lipgloss.Style
	errStyle lipgloss.Style
}

// NewConsole creates a console renderer writing to w.
// Markdown rendering degrades to plain text if glamour initialization fails.
func NewConsole(w io.Writer, width int) *Console {
	if width <= 0 {
		width = 80
	}

	// nil renderer is tolerated by render()
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)

	return &Console{
		w:        w,
		markdown: r,
		label:    lipgloss.NewStyle().Bold(true),
		dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		errStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// PrintMessage writes one assistant message with its agent label.
func (c *Console) PrintMessage(msg assemble.Message) {
	color, ok := agentColors[msg.AgentID]
	if !ok {
		color = magpieBlue
	}
	label := c.label.Foreground(lipgloss.Color(color)).Render(attribute.DisplayName(msg.AgentID))

	_, _ = fmt.Fprintf(c.w, "%s\n%s\n", label, c.render(msg.Content))
}

// PrintError writes an error message in the error style.
func (c *Console) PrintError(err error) {
	_, _ = fmt.Fprintln(c.w, c.errStyle.Render("Error: "+err.Error()))
}

// PrintSessions writes a session listing, most recent first.
func (c *Console) PrintSessions(sessions []*session.Session, currentID string) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(c.w, "No sessions.")
		return
	}

	for _, s := range sessions {
		marker := "  "
		if s.ID.String() == currentID {
			marker = "* "
		}
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		_, _ = fmt.Fprintf(c.w, "%s%s  %s\n", marker, s.ID, title)
		_, _ = fmt.Fprintln(c.w, c.dim.Render(fmt.Sprintf(
			"    %d messages, updated %s", s.MessageCount, s.UpdatedAt.Format("2006-01-02 15:04"))))
	}
}

// PrintTranscript writes the stored messages of a session in order.
func (c *Console) PrintTranscript(messages []session.Message) {
	for _, m := range messages {
		switch m.Role {
		case session.RoleUser:
			_, _ = fmt.Fprintf(c.w, "%s\n%s\n\n", c.label.Render("You"), m.Content)
		case session.RoleAssistant:
			c.PrintMessage(assemble.Message{
				Role:    assemble.RoleAssistant,
				AgentID: m.AgentID,
				Content: m.Content,
			})
			_, _ = fmt.Fprintln(c.w)
		default:
			_, _ = fmt.Fprintf(c.w, "%s\n\n", c.dim.Render(m.Content))
		}
	}
}

// render converts Markdown to styled terminal output, falling back to the
// raw text when rendering fails.
func (c *Console) render(markdown string) string {
	if c.markdown == nil {
		return markdown
	}
	rendered, err := c.markdown.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSuffix(rendered, "\n")
}
