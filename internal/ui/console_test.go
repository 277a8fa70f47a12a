package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/magpie-ai/magpie/internal/assemble"
	"github.com/magpie-ai/magpie/internal/attribute"
	"github.com/magpie-ai/magpie/internal/session"
)

func TestBanner(t *testing.T) {
	t.Parallel()

	s := Banner()
	assert.NotEmpty(t, s)
	assert.Equal(t, len(magpieArt)+1, strings.Count(s, "\n"))
}

func TestPrintBannerWithInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintBannerWithInfo(&buf, "1.2.3", "http://localhost:8000")

	out := buf.String()
	assert.Contains(t, out, "1.2.3")
	assert.Contains(t, out, "http://localhost:8000")
}

func TestConsole_PrintMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf, 80)
	// Force plain-text rendering so assertions are escape-free.
	c.markdown = nil

	c.PrintMessage(assemble.Message{
		Role:    assemble.RoleAssistant,
		AgentID: attribute.DataScientist,
		Content: "rows returned: 42",
	})

	out := buf.String()
	assert.Contains(t, out, attribute.DisplayName(attribute.DataScientist))
	assert.Contains(t, out, "rows returned: 42")
}

func TestConsole_PrintMessage_UnknownAgent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf, 80)
	c.markdown = nil

	c.PrintMessage(assemble.Message{
		Role:    assemble.RoleAssistant,
		AgentID: "mystery_agent",
		Content: "hello",
	})

	assert.Contains(t, buf.String(), "hello")
}

func TestConsole_PrintError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf, 80)

	c.PrintError(errors.New("backend unreachable"))
	assert.Contains(t, buf.String(), "backend unreachable")
}

func TestConsole_PrintSessions(t *testing.T) {
	t.Parallel()

	current := uuid.New()
	other := uuid.New()
	sessions := []*session.Session{
		{ID: current, Title: "Brake inspection", MessageCount: 4, UpdatedAt: time.Now()},
		{ID: other, MessageCount: 0, UpdatedAt: time.Now()},
	}

	var buf bytes.Buffer
	c := NewConsole(&buf, 80)
	c.PrintSessions(sessions, current.String())

	out := buf.String()
	assert.Contains(t, out, "* "+current.String())
	assert.Contains(t, out, "  "+other.String())
	assert.Contains(t, out, "Brake inspection")
	assert.Contains(t, out, "(untitled)")
}

func TestConsole_PrintSessions_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf, 80)
	c.PrintSessions(nil, "")

	assert.Contains(t, buf.String(), "No sessions")
}

func TestConsole_PrintTranscript(t *testing.T) {
	t.Parallel()

	msgs := []session.Message{
		{Role: session.RoleUser, Content: "show me the fleet status"},
		{Role: session.RoleAssistant, AgentID: attribute.Coordinator, Content: "Checking now."},
	}

	var buf bytes.Buffer
	c := NewConsole(&buf, 80)
	c.markdown = nil
	c.PrintTranscript(msgs)

	out := buf.String()
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "show me the fleet status")
	assert.Contains(t, out, "Checking now.")
}
