package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistration(t *testing.T) {
	t.Parallel()

	want := []string{"chat", "ask", "sessions", "version"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing subcommand %q", name)
	}
}

func TestSessionsSubcommands(t *testing.T) {
	t.Parallel()

	var names map[string]bool
	for _, c := range rootCmd.Commands() {
		if c.Name() == "sessions" {
			names = map[string]bool{}
			for _, sub := range c.Commands() {
				names[sub.Name()] = true
			}
		}
	}
	require.NotNil(t, names)

	for _, name := range []string{"list", "show", "switch", "new", "rename", "delete"} {
		assert.True(t, names[name], "missing sessions subcommand %q", name)
	}
}

func TestSessionsShow_InvalidID(t *testing.T) {
	t.Parallel()

	err := runSessionsShow(context.Background(), "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session ID")
}

func TestSessionsDelete_InvalidID(t *testing.T) {
	t.Parallel()

	err := runSessionsDelete(context.Background(), "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session ID")
}

func TestSessionsRename_InvalidID(t *testing.T) {
	t.Parallel()

	err := runSessionsRename(context.Background(), "not-a-uuid", "new title")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session ID")
}

func TestBuildVersion(t *testing.T) {
	t.Parallel()

	v := buildVersion()
	assert.NotEmpty(t, v)
	assert.False(t, strings.Contains(v, "(devel)"))
}

func TestPrintVersion(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printVersion(&buf)

	out := buf.String()
	assert.Contains(t, out, buildVersion())
	assert.Contains(t, out, "Backend:")
}
