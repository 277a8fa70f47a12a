package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCurrentSessionID_NoStateFile(t *testing.T) {
	t.Parallel()

	id, err := LoadCurrentSessionID(t.TempDir())
	require.NoError(t, err, "missing state file is not an error")
	assert.Nil(t, id)
}

func TestSaveAndLoadCurrentSessionID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := uuid.New()

	require.NoError(t, SaveCurrentSessionID(dir, want))

	got, err := LoadCurrentSessionID(dir)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestSaveCurrentSessionID_Overwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, SaveCurrentSessionID(dir, uuid.New()))

	second := uuid.New()
	require.NoError(t, SaveCurrentSessionID(dir, second))

	got, err := LoadCurrentSessionID(dir)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second, *got)
}

func TestLoadCurrentSessionID_Malformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFile), []byte("not-a-uuid\n"), 0o600))

	_, err := LoadCurrentSessionID(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session ID")
}

func TestLoadCurrentSessionID_EmptyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFile), []byte("  \n"), 0o600))

	id, err := LoadCurrentSessionID(dir)
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestClearCurrentSessionID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, SaveCurrentSessionID(dir, uuid.New()))
	require.NoError(t, ClearCurrentSessionID(dir))

	id, err := LoadCurrentSessionID(dir)
	require.NoError(t, err)
	assert.Nil(t, id)

	// Clearing twice is fine.
	assert.NoError(t, ClearCurrentSessionID(dir))
}

func TestSaveCurrentSessionID_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "state")
	require.NoError(t, SaveCurrentSessionID(dir, uuid.New()))

	_, err := os.Stat(filepath.Join(dir, stateFile))
	assert.NoError(t, err)
}
