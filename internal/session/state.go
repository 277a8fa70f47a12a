package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	stateFile = "current_session"
	lockFile  = "current_session.lock"
)

// stateFilePath returns the path of the current-session file inside dir,
// creating dir if needed.
func stateFilePath(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating state directory: %w", err)
	}
	abs, err := filepath.Abs(filepath.Join(dir, stateFile))
	if err != nil {
		return "", fmt.Errorf("resolving state path: %w", err)
	}
	return abs, nil
}

// withStateLock runs fn while holding the state file lock. Concurrent magpie
// processes (a second terminal, a script) otherwise race on the tiny
// read-modify-write window.
func withStateLock(dir string, fn func(path string) error) error {
	path, err := stateFilePath(dir)
	if err != nil {
		return err
	}

	lock := flock.New(filepath.Join(filepath.Dir(path), lockFile))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking state file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	return fn(path)
}

// LoadCurrentSessionID loads the active session ID from the state file in
// dir. A missing or empty state file returns (nil, nil): no current session
// is not an error.
func LoadCurrentSessionID(dir string) (*uuid.UUID, error) {
	var result *uuid.UUID

	err := withStateLock(dir, func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("reading state file: %w", err)
		}

		raw := strings.TrimSpace(string(data))
		if raw == "" {
			return nil
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid session ID in state file: %w", err)
		}
		result = &id
		return nil
	})
	return result, err
}

// SaveCurrentSessionID records id as the active session in dir.
func SaveCurrentSessionID(dir string, id uuid.UUID) error {
	return withStateLock(dir, func(path string) error {
		if err := os.WriteFile(path, []byte(id.String()+"\n"), 0o600); err != nil {
			return fmt.Errorf("writing state file: %w", err)
		}
		return nil
	})
}

// ClearCurrentSessionID removes the active-session marker in dir.
func ClearCurrentSessionID(dir string) error {
	return withStateLock(dir, func(path string) error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing state file: %w", err)
		}
		return nil
	})
}
