// Package session persists local conversation history and tracks the
// current conversation across CLI invocations.
//
// History lives in a per-user SQLite database; the upstream platform keeps
// its own server-side session state, keyed by the same session ID.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Message role constants, matching the values accepted by the schema.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// TitleMaxLength bounds session titles for display.
const TitleMaxLength = 100

// Sentinel errors for store operations, checked with errors.Is.
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRole indicates a message role outside the allowed set.
	ErrInvalidRole = errors.New("invalid message role")
)

// Session represents one local conversation.
type Session struct {
	ID           uuid.UUID
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Message represents a single persisted conversation message. AgentID is
// empty for user messages and carries the attributed platform agent for
// assistant messages.
type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Role      string
	AgentID   string
	Content   string
	CreatedAt time.Time
}

// ValidRole reports whether role is one of the accepted message roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}
