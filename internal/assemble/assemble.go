// Package assemble drives one streaming exchange through a small state
// machine and notifies the caller of chunks, completed messages and errors.
//
// Each exchange gets its own Session value: the session owns the
// accumulated content and the in-progress message identity, so a user
// submitting a new message while a previous stream is still draining cannot
// corrupt the new exchange. Nothing in this package is shared mutable state.
package assemble

import (
	"time"

	"github.com/google/uuid"

	"github.com/magpie-ai/magpie/internal/attribute"
	"github.com/magpie-ai/magpie/internal/log"
	"github.com/magpie-ai/magpie/internal/reconcile"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one finished chat message. Identity is stable once created.
type Message struct {
	ID        uuid.UUID
	Role      string
	Content   string
	AgentID   string
	Timestamp time.Time
}

// Handler receives session notifications. Callbacks are invoked
// synchronously from the goroutine driving the session, in order: zero or
// more OnChunk calls, then either OnComplete (once per attributed segment,
// in segment order) or exactly one OnError. Nil callbacks are skipped.
//
// The first OnComplete of a session is the caller's cue to persist the
// originating user message; callers key on message ID to avoid
// double-insertion if that path re-enters.
type Handler struct {
	OnChunk    func(delta string)
	OnComplete func(msg Message)
	OnError    func(err error)
}

// State is the session lifecycle state.
type State int

// Session states: OPEN → (chunk)* → COMPLETE | ERROR.
const (
	StateOpen State = iota
	StateComplete
	StateError
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Session is the per-exchange assembler. Create one at send time, never
// reuse it across exchanges, and drop it after the terminal event.
//
// Session is not safe for concurrent use; one transport read drives it at a
// time.
type Session struct {
	msgID    uuid.UUID
	acc      reconcile.Accumulator
	splitter *attribute.Splitter
	handler  Handler
	logger   log.Logger
	state    State
}

// NewSession creates a Session for one exchange.
func NewSession(splitter *attribute.Splitter, handler Handler, logger log.Logger) *Session {
	return &Session{
		msgID:    uuid.New(),
		splitter: splitter,
		handler:  handler,
		logger:   logger,
		state:    StateOpen,
	}
}

// MessageID returns the identity of the in-progress assistant message. The
// first completed segment keeps this ID.
func (s *Session) MessageID() uuid.UUID {
	return s.msgID
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Content returns the accumulated text surfaced so far.
func (s *Session) Content() string {
	return s.acc.Content()
}

// Push reconciles one raw text payload. Pure duplicates emit nothing; a real
// delta is appended to the in-progress message and surfaced via OnChunk.
// Pushes after a terminal event are ignored.
func (s *Session) Push(raw string) {
	if s.state != StateOpen {
		return
	}

	delta, ok := s.acc.Apply(raw)
	if !ok {
		return
	}
	if s.handler.OnChunk != nil {
		s.handler.OnChunk(delta)
	}
}

// Complete finishes the exchange: the accumulated content is split into
// attributed segments and OnComplete fires once per segment, in order. A
// hand-off exchange therefore yields two ordered OnComplete calls. An
// exchange that accumulated no content completes silently; empty messages
// are never emitted.
func (s *Session) Complete() {
	if s.state != StateOpen {
		return
	}
	s.state = StateComplete

	content := s.acc.Content()
	if content == "" {
		s.logger.Debug("exchange completed with no content", "message_id", s.msgID)
		return
	}

	segments := s.splitter.Split(content)
	now := time.Now().UTC()
	for i, seg := range segments {
		id := s.msgID
		if i > 0 {
			id = uuid.New()
		}
		msg := Message{
			ID:        id,
			Role:      RoleAssistant,
			Content:   seg.Text,
			AgentID:   seg.AgentID,
			Timestamp: now,
		}
		if s.handler.OnComplete != nil {
			s.handler.OnComplete(msg)
		}
	}

	s.logger.Debug("exchange completed",
		"message_id", s.msgID,
		"segments", len(segments),
		"content_len", len(content))
}

// Fail terminates the exchange with an error. Exactly one OnError fires per
// session and no OnComplete follows it; the partial content is discarded.
func (s *Session) Fail(err error) {
	if s.state != StateOpen {
		return
	}
	s.state = StateError

	s.logger.Debug("exchange failed",
		"message_id", s.msgID,
		"error", err,
		"discarded_len", s.acc.Len())

	if s.handler.OnError != nil {
		s.handler.OnError(err)
	}
}
