// Package chat orchestrates one streaming exchange with the MAGPIE platform:
// it opens the event stream for a user message, reconciles the incoming
// payloads into true deltas, attributes the finished text to agents, and
// persists both sides of the exchange to local history.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magpie-ai/magpie/internal/assemble"
	"github.com/magpie-ai/magpie/internal/attribute"
	"github.com/magpie-ai/magpie/internal/event"
	"github.com/magpie-ai/magpie/internal/log"
	"github.com/magpie-ai/magpie/internal/session"
	"github.com/magpie-ai/magpie/internal/stream"
)

// Sentinel errors for exchange operations.
var (
	// ErrExchangeFailed indicates the exchange terminated on a transport
	// error; no assistant message was persisted for it.
	ErrExchangeFailed = errors.New("exchange failed")
)

// EventStream is the live record stream for one exchange, as produced by
// stream.Stream.
type EventStream interface {
	Scan() bool
	Bytes() []byte
	Err() error
	Completed() bool
	Close() error
}

// Streamer opens the event stream for one user message. Wrap a
// *stream.Client with NewStreamer for the production implementation; tests
// substitute fakes.
type Streamer interface {
	EnsureSession(ctx context.Context, sessionID string) error
	Open(ctx context.Context, sessionID, text string) (EventStream, error)
}

// streamerAdapter lifts *stream.Client onto the Streamer interface.
type streamerAdapter struct {
	c *stream.Client
}

// NewStreamer adapts a stream.Client for use as a Streamer.
func NewStreamer(c *stream.Client) Streamer {
	return streamerAdapter{c: c}
}

func (a streamerAdapter) EnsureSession(ctx context.Context, sessionID string) error {
	return a.c.EnsureSession(ctx, sessionID)
}

func (a streamerAdapter) Open(ctx context.Context, sessionID, text string) (EventStream, error) {
	st, err := a.c.Open(ctx, sessionID, text)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// History persists finished messages. *session.Store is the production
// implementation. A nil History disables persistence.
type History interface {
	AppendMessage(ctx context.Context, msg session.Message) error
}

// Config contains all required parameters for a chat Client.
type Config struct {
	Streamer Streamer
	History  History // nil = no local persistence
	Logger   log.Logger

	// Splitter attributes finished exchanges. Nil uses the default
	// pattern-then-keyword chain.
	Splitter *attribute.Splitter
}

func (cfg Config) validate() error {
	if cfg.Streamer == nil {
		return errors.New("streamer is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Client runs exchanges against the platform. It is stateless across
// exchanges: every Send creates a fresh assembler session, so overlapping
// sends cannot corrupt one another.
type Client struct {
	streamer Streamer
	history  History
	splitter *attribute.Splitter
	logger   log.Logger
}

// New creates a chat Client.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	splitter := cfg.Splitter
	if splitter == nil {
		splitter = attribute.NewSplitter()
	}

	return &Client{
		streamer: cfg.Streamer,
		history:  cfg.History,
		splitter: splitter,
		logger:   cfg.Logger,
	}, nil
}

// Send submits one user message on the given conversation and drives the
// response stream to a terminal state. Handler callbacks fire as the
// exchange progresses; the completed assistant messages (one per attributed
// segment) are also returned for callers that want the synchronous result.
//
// Cancellation is the caller's: cancel ctx (or close the transport) and the
// exchange fails with exactly one OnError and no OnComplete. Send performs
// no retries.
func (c *Client) Send(ctx context.Context, sessionID uuid.UUID, text string, handler assemble.Handler) ([]assemble.Message, error) {
	userMsg := session.Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      session.RoleUser,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}

	var completed []assemble.Message
	persisted := false

	// Wrap the caller's handler so completion also persists history. The
	// user message is written on the first completed segment, keyed by its
	// ID, so a re-entered completion path cannot double-insert.
	wrapped := assemble.Handler{
		OnChunk: handler.OnChunk,
		OnComplete: func(msg assemble.Message) {
			if !persisted {
				persisted = true
				c.persist(ctx, userMsg)
			}
			c.persist(ctx, session.Message{
				ID:        msg.ID,
				SessionID: sessionID,
				Role:      msg.Role,
				AgentID:   msg.AgentID,
				Content:   msg.Content,
				CreatedAt: msg.Timestamp,
			})
			completed = append(completed, msg)
			if handler.OnComplete != nil {
				handler.OnComplete(msg)
			}
		},
		OnError: handler.OnError,
	}

	sess := assemble.NewSession(c.splitter, wrapped, c.logger)

	c.logger.Debug("sending message",
		"session_id", sessionID,
		"message_id", sess.MessageID(),
		"text_len", len(text))

	if err := c.streamer.EnsureSession(ctx, sessionID.String()); err != nil {
		sess.Fail(err)
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	st, err := c.streamer.Open(ctx, sessionID.String(), text)
	if err != nil {
		sess.Fail(err)
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}
	defer func() { _ = st.Close() }()

	for st.Scan() {
		turns, err := event.Decode(st.Bytes(), c.logger)
		if err != nil {
			// Only the sentinel reaches here; malformed records decode as
			// empty turn lists and keep the stream flowing.
			break
		}
		if extracted := event.ExtractText(turns); extracted != "" {
			sess.Push(extracted)
		}
	}

	if err := st.Err(); err != nil {
		sess.Fail(err)
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	sess.Complete()
	return completed, nil
}

// persist writes one message to history, best-effort: a failed write is
// logged but never fails the exchange the user just watched succeed.
func (c *Client) persist(ctx context.Context, msg session.Message) {
	if c.history == nil {
		return
	}
	if err := c.history.AppendMessage(ctx, msg); err != nil {
		c.logger.Warn("persisting message",
			"message_id", msg.ID,
			"role", msg.Role,
			"error", err)
	}
}
