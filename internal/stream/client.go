package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/magpie-ai/magpie/internal/log"
)

// runPath is the streaming run endpoint of the MAGPIE API server.
const runPath = "/run_sse"

// Config contains the required parameters for a Client.
type Config struct {
	// BaseURL is the MAGPIE API server base URL.
	BaseURL string

	// AppName is the agent application addressed by every run (the
	// coordinator; specialists are reached through hand-off, not directly).
	AppName string

	// UserID identifies the user on the platform.
	UserID string

	// HTTPClient is the transport. The zero value uses http.DefaultClient;
	// callers impose timeouts via request contexts, not the client, because
	// a healthy stream can legitimately stay open for minutes.
	HTTPClient *http.Client

	// Limiter throttles outbound requests. Nil uses a default of
	// 5 requests/sec with a burst of 10.
	Limiter *rate.Limiter

	Logger log.Logger
}

func (cfg Config) validate() error {
	if cfg.BaseURL == "" {
		return errors.New("base URL is required")
	}
	if cfg.AppName == "" {
		return errors.New("app name is required")
	}
	if cfg.UserID == "" {
		return errors.New("user ID is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Client opens streaming runs against the MAGPIE API server. It performs no
// retries: a failed exchange is surfaced to the caller, whose policy decides.
//
// Client is safe for concurrent use; each Open returns an independent Stream.
type Client struct {
	baseURL string
	appName string
	userID  string
	httpc   *http.Client
	limiter *rate.Limiter
	logger  log.Logger
}

// NewClient creates a Client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = http.DefaultClient
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(5, 10)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		appName: cfg.AppName,
		userID:  cfg.UserID,
		httpc:   httpc,
		limiter: limiter,
		logger:  cfg.Logger,
	}, nil
}

// runRequest is the wire body for a streaming run.
type runRequest struct {
	AppName    string         `json:"app_name"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	NewMessage *genai.Content `json:"new_message"`
	Streaming  bool           `json:"streaming"`
}

// EnsureSession creates the server-side session if it does not exist yet.
// An already-existing session is not an error.
func (c *Client) EnsureSession(ctx context.Context, sessionID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	url := fmt.Sprintf("%s/apps/%s/users/%s/sessions/%s",
		c.baseURL, c.appName, c.userID, sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("{}"))
	if err != nil {
		return fmt.Errorf("%w: building session request: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: creating session: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		// The server reports an existing session as a 400; reusing it is
		// exactly what a resumed conversation wants.
		c.logger.Debug("session already exists upstream", "session_id", sessionID)
		return nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: creating session: status %d: %s",
			ErrTransport, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// Open sends the user's message and returns the live event stream for the
// exchange. The caller owns the Stream and must Close it.
func (c *Client) Open(ctx context.Context, sessionID, text string) (*Stream, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	body, err := json.Marshal(runRequest{
		AppName:   c.appName,
		UserID:    c.userID,
		SessionID: sessionID,
		NewMessage: &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: text}},
		},
		Streaming: true,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+runPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building run request: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: opening stream: %w", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: opening stream: status %d: %s",
			ErrTransport, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	c.logger.Debug("stream opened", "session_id", sessionID, "bytes_sent", len(body))
	return &Stream{body: resp.Body, sc: NewScanner(resp.Body)}, nil
}

// Stream is one live exchange: the response body plus the record scanner
// over it. Closing the Stream is how callers cancel mid-exchange.
type Stream struct {
	body io.ReadCloser
	sc   *Scanner
}

// Scan advances to the next data record. See Scanner.Scan.
func (s *Stream) Scan() bool { return s.sc.Scan() }

// Bytes returns the current record payload. See Scanner.Bytes.
func (s *Stream) Bytes() []byte { return s.sc.Bytes() }

// Err returns the transport error that stopped the stream, if any.
func (s *Stream) Err() error { return s.sc.Err() }

// Completed reports whether the completion sentinel was received.
func (s *Stream) Completed() bool { return s.sc.Completed() }

// Close releases the underlying connection.
func (s *Stream) Close() error { return s.body.Close() }
