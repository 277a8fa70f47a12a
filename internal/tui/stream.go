package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "charm.land/bubbletea/v2"

	"github.com/magpie-ai/magpie/internal/assemble"
)

// streamBufferSize is sized for ~1.5s burst at 60 FPS refresh rate.
// Prevents backpressure during UI render delays while keeping memory
// bounded (100 strings ≈ 10KB typical).
const streamBufferSize = 100

// streamEvent is a discriminated union for all stream events.
// A single channel with a union type simplifies select logic and avoids
// multi-channel closure handling.
type streamEvent struct {
	// Exactly one of these fields is set per event
	text    string            // Reconciled text delta (when non-empty)
	segment *assemble.Message // Finished attributed segment (when non-nil)
	err     error             // Error (when non-nil)
	done    bool              // True when the exchange completed
}

// Stream message types for Bubble Tea.
type streamStartedMsg struct {
	eventCh <-chan streamEvent
	cancel  context.CancelFunc
}

type streamTextMsg struct {
	text string
}

type streamSegmentMsg struct {
	segment assemble.Message
}

type streamDoneMsg struct{}

type streamErrorMsg struct {
	err error
}

// startStream creates a command that initiates one exchange with the backend.
//
// Goroutine lifecycle: the spawned goroutine exits when the exchange
// completes, errors, or the context is canceled. Channel closure signals
// completion, so no WaitGroup is needed.
func (m *Model) startStream(query string) tea.Cmd {
	return func() tea.Msg {
		eventCh := make(chan streamEvent, streamBufferSize)

		// Timeout prevents indefinite hangs on a stalled backend
		ctx, cancel := context.WithTimeout(m.ctx, m.timeout)

		go func() {
			defer cancel()
			// Channel closure signals goroutine completion
			defer close(eventCh)

			// Panic recovery to prevent TUI lockup
			defer func() {
				if r := recover(); r != nil {
					slog.Error("stream panic recovered", "panic", r)
					select {
					case eventCh <- streamEvent{err: fmt.Errorf("stream panic: %v", r)}:
					default:
					}
				}
			}()

			handler := assemble.Handler{
				OnChunk: func(delta string) {
					select {
					case eventCh <- streamEvent{text: delta}:
					case <-ctx.Done():
					}
				},
				OnComplete: func(msg assemble.Message) {
					seg := msg
					select {
					case eventCh <- streamEvent{segment: &seg}:
					case <-ctx.Done():
					}
				},
				// Errors surface through Send's return value below.
			}

			if _, err := m.client.Send(ctx, m.sessionID, query, handler); err != nil {
				select {
				case eventCh <- streamEvent{err: err}:
				case <-ctx.Done():
				}
				return
			}

			select {
			case eventCh <- streamEvent{done: true}:
			case <-ctx.Done():
			}
		}()

		return streamStartedMsg{
			eventCh: eventCh,
			cancel:  cancel,
		}
	}
}

// listenForStream creates a command that waits for the next stream event.
// Empty events (all fields zero) are skipped via loop instead of recursion.
func listenForStream(eventCh <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		if eventCh == nil {
			return nil
		}

		for {
			event, ok := <-eventCh
			if !ok {
				// Channel closed before a terminal event arrived
				return streamErrorMsg{err: fmt.Errorf("stream ended without completion signal")}
			}

			switch {
			case event.err != nil:
				return streamErrorMsg{err: event.err}
			case event.segment != nil:
				return streamSegmentMsg{segment: *event.segment}
			case event.done:
				return streamDoneMsg{}
			case event.text != "":
				return streamTextMsg{text: event.text}
			default:
				continue
			}
		}
	}
}
