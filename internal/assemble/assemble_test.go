package assemble

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpie-ai/magpie/internal/attribute"
	"github.com/magpie-ai/magpie/internal/log"
)

// recorder captures every callback invocation in order.
type recorder struct {
	chunks    []string
	completed []Message
	errors    []error
}

func (r *recorder) handler() Handler {
	return Handler{
		OnChunk:    func(delta string) { r.chunks = append(r.chunks, delta) },
		OnComplete: func(msg Message) { r.completed = append(r.completed, msg) },
		OnError:    func(err error) { r.errors = append(r.errors, err) },
	}
}

func newTestSession(rec *recorder) *Session {
	return NewSession(attribute.NewSplitter(), rec.handler(), log.NewNop())
}

func TestSession_ChunksThenComplete(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	sess := newTestSession(rec)

	assert.Equal(t, StateOpen, sess.State())

	sess.Push("Here is ")
	sess.Push("Here is the answer.")
	sess.Complete()

	assert.Equal(t, []string{"Here is ", "the answer."}, rec.chunks)
	assert.Equal(t, StateComplete, sess.State())

	require.Len(t, rec.completed, 1)
	msg := rec.completed[0]
	assert.Equal(t, sess.MessageID(), msg.ID)
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "Here is the answer.", msg.Content)
	assert.Equal(t, attribute.Coordinator, msg.AgentID)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Empty(t, rec.errors)
}

func TestSession_ChunksReconstructContent(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	sess := newTestSession(rec)

	for _, raw := range []string{"a", "ab", "ab", "abc", "abcd"} {
		sess.Push(raw)
	}

	assert.Equal(t, sess.Content(), strings.Join(rec.chunks, ""),
		"concatenated chunks must reconstruct accumulated content")
}

func TestSession_DuplicatePushEmitsNothing(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	sess := newTestSession(rec)

	sess.Push("cumulative text")
	sess.Push("cumulative text")
	sess.Push("text")

	assert.Equal(t, []string{"cumulative text"}, rec.chunks)
}

func TestSession_HandoffYieldsTwoCompletes(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	sess := newTestSession(rec)

	sess.Push("I'll transfer you to our Engineering Process Procedure Agent for this. " +
		"Torque the bolts to the specified value.")
	sess.Complete()

	require.Len(t, rec.completed, 2)
	assert.Equal(t, attribute.Coordinator, rec.completed[0].AgentID)
	assert.Equal(t, attribute.Engineering, rec.completed[1].AgentID)

	// The first segment keeps the in-progress message identity; the second
	// gets its own.
	assert.Equal(t, sess.MessageID(), rec.completed[0].ID)
	assert.NotEqual(t, rec.completed[0].ID, rec.completed[1].ID)

	// Segments share one UTC timestamp; consumers order by emission, not
	// by time.
	for _, msg := range rec.completed {
		assert.NotEmpty(t, msg.Content)
		assert.Equal(t, RoleAssistant, msg.Role)
		assert.Equal(t, time.UTC, msg.Timestamp.Location())
	}
	assert.Equal(t, rec.completed[0].Timestamp, rec.completed[1].Timestamp)
}

func TestSession_EmptyExchangeCompletesSilently(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	sess := newTestSession(rec)

	sess.Complete()

	assert.Equal(t, StateComplete, sess.State())
	assert.Empty(t, rec.completed, "empty messages are never emitted")
	assert.Empty(t, rec.errors)
}

func TestSession_FailEmitsOneErrorNoCompletes(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	sess := newTestSession(rec)
	cause := errors.New("connection reset")

	sess.Push("partial answer that will be discarded")
	sess.Fail(cause)

	require.Len(t, rec.errors, 1)
	assert.ErrorIs(t, rec.errors[0], cause)
	assert.Empty(t, rec.completed)
	assert.Equal(t, StateError, sess.State())

	// Re-entering any path after the terminal event is a no-op.
	sess.Fail(errors.New("again"))
	sess.Complete()
	sess.Push("more")
	assert.Len(t, rec.errors, 1)
	assert.Empty(t, rec.completed)
	assert.Empty(t, rec.chunks[1:])
}

func TestSession_CompleteIsTerminal(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	sess := newTestSession(rec)

	sess.Push("answer")
	sess.Complete()
	require.Len(t, rec.completed, 1)

	sess.Complete()
	sess.Fail(errors.New("late"))
	sess.Push("late chunk")

	assert.Len(t, rec.completed, 1, "at most one terminal event")
	assert.Empty(t, rec.errors)
	assert.Len(t, rec.chunks, 1)
}

func TestSession_NilCallbacksAreSafe(t *testing.T) {
	t.Parallel()

	sess := NewSession(attribute.NewSplitter(), Handler{}, log.NewNop())
	sess.Push("text")
	sess.Complete()

	sess2 := NewSession(attribute.NewSplitter(), Handler{}, log.NewNop())
	sess2.Fail(errors.New("boom"))
}

func TestSession_IndependentSessions(t *testing.T) {
	t.Parallel()

	// Two in-flight exchanges share nothing: content pushed to one is
	// invisible to the other.
	recA, recB := &recorder{}, &recorder{}
	a := newTestSession(recA)
	b := newTestSession(recB)

	a.Push("answer for A")
	b.Push("answer for B")
	a.Complete()
	b.Fail(errors.New("b died"))

	require.Len(t, recA.completed, 1)
	assert.Equal(t, "answer for A", recA.completed[0].Content)
	assert.Empty(t, recA.errors)

	assert.Empty(t, recB.completed)
	require.Len(t, recB.errors, 1)
	assert.NotEqual(t, a.MessageID(), b.MessageID())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "complete", StateComplete.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "unknown", State(99).String())
}
