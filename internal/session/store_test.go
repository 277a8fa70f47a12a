package session

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpie-ai/magpie/internal/database"
	"github.com/magpie-ai/magpie/internal/log"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db))
	return NewStore(db, log.NewNop())
}

func userMessage(sessionID uuid.UUID, content string) Message {
	return Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      RoleUser,
		Content:   content,
	}
}

func TestStore_CreateAndGetSession(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateSession(ctx, "brake pads")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := store.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "brake pads", got.Title)
	assert.Zero(t, got.MessageCount)
}

func TestStore_GetSession_NotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.GetSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_AppendAndLoadMessages(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	user := userMessage(sess.ID, "how do I replace a brake pad?")
	require.NoError(t, store.AppendMessage(ctx, user))

	assistant := Message{
		ID:        uuid.New(),
		SessionID: sess.ID,
		Role:      RoleAssistant,
		AgentID:   "engineering_process_procedure_agent",
		Content:   "Secure the aircraft on jacks first.",
		CreatedAt: time.Now().UTC().Add(time.Second),
	}
	require.NoError(t, store.AppendMessage(ctx, assistant))

	messages, err := store.Messages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Empty(t, messages[0].AgentID)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.Equal(t, "engineering_process_procedure_agent", messages[1].AgentID)

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)
}

func TestStore_Messages_InsertionOrderOnSharedTimestamp(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	// Hand-off segments share one timestamp; retrieval must preserve the
	// order they were appended in, whatever their IDs sort like. Fixed IDs
	// in descending order would flip under any id tie-break.
	now := time.Now().UTC()
	first := Message{
		ID:        uuid.MustParse("ffffffff-0000-0000-0000-000000000001"),
		SessionID: sess.ID,
		Role:      RoleAssistant,
		AgentID:   "master_coordinator",
		Content:   "Transferring you to the specialist.",
		CreatedAt: now,
	}
	second := Message{
		ID:        uuid.MustParse("00000000-0000-0000-0000-000000000002"),
		SessionID: sess.ID,
		Role:      RoleAssistant,
		AgentID:   "engineering_process_procedure_agent",
		Content:   "Torque the bolts to 110 Nm.",
		CreatedAt: now,
	}
	require.NoError(t, store.AppendMessage(ctx, first))
	require.NoError(t, store.AppendMessage(ctx, second))

	got, err := store.Messages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
}

func TestStore_AppendMessage_IdempotentOnID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	msg := userMessage(sess.ID, "once only")
	require.NoError(t, store.AppendMessage(ctx, msg))
	require.NoError(t, store.AppendMessage(ctx, msg), "same ID twice is a no-op")

	messages, err := store.Messages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestStore_AppendMessage_AutoTitlesSession(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	require.NoError(t, store.AppendMessage(ctx,
		userMessage(sess.ID, "How do I inspect brake pads?\nAsking for a 737.")))

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "How do I inspect brake pads?", got.Title)

	// Later user messages never overwrite the derived title
	require.NoError(t, store.AppendMessage(ctx, userMessage(sess.ID, "And the tires?")))
	got, err = store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "How do I inspect brake pads?", got.Title)
}

func TestStore_AppendMessage_KeepsExplicitTitle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "fleet review")
	require.NoError(t, err)

	require.NoError(t, store.AppendMessage(ctx, userMessage(sess.ID, "show me the numbers")))

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "fleet review", got.Title)
}

func TestTitleFromContent(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", TitleMaxLength+20)
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"single line", "hello there", "hello there"},
		{"first line only", "  line one \nline two", "line one"},
		{"truncated", long, long[:TitleMaxLength]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, titleFromContent(tt.content))
		})
	}
}

func TestStore_AppendMessage_InvalidRole(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	msg := userMessage(sess.ID, "x")
	msg.Role = "robot"
	assert.ErrorIs(t, store.AppendMessage(ctx, msg), ErrInvalidRole)
}

func TestStore_ListSessions_MostRecentFirst(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	older, err := store.CreateSession(ctx, "older")
	require.NoError(t, err)
	newer, err := store.CreateSession(ctx, "newer")
	require.NoError(t, err)

	// Touch the older session so it becomes the most recent.
	msg := userMessage(older.ID, "bump")
	msg.CreatedAt = time.Now().UTC().Add(time.Second)
	require.NoError(t, store.AppendMessage(ctx, msg))

	sessions, err := store.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, older.ID, sessions[0].ID)
	assert.Equal(t, newer.ID, sessions[1].ID)
}

func TestStore_DeleteSession_Cascades(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "doomed")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(ctx, userMessage(sess.ID, "gone soon")))

	require.NoError(t, store.DeleteSession(ctx, sess.ID))

	_, err = store.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	messages, err := store.Messages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, messages, "cascade delete removes messages")

	assert.ErrorIs(t, store.DeleteSession(ctx, sess.ID), ErrSessionNotFound)
}

func TestStore_SetTitle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "")
	require.NoError(t, err)

	require.NoError(t, store.SetTitle(ctx, sess.ID, "renamed"))
	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)

	assert.ErrorIs(t, store.SetTitle(ctx, uuid.New(), "x"), ErrSessionNotFound)
}

func TestValidRole(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidRole(RoleUser))
	assert.True(t, ValidRole(RoleAssistant))
	assert.True(t, ValidRole(RoleSystem))
	assert.False(t, ValidRole("model"))
	assert.False(t, ValidRole(""))
}

// Guard against accidental schema drift: the role CHECK constraint must
// reject anything outside the allowed set even if validation is bypassed.
func TestSchema_RoleConstraint(t *testing.T) {
	t.Parallel()

	db, err := database.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	_, err = db.Exec(`INSERT INTO sessions (id, title, created_at, updated_at) VALUES ('s1', '', ?, ?)`,
		time.Now(), time.Now())
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO messages (id, session_id, role, agent_id, content, created_at)
		VALUES ('m1', 's1', 'model', '', 'x', ?)`, time.Now())
	assert.Error(t, err)
}
