package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/pkg/db"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
)

func setupChatTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	stmts := []string{`
CREATE TABLE users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL
);`, `
CREATE TABLE chat_threads (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'active',
  last_message TEXT,
  last_message_at DATETIME,
  unread_by_user INTEGER NOT NULL DEFAULT 0,
  unread_by_admin INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE chat_messages (
  id TEXT PRIMARY KEY,
  thread_id TEXT NOT NULL,
  sender_id TEXT NOT NULL,
  sender_role TEXT NOT NULL,
  body TEXT NOT NULL,
  is_read INTEGER NOT NULL DEFAULT 0,
  read_at DATETIME,
  created_at DATETIME
);`}
	for _, stmt := range stmts {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type chatHarness struct {
	conn  *gorm.DB
	svc   Service
	clock time.Time
}

func newChatHarness(t *testing.T) *chatHarness {
	t.Helper()
	h := &chatHarness{
		conn:  setupChatTestDB(t),
		clock: time.Date(2026, time.July, 7, 10, 0, 0, 0, time.UTC),
	}
	svc, err := NewService(ServiceParams{
		Repo: NewRepository(h.conn),
		Tx:   db.FromConn(h.conn),
		Now: func() time.Time {
			h.clock = h.clock.Add(time.Second)
			return h.clock
		},
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *chatHarness) addUser(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, h.conn.Exec(`INSERT INTO users (id, name, email) VALUES (?, ?, ?)`, id.String(), name, name+"@example.com").Error)
	return id
}

func TestUserAndAdminConversation(t *testing.T) {
	h := newChatHarness(t)
	ctx := context.Background()
	userID := h.addUser(t, "alice")
	adminID := uuid.New()

	thread, err := h.svc.GetOrCreateMyThread(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, thread.Messages)

	again, err := h.svc.GetOrCreateMyThread(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, thread.ID, again.ID)

	sent, err := h.svc.SendMessage(ctx, userID, "  my listing was blocked  ")
	require.NoError(t, err)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, "my listing was blocked", sent.Messages[0].Body)
	assert.Equal(t, 1, sent.UnreadByAdmin)

	unread, err := h.svc.AdminUnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	replied, err := h.svc.Reply(ctx, adminID, thread.ID, "we are looking into it")
	require.NoError(t, err)
	require.Len(t, replied.Messages, 2)
	assert.Equal(t, enums.ChatSenderAdmin, replied.Messages[1].SenderRole)
	assert.True(t, replied.Messages[0].IsRead)
	assert.Equal(t, 0, replied.UnreadByAdmin)

	count, err := h.svc.MyUnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, h.svc.MarkMyThreadRead(ctx, userID))
	count, err = h.svc.MyUnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReplyReopensClosedThread(t *testing.T) {
	h := newChatHarness(t)
	ctx := context.Background()
	userID := h.addUser(t, "bob")

	thread, err := h.svc.SendMessage(ctx, userID, "hello")
	require.NoError(t, err)

	closed, err := h.svc.Close(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ChatThreadClosed, closed.Status)

	active, err := h.svc.ListThreads(ctx, ListThreadsParams{Status: "active"})
	require.NoError(t, err)
	assert.Empty(t, active.Items)

	reopened, err := h.svc.Reply(ctx, uuid.New(), thread.ID, "back again")
	require.NoError(t, err)
	assert.Equal(t, enums.ChatThreadActive, reopened.Status)

	_, err = h.svc.ListThreads(ctx, ListThreadsParams{Status: "archived"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListThreadsSearchAndOrder(t *testing.T) {
	h := newChatHarness(t)
	ctx := context.Background()
	alice := h.addUser(t, "alice")
	bob := h.addUser(t, "bob")

	_, err := h.svc.SendMessage(ctx, alice, "first")
	require.NoError(t, err)
	_, err = h.svc.SendMessage(ctx, bob, "second")
	require.NoError(t, err)

	all, err := h.svc.ListThreads(ctx, ListThreadsParams{})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	assert.Equal(t, bob, all.Items[0].UserID)

	found, err := h.svc.ListThreads(ctx, ListThreadsParams{Search: "ALI"})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, alice, found.Items[0].UserID)
}

func TestDeleteMessagePermissions(t *testing.T) {
	h := newChatHarness(t)
	ctx := context.Background()
	alice := h.addUser(t, "alice")
	mallory := h.addUser(t, "mallory")
	adminID := uuid.New()

	_, err := h.svc.SendMessage(ctx, alice, "one")
	require.NoError(t, err)
	thread, err := h.svc.Reply(ctx, adminID, mustThreadID(t, h, alice), "two")
	require.NoError(t, err)
	require.Len(t, thread.Messages, 2)
	userMsg, adminMsg := thread.Messages[0], thread.Messages[1]

	err = h.svc.DeleteMessage(ctx, Actor{ID: alice}, thread.ID, adminMsg.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	err = h.svc.DeleteMessage(ctx, Actor{ID: mallory}, thread.ID, userMsg.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, h.svc.DeleteMessage(ctx, Actor{ID: adminID, IsAdmin: true}, thread.ID, adminMsg.ID))
	after, err := h.svc.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, after.Messages, 1)
	require.NotNil(t, after.LastMessage)
	assert.Equal(t, "one", *after.LastMessage)

	require.NoError(t, h.svc.DeleteMessage(ctx, Actor{ID: alice}, thread.ID, userMsg.ID))
	empty, err := h.svc.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Nil(t, empty.LastMessage)
}

func TestDeleteThread(t *testing.T) {
	h := newChatHarness(t)
	ctx := context.Background()
	alice := h.addUser(t, "alice")
	thread, err := h.svc.SendMessage(ctx, alice, "bye")
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(ctx, thread.ID))
	err = h.svc.Delete(ctx, thread.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var messages int64
	require.NoError(t, h.conn.Table("chat_messages").Count(&messages).Error)
	assert.Zero(t, messages)
}

func TestSendMessageValidation(t *testing.T) {
	h := newChatHarness(t)
	_, err := h.svc.SendMessage(context.Background(), h.addUser(t, "alice"), "   ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func mustThreadID(t *testing.T, h *chatHarness, userID uuid.UUID) uuid.UUID {
	t.Helper()
	thread, err := NewRepository(h.conn).FindThreadByUser(context.Background(), userID)
	require.NoError(t, err)
	return thread.ID
}
