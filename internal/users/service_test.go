package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/internal/notifications"
	"github.com/angelmondragon/petpair-backend/pkg/db"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
)

var testNow = time.Date(2026, time.April, 2, 9, 30, 0, 0, time.UTC)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.Exec(`
CREATE TABLE users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  phone TEXT,
  city_id TEXT,
  role TEXT NOT NULL DEFAULT 'user',
  is_verified INTEGER NOT NULL DEFAULT 0,
  verification_code TEXT,
  verification_expires_at DATETIME,
  reset_token_hash TEXT,
  reset_expires_at DATETIME,
  is_blocked INTEGER NOT NULL DEFAULT 0,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	return conn
}

type fakeListingBlocker struct {
	calls []bool
	inTx  []bool
	err   error
}

func (f *fakeListingBlocker) SetAllListingsBlockedTx(_ context.Context, tx *gorm.DB, _ uuid.UUID, blocked bool) (int64, error) {
	f.calls = append(f.calls, blocked)
	f.inTx = append(f.inTx, tx != nil)
	return 2, f.err
}

type recordingSink struct {
	notices []notifications.Notice
}

func (r *recordingSink) Emit(_ context.Context, notice notifications.Notice) error {
	r.notices = append(r.notices, notice)
	return nil
}

type fakeRevoker struct {
	revoked []uuid.UUID
}

func (f *fakeRevoker) RevokeAll(_ context.Context, userID uuid.UUID) error {
	f.revoked = append(f.revoked, userID)
	return nil
}

type usersHarness struct {
	repo     *Repository
	svc      Service
	listings *fakeListingBlocker
	sink     *recordingSink
	sessions *fakeRevoker
}

func newUsersHarness(t *testing.T) *usersHarness {
	t.Helper()
	conn := setupUsersTestDB(t)
	h := &usersHarness{
		repo:     NewRepository(conn),
		listings: &fakeListingBlocker{},
		sink:     &recordingSink{},
		sessions: &fakeRevoker{},
	}
	svc, err := NewService(ServiceParams{
		Repo:     h.repo,
		Tx:       db.FromConn(conn),
		Listings: h.listings,
		Notices:  h.sink,
		Sessions: h.sessions,
		Now:      func() time.Time { return testNow },
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *usersHarness) create(t *testing.T, name string, role enums.UserRole, offset time.Duration) uuid.UUID {
	t.Helper()
	user, err := h.repo.Create(context.Background(), CreateUserDTO{
		Name:         name,
		Email:        fmt.Sprintf("  %s@Example.com ", name),
		PasswordHash: "hash",
		Role:         role,
		Now:          testNow.Add(offset),
	})
	require.NoError(t, err)
	return user.ID
}

func TestRepositoryNormalizesEmail(t *testing.T) {
	h := newUsersHarness(t)
	id := h.create(t, "alice", enums.UserRoleUser, 0)

	found, err := h.repo.FindByEmail(context.Background(), "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, "alice@example.com", found.Email)
}

func TestResolveIdentity(t *testing.T) {
	h := newUsersHarness(t)
	adminID := h.create(t, "root", enums.UserRoleAdmin, 0)

	identity, err := h.svc.ResolveIdentity(context.Background(), adminID)
	require.NoError(t, err)
	assert.True(t, identity.IsAdmin)
	assert.Equal(t, "root", identity.DisplayName)

	_, err = h.svc.ResolveIdentity(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSetBlockedCascadesAndNotifies(t *testing.T) {
	h := newUsersHarness(t)
	ctx := context.Background()
	adminID := h.create(t, "root", enums.UserRoleAdmin, 0)
	userID := h.create(t, "bob", enums.UserRoleUser, time.Second)

	dto, err := h.svc.SetBlocked(ctx, adminID, userID, true)
	require.NoError(t, err)
	assert.True(t, dto.IsBlocked)
	assert.Equal(t, []bool{true}, h.listings.calls)
	assert.Equal(t, []bool{true}, h.listings.inTx, "cascade joins the account update transaction")
	require.Len(t, h.sink.notices, 1)
	assert.Equal(t, enums.NotificationAccountBlocked, h.sink.notices[0].Kind)
	assert.Equal(t, userID, h.sink.notices[0].UserID)
	assert.Equal(t, []uuid.UUID{userID}, h.sessions.revoked)

	identity, err := h.svc.ResolveIdentity(ctx, userID)
	require.NoError(t, err)
	assert.True(t, identity.IsBlocked)

	dto, err = h.svc.SetBlocked(ctx, adminID, userID, false)
	require.NoError(t, err)
	assert.False(t, dto.IsBlocked)
	assert.Equal(t, []bool{true, false}, h.listings.calls)
	assert.Len(t, h.sink.notices, 1)
}

func TestSetBlockedRejectsAdminsAndNonAdmins(t *testing.T) {
	h := newUsersHarness(t)
	ctx := context.Background()
	adminID := h.create(t, "root", enums.UserRoleAdmin, 0)
	otherAdmin := h.create(t, "ops", enums.UserRoleAdmin, time.Second)
	userID := h.create(t, "bob", enums.UserRoleUser, 2*time.Second)

	_, err := h.svc.SetBlocked(ctx, adminID, otherAdmin, true)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.SetBlocked(ctx, userID, adminID, true)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.SetBlocked(ctx, uuid.Nil, userID, true)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	assert.Empty(t, h.listings.calls)
}

func TestSetBlockedSurfacesCascadeFailure(t *testing.T) {
	h := newUsersHarness(t)
	h.listings.err = pkgerrors.New(pkgerrors.CodeDependency, "cascade listing block")
	adminID := h.create(t, "root", enums.UserRoleAdmin, 0)
	userID := h.create(t, "bob", enums.UserRoleUser, time.Second)

	_, err := h.svc.SetBlocked(context.Background(), adminID, userID, true)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Empty(t, h.sink.notices)
	assert.Empty(t, h.sessions.revoked)

	identity, err := h.svc.ResolveIdentity(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, identity.IsBlocked, "account flag rolls back with the failed cascade")
}

func TestDeleteUser(t *testing.T) {
	h := newUsersHarness(t)
	ctx := context.Background()
	adminID := h.create(t, "root", enums.UserRoleAdmin, 0)
	userID := h.create(t, "bob", enums.UserRoleUser, time.Second)

	err := h.svc.Delete(ctx, adminID, adminID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, h.svc.Delete(ctx, adminID, userID))
	exists, err := h.svc.Exists(ctx, userID)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, []uuid.UUID{userID}, h.sessions.revoked)

	err = h.svc.Delete(ctx, adminID, userID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListSearchAndStats(t *testing.T) {
	h := newUsersHarness(t)
	ctx := context.Background()
	adminID := h.create(t, "root", enums.UserRoleAdmin, 0)
	h.create(t, "bob", enums.UserRoleUser, time.Second)
	carolID := h.create(t, "carol", enums.UserRoleUser, 2*time.Second)
	h.create(t, "bo_x", enums.UserRoleUser, 3*time.Second)

	all, err := h.svc.List(ctx, ListInput{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Pagination.Total)
	require.Len(t, all.Items, 2)
	assert.Equal(t, "bo_x", all.Items[0].Name)

	filtered, err := h.svc.List(ctx, ListInput{Search: "BO_"})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, "bo_x", filtered.Items[0].Name)

	_, err = h.svc.SetBlocked(ctx, adminID, carolID, true)
	require.NoError(t, err)
	stats, err := h.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(1), stats.Blocked)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	var typed *pkgerrors.Error
	assert.True(t, errors.As(err, &typed))
}
