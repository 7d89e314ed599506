package migrate

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/pkg/logger"
)

func shippedFile(t *testing.T, suffix string) string {
	t.Helper()
	source, err := Source("")
	require.NoError(t, err)
	matches, err := fs.Glob(source, "*_"+suffix+".sql")
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)
	body, err := fs.ReadFile(source, matches[0])
	require.NoError(t, err)
	return string(body)
}

func TestShippedListingsMigration(t *testing.T) {
	body := shippedFile(t, "create_listings")
	for _, stmt := range []string{
		"CREATE TABLE IF NOT EXISTS listings",
		"CREATE TABLE IF NOT EXISTS pair_requests",
		"version bigint NOT NULL DEFAULT 1",
		"FOREIGN KEY (listing_id) REFERENCES listings(id) ON DELETE CASCADE",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_pair_requests_pending",
		"WHERE status = 'pending'",
		"CHECK (char_length(description) <= 1000)",
		"DROP TABLE IF EXISTS pair_requests",
	} {
		assert.Contains(t, body, stmt)
	}
	assert.NotContains(t, body, "FOREIGN KEY (requester_listing_id)", "offered listings must not cascade into other listings' requests")
}

func TestShippedEnumsCoverNotificationKinds(t *testing.T) {
	body := shippedFile(t, "create_enums")
	for _, kind := range []string{"pair_request", "pair_accepted", "pair_rejected", "admin_message", "listing_blocked", "listing_deleted", "account_blocked"} {
		assert.Contains(t, body, "'"+kind+"'")
	}
}

func TestValidate(t *testing.T) {
	source, err := Source("")
	require.NoError(t, err)
	require.NoError(t, Validate(source))

	both := "-- +goose Up\n-- +goose Down\n"
	cases := map[string]fstest.MapFS{
		"bad name": {
			"bad-name.sql": {Data: []byte(both)},
		},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte(both)},
			"20260101000000_b.sql": {Data: []byte(both)},
		},
		"missing down": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\n")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Validate(fsys))
		})
	}

	assert.NoError(t, Validate(fstest.MapFS{"README.md": {Data: []byte("notes")}}))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, time.October, 3, 14, 5, 9, 0, time.UTC)

	path, err := createAt(dir, " Add Listing Tags!", at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20261003140509_add_listing_tags.sql"), path)
	require.NoError(t, Validate(os.DirFS(dir)))

	_, err = createAt(dir, "add listing tags", at)
	assert.Error(t, err, "same version must not overwrite")

	_, err = createAt(dir, "!!!", at)
	assert.Error(t, err)
}

func TestSourceRejectsMissingDir(t *testing.T) {
	_, err := Source(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestRunnerMovesBetweenVersions(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	source := fstest.MapFS{
		"20260101000000_cities.sql": {Data: []byte(strings.Join([]string{
			"-- +goose Up", "CREATE TABLE cities (id INTEGER PRIMARY KEY);",
			"-- +goose Down", "DROP TABLE cities;", "",
		}, "\n"))},
		"20260102000000_shelters.sql": {Data: []byte(strings.Join([]string{
			"-- +goose Up", "CREATE TABLE shelters (id INTEGER PRIMARY KEY);",
			"-- +goose Down", "DROP TABLE shelters;", "",
		}, "\n"))},
	}
	logg := logger.New(logger.Options{ServiceName: "migrate-test", Output: io.Discard})
	runner, err := newRunner(goose.DialectSQLite3, sqlDB, source, logg)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, runner.Up(ctx))
	version, err := runner.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20260102000000), version)
	assert.True(t, conn.Migrator().HasTable("shelters"))

	require.NoError(t, runner.To(ctx, "20260101000000"))
	version, err = runner.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20260101000000), version)
	assert.False(t, conn.Migrator().HasTable("shelters"))

	pending, err := runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	require.NoError(t, runner.Down(ctx))
	assert.False(t, conn.Migrator().HasTable("cities"))

	assert.Error(t, runner.To(ctx, "yesterday"))
}

func TestNewRunnerRequiresDependencies(t *testing.T) {
	_, err := NewRunner(nil, fstest.MapFS{}, nil)
	assert.Error(t, err)
}
