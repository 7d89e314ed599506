package admin

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/pkg/enums"
)

func setupAdminTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range []string{
		`CREATE TABLE users (id TEXT PRIMARY KEY, is_blocked INTEGER NOT NULL DEFAULT 0);`,
		`CREATE TABLE cities (id TEXT PRIMARY KEY, name TEXT NOT NULL);`,
		`CREATE TABLE listings (id TEXT PRIMARY KEY, city_id TEXT NOT NULL, species TEXT NOT NULL, status TEXT NOT NULL, is_blocked INTEGER NOT NULL DEFAULT 0);`,
		`CREATE TABLE pair_requests (id TEXT PRIMARY KEY, status TEXT NOT NULL);`,
	} {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func TestStatsAggregates(t *testing.T) {
	conn := setupAdminTestDB(t)
	exec := func(query string, args ...any) {
		require.NoError(t, conn.Exec(query, args...).Error)
	}

	exec(`INSERT INTO users (id, is_blocked) VALUES (?, 0), (?, 1), (?, 0)`, uuid.NewString(), uuid.NewString(), uuid.NewString())
	baku, ganja := uuid.NewString(), uuid.NewString()
	exec(`INSERT INTO cities (id, name) VALUES (?, 'Baku'), (?, 'Ganja')`, baku, ganja)

	listings := []struct {
		city, species, status string
		blocked               int
	}{
		{baku, "dog", "active", 0},
		{baku, "dog", "paired", 0},
		{baku, "cat", "active", 1},
		{ganja, "cat", "expired", 0},
		{ganja, "bird", "deleted", 0},
	}
	for _, l := range listings {
		exec(`INSERT INTO listings (id, city_id, species, status, is_blocked) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), l.city, l.species, l.status, l.blocked)
	}
	exec(`INSERT INTO pair_requests (id, status) VALUES (?, 'pending'), (?, 'accepted'), (?, 'pending')`,
		uuid.NewString(), uuid.NewString(), uuid.NewString())

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, UserStats{Total: 3, Blocked: 1}, stats.Users)
	assert.Equal(t, ListingStats{Total: 4, Active: 2, Paired: 1, Expired: 1, Deleted: 1, Blocked: 1}, stats.Listings)
	assert.Equal(t, int64(2), stats.PendingPairRequests)
	assert.Equal(t, int64(2), stats.BySpecies[enums.SpeciesDog])
	assert.Equal(t, int64(2), stats.BySpecies[enums.SpeciesCat])
	require.Len(t, stats.TopCities, 2)
	assert.Equal(t, "Baku", stats.TopCities[0].Name)
	assert.Equal(t, int64(3), stats.TopCities[0].Count)
}
