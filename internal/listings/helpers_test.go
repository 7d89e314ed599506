package listings

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/internal/notifications"
	"github.com/angelmondragon/petpair-backend/pkg/db"
	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/petpair-backend/pkg/db/types"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func setupListingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	listings := `
CREATE TABLE listings (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  species TEXT NOT NULL,
  sex TEXT NOT NULL,
  breed TEXT NOT NULL,
  age INTEGER,
  description TEXT NOT NULL DEFAULT '',
  images TEXT NOT NULL DEFAULT '[]',
  city_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  expires_at DATETIME NOT NULL,
  views INTEGER NOT NULL DEFAULT 0,
  is_blocked INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	pairRequests := `
CREATE TABLE pair_requests (
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL,
  requester_id TEXT NOT NULL,
  requester_listing_id TEXT NOT NULL,
  message TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  responded_at DATETIME
);`
	pendingIndex := `
CREATE UNIQUE INDEX ux_pair_requests_pending
  ON pair_requests (listing_id, requester_id, requester_listing_id)
  WHERE status = 'pending';`

	for _, stmt := range []string{listings, pairRequests, pendingIndex} {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type listingOption func(*models.Listing)

func withStatus(status enums.ListingStatus) listingOption {
	return func(l *models.Listing) { l.Status = status }
}

func withExpiresAt(at time.Time) listingOption {
	return func(l *models.Listing) { l.ExpiresAt = at }
}

func withBlocked() listingOption {
	return func(l *models.Listing) { l.IsBlocked = true }
}

func withCity(cityID uuid.UUID) listingOption {
	return func(l *models.Listing) { l.CityID = cityID }
}

func withBreed(breed, description string) listingOption {
	return func(l *models.Listing) {
		l.Breed = breed
		l.Description = description
	}
}

func withCreatedAt(at time.Time) listingOption {
	return func(l *models.Listing) {
		l.CreatedAt = at
		l.UpdatedAt = at
	}
}

func seedListing(t *testing.T, conn *gorm.DB, ownerID uuid.UUID, opts ...listingOption) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Species:     enums.SpeciesDog,
		Sex:         enums.PetSexFemale,
		Breed:       "Beagle",
		Description: "friendly and calm",
		Images:      dbtypes.StringArray{"https://cdn.example.com/a.jpg"},
		CityID:      uuid.New(),
		Status:      enums.ListingStatusActive,
		ExpiresAt:   testNow.Add(10 * 24 * time.Hour),
		Version:     1,
		CreatedAt:   testNow.Add(-time.Hour),
		UpdatedAt:   testNow.Add(-time.Hour),
	}
	for _, opt := range opts {
		opt(listing)
	}
	require.NoError(t, NewRepository(conn).Create(context.Background(), listing))
	return listing
}

type fakeIdentities struct {
	users map[uuid.UUID]Identity
}

func (f *fakeIdentities) add(identity Identity) Identity {
	if f.users == nil {
		f.users = map[uuid.UUID]Identity{}
	}
	f.users[identity.ID] = identity
	return identity
}

func (f *fakeIdentities) ResolveIdentity(_ context.Context, id uuid.UUID) (Identity, error) {
	identity, ok := f.users[id]
	if !ok {
		return Identity{}, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return identity, nil
}

type fakeCities struct {
	cities map[uuid.UUID]City
}

func (f *fakeCities) add(name string) City {
	if f.cities == nil {
		f.cities = map[uuid.UUID]City{}
	}
	city := City{ID: uuid.New(), Name: name}
	f.cities[city.ID] = city
	return city
}

func (f *fakeCities) ResolveCity(_ context.Context, id uuid.UUID) (City, error) {
	city, ok := f.cities[id]
	if !ok {
		return City{}, pkgerrors.New(pkgerrors.CodeNotFound, "city not found")
	}
	return city, nil
}

type recordingSink struct {
	mu      sync.Mutex
	notices []notifications.Notice
	err     error
}

func (r *recordingSink) Emit(_ context.Context, notice notifications.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.notices = append(r.notices, notice)
	return nil
}

func (r *recordingSink) kinds() []enums.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]enums.NotificationKind, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Kind)
	}
	return out
}

type serviceHarness struct {
	conn       *gorm.DB
	repo       Repository
	svc        Service
	identities *fakeIdentities
	cities     *fakeCities
	sink       *recordingSink
	clock      *testClock
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	conn := setupListingsTestDB(t)
	h := &serviceHarness{
		conn:       conn,
		repo:       NewRepository(conn),
		identities: &fakeIdentities{},
		cities:     &fakeCities{},
		sink:       &recordingSink{},
		clock:      &testClock{now: testNow},
	}
	svc, err := NewService(ServiceParams{
		Repo:       h.repo,
		Tx:         db.FromConn(conn),
		Identities: h.identities,
		Cities:     h.cities,
		Notifier:   h.sink,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:        h.clock.Now,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *serviceHarness) user(name string) Identity {
	return h.identities.add(Identity{ID: uuid.New(), DisplayName: name})
}

func (h *serviceHarness) admin(name string) Identity {
	return h.identities.add(Identity{ID: uuid.New(), DisplayName: name, IsAdmin: true})
}

func (h *serviceHarness) createListing(t *testing.T, owner Identity, city City) *ListingDTO {
	t.Helper()
	dto, err := h.svc.Create(context.Background(), owner.ID, CreateInput{
		Species:     "dog",
		Sex:         "female",
		Breed:       "Beagle",
		Description: "loves walks",
		Images:      []string{"https://cdn.example.com/a.jpg"},
		CityID:      city.ID,
	})
	require.NoError(t, err)
	return dto
}

func (h *serviceHarness) reload(t *testing.T, id uuid.UUID) *models.Listing {
	t.Helper()
	listing, err := h.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return listing
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), "unexpected error: %v", err)
}
