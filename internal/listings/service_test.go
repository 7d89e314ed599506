package listings

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
)

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestCreateRejectsEmptyImages(t *testing.T) {
	h := newServiceHarness(t)
	owner := h.user("Ana")
	city := h.cities.add("Lisbon")

	_, err := h.svc.Create(context.Background(), owner.ID, CreateInput{
		Species: "dog",
		Sex:     "male",
		Breed:   "Husky",
		Images:  []string{" ", ""},
		CityID:  city.ID,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	var count int64
	require.NoError(t, h.conn.Model(&models.Listing{}).Count(&count).Error)
	assert.Zero(t, count, "no record persisted")
}

func TestCreateValidation(t *testing.T) {
	h := newServiceHarness(t)
	owner := h.user("Ana")
	city := h.cities.add("Lisbon")
	negative := -1

	valid := CreateInput{
		Species: "cat",
		Sex:     "female",
		Breed:   "Siamese",
		Images:  []string{"a.jpg"},
		CityID:  city.ID,
	}

	cases := []struct {
		name   string
		mutate func(in *CreateInput)
		code   pkgerrors.Code
	}{
		{"bad species", func(in *CreateInput) { in.Species = "dragon" }, pkgerrors.CodeValidation},
		{"bad sex", func(in *CreateInput) { in.Sex = "unknown" }, pkgerrors.CodeValidation},
		{"missing breed", func(in *CreateInput) { in.Breed = "  " }, pkgerrors.CodeValidation},
		{"missing city", func(in *CreateInput) { in.CityID = uuid.Nil }, pkgerrors.CodeValidation},
		{"negative age", func(in *CreateInput) { in.Age = &negative }, pkgerrors.CodeValidation},
		{"long description", func(in *CreateInput) { in.Description = strings.Repeat("x", MaxDescriptionLength+1) }, pkgerrors.CodeValidation},
		{"unknown city", func(in *CreateInput) { in.CityID = uuid.New() }, pkgerrors.CodeNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			_, err := h.svc.Create(context.Background(), owner.ID, input)
			requireCode(t, err, tc.code)
		})
	}

	_, err := h.svc.Create(context.Background(), uuid.Nil, valid)
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestCreateBlockedAccount(t *testing.T) {
	h := newServiceHarness(t)
	blocked := h.identities.add(Identity{ID: uuid.New(), DisplayName: "Bo", IsBlocked: true})
	city := h.cities.add("Porto")

	_, err := h.svc.Create(context.Background(), blocked.ID, CreateInput{
		Species: "dog", Sex: "male", Breed: "Pug", Images: []string{"a.jpg"}, CityID: city.ID,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateDefaults(t *testing.T) {
	h := newServiceHarness(t)
	owner := h.user("Ana")
	city := h.cities.add("Lisbon")

	dto := h.createListing(t, owner, city)
	assert.Equal(t, enums.ListingStatusActive, dto.Status)
	assert.True(t, dto.ExpiresAt.Equal(testNow.Add(DefaultTTL)))
	assert.Equal(t, "Ana", dto.Owner.Name)
	assert.Equal(t, "Lisbon", dto.City.Name)
	assert.Empty(t, dto.PairRequests)
}

// Scenarios B and C.
func TestPairRequestLifecycle(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	bob := h.user("Bob")
	city := h.cities.add("Lisbon")

	l1 := h.createListing(t, alice, city)
	l2 := h.createListing(t, bob, city)

	request, err := h.svc.SendPairRequest(ctx, bob.ID, l1.ID, SendPairRequestInput{MyListingID: l2.ID, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, enums.PairRequestPending, request.Status)

	stored := h.reload(t, l1.ID)
	require.Len(t, stored.PairRequests, 1)
	assert.Equal(t, bob.ID, stored.PairRequests[0].RequesterID)
	assert.Equal(t, l2.ID, stored.PairRequests[0].RequesterListingID)

	require.Len(t, h.sink.notices, 1)
	notice := h.sink.notices[0]
	assert.Equal(t, enums.NotificationPairRequest, notice.Kind)
	assert.Equal(t, alice.ID, notice.UserID)
	require.NotNil(t, notice.RelatedUserID)
	assert.Equal(t, bob.ID, *notice.RelatedUserID)
	assert.Contains(t, notice.Message, "Bob")

	resolved, err := h.svc.RespondToPairRequest(ctx, alice.ID, l1.ID, request.ID, "accepted")
	require.NoError(t, err)
	assert.Equal(t, enums.PairRequestAccepted, resolved.Status)
	require.NotNil(t, resolved.RespondedAt)

	assert.Equal(t, enums.ListingStatusPaired, h.reload(t, l1.ID).Status)
	assert.Equal(t, enums.ListingStatusActive, h.reload(t, l2.ID).Status, "requester listing is untouched")
	assert.Equal(t, []enums.NotificationKind{enums.NotificationPairRequest, enums.NotificationPairAccepted}, h.sink.kinds())
	assert.Equal(t, bob.ID, h.sink.notices[1].UserID)

	_, err = h.svc.RespondToPairRequest(ctx, alice.ID, l1.ID, request.ID, "rejected")
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestSendPairRequestGuards(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	bob := h.user("Bob")
	carol := h.user("Carol")
	city := h.cities.add("Lisbon")

	target := h.createListing(t, alice, city)
	offered := h.createListing(t, bob, city)
	aliceOther := h.createListing(t, alice, city)

	_, err := h.svc.SendPairRequest(ctx, bob.ID, target.ID, SendPairRequestInput{})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.SendPairRequest(ctx, bob.ID, uuid.New(), SendPairRequestInput{MyListingID: offered.ID})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = h.svc.SendPairRequest(ctx, alice.ID, target.ID, SendPairRequestInput{MyListingID: aliceOther.ID})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.SendPairRequest(ctx, carol.ID, target.ID, SendPairRequestInput{MyListingID: offered.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = h.svc.SendPairRequest(ctx, bob.ID, target.ID, SendPairRequestInput{MyListingID: offered.ID, Message: strings.Repeat("m", MaxMessageLength+1)})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.SendPairRequest(ctx, bob.ID, target.ID, SendPairRequestInput{MyListingID: offered.ID, Message: "first"})
	require.NoError(t, err)

	_, err = h.svc.SendPairRequest(ctx, bob.ID, target.ID, SendPairRequestInput{MyListingID: offered.ID, Message: "again"})
	requireCode(t, err, pkgerrors.CodeConflict)

	rows, err := h.repo.ListPairRequests(ctx, target.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "only one pending request per requester pair")
}

func TestSendPairRequestAfterRejectionAllowed(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	bob := h.user("Bob")
	city := h.cities.add("Lisbon")
	target := h.createListing(t, alice, city)
	offered := h.createListing(t, bob, city)

	first, err := h.svc.SendPairRequest(ctx, bob.ID, target.ID, SendPairRequestInput{MyListingID: offered.ID})
	require.NoError(t, err)
	_, err = h.svc.RespondToPairRequest(ctx, alice.ID, target.ID, first.ID, "rejected")
	require.NoError(t, err)
	assert.Equal(t, enums.ListingStatusActive, h.reload(t, target.ID).Status)

	_, err = h.svc.SendPairRequest(ctx, bob.ID, target.ID, SendPairRequestInput{MyListingID: offered.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.NotificationPairRejected, h.sink.kinds()[1])
}

func TestSendPairRequestToInactiveListing(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	bob := h.user("Bob")
	offered := seedListing(t, h.conn, bob.ID)
	paired := seedListing(t, h.conn, alice.ID, withStatus(enums.ListingStatusPaired))
	stale := seedListing(t, h.conn, alice.ID, withExpiresAt(testNow.Add(-time.Hour)))

	_, err := h.svc.SendPairRequest(ctx, bob.ID, paired.ID, SendPairRequestInput{MyListingID: offered.ID})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = h.svc.SendPairRequest(ctx, bob.ID, stale.ID, SendPairRequestInput{MyListingID: offered.ID})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, enums.ListingStatusExpired, h.reload(t, stale.ID).Status)
}

func TestRespondToPairRequestGuards(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	bob := h.user("Bob")
	city := h.cities.add("Lisbon")
	target := h.createListing(t, alice, city)
	offered := h.createListing(t, bob, city)

	request, err := h.svc.SendPairRequest(ctx, bob.ID, target.ID, SendPairRequestInput{MyListingID: offered.ID})
	require.NoError(t, err)

	_, err = h.svc.RespondToPairRequest(ctx, alice.ID, target.ID, request.ID, "maybe")
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.RespondToPairRequest(ctx, alice.ID, target.ID, uuid.New(), "accepted")
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = h.svc.RespondToPairRequest(ctx, bob.ID, target.ID, request.ID, "accepted")
	requireCode(t, err, pkgerrors.CodeForbidden)
}

// Scenario D.
func TestBlockCascadeHidesFromSearch(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	city := h.cities.add("Lisbon")
	l1 := h.createListing(t, alice, city)

	result, err := h.svc.Search(ctx, SearchQuery{Query: "beagle"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	affected, err := h.svc.SetAllListingsBlocked(ctx, alice.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.True(t, h.reload(t, l1.ID).IsBlocked)

	result, err = h.svc.Search(ctx, SearchQuery{Query: "beagle"})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Zero(t, result.Pagination.Total)

	result, err = h.svc.ListByCity(ctx, city.ID, ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, result.Items)

	stranger := h.user("Stranger")
	_, err = h.svc.Get(ctx, stranger.ID, l1.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	own, err := h.svc.Get(ctx, alice.ID, l1.ID)
	require.NoError(t, err)
	assert.True(t, own.IsBlocked)
}

// Scenario E.
func TestLazyExpirationOnRead(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	stale := seedListing(t, h.conn, alice.ID, withExpiresAt(testNow.Add(-24*time.Hour)))

	dto, err := h.svc.Get(ctx, uuid.Nil, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ListingStatusExpired, dto.Status)

	persisted := h.reload(t, stale.ID)
	assert.Equal(t, enums.ListingStatusExpired, persisted.Status)
	version := persisted.Version

	dto, err = h.svc.Get(ctx, uuid.Nil, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ListingStatusExpired, dto.Status)
	assert.Equal(t, version, h.reload(t, stale.ID).Version, "second expiry check is a no-op")
}

func TestListByOwnerAppliesExpiry(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	seedListing(t, h.conn, alice.ID, withExpiresAt(testNow.Add(-time.Hour)))
	seedListing(t, h.conn, alice.ID)

	result, err := h.svc.ListByOwner(ctx, alice.ID, uuid.Nil, ListQuery{})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	statuses := []enums.ListingStatus{result.Items[0].Status, result.Items[1].Status}
	assert.ElementsMatch(t, []enums.ListingStatus{enums.ListingStatusActive, enums.ListingStatusExpired}, statuses)

	other := h.user("Other")
	_, err = h.svc.ListByOwner(ctx, other.ID, alice.ID, ListQuery{})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = h.svc.ListByOwner(ctx, uuid.Nil, alice.ID, ListQuery{})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestListStatusFilterUsesEffectiveStatus(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	stale := seedListing(t, h.conn, alice.ID, withExpiresAt(testNow.Add(-time.Hour)))
	fresh := seedListing(t, h.conn, alice.ID)

	active, err := h.svc.ListByOwner(ctx, alice.ID, uuid.Nil, ListQuery{Status: "active"})
	require.NoError(t, err)
	require.Len(t, active.Items, 1)
	assert.Equal(t, fresh.ID, active.Items[0].ID)
	assert.Equal(t, enums.ListingStatusActive, active.Items[0].Status)
	assert.Equal(t, int64(1), active.Pagination.Total)

	expired, err := h.svc.ListByOwner(ctx, alice.ID, uuid.Nil, ListQuery{Status: "expired"})
	require.NoError(t, err)
	require.Len(t, expired.Items, 1)
	assert.Equal(t, stale.ID, expired.Items[0].ID)
	assert.Equal(t, enums.ListingStatusExpired, expired.Items[0].Status)
}

func TestDeletingOfferedListingKeepsTargetHistory(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	bob := h.user("Bob")
	city := h.cities.add("Lisbon")

	l1 := h.createListing(t, alice, city)
	l2 := h.createListing(t, bob, city)
	request, err := h.svc.SendPairRequest(ctx, bob.ID, l1.ID, SendPairRequestInput{MyListingID: l2.ID})
	require.NoError(t, err)
	_, err = h.svc.RespondToPairRequest(ctx, alice.ID, l1.ID, request.ID, "accepted")
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(ctx, bob.ID, l2.ID, ""))

	stored := h.reload(t, l1.ID)
	assert.Equal(t, enums.ListingStatusPaired, stored.Status)
	require.Len(t, stored.PairRequests, 1)
	assert.Equal(t, enums.PairRequestAccepted, stored.PairRequests[0].Status)
	assert.Equal(t, l2.ID, stored.PairRequests[0].RequesterListingID)
}

func TestExtendIsMonotonic(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	city := h.cities.add("Lisbon")
	dto := h.createListing(t, alice, city)
	original := dto.ExpiresAt

	days := 5
	extended, err := h.svc.Extend(ctx, alice.ID, dto.ID, &days)
	require.NoError(t, err)
	assert.True(t, extended.ExpiresAt.Equal(original.Add(5*24*time.Hour)))
	assert.Equal(t, enums.ListingStatusActive, extended.Status)

	zero := 0
	_, err = h.svc.Extend(ctx, alice.ID, dto.ID, &zero)
	requireCode(t, err, pkgerrors.CodeValidation)

	tooMany := MaxExtendDays + 1
	_, err = h.svc.Extend(ctx, alice.ID, dto.ID, &tooMany)
	requireCode(t, err, pkgerrors.CodeValidation)

	bob := h.user("Bob")
	_, err = h.svc.Extend(ctx, bob.ID, dto.ID, nil)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestExtendRevivesExpiredListing(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	stale := seedListing(t, h.conn, alice.ID, withExpiresAt(testNow.Add(-48*time.Hour)))

	extended, err := h.svc.Extend(ctx, alice.ID, stale.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.ListingStatusActive, extended.Status)
	assert.True(t, extended.ExpiresAt.Equal(testNow.Add(DefaultExtendDays*24*time.Hour)), "extension starts from now when already expired")
}

func TestExtendPairedListingConflicts(t *testing.T) {
	h := newServiceHarness(t)
	alice := h.user("Alice")
	paired := seedListing(t, h.conn, alice.ID, withStatus(enums.ListingStatusPaired))

	_, err := h.svc.Extend(context.Background(), alice.ID, paired.ID, nil)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestToggleBlockNotifiesOwner(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	admin := h.admin("Root")
	listing := seedListing(t, h.conn, alice.ID)

	_, err := h.svc.ToggleBlock(ctx, alice.ID, listing.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	blocked, err := h.svc.ToggleBlock(ctx, admin.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, blocked.IsBlocked)
	assert.Equal(t, []enums.NotificationKind{enums.NotificationListingBlocked}, h.sink.kinds())

	unblocked, err := h.svc.ToggleBlock(ctx, admin.ID, listing.ID)
	require.NoError(t, err)
	assert.False(t, unblocked.IsBlocked)
	assert.Len(t, h.sink.notices, 1, "unblocking does not notify")
}

func TestDeleteByAdminNotifiesOwner(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	bob := h.user("Bob")
	admin := h.admin("Root")
	listing := seedListing(t, h.conn, alice.ID)

	requireCode(t, h.svc.Delete(ctx, bob.ID, listing.ID, ""), pkgerrors.CodeForbidden)

	require.NoError(t, h.svc.Delete(ctx, admin.ID, listing.ID, "spam"))
	require.Len(t, h.sink.notices, 1)
	assert.Equal(t, enums.NotificationListingDeleted, h.sink.notices[0].Kind)
	assert.Equal(t, "spam", h.sink.notices[0].Message)

	requireCode(t, h.svc.Delete(ctx, admin.ID, listing.ID, ""), pkgerrors.CodeNotFound)

	own := seedListing(t, h.conn, alice.ID)
	require.NoError(t, h.svc.Delete(ctx, alice.ID, own.ID, ""))
	assert.Len(t, h.sink.notices, 1, "owner deletes are silent")
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	h := newServiceHarness(t)
	h.sink.err = errors.New("sink down")
	ctx := context.Background()
	alice := h.user("Alice")
	bob := h.user("Bob")
	city := h.cities.add("Lisbon")
	target := h.createListing(t, alice, city)
	offered := h.createListing(t, bob, city)

	_, err := h.svc.SendPairRequest(ctx, bob.ID, target.ID, SendPairRequestInput{MyListingID: offered.ID})
	require.NoError(t, err)
	assert.Len(t, h.reload(t, target.ID).PairRequests, 1)
}

func TestGetCountsStrangerViewsOnly(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	listing := seedListing(t, h.conn, alice.ID)

	own, err := h.svc.Get(ctx, alice.ID, listing.ID)
	require.NoError(t, err)
	assert.Zero(t, own.Views)

	public, err := h.svc.Get(ctx, uuid.Nil, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), public.Views)
}

func TestUpdatePartialFields(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	city := h.cities.add("Lisbon")
	dto := h.createListing(t, alice, city)

	breed := "Border Collie"
	updated, err := h.svc.Update(ctx, alice.ID, dto.ID, UpdateInput{Breed: &breed})
	require.NoError(t, err)
	assert.Equal(t, breed, updated.Breed)
	assert.Equal(t, "loves walks", updated.Description)

	_, err = h.svc.Update(ctx, alice.ID, dto.ID, UpdateInput{})
	requireCode(t, err, pkgerrors.CodeValidation)

	empty := []string{}
	_, err = h.svc.Update(ctx, alice.ID, dto.ID, UpdateInput{Images: &empty})
	requireCode(t, err, pkgerrors.CodeValidation)

	bob := h.user("Bob")
	_, err = h.svc.Update(ctx, bob.ID, dto.ID, UpdateInput{Breed: &breed})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestHydrateKeepsOrderAndSkipsHidden(t *testing.T) {
	h := newServiceHarness(t)
	ctx := context.Background()
	alice := h.user("Alice")
	viewer := h.user("Viewer")
	first := seedListing(t, h.conn, alice.ID)
	hidden := seedListing(t, h.conn, alice.ID, withBlocked())
	second := seedListing(t, h.conn, alice.ID)

	items, err := h.svc.Hydrate(ctx, viewer.ID, []uuid.UUID{second.ID, hidden.ID, uuid.New(), first.ID})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
}

func TestExpireStaleSweep(t *testing.T) {
	h := newServiceHarness(t)
	alice := h.user("Alice")
	seedListing(t, h.conn, alice.ID, withExpiresAt(testNow.Add(-time.Minute)))
	seedListing(t, h.conn, alice.ID)

	count, err := h.svc.ExpireStale(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
