package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/internal/notifications"
	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/petpair-backend/pkg/db/types"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
	"github.com/angelmondragon/petpair-backend/pkg/pagination"
)

const (
	DefaultTTL           = 30 * 24 * time.Hour
	DefaultExtendDays    = 30
	MaxExtendDays        = 365
	MaxDescriptionLength = 1000
	MaxMessageLength     = 500
	MaxImages            = 10
)

// Identity is the view of a user the listing engine needs.
type Identity struct {
	ID          uuid.UUID
	IsBlocked   bool
	IsAdmin     bool
	DisplayName string
}

// IsAnonymous reports whether no user is attached.
func (i Identity) IsAnonymous() bool {
	return i.ID == uuid.Nil
}

// IdentityResolver resolves user ids to identities.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, id uuid.UUID) (Identity, error)
}

// City is the display view of a city.
type City struct {
	ID   uuid.UUID
	Name string
}

// CityResolver resolves city ids for validation and display.
type CityResolver interface {
	ResolveCity(ctx context.Context, id uuid.UUID) (City, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the listing lifecycle, query surfaces and pair-request negotiation.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*ListingDTO, error)
	Get(ctx context.Context, actorID, id uuid.UUID) (*ListingDTO, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input UpdateInput) (*ListingDTO, error)
	Delete(ctx context.Context, actorID, id uuid.UUID, reason string) error
	Extend(ctx context.Context, actorID, id uuid.UUID, days *int) (*ListingDTO, error)
	ToggleBlock(ctx context.Context, actorID, id uuid.UUID) (*ListingDTO, error)
	SetAllListingsBlocked(ctx context.Context, ownerID uuid.UUID, blocked bool) (int64, error)
	SetAllListingsBlockedTx(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, blocked bool) (int64, error)
	ExpireStale(ctx context.Context, limit int) (int64, error)

	ListPublic(ctx context.Context, actorID uuid.UUID, query ListQuery) (*ListResult, error)
	ListByCity(ctx context.Context, cityID uuid.UUID, query ListQuery) (*ListResult, error)
	Search(ctx context.Context, query SearchQuery) (*ListResult, error)
	ListByOwner(ctx context.Context, actorID, ownerID uuid.UUID, query ListQuery) (*ListResult, error)
	Hydrate(ctx context.Context, actorID uuid.UUID, ids []uuid.UUID) ([]ListingDTO, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	SendPairRequest(ctx context.Context, actorID, targetID uuid.UUID, input SendPairRequestInput) (*PairRequestDTO, error)
	RespondToPairRequest(ctx context.Context, actorID, listingID, requestID uuid.UUID, decision string) (*PairRequestDTO, error)
	ListPairRequests(ctx context.Context, actorID, listingID uuid.UUID) ([]PairRequestDTO, error)
	ListSentPairRequests(ctx context.Context, actorID uuid.UUID, params pagination.Params) (*PairRequestListResult, error)
}

// CreateInput holds the raw payload to create a listing.
type CreateInput struct {
	Species     string
	Sex         string
	Breed       string
	Age         *int
	Description string
	Images      []string
	CityID      uuid.UUID
}

// UpdateInput holds optional descriptive fields; nil means unchanged.
type UpdateInput struct {
	Species     *string
	Sex         *string
	Breed       *string
	Age         *int
	Description *string
	Images      *[]string
	CityID      *uuid.UUID
}

// ServiceParams wires the listing service.
type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Identities IdentityResolver
	Cities     CityResolver
	Notifier   notifications.Sink
	Logger     *logger.Logger
	TTL        time.Duration
	Now        func() time.Time
}

type service struct {
	repo       Repository
	tx         txRunner
	identities IdentityResolver
	cities     CityResolver
	notifier   notifications.Sink
	logg       *logger.Logger
	ttl        time.Duration
	now        func() time.Time
}

// NewService builds the listing service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Identities == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	if params.Cities == nil {
		return nil, fmt.Errorf("city resolver required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		identities: params.Identities,
		cities:     params.Cities,
		notifier:   params.Notifier,
		logg:       params.Logger,
		ttl:        ttl,
		now:        now,
	}, nil
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*ListingDTO, error) {
	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.IsBlocked {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account is blocked and cannot create listings").
			WithDetails(map[string]any{"reason": "account_blocked"})
	}

	species, err := enums.ParseSpecies(strings.TrimSpace(input.Species))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "species is invalid")
	}
	sex, err := enums.ParsePetSex(strings.TrimSpace(input.Sex))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "sex is invalid")
	}
	breed := strings.TrimSpace(input.Breed)
	if breed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "breed is required")
	}
	if input.CityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "city is required")
	}
	images, err := normalizeImages(input.Images)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	if err := validateAge(input.Age); err != nil {
		return nil, err
	}
	city, err := s.resolveCity(ctx, input.CityID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	listing := &models.Listing{
		ID:          uuid.New(),
		OwnerID:     actor.ID,
		Species:     species,
		Sex:         sex,
		Breed:       breed,
		Age:         input.Age,
		Description: description,
		Images:      images,
		CityID:      city.ID,
		Status:      enums.ListingStatusActive,
		ExpiresAt:   now.Add(s.ttl),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}

	s.logTransition(ctx, listing.ID, actor.ID, "listing_created")
	dto := s.toDTO(ctx, listing, actor, map[uuid.UUID]string{actor.ID: actor.DisplayName}, map[uuid.UUID]string{city.ID: city.Name})
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateInput) (*ListingDTO, error) {
	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	listing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !listing.IsOwnedBy(actor.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin can update this listing")
	}
	if err := s.applyExpiry(ctx, listing); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Species != nil {
		species, err := enums.ParseSpecies(strings.TrimSpace(*input.Species))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "species is invalid")
		}
		updates["species"] = species
		listing.Species = species
	}
	if input.Sex != nil {
		sex, err := enums.ParsePetSex(strings.TrimSpace(*input.Sex))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "sex is invalid")
		}
		updates["sex"] = sex
		listing.Sex = sex
	}
	if input.Breed != nil {
		breed := strings.TrimSpace(*input.Breed)
		if breed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "breed cannot be empty")
		}
		updates["breed"] = breed
		listing.Breed = breed
	}
	if input.Age != nil {
		if err := validateAge(input.Age); err != nil {
			return nil, err
		}
		updates["age"] = *input.Age
		age := *input.Age
		listing.Age = &age
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if err := validateDescription(description); err != nil {
			return nil, err
		}
		updates["description"] = description
		listing.Description = description
	}
	if input.Images != nil {
		images, err := normalizeImages(*input.Images)
		if err != nil {
			return nil, err
		}
		updates["images"] = images
		listing.Images = images
	}
	if input.CityID != nil {
		city, err := s.resolveCity(ctx, *input.CityID)
		if err != nil {
			return nil, err
		}
		updates["city_id"] = city.ID
		listing.CityID = city.ID
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	now := s.now()
	updates["updated_at"] = now
	swapped, err := s.repo.CompareAndSwap(ctx, listing.ID, listing.Version, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update listing")
	}
	if !swapped {
		return nil, errConcurrentUpdate()
	}
	listing.Version++
	listing.UpdatedAt = now

	s.logTransition(ctx, listing.ID, actor.ID, "listing_updated")
	dto := s.toDTO(ctx, listing, actor, nil, nil)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, actorID, id uuid.UUID, reason string) error {
	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return err
	}
	listing, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	isOwner := listing.IsOwnedBy(actor.ID)
	if !actor.IsAdmin && !isOwner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner or an admin can delete this listing")
	}

	var deleted bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		deleted, txErr = s.repo.WithTx(tx).Delete(ctx, listing.ID)
		return txErr
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete listing")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}

	s.logTransition(ctx, listing.ID, actor.ID, "listing_deleted")

	if actor.IsAdmin && !isOwner {
		message := strings.TrimSpace(reason)
		if message == "" {
			message = "Your listing was deleted by an administrator."
		}
		listingID := listing.ID
		adminID := actor.ID
		s.notify(ctx, notifications.Notice{
			UserID:        listing.OwnerID,
			Kind:          enums.NotificationListingDeleted,
			Title:         "Your listing was deleted",
			Message:       message,
			ListingID:     &listingID,
			RelatedUserID: &adminID,
		})
	}
	return nil
}

func (s *service) Extend(ctx context.Context, actorID, id uuid.UUID, days *int) (*ListingDTO, error) {
	count := DefaultExtendDays
	if days != nil {
		count = *days
	}
	if count < 1 || count > MaxExtendDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("days must be between 1 and %d", MaxExtendDays))
	}

	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	listing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !listing.IsOwnedBy(actor.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can extend this listing")
	}
	if err := s.applyExpiry(ctx, listing); err != nil {
		return nil, err
	}
	if listing.Status == enums.ListingStatusPaired || listing.Status == enums.ListingStatusDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("a %s listing cannot be extended", listing.Status)).
			WithDetails(map[string]any{"status": listing.Status})
	}

	now := s.now()
	base := listing.ExpiresAt
	if now.After(base) {
		base = now
	}
	expiresAt := base.Add(time.Duration(count) * 24 * time.Hour)

	swapped, err := s.repo.CompareAndSwap(ctx, listing.ID, listing.Version, map[string]any{
		"expires_at": expiresAt,
		"status":     enums.ListingStatusActive,
		"updated_at": now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend listing")
	}
	if !swapped {
		return nil, errConcurrentUpdate()
	}
	listing.ExpiresAt = expiresAt
	listing.Status = enums.ListingStatusActive
	listing.Version++
	listing.UpdatedAt = now

	s.logTransition(ctx, listing.ID, actor.ID, "listing_extended")
	dto := s.toDTO(ctx, listing, actor, nil, nil)
	return &dto, nil
}

func (s *service) ToggleBlock(ctx context.Context, actorID, id uuid.UUID) (*ListingDTO, error) {
	actor, err := s.requireActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	listing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyExpiry(ctx, listing); err != nil {
		return nil, err
	}

	now := s.now()
	blocked := !listing.IsBlocked
	swapped, err := s.repo.CompareAndSwap(ctx, listing.ID, listing.Version, map[string]any{
		"is_blocked": blocked,
		"updated_at": now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle listing block")
	}
	if !swapped {
		return nil, errConcurrentUpdate()
	}
	listing.IsBlocked = blocked
	listing.Version++
	listing.UpdatedAt = now

	event := "listing_unblocked"
	if blocked {
		event = "listing_blocked"
	}
	s.logTransition(ctx, listing.ID, actor.ID, event)

	if blocked {
		listingID := listing.ID
		s.notify(ctx, notifications.Notice{
			UserID:    listing.OwnerID,
			Kind:      enums.NotificationListingBlocked,
			Title:     "Your listing was blocked",
			Message:   "Your listing was blocked by an administrator. Contact us for more details.",
			ListingID: &listingID,
		})
	}

	dto := s.toDTO(ctx, listing, actor, nil, nil)
	return &dto, nil
}

func (s *service) SetAllListingsBlocked(ctx context.Context, ownerID uuid.UUID, blocked bool) (int64, error) {
	return s.SetAllListingsBlockedTx(ctx, nil, ownerID, blocked)
}

// SetAllListingsBlockedTx applies the owner cascade inside the caller's
// transaction. A nil tx runs it on its own.
func (s *service) SetAllListingsBlockedTx(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, blocked bool) (int64, error) {
	if ownerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	count, err := s.repo.WithTx(tx).SetBlockedByOwner(ctx, ownerID, blocked, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cascade listing block")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":  ownerID.String(),
		"blocked":  blocked,
		"affected": count,
		"event":    "owner_listings_block_cascade",
	}), "listing block cascade applied")
	return count, nil
}

func (s *service) ExpireStale(ctx context.Context, limit int) (int64, error) {
	count, err := s.repo.ExpireStale(ctx, s.now(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire stale listings")
	}
	return count, nil
}

func (s *service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup listing")
	}
	return ok, nil
}

// applyExpiry moves a stale active listing to expired and persists it with a
// conditional update. A second call on the same listing is a no-op.
func (s *service) applyExpiry(ctx context.Context, listing *models.Listing) error {
	now := s.now()
	if !listing.IsStale(now) {
		return nil
	}
	expired, err := s.repo.ExpireIfStale(ctx, listing.ID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire listing")
	}
	if expired {
		listing.Status = enums.ListingStatusExpired
		listing.Version++
		listing.UpdatedAt = now
		s.logTransition(ctx, listing.ID, uuid.Nil, "listing_expired")
		return nil
	}

	// Another writer changed the row first; adopt its lifecycle fields.
	fresh, err := s.repo.FindByID(ctx, listing.ID)
	if err != nil {
		return mapLookupError(err, "listing")
	}
	listing.Status = fresh.Status
	listing.ExpiresAt = fresh.ExpiresAt
	listing.IsBlocked = fresh.IsBlocked
	listing.Version = fresh.Version
	listing.UpdatedAt = fresh.UpdatedAt
	if listing.IsStale(now) {
		return s.applyExpiry(ctx, listing)
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "listing")
	}
	return listing, nil
}

func (s *service) viewer(ctx context.Context, actorID uuid.UUID) (Identity, error) {
	if actorID == uuid.Nil {
		return Identity{}, nil
	}
	identity, err := s.identities.ResolveIdentity(ctx, actorID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown user")
		}
		return Identity{}, wrapDependency(err, "resolve identity")
	}
	return identity, nil
}

func (s *service) requireActor(ctx context.Context, actorID uuid.UUID) (Identity, error) {
	if actorID == uuid.Nil {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return s.viewer(ctx, actorID)
}

func (s *service) resolveCity(ctx context.Context, id uuid.UUID) (City, error) {
	city, err := s.cities.ResolveCity(ctx, id)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return City{}, pkgerrors.New(pkgerrors.CodeNotFound, "city not found")
		}
		return City{}, wrapDependency(err, "resolve city")
	}
	return city, nil
}

func (s *service) notify(ctx context.Context, notice notifications.Notice) {
	if err := s.notifier.Emit(ctx, notice); err != nil {
		fields := map[string]any{
			"user_id": notice.UserID.String(),
			"kind":    notice.Kind,
			"title":   notice.Title,
		}
		if notice.ListingID != nil {
			fields["listing_id"] = notice.ListingID.String()
		}
		s.logg.Error(s.logg.WithFields(ctx, fields), "notification emit failed", err)
	}
}

func (s *service) logTransition(ctx context.Context, listingID, userID uuid.UUID, event string) {
	fields := map[string]any{
		"listing_id": listingID.String(),
		"event":      event,
	}
	if userID != uuid.Nil {
		fields["user_id"] = userID.String()
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "listing transition")
}

// toDTO denormalizes owner and city names. The name maps act as a per-call cache.
func (s *service) toDTO(ctx context.Context, listing *models.Listing, viewer Identity, owners, cities map[uuid.UUID]string) ListingDTO {
	if owners == nil {
		owners = map[uuid.UUID]string{}
	}
	if cities == nil {
		cities = map[uuid.UUID]string{}
	}
	ownerName, ok := owners[listing.OwnerID]
	if !ok {
		if identity, err := s.identities.ResolveIdentity(ctx, listing.OwnerID); err == nil {
			ownerName = identity.DisplayName
		}
		owners[listing.OwnerID] = ownerName
	}
	cityName, ok := cities[listing.CityID]
	if !ok {
		if city, err := s.cities.ResolveCity(ctx, listing.CityID); err == nil {
			cityName = city.Name
		}
		cities[listing.CityID] = cityName
	}

	images := []string(listing.Images)
	if images == nil {
		images = []string{}
	}
	dto := ListingDTO{
		ID:          listing.ID,
		Owner:       OwnerDTO{ID: listing.OwnerID, Name: ownerName},
		Species:     listing.Species,
		Sex:         listing.Sex,
		Breed:       listing.Breed,
		Age:         listing.Age,
		Description: listing.Description,
		Images:      images,
		City:        CityDTO{ID: listing.CityID, Name: cityName},
		Status:      listing.Status,
		ExpiresAt:   listing.ExpiresAt,
		Views:       listing.Views,
		IsBlocked:   listing.IsBlocked,
		CreatedAt:   listing.CreatedAt,
		UpdatedAt:   listing.UpdatedAt,
	}
	if viewer.IsAdmin || listing.IsOwnedBy(viewer.ID) {
		dto.PairRequests = pairRequestsToDTO(listing.PairRequests)
	}
	return dto
}

func normalizeImages(raw []string) (dbtypes.StringArray, error) {
	images := make(dbtypes.StringArray, 0, len(raw))
	for _, image := range raw {
		trimmed := strings.TrimSpace(image)
		if trimmed == "" {
			continue
		}
		images = append(images, trimmed)
	}
	if len(images) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one image is required")
	}
	if len(images) > MaxImages {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d images are allowed", MaxImages))
	}
	return images, nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}
	return nil
}

func validateAge(age *int) error {
	if age != nil && *age < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "age cannot be negative")
	}
	return nil
}

func errConcurrentUpdate() error {
	return pkgerrors.New(pkgerrors.CodeConflict, "listing was modified concurrently, retry the request")
}

func mapLookupError(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}

func wrapDependency(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
