package favorites

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/internal/listings"
	"github.com/angelmondragon/petpair-backend/pkg/db"
	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/pagination"
)

// Service lets users bookmark listings.
type Service interface {
	Toggle(ctx context.Context, userID, listingID uuid.UUID) (*ToggleResult, error)
	Check(ctx context.Context, userID, listingID uuid.UUID) (bool, error)
	List(ctx context.Context, userID uuid.UUID, page, limit int) (*listings.ListResult, error)
}

// ToggleResult reports the favorite state after a toggle.
type ToggleResult struct {
	IsFavorite bool `json:"isFavorite"`
}

type favoritesRepository interface {
	Insert(ctx context.Context, favorite *models.Favorite) error
	Remove(ctx context.Context, userID, listingID uuid.UUID) (bool, error)
	Exists(ctx context.Context, userID, listingID uuid.UUID) (bool, error)
	ListListingIDs(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]uuid.UUID, int64, error)
}

// ListingReader is the slice of the listings service favorites rely on.
type ListingReader interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Hydrate(ctx context.Context, actorID uuid.UUID, ids []uuid.UUID) ([]listings.ListingDTO, error)
}

type service struct {
	repo     favoritesRepository
	listings ListingReader
	now      func() time.Time
}

// NewService builds the favorites service.
func NewService(repo favoritesRepository, reader ListingReader, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "favorites repository required")
	}
	if reader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "listing reader required")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: repo, listings: reader, now: now}, nil
}

func (s *service) Toggle(ctx context.Context, userID, listingID uuid.UUID) (*ToggleResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	exists, err := s.listings.Exists(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}

	removed, err := s.repo.Remove(ctx, userID, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	if removed {
		return &ToggleResult{IsFavorite: false}, nil
	}

	err = s.repo.Insert(ctx, &models.Favorite{
		ID:        uuid.New(),
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: s.now(),
	})
	if err != nil && !db.IsUniqueViolation(err, "favorites_user_listing_key") {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add favorite")
	}
	return &ToggleResult{IsFavorite: true}, nil
}

func (s *service) Check(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || listingID == uuid.Nil {
		return false, nil
	}
	ok, err := s.repo.Exists(ctx, userID, listingID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check favorite")
	}
	return ok, nil
}

// List returns favorited listings through the listings read path, so hidden
// listings drop out and stale ones expire on the way.
func (s *service) List(ctx context.Context, userID uuid.UUID, page, limit int) (*listings.ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	params := pagination.Params{Page: page, Limit: limit}.Normalize()
	ids, total, err := s.repo.ListListingIDs(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}
	items := []listings.ListingDTO{}
	if len(ids) > 0 {
		items, err = s.listings.Hydrate(ctx, userID, ids)
		if err != nil {
			return nil, err
		}
	}
	return &listings.ListResult{Items: items, Pagination: pagination.NewPage(params, total)}, nil
}
