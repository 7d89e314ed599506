package admin

import (
	"context"

	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
)

const topCitiesLimit = 10

// Stats is the admin dashboard snapshot. Counts are plain and not cached.
type Stats struct {
	Users               UserStats               `json:"users"`
	Listings            ListingStats            `json:"listings"`
	PendingPairRequests int64                   `json:"pendingPairRequests"`
	BySpecies           map[enums.Species]int64 `json:"bySpecies"`
	TopCities           []CityCount             `json:"topCities"`
}

type UserStats struct {
	Total   int64 `json:"total"`
	Blocked int64 `json:"blocked"`
}

// ListingStats excludes soft-deleted listings from Total.
type ListingStats struct {
	Total   int64 `json:"total"`
	Active  int64 `json:"active"`
	Paired  int64 `json:"paired"`
	Expired int64 `json:"expired"`
	Deleted int64 `json:"deleted"`
	Blocked int64 `json:"blocked"`
}

// Service serves the admin dashboard.
type Service interface {
	Stats(ctx context.Context) (*Stats, error)
}

type statsRepository interface {
	CountUsers(ctx context.Context) (int64, int64, error)
	ListingsByStatus(ctx context.Context) (map[enums.ListingStatus]int64, error)
	ListingsBySpecies(ctx context.Context) (map[enums.Species]int64, error)
	CountBlockedListings(ctx context.Context) (int64, error)
	TopCities(ctx context.Context, limit int) ([]CityCount, error)
	CountPendingPairRequests(ctx context.Context) (int64, error)
}

type service struct {
	repo statsRepository
}

func NewService(repo statsRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "admin repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	total, blocked, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	byStatus, err := s.repo.ListingsByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count listings")
	}
	blockedListings, err := s.repo.CountBlockedListings(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count blocked listings")
	}
	bySpecies, err := s.repo.ListingsBySpecies(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count listings by species")
	}
	topCities, err := s.repo.TopCities(ctx, topCitiesLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count listings by city")
	}
	pending, err := s.repo.CountPendingPairRequests(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pair requests")
	}
	if topCities == nil {
		topCities = []CityCount{}
	}

	listings := ListingStats{
		Active:  byStatus[enums.ListingStatusActive],
		Paired:  byStatus[enums.ListingStatusPaired],
		Expired: byStatus[enums.ListingStatusExpired],
		Deleted: byStatus[enums.ListingStatusDeleted],
		Blocked: blockedListings,
	}
	listings.Total = listings.Active + listings.Paired + listings.Expired

	return &Stats{
		Users:               UserStats{Total: total, Blocked: blocked},
		Listings:            listings,
		PendingPairRequests: pending,
		BySpecies:           bySpecies,
		TopCities:           topCities,
	}, nil
}
