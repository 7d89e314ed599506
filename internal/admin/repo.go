package admin

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
)

// Repository runs the read-only aggregate queries behind the dashboard.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type statusCount struct {
	Status enums.ListingStatus
	Count  int64
}

type speciesCount struct {
	Species enums.Species
	Count   int64
}

// CityCount is one row of the listings-per-city breakdown.
type CityCount struct {
	CityID uuid.UUID `json:"cityId"`
	Name   string    `json:"name"`
	Count  int64     `json:"count"`
}

func (r *Repository) CountUsers(ctx context.Context) (total, blocked int64, err error) {
	if err = r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).Model(&models.User{}).Where("is_blocked = ?", true).Count(&blocked).Error
	return total, blocked, err
}

func (r *Repository) ListingsByStatus(ctx context.Context) (map[enums.ListingStatus]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.ListingStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *Repository) ListingsBySpecies(ctx context.Context) (map[enums.Species]int64, error) {
	var rows []speciesCount
	err := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Select("species, COUNT(*) AS count").
		Group("species").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.Species]int64, len(rows))
	for _, row := range rows {
		out[row.Species] = row.Count
	}
	return out, nil
}

func (r *Repository) CountBlockedListings(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Listing{}).Where("is_blocked = ?", true).Count(&count).Error
	return count, err
}

// TopCities returns the cities with the most listings.
func (r *Repository) TopCities(ctx context.Context, limit int) ([]CityCount, error) {
	var rows []CityCount
	err := r.db.WithContext(ctx).
		Table("listings").
		Select("listings.city_id AS city_id, cities.name AS name, COUNT(*) AS count").
		Joins("JOIN cities ON cities.id = listings.city_id").
		Group("listings.city_id, cities.name").
		Order("count DESC").
		Order("cities.name ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) CountPendingPairRequests(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PairRequest{}).
		Where("status = ?", enums.PairRequestPending).
		Count(&count).Error
	return count, err
}
