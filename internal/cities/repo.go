package cities

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
)

// Repository persists the city reference table.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the cities repo to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]models.City, error) {
	var rows []models.City
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.City, error) {
	var city models.City
	if err := r.db.WithContext(ctx).First(&city, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &city, nil
}

func (r *Repository) Create(ctx context.Context, city *models.City) error {
	return r.db.WithContext(ctx).Create(city).Error
}

// Rename updates the display name. Reports whether the row existed.
func (r *Repository) Rename(ctx context.Context, id uuid.UUID, name string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.City{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"name": name, "updated_at": at})
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.City{})
	return result.RowsAffected > 0, result.Error
}

// CountListings counts listings tagged with the city.
func (r *Repository) CountListings(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Listing{}).Where("city_id = ?", id).Count(&count).Error
	return count, err
}
