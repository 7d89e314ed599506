package models

import (
	"time"

	"github.com/google/uuid"
)

// Favorite links a user to a liked listing.
type Favorite struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:favorites_user_id_idx;uniqueIndex:favorites_user_listing_key"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index:favorites_listing_id_idx;uniqueIndex:favorites_user_listing_key"`
	CreatedAt time.Time `gorm:"column:created_at"`
}
