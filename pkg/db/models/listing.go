package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/petpair-backend/pkg/db/types"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
)

// Listing is a pet advertisement offered for pairing.
type Listing struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID      uuid.UUID           `gorm:"column:owner_id;type:uuid;not null;index:listings_owner_id_idx"`
	Species      enums.Species       `gorm:"column:species;type:species;not null"`
	Sex          enums.PetSex        `gorm:"column:sex;type:pet_sex;not null"`
	Breed        string              `gorm:"column:breed;type:text;not null"`
	Age          *int                `gorm:"column:age"`
	Description  string              `gorm:"column:description;type:text;not null;default:''"`
	Images       dbtypes.StringArray `gorm:"column:images;type:jsonb;not null"`
	CityID       uuid.UUID           `gorm:"column:city_id;type:uuid;not null;index:listings_city_id_idx"`
	Status       enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:'active'"`
	ExpiresAt    time.Time           `gorm:"column:expires_at;type:timestamptz;not null"`
	Views        int64               `gorm:"column:views;not null;default:0"`
	IsBlocked    bool                `gorm:"column:is_blocked;not null;default:false"`
	Version      int64               `gorm:"column:version;not null;default:1"`
	CreatedAt    time.Time           `gorm:"column:created_at;type:timestamptz"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;type:timestamptz"`
	PairRequests []PairRequest       `gorm:"foreignKey:ListingID;references:ID"`
}

// IsOwnedBy reports whether userID owns the listing.
func (l *Listing) IsOwnedBy(userID uuid.UUID) bool {
	return l != nil && l.OwnerID == userID
}

// IsStale reports whether an active listing has outlived its expiry at now.
func (l *Listing) IsStale(now time.Time) bool {
	return l.Status == enums.ListingStatusActive && now.After(l.ExpiresAt)
}

// IsPubliclyVisible reports the effective public visibility derived from status, expiry and block flag.
func (l *Listing) IsPubliclyVisible(now time.Time) bool {
	return l.Status == enums.ListingStatusActive && l.ExpiresAt.After(now) && !l.IsBlocked
}
