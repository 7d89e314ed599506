package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/pkg/enums"
)

// PairRequest is a pairing proposal made against a target listing.
type PairRequest struct {
	ID                 uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ListingID          uuid.UUID               `gorm:"column:listing_id;type:uuid;not null;index:pair_requests_listing_id_idx"`
	RequesterID        uuid.UUID               `gorm:"column:requester_id;type:uuid;not null;index:pair_requests_requester_id_idx"`
	RequesterListingID uuid.UUID               `gorm:"column:requester_listing_id;type:uuid;not null"`
	Message            string                  `gorm:"column:message;type:text;not null;default:''"`
	Status             enums.PairRequestStatus `gorm:"column:status;type:pair_request_status;not null;default:'pending'"`
	CreatedAt          time.Time               `gorm:"column:created_at;type:timestamptz"`
	RespondedAt        *time.Time              `gorm:"column:responded_at;type:timestamptz"`
}
