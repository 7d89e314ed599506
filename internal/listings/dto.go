package listings

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	"github.com/angelmondragon/petpair-backend/pkg/pagination"
)

// OwnerDTO is the denormalized owner display block.
type OwnerDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CityDTO is the denormalized city display block.
type CityDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ListingDTO is the API representation of a listing.
type ListingDTO struct {
	ID           uuid.UUID           `json:"id"`
	Owner        OwnerDTO            `json:"owner"`
	Species      enums.Species       `json:"species"`
	Sex          enums.PetSex        `json:"sex"`
	Breed        string              `json:"breed"`
	Age          *int                `json:"age,omitempty"`
	Description  string              `json:"description"`
	Images       []string            `json:"images"`
	City         CityDTO             `json:"city"`
	Status       enums.ListingStatus `json:"status"`
	ExpiresAt    time.Time           `json:"expiresAt"`
	Views        int64               `json:"views"`
	IsBlocked    bool                `json:"isBlocked"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	PairRequests []PairRequestDTO    `json:"pairRequests,omitempty"`
}

// PairRequestDTO is the API representation of a pair request.
type PairRequestDTO struct {
	ID                 uuid.UUID               `json:"id"`
	ListingID          uuid.UUID               `json:"listingId"`
	RequesterID        uuid.UUID               `json:"requesterId"`
	RequesterListingID uuid.UUID               `json:"requesterListingId"`
	Message            string                  `json:"message"`
	Status             enums.PairRequestStatus `json:"status"`
	CreatedAt          time.Time               `json:"createdAt"`
	RespondedAt        *time.Time              `json:"respondedAt,omitempty"`
}

// ListResult wraps one page of listings.
type ListResult struct {
	Items      []ListingDTO    `json:"items"`
	Pagination pagination.Page `json:"pagination"`
}

// PairRequestListResult wraps one page of pair requests.
type PairRequestListResult struct {
	Items      []PairRequestDTO `json:"items"`
	Pagination pagination.Page  `json:"pagination"`
}

func pairRequestToDTO(row models.PairRequest) PairRequestDTO {
	return PairRequestDTO{
		ID:                 row.ID,
		ListingID:          row.ListingID,
		RequesterID:        row.RequesterID,
		RequesterListingID: row.RequesterListingID,
		Message:            row.Message,
		Status:             row.Status,
		CreatedAt:          row.CreatedAt,
		RespondedAt:        row.RespondedAt,
	}
}

func pairRequestsToDTO(rows []models.PairRequest) []PairRequestDTO {
	out := make([]PairRequestDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, pairRequestToDTO(row))
	}
	return out
}
