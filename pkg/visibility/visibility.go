package visibility

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
)

// Viewer identifies who is reading a listing. The zero value is an anonymous caller.
type Viewer struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// ListingVisibilityInput drives the shared visibility checks for single-listing reads.
type ListingVisibilityInput struct {
	Listing *models.Listing
	Viewer  Viewer
}

// EnsureListingVisible hides administratively blocked listings from everyone but
// their owner and admins. Lifecycle status does not affect direct reads.
func EnsureListingVisible(input ListingVisibilityInput) error {
	if input.Listing == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if !input.Listing.IsBlocked {
		return nil
	}
	if input.Viewer.IsAdmin {
		return nil
	}
	if input.Viewer.UserID != uuid.Nil && input.Listing.OwnerID == input.Viewer.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
}

// PublicListings restricts a listings query to rows anyone may browse at now.
// The alias is the table name or alias used in the surrounding query.
func PublicListings(alias string, now time.Time) func(*gorm.DB) *gorm.DB {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			prefix+"status = ? AND "+prefix+"expires_at > ? AND "+prefix+"is_blocked = ?",
			enums.ListingStatusActive, now, false,
		)
	}
}
