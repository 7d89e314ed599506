package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/pkg/enums"
)

// NotificationRequestedEvent asks the worker to materialize an in-app notification.
type NotificationRequestedEvent struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	UserID         uuid.UUID              `json:"user_id"`
	Kind           enums.NotificationKind `json:"kind"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	ListingID      *uuid.UUID             `json:"listing_id,omitempty"`
	RelatedUserID  *uuid.UUID             `json:"related_user_id,omitempty"`
	RequestedAt    time.Time              `json:"requested_at"`
}
