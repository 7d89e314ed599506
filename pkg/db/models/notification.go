package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index:notifications_user_id_is_read_idx"`
	Kind          enums.NotificationKind `gorm:"column:kind;type:notification_kind;not null"`
	Title         string                 `gorm:"column:title;type:text;not null"`
	Message       string                 `gorm:"column:message;type:text;not null"`
	ListingID     *uuid.UUID             `gorm:"column:listing_id;type:uuid"`
	RelatedUserID *uuid.UUID             `gorm:"column:related_user_id;type:uuid"`
	IsRead        bool                   `gorm:"column:is_read;not null;default:false;index:notifications_user_id_is_read_idx"`
	ReadAt        *time.Time             `gorm:"column:read_at;type:timestamptz"`
	CreatedAt     time.Time              `gorm:"column:created_at;type:timestamptz"`
}
