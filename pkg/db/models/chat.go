package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/pkg/enums"
)

// ChatThread is the single support conversation between a user and the admins.
type ChatThread struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null;uniqueIndex:chat_threads_user_id_key"`
	Status        enums.ChatThreadStatus `gorm:"column:status;type:chat_thread_status;not null;default:'active'"`
	LastMessage   *string                `gorm:"column:last_message"`
	LastMessageAt time.Time              `gorm:"column:last_message_at"`
	UnreadByUser  int                    `gorm:"column:unread_by_user;not null;default:0"`
	UnreadByAdmin int                    `gorm:"column:unread_by_admin;not null;default:0"`
	CreatedAt     time.Time              `gorm:"column:created_at"`
	UpdatedAt     time.Time              `gorm:"column:updated_at"`
	Messages      []ChatMessage          `gorm:"foreignKey:ThreadID;references:ID"`
}

// ChatMessage is one entry of a ChatThread.
type ChatMessage struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ThreadID   uuid.UUID            `gorm:"column:thread_id;type:uuid;not null;index:chat_messages_thread_id_idx"`
	SenderID   uuid.UUID            `gorm:"column:sender_id;type:uuid;not null"`
	SenderRole enums.ChatSenderRole `gorm:"column:sender_role;type:chat_sender_role;not null"`
	Body       string               `gorm:"column:body;type:text;not null"`
	IsRead     bool                 `gorm:"column:is_read;not null;default:false"`
	ReadAt     *time.Time           `gorm:"column:read_at"`
	CreatedAt  time.Time            `gorm:"column:created_at"`
}
