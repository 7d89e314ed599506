package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	"github.com/angelmondragon/petpair-backend/pkg/pagination"
)

type MessageDTO struct {
	ID         uuid.UUID            `json:"id"`
	SenderID   uuid.UUID            `json:"senderId"`
	SenderRole enums.ChatSenderRole `json:"senderRole"`
	Body       string               `json:"body"`
	IsRead     bool                 `json:"isRead"`
	CreatedAt  time.Time            `json:"createdAt"`
}

type ThreadDTO struct {
	ID            uuid.UUID              `json:"id"`
	UserID        uuid.UUID              `json:"userId"`
	Status        enums.ChatThreadStatus `json:"status"`
	LastMessage   *string                `json:"lastMessage,omitempty"`
	LastMessageAt time.Time              `json:"lastMessageAt"`
	UnreadByUser  int                    `json:"unreadByUser"`
	UnreadByAdmin int                    `json:"unreadByAdmin"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	Messages      []MessageDTO           `json:"messages,omitempty"`
}

type ThreadListResult struct {
	Items      []ThreadDTO     `json:"items"`
	Pagination pagination.Page `json:"pagination"`
}

func toThreadDTO(thread *models.ChatThread, messages []models.ChatMessage) ThreadDTO {
	dto := ThreadDTO{
		ID:            thread.ID,
		UserID:        thread.UserID,
		Status:        thread.Status,
		LastMessage:   thread.LastMessage,
		LastMessageAt: thread.LastMessageAt,
		UnreadByUser:  thread.UnreadByUser,
		UnreadByAdmin: thread.UnreadByAdmin,
		CreatedAt:     thread.CreatedAt,
		UpdatedAt:     thread.UpdatedAt,
	}
	if messages != nil {
		dto.Messages = make([]MessageDTO, 0, len(messages))
		for _, m := range messages {
			dto.Messages = append(dto.Messages, MessageDTO{
				ID:         m.ID,
				SenderID:   m.SenderID,
				SenderRole: m.SenderRole,
				Body:       m.Body,
				IsRead:     m.IsRead,
				CreatedAt:  m.CreatedAt,
			})
		}
	}
	return dto
}
