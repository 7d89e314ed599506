package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	"github.com/angelmondragon/petpair-backend/pkg/pagination"
)

// Repository persists support threads and their messages.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindThread(ctx context.Context, id uuid.UUID) (*models.ChatThread, error) {
	var thread models.ChatThread
	if err := r.db.WithContext(ctx).First(&thread, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

func (r *Repository) FindThreadByUser(ctx context.Context, userID uuid.UUID) (*models.ChatThread, error) {
	var thread models.ChatThread
	if err := r.db.WithContext(ctx).First(&thread, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

// CreateThread inserts the thread unless the user already owns one.
func (r *Repository) CreateThread(ctx context.Context, thread *models.ChatThread) error {
	return r.db.WithContext(ctx).
		Omit("Messages").
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(thread).Error
}

func (r *Repository) UpdateThread(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatThread{}).
		Where("id = ?", id).
		UpdateColumns(columns).Error
}

// DeleteThread drops the thread and its messages.
func (r *Repository) DeleteThread(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := r.db.WithContext(ctx).Where("thread_id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ChatThread{})
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) InsertMessage(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *Repository) FindMessage(ctx context.Context, threadID, messageID uuid.UUID) (*models.ChatMessage, error) {
	var message models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("id = ? AND thread_id = ?", messageID, threadID).
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *Repository) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ChatMessage{}).Error
}

// LatestMessage returns the newest message of a thread or nil when it is empty.
func (r *Repository) LatestMessage(ctx context.Context, threadID uuid.UUID) (*models.ChatMessage, error) {
	var message models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at DESC").
		Order("id DESC").
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *Repository) ListMessages(ctx context.Context, threadID uuid.UUID) ([]models.ChatMessage, error) {
	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// MarkRead flags unread messages written by sender as read.
func (r *Repository) MarkRead(ctx context.Context, threadID uuid.UUID, sender enums.ChatSenderRole, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("thread_id = ? AND sender_role = ? AND is_read = ?", threadID, sender, false).
		UpdateColumns(map[string]any{"is_read": true, "read_at": at}).Error
}

// ThreadFilter narrows the admin thread list.
type ThreadFilter struct {
	Status *enums.ChatThreadStatus
	Search string
	Page   pagination.Params
}

// ListThreads returns threads ordered by latest activity.
func (r *Repository) ListThreads(ctx context.Context, filter ThreadFilter) ([]models.ChatThread, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.ChatThread{})
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		users := r.db.Model(&models.User{}).
			Select("id").
			Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
		base = base.Where("user_id IN (?)", users)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.ChatThread
	err := base.Session(&gorm.Session{}).
		Order("last_message_at DESC").
		Order("id DESC").
		Limit(filter.Page.Limit).
		Offset(filter.Page.Offset()).
		Find(&rows).Error
	return rows, total, err
}

// SumUnreadByAdmin totals user messages the admins have not read.
func (r *Repository) SumUnreadByAdmin(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatThread{}).
		Select("COALESCE(SUM(unread_by_admin), 0)").
		Scan(&total).Error
	return total, err
}
