package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
	"github.com/angelmondragon/petpair-backend/pkg/pagination"
)

const maxMessageLength = 2000

// Service is the user-to-admin support chat. Every user owns at most one thread.
type Service interface {
	GetOrCreateMyThread(ctx context.Context, userID uuid.UUID) (*ThreadDTO, error)
	SendMessage(ctx context.Context, userID uuid.UUID, body string) (*ThreadDTO, error)
	MyUnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkMyThreadRead(ctx context.Context, userID uuid.UUID) error

	ListThreads(ctx context.Context, params ListThreadsParams) (*ThreadListResult, error)
	GetThread(ctx context.Context, threadID uuid.UUID) (*ThreadDTO, error)
	Reply(ctx context.Context, adminID, threadID uuid.UUID, body string) (*ThreadDTO, error)
	Close(ctx context.Context, threadID uuid.UUID) (*ThreadDTO, error)
	Delete(ctx context.Context, threadID uuid.UUID) error
	DeleteMessage(ctx context.Context, actor Actor, threadID, messageID uuid.UUID) error
	AdminUnreadCount(ctx context.Context) (int64, error)
}

// Actor identifies the caller of operations open to both sides.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

// ListThreadsParams filters the admin inbox.
type ListThreadsParams struct {
	Status string
	Search string
	Page   int
	Limit  int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the chat service.
type ServiceParams struct {
	Repo   *Repository
	Tx     txRunner
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the chat service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chat repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "chat", Output: io.Discard})
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repo, tx: params.Tx, logg: logg, now: now}, nil
}

// GetOrCreateMyThread returns the caller's thread with its messages and marks
// admin replies as read.
func (s *service) GetOrCreateMyThread(ctx context.Context, userID uuid.UUID) (*ThreadDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	var thread *models.ChatThread
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		thread, err = s.ensureThread(ctx, repo, userID)
		if err != nil {
			return err
		}
		return s.markRead(ctx, repo, thread, enums.ChatSenderAdmin)
	})
	if err != nil {
		return nil, asDependency(err, "load chat thread")
	}
	return s.withMessages(ctx, thread)
}

func (s *service) SendMessage(ctx context.Context, userID uuid.UUID, body string) (*ThreadDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	body, err := normalizeBody(body)
	if err != nil {
		return nil, err
	}

	var thread *models.ChatThread
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		thread, err = s.ensureThread(ctx, repo, userID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := repo.InsertMessage(ctx, &models.ChatMessage{
			ID:         uuid.New(),
			ThreadID:   thread.ID,
			SenderID:   userID,
			SenderRole: enums.ChatSenderUser,
			Body:       body,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		thread.Status = enums.ChatThreadActive
		thread.LastMessage = &body
		thread.LastMessageAt = now
		thread.UnreadByAdmin++
		thread.UpdatedAt = now
		return repo.UpdateThread(ctx, thread.ID, map[string]any{
			"status":          thread.Status,
			"last_message":    body,
			"last_message_at": now,
			"unread_by_admin": gorm.Expr("unread_by_admin + 1"),
			"updated_at":      now,
		})
	})
	if err != nil {
		return nil, asDependency(err, "send chat message")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":   userID.String(),
		"thread_id": thread.ID.String(),
	}), "chat.message.sent")
	return s.withMessages(ctx, thread)
}

func (s *service) MyUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	thread, err := s.repo.FindThreadByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat thread")
	}
	return thread.UnreadByUser, nil
}

func (s *service) MarkMyThreadRead(ctx context.Context, userID uuid.UUID) error {
	thread, err := s.repo.FindThreadByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat thread")
	}
	return asDependency(s.markRead(ctx, s.repo, thread, enums.ChatSenderAdmin), "mark chat read")
}

func (s *service) ListThreads(ctx context.Context, params ListThreadsParams) (*ThreadListResult, error) {
	page := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize()
	filter := ThreadFilter{Search: params.Search, Page: page}
	if status := strings.TrimSpace(params.Status); status != "" {
		parsed, err := enums.ParseChatThreadStatus(status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid thread status")
		}
		filter.Status = &parsed
	}
	rows, total, err := s.repo.ListThreads(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list chat threads")
	}
	items := make([]ThreadDTO, 0, len(rows))
	for i := range rows {
		items = append(items, toThreadDTO(&rows[i], nil))
	}
	return &ThreadListResult{Items: items, Pagination: pagination.NewPage(page, total)}, nil
}

// GetThread loads a thread for an admin and marks the user's messages as read.
func (s *service) GetThread(ctx context.Context, threadID uuid.UUID) (*ThreadDTO, error) {
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if err := s.markRead(ctx, s.repo, thread, enums.ChatSenderUser); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark chat read")
	}
	return s.withMessages(ctx, thread)
}

// Reply appends an admin message. Replying to a closed thread reopens it.
func (s *service) Reply(ctx context.Context, adminID, threadID uuid.UUID, body string) (*ThreadDTO, error) {
	body, err := normalizeBody(body)
	if err != nil {
		return nil, err
	}
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.InsertMessage(ctx, &models.ChatMessage{
			ID:         uuid.New(),
			ThreadID:   thread.ID,
			SenderID:   adminID,
			SenderRole: enums.ChatSenderAdmin,
			Body:       body,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		if err := repo.MarkRead(ctx, thread.ID, enums.ChatSenderUser, now); err != nil {
			return err
		}
		return repo.UpdateThread(ctx, thread.ID, map[string]any{
			"status":          enums.ChatThreadActive,
			"last_message":    body,
			"last_message_at": now,
			"unread_by_user":  gorm.Expr("unread_by_user + 1"),
			"unread_by_admin": 0,
			"updated_at":      now,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reply to chat")
	}
	thread.Status = enums.ChatThreadActive
	thread.LastMessage = &body
	thread.LastMessageAt = now
	thread.UnreadByUser++
	thread.UnreadByAdmin = 0
	thread.UpdatedAt = now

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"admin_id":  adminID.String(),
		"thread_id": thread.ID.String(),
	}), "chat.reply.sent")
	return s.withMessages(ctx, thread)
}

func (s *service) Close(ctx context.Context, threadID uuid.UUID) (*ThreadDTO, error) {
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.repo.UpdateThread(ctx, thread.ID, map[string]any{
		"status":     enums.ChatThreadClosed,
		"updated_at": now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close chat thread")
	}
	thread.Status = enums.ChatThreadClosed
	thread.UpdatedAt = now
	dto := toThreadDTO(thread, nil)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, threadID uuid.UUID) error {
	var deleted bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = s.repo.WithTx(tx).DeleteThread(ctx, threadID)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete chat thread")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "chat thread not found")
	}
	return nil
}

// DeleteMessage removes one message. Users may only remove their own.
func (s *service) DeleteMessage(ctx context.Context, actor Actor, threadID, messageID uuid.UUID) error {
	if actor.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	thread, err := s.loadThread(ctx, threadID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin && thread.UserID != actor.ID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "chat thread not found")
	}
	message, err := s.repo.FindMessage(ctx, threadID, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat message")
	}
	if !actor.IsAdmin && message.SenderID != actor.ID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete another participant's message")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteMessage(ctx, message.ID); err != nil {
			return err
		}
		latest, err := repo.LatestMessage(ctx, threadID)
		if err != nil {
			return err
		}
		columns := map[string]any{"updated_at": s.now()}
		if latest != nil {
			columns["last_message"] = latest.Body
			columns["last_message_at"] = latest.CreatedAt
		} else {
			columns["last_message"] = nil
			columns["last_message_at"] = s.now()
		}
		return repo.UpdateThread(ctx, threadID, columns)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete chat message")
	}
	return nil
}

func (s *service) AdminUnreadCount(ctx context.Context) (int64, error) {
	total, err := s.repo.SumUnreadByAdmin(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread chat messages")
	}
	return total, nil
}

func (s *service) ensureThread(ctx context.Context, repo *Repository, userID uuid.UUID) (*models.ChatThread, error) {
	thread, err := repo.FindThreadByUser(ctx, userID)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	now := s.now()
	thread = &models.ChatThread{
		ID:            uuid.New(),
		UserID:        userID,
		Status:        enums.ChatThreadActive,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repo.CreateThread(ctx, thread); err != nil {
		return nil, err
	}
	return repo.FindThreadByUser(ctx, userID)
}

// markRead clears the unread counter for the side that reads messages from sender.
func (s *service) markRead(ctx context.Context, repo *Repository, thread *models.ChatThread, sender enums.ChatSenderRole) error {
	if err := repo.MarkRead(ctx, thread.ID, sender, s.now()); err != nil {
		return err
	}
	column := "unread_by_user"
	if sender == enums.ChatSenderUser {
		column = "unread_by_admin"
		thread.UnreadByAdmin = 0
	} else {
		thread.UnreadByUser = 0
	}
	return repo.UpdateThread(ctx, thread.ID, map[string]any{column: 0})
}

func (s *service) loadThread(ctx context.Context, id uuid.UUID) (*models.ChatThread, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "thread id required")
	}
	thread, err := s.repo.FindThread(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "chat thread not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat thread")
	}
	return thread, nil
}

func (s *service) withMessages(ctx context.Context, thread *models.ChatThread) (*ThreadDTO, error) {
	messages, err := s.repo.ListMessages(ctx, thread.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list chat messages")
	}
	dto := toThreadDTO(thread, messages)
	return &dto, nil
}

func normalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "message is too long")
	}
	return body, nil
}

func asDependency(err error, message string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
