package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service defines the per-user notification inbox plus admin broadcasts.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, notificationID uuid.UUID) error
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
	SendToUser(ctx context.Context, input AdminMessageInput) error
	SendBulk(ctx context.Context, input BulkMessageInput) (*BulkResult, error)
	PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error)
}

// UserDirectory checks that a recipient exists.
type UserDirectory interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

type service struct {
	repo  Repository
	sink  Sink
	users UserDirectory
	now   func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	UserID uuid.UUID
	Page   int
	Limit  int
	IsRead *bool
}

// ListResult wraps one page of notifications and the caller's unread total.
type ListResult struct {
	Items       []models.Notification `json:"items"`
	Pagination  pagination.Page       `json:"pagination"`
	UnreadCount int64                 `json:"unreadCount"`
}

// AdminMessageInput is a free-form admin message to one user.
type AdminMessageInput struct {
	UserID  uuid.UUID
	Title   string
	Message string
}

// BulkMessageInput fans one admin message out to many users.
type BulkMessageInput struct {
	UserIDs []uuid.UUID
	Title   string
	Message string
}

// BulkResult reports how many recipients were notified.
type BulkResult struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
}

// ServiceParams wires the notifications service.
type ServiceParams struct {
	Repo  Repository
	Sink  Sink
	Users UserDirectory
	Now   func() time.Time
}

// NewService wires notifications dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Sink == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification sink required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repo, sink: params.Sink, users: params.Users, now: now}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	page := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize()
	rows, total, err := s.repo.List(ctx, listNotificationsParams{
		UserID: params.UserID,
		IsRead: params.IsRead,
		Page:   page,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, params.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	if rows == nil {
		rows = []models.Notification{}
	}

	return &ListResult{
		Items:       rows,
		Pagination:  pagination.NewPage(page, total),
		UnreadCount: unread,
	}, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, userID, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	count, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil || notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and notification id required")
	}
	deleted, err := s.repo.Delete(ctx, userID, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notification")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notifications")
	}
	return count, nil
}

func (s *service) SendToUser(ctx context.Context, input AdminMessageInput) error {
	title, message, err := adminText(input.Title, input.Message)
	if err != nil {
		return err
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	exists, err := s.users.Exists(ctx, input.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return s.sink.Emit(ctx, Notice{
		UserID:  input.UserID,
		Kind:    enums.NotificationAdminMessage,
		Title:   title,
		Message: message,
	})
}

func (s *service) SendBulk(ctx context.Context, input BulkMessageInput) (*BulkResult, error) {
	title, message, err := adminText(input.Title, input.Message)
	if err != nil {
		return nil, err
	}
	if len(input.UserIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one user id required")
	}

	result := &BulkResult{}
	seen := make(map[uuid.UUID]struct{}, len(input.UserIDs))
	for _, userID := range input.UserIDs {
		if _, dup := seen[userID]; dup || userID == uuid.Nil {
			result.Skipped++
			continue
		}
		seen[userID] = struct{}{}

		exists, err := s.users.Exists(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
		}
		if !exists {
			result.Skipped++
			continue
		}
		if err := s.sink.Emit(ctx, Notice{
			UserID:  userID,
			Kind:    enums.NotificationAdminMessage,
			Title:   title,
			Message: message,
		}); err != nil {
			return nil, err
		}
		result.Sent++
	}
	return result, nil
}

// PurgeRead deletes read notifications older than the retention window.
func (s *service) PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "retention must be positive")
	}
	count, err := s.repo.DeleteReadBefore(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge read notifications")
	}
	return count, nil
}

func adminText(title, message string) (string, string, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if title == "" || message == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "title and message are required")
	}
	return title, message, nil
}
