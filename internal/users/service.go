package users

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/internal/listings"
	"github.com/angelmondragon/petpair-backend/internal/notifications"
	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
	"github.com/angelmondragon/petpair-backend/pkg/pagination"
)

const accountBlockedMessage = "Your account was blocked by an administrator. Contact support if you believe this is a mistake."

// Service covers identity lookups and admin account moderation.
type Service interface {
	ResolveIdentity(ctx context.Context, id uuid.UUID) (listings.Identity, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, params ListInput) (*ListResult, error)
	Stats(ctx context.Context) (*Stats, error)
	SetBlocked(ctx context.Context, actorID, userID uuid.UUID, blocked bool) (*UserDTO, error)
	Delete(ctx context.Context, actorID, userID uuid.UUID) error
}

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, at time.Time, columns map[string]any) (bool, error)
	UpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time, columns map[string]any) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, params ListParams) ([]models.User, int64, error)
	Counts(ctx context.Context) (int64, int64, error)
}

// ListingBlocker applies an account block to every listing the user owns.
type ListingBlocker interface {
	SetAllListingsBlockedTx(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, blocked bool) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SessionRevoker drops every live session for a user.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

// ListInput filters the admin user listing.
type ListInput struct {
	Search string
	Page   int
	Limit  int
}

// ListResult is one page of users.
type ListResult struct {
	Items      []UserDTO       `json:"items"`
	Pagination pagination.Page `json:"pagination"`
}

// Stats summarises the user base for the admin dashboard.
type Stats struct {
	Total   int64 `json:"total"`
	Blocked int64 `json:"blocked"`
}

// ServiceParams wires the users service. Sessions is optional.
type ServiceParams struct {
	Repo     usersRepository
	Tx       txRunner
	Listings ListingBlocker
	Notices  notifications.Sink
	Sessions SessionRevoker
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     usersRepository
	tx       txRunner
	listings ListingBlocker
	notices  notifications.Sink
	sessions SessionRevoker
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the users service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Listings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "listing blocker required")
	}
	if params.Notices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification sink required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "users", Output: io.Discard})
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		listings: params.Listings,
		notices:  params.Notices,
		sessions: params.Sessions,
		logg:     logg,
		now:      now,
	}, nil
}

func (s *service) ResolveIdentity(ctx context.Context, id uuid.UUID) (listings.Identity, error) {
	return resolveIdentity(ctx, s.repo, id)
}

func (s *service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	return ok, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	page := pagination.Params{Page: input.Page, Limit: input.Limit}.Normalize()
	rows, total, err := s.repo.List(ctx, ListParams{Search: strings.TrimSpace(input.Search), Page: page})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &ListResult{Items: items, Pagination: pagination.NewPage(page, total)}, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	total, blocked, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	return &Stats{Total: total, Blocked: blocked}, nil
}

// SetBlocked blocks or unblocks an account and carries the flag to every
// listing the user owns. Repeating the same call is harmless.
func (s *service) SetBlocked(ctx context.Context, actorID, userID uuid.UUID, blocked bool) (*UserDTO, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	target, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "administrators cannot be blocked")
	}

	now := s.now()
	// The account flag and the listing cascade commit together.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if target.IsBlocked != blocked {
			found, err := s.repo.UpdateTx(ctx, tx, userID, now, map[string]any{"is_blocked": blocked})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user block")
			}
			if !found {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
		}
		_, err := s.listings.SetAllListingsBlockedTx(ctx, tx, userID, blocked)
		return err
	})
	if err != nil {
		return nil, err
	}
	if target.IsBlocked != blocked {
		target.IsBlocked = blocked
		target.UpdatedAt = now
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"actor_id": actorID.String(),
		"user_id":  userID.String(),
		"blocked":  blocked,
	})
	if blocked {
		if err := s.notices.Emit(ctx, notifications.Notice{
			UserID:  userID,
			Kind:    enums.NotificationAccountBlocked,
			Title:   "Account blocked",
			Message: accountBlockedMessage,
		}); err != nil {
			s.logg.Error(logCtx, "users.block.notify_failed", err)
		}
		if s.sessions != nil {
			if err := s.sessions.RevokeAll(ctx, userID); err != nil {
				s.logg.Error(logCtx, "users.block.revoke_sessions_failed", err)
			}
		}
	}
	s.logg.Info(logCtx, "users.block.updated")

	return FromModel(target), nil
}

func (s *service) Delete(ctx context.Context, actorID, userID uuid.UUID) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if actorID == userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "administrators cannot delete their own account")
	}
	deleted, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeAll(ctx, userID); err != nil {
			s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "users.delete.revoke_sessions_failed", err)
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"actor_id": actorID.String(),
		"user_id":  userID.String(),
	}), "users.deleted")
	return nil
}

func (s *service) requireAdmin(ctx context.Context, actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	actor, err := s.repo.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup actor")
	}
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return loadUser(ctx, s.repo, id)
}
