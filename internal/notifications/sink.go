package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
	"github.com/angelmondragon/petpair-backend/pkg/outbox"
	"github.com/angelmondragon/petpair-backend/pkg/outbox/payloads"
)

// Notice is a single notification addressed to one user.
type Notice struct {
	UserID        uuid.UUID
	Kind          enums.NotificationKind
	Title         string
	Message       string
	ListingID     *uuid.UUID
	RelatedUserID *uuid.UUID
}

// Sink accepts notices. Callers treat delivery as best effort.
type Sink interface {
	Emit(ctx context.Context, notice Notice) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// EmitterParams wires an Emitter. Outbox and Tx are required only when UseOutbox is set.
type EmitterParams struct {
	Repo      Repository
	Outbox    outboxEmitter
	Tx        txRunner
	UseOutbox bool
	Logger    *logger.Logger
	Now       func() time.Time
}

// Emitter writes notices either straight into the notifications table or
// through the outbox so the worker can materialize them.
type Emitter struct {
	repo      Repository
	outbox    outboxEmitter
	tx        txRunner
	useOutbox bool
	logg      *logger.Logger
	now       func() time.Time
}

// NewEmitter builds the notification sink.
func NewEmitter(params EmitterParams) (*Emitter, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.UseOutbox {
		if params.Outbox == nil {
			return nil, fmt.Errorf("outbox emitter required for outbox delivery")
		}
		if params.Tx == nil {
			return nil, fmt.Errorf("transaction runner required for outbox delivery")
		}
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Emitter{
		repo:      params.Repo,
		outbox:    params.Outbox,
		tx:        params.Tx,
		useOutbox: params.UseOutbox,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// Emit validates and delivers the notice.
func (e *Emitter) Emit(ctx context.Context, notice Notice) error {
	if err := validateNotice(notice); err != nil {
		return err
	}

	id := uuid.New()
	now := e.now()
	if e.useOutbox {
		return e.emitViaOutbox(ctx, id, now, notice)
	}

	row := noticeToModel(id, now, notice)
	if err := e.repo.Create(ctx, &row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	if e.logg != nil {
		e.logg.Info(e.logg.WithFields(ctx, map[string]any{
			"notification_id": id.String(),
			"user_id":         notice.UserID.String(),
			"kind":            notice.Kind,
		}), "notification created")
	}
	return nil
}

func (e *Emitter) emitViaOutbox(ctx context.Context, id uuid.UUID, now time.Time, notice Notice) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventNotificationRequested,
		AggregateType: enums.AggregateNotification,
		AggregateID:   id,
		Version:       1,
		OccurredAt:    now,
		Data: payloads.NotificationRequestedEvent{
			NotificationID: id,
			UserID:         notice.UserID,
			Kind:           notice.Kind,
			Title:          notice.Title,
			Message:        notice.Message,
			ListingID:      notice.ListingID,
			RelatedUserID:  notice.RelatedUserID,
			RequestedAt:    now,
		},
	}
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return e.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue notification")
	}
	return nil
}

func validateNotice(notice Notice) error {
	if notice.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification recipient required")
	}
	if !notice.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid notification kind %q", notice.Kind))
	}
	if strings.TrimSpace(notice.Title) == "" || strings.TrimSpace(notice.Message) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification title and message required")
	}
	return nil
}

func noticeToModel(id uuid.UUID, now time.Time, notice Notice) models.Notification {
	return models.Notification{
		ID:            id,
		UserID:        notice.UserID,
		Kind:          notice.Kind,
		Title:         strings.TrimSpace(notice.Title),
		Message:       strings.TrimSpace(notice.Message),
		ListingID:     notice.ListingID,
		RelatedUserID: notice.RelatedUserID,
		CreatedAt:     now,
	}
}
