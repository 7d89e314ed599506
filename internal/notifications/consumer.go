package notifications

import (
	"context"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
	"github.com/angelmondragon/petpair-backend/pkg/outbox"
	"github.com/angelmondragon/petpair-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/petpair-backend/pkg/outbox/registry"
	"github.com/google/uuid"
)

const materializerConsumer = "notification-materializer"

type materializerRepository interface {
	CreateIfAbsent(ctx context.Context, notification *models.Notification) (bool, error)
}

type idempotencyGuard interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer materializes notification_requested events into notification rows.
type Consumer struct {
	repo         materializerRepository
	subscription *pubsub.Subscriber
	idempotency  idempotencyGuard
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the notification materializer. The subscription may be nil
// when the consumer is only driven through Handle.
func NewConsumer(repo materializerRepository, subscription *pubsub.Subscriber, guard idempotencyGuard, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if guard == nil {
		return nil, fmt.Errorf("event deduper required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  guard,
		decoders:     registry.NewNotificationDecoders(),
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("notification subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		fields := map[string]any{"message_id": msg.ID}
		if err := c.Handle(c.logg.WithFields(ctx, fields), msg.Data, msg.Attributes); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Handle processes one delivery. A nil return acks the message; an error asks
// for redelivery. Malformed payloads are logged and acked.
func (c *Consumer) Handle(ctx context.Context, data []byte, attrs map[string]string) error {
	eventType := attrs["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{"event_type": eventType})

	if eventType != string(enums.EventNotificationRequested) {
		c.logg.Info(logCtx, "skipping unrelated event")
		return nil
	}

	envelope, eventID, err := outbox.ParseEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return nil
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	decoded, err := c.decoders.Decode(enums.EventNotificationRequested, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return nil
	}
	payload, ok := decoded.(*payloads.NotificationRequestedEvent)
	if !ok || payload.UserID == uuid.Nil || !payload.Kind.IsValid() {
		c.logg.Warn(logCtx, "dropping invalid notification payload")
		return nil
	}

	first, err := c.idempotency.Claim(ctx, materializerConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return err
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	row := requestedToModel(*payload, envelope)
	logCtx = c.logg.WithUserID(logCtx, row.UserID.String())
	created, err := c.repo.CreateIfAbsent(ctx, &row)
	if err != nil {
		c.logg.Error(logCtx, "failed to persist notification", err)
		if delErr := c.idempotency.Release(ctx, materializerConsumer, eventID); delErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency key", delErr)
		}
		return err
	}
	if created {
		c.logg.Info(logCtx, "notification materialized")
	}
	return nil
}

func requestedToModel(payload payloads.NotificationRequestedEvent, envelope outbox.PayloadEnvelope) models.Notification {
	id := payload.NotificationID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := payload.RequestedAt
	if createdAt.IsZero() {
		createdAt = envelope.OccurredAt
	}
	return models.Notification{
		ID:            id,
		UserID:        payload.UserID,
		Kind:          payload.Kind,
		Title:         strings.TrimSpace(payload.Title),
		Message:       strings.TrimSpace(payload.Message),
		ListingID:     payload.ListingID,
		RelatedUserID: payload.RelatedUserID,
		CreatedAt:     createdAt.UTC(),
	}
}
