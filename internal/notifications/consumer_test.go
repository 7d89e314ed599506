package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	"github.com/angelmondragon/petpair-backend/pkg/enums"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
	"github.com/angelmondragon/petpair-backend/pkg/outbox"
	"github.com/angelmondragon/petpair-backend/pkg/outbox/payloads"
)

type memMaterializer struct {
	rows map[uuid.UUID]models.Notification
	err  error
}

func (m *memMaterializer) CreateIfAbsent(ctx context.Context, notification *models.Notification) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.rows[notification.ID]; ok {
		return false, nil
	}
	m.rows[notification.ID] = *notification
	return true, nil
}

type memGuard struct {
	seen    map[string]bool
	deleted []uuid.UUID
	err     error
}

func (g *memGuard) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	key := consumer + ":" + eventID.String()
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func (g *memGuard) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	delete(g.seen, consumer+":"+eventID.String())
	g.deleted = append(g.deleted, eventID)
	return nil
}

func newTestConsumer(t *testing.T) (*Consumer, *memMaterializer, *memGuard) {
	t.Helper()
	repo := &memMaterializer{rows: map[uuid.UUID]models.Notification{}}
	guard := &memGuard{seen: map[string]bool{}}
	consumer, err := NewConsumer(repo, nil, guard, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return consumer, repo, guard
}

func requestedMessage(t *testing.T, eventID uuid.UUID, payload payloads.NotificationRequestedEvent) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return envelope
}

var requestedAttrs = map[string]string{"event_type": string(enums.EventNotificationRequested)}

func TestConsumerMaterializesOnce(t *testing.T) {
	consumer, repo, _ := newTestConsumer(t)
	notificationID := uuid.New()
	listingID := uuid.New()
	msg := requestedMessage(t, uuid.New(), payloads.NotificationRequestedEvent{
		NotificationID: notificationID,
		UserID:         uuid.New(),
		Kind:           enums.NotificationPairAccepted,
		Title:          "Pairing accepted",
		Message:        " Your request was accepted ",
		ListingID:      &listingID,
		RequestedAt:    time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC),
	})

	require.NoError(t, consumer.Handle(context.Background(), msg, requestedAttrs))
	require.NoError(t, consumer.Handle(context.Background(), msg, requestedAttrs))

	require.Len(t, repo.rows, 1)
	row := repo.rows[notificationID]
	assert.Equal(t, enums.NotificationPairAccepted, row.Kind)
	assert.Equal(t, "Your request was accepted", row.Message)
	require.NotNil(t, row.ListingID)
	assert.Equal(t, listingID, *row.ListingID)
	assert.False(t, row.IsRead)
}

func TestConsumerSkipsOtherEvents(t *testing.T) {
	consumer, repo, _ := newTestConsumer(t)
	err := consumer.Handle(context.Background(), []byte(`{}`), map[string]string{"event_type": "listing_archived"})
	require.NoError(t, err)
	assert.Empty(t, repo.rows)
}

func TestConsumerAcksMalformedPayload(t *testing.T) {
	consumer, repo, _ := newTestConsumer(t)
	require.NoError(t, consumer.Handle(context.Background(), []byte(`not-json`), requestedAttrs))

	msg := requestedMessage(t, uuid.New(), payloads.NotificationRequestedEvent{
		NotificationID: uuid.New(),
		Kind:           enums.NotificationAdminMessage,
		Title:          "t",
		Message:        "m",
	})
	require.NoError(t, consumer.Handle(context.Background(), msg, requestedAttrs))
	assert.Empty(t, repo.rows)
}

func TestConsumerReleasesKeyOnPersistFailure(t *testing.T) {
	consumer, repo, guard := newTestConsumer(t)
	repo.err = errors.New("db down")
	eventID := uuid.New()
	msg := requestedMessage(t, eventID, payloads.NotificationRequestedEvent{
		NotificationID: uuid.New(),
		UserID:         uuid.New(),
		Kind:           enums.NotificationAdminMessage,
		Title:          "Hello",
		Message:        "World",
	})

	err := consumer.Handle(context.Background(), msg, requestedAttrs)
	require.Error(t, err)
	assert.Equal(t, []uuid.UUID{eventID}, guard.deleted)

	repo.err = nil
	require.NoError(t, consumer.Handle(context.Background(), msg, requestedAttrs))
	assert.Len(t, repo.rows, 1)
}

func TestConsumerNacksWhenGuardUnavailable(t *testing.T) {
	consumer, repo, guard := newTestConsumer(t)
	guard.err = errors.New("redis down")
	msg := requestedMessage(t, uuid.New(), payloads.NotificationRequestedEvent{
		NotificationID: uuid.New(),
		UserID:         uuid.New(),
		Kind:           enums.NotificationAdminMessage,
		Title:          "Hello",
		Message:        "World",
	})
	require.Error(t, consumer.Handle(context.Background(), msg, requestedAttrs))
	assert.Empty(t, repo.rows)
}
