package collections_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/collections"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

func attempt(status entity.CommunicationStatus) entity.CommunicationAttempt {
	return entity.CommunicationAttempt{
		ID:               "att-1",
		OrganizationID:   "org-1",
		CollectionCaseID: "case-1",
		Channel:          entity.ChannelEmail,
		Direction:        entity.DirectionOutbound,
		Status:           status,
		UpdatedAt:        date(2024, 1, 15),
	}
}

func TestMarkCommunicationAsSent_FallidoNoSeEnvia(t *testing.T) {
	_, err := collections.MarkCommunicationAsSent(attempt(entity.CommunicationStatusFailed),
		collections.SendResult{SentAt: date(2024, 1, 15)})
	require.Error(t, err)
	assert.Equal(t, "communication.invalid_status", domain.CodeOf(err))
}

func TestMarkCommunicationAsSent(t *testing.T) {
	sentAt := date(2024, 1, 15).Add(9 * time.Hour)

	got, err := collections.MarkCommunicationAsSent(attempt(entity.CommunicationStatusPending), collections.SendResult{SentAt: sentAt})
	require.NoError(t, err)
	assert.Equal(t, entity.CommunicationStatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.True(t, got.SentAt.Equal(sentAt))

	delivered := sentAt.Add(time.Minute)
	got, err = collections.MarkCommunicationAsSent(got, collections.SendResult{SentAt: sentAt, DeliveredAt: &delivered})
	require.NoError(t, err)
	assert.Equal(t, entity.CommunicationStatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)

	again, err := collections.MarkCommunicationAsSent(got, collections.SendResult{SentAt: sentAt.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, entity.CommunicationStatusDelivered, again.Status, "no retrocede de DELIVERED a SENT")
	assert.True(t, again.SentAt.Equal(sentAt), "conserva la primera fecha de envío")
}

func TestMarkCommunicationAsFailed(t *testing.T) {
	now := date(2024, 1, 15)
	got, err := collections.MarkCommunicationAsFailed(attempt(entity.CommunicationStatusPending), " smtp 550 ", now)
	require.NoError(t, err)
	assert.Equal(t, entity.CommunicationStatusFailed, got.Status)
	assert.Equal(t, "smtp 550", got.Error)

	_, err = collections.MarkCommunicationAsFailed(attempt(entity.CommunicationStatusDelivered), "tarde", now)
	assert.ErrorIs(t, err, domain.ErrCommunicationInvalidStatus)
}

func TestMarkCommunicationAsRead_ImplicaEntrega(t *testing.T) {
	readAt := date(2024, 1, 16)
	got, err := collections.MarkCommunicationAsRead(attempt(entity.CommunicationStatusSent), readAt)
	require.NoError(t, err)
	assert.Equal(t, entity.CommunicationStatusDelivered, got.Status)
	require.NotNil(t, got.ReadAt)
	require.NotNil(t, got.DeliveredAt)

	_, err = collections.MarkCommunicationAsRead(attempt(entity.CommunicationStatusDraft), readAt)
	assert.ErrorIs(t, err, domain.ErrCommunicationInvalidStatus)
}

func TestMarkCommunicationPending(t *testing.T) {
	now := date(2024, 1, 15)
	got, err := collections.MarkCommunicationPending(attempt(entity.CommunicationStatusDraft), now)
	require.NoError(t, err)
	assert.Equal(t, entity.CommunicationStatusPending, got.Status)

	_, err = collections.MarkCommunicationPending(attempt(entity.CommunicationStatusSent), now)
	assert.ErrorIs(t, err, domain.ErrCommunicationInvalidStatus)
}

func TestAcknowledgeCommunication(t *testing.T) {
	now := date(2024, 1, 15)
	got, err := collections.AcknowledgeCommunication(attempt(entity.CommunicationStatusDelivered), now)
	require.NoError(t, err)
	assert.Equal(t, entity.CommunicationStatusAcknowledged, got.Status)

	_, err = collections.AcknowledgeCommunication(attempt(entity.CommunicationStatusFailed), now)
	assert.ErrorIs(t, err, domain.ErrCommunicationInvalidStatus)
}

func TestAppendDeliveryMetadata_MezclaPayload(t *testing.T) {
	a := attempt(entity.CommunicationStatusSent)
	a.Payload = json.RawMessage(`{"template":"recordatorio","delivery":{"provider":"smtp"}}`)

	got, err := collections.AppendDeliveryMetadata(a, "msg-123", map[string]any{"status_code": 250}, date(2024, 1, 15))
	require.NoError(t, err)
	assert.Equal(t, "msg-123", got.ExternalID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, "recordatorio", payload["template"])
	delivery, ok := payload["delivery"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "smtp", delivery["provider"])
	assert.EqualValues(t, 250, delivery["status_code"])
}

func TestIsDeliveryUnknown(t *testing.T) {
	now := date(2024, 1, 15).Add(2 * time.Hour)
	stale := time.Hour

	a := attempt(entity.CommunicationStatusPending)
	a.UpdatedAt = date(2024, 1, 15)
	assert.True(t, collections.IsDeliveryUnknown(a, now, stale))

	a.UpdatedAt = now.Add(-time.Minute)
	assert.False(t, collections.IsDeliveryUnknown(a, now, stale))

	a = attempt(entity.CommunicationStatusSent)
	a.UpdatedAt = date(2024, 1, 1)
	assert.False(t, collections.IsDeliveryUnknown(a, now, stale), "un intento enviado no es desconocido")
}

func TestIsDeliveryFlagged(t *testing.T) {
	a := attempt(entity.CommunicationStatusPending)
	assert.False(t, collections.IsDeliveryFlagged(a))

	a.Payload = json.RawMessage(`no es json`)
	assert.False(t, collections.IsDeliveryFlagged(a))

	flagged, err := collections.AppendDeliveryMetadata(a, "", map[string]any{"delivery_unknown": true}, date(2024, 1, 15))
	require.NoError(t, err)
	assert.True(t, collections.IsDeliveryFlagged(flagged))
}
