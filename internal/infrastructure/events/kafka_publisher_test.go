package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/infrastructure/events"
	"github.com/emiliofantozzi/cobra/pkg/logger"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func sampleEvents() []ports.DomainEvent {
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	return []ports.DomainEvent{
		{ID: "ev-1", Type: ports.EventPaymentRecorded, OrganizationID: "org-1", AggregateID: "inv-1", OccurredAt: at},
		{ID: "ev-2", Type: ports.EventCaseClosed, OrganizationID: "org-1", AggregateID: "case-1", OccurredAt: at},
	}
}

func TestKafkaPublisher_PublicaLoteConClavePorAgregado(t *testing.T) {
	w := new(mockWriter)
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 2 || string(msgs[0].Key) != "inv-1" || string(msgs[1].Key) != "case-1" {
			return false
		}
		var ev ports.DomainEvent
		if err := json.Unmarshal(msgs[0].Value, &ev); err != nil {
			return false
		}
		return ev.Type == ports.EventPaymentRecorded && string(msgs[0].Headers[0].Value) == ports.EventPaymentRecorded
	})).Return(nil)

	p := events.NewKafkaPublisherWithWriter(w, logger.Nop())
	require.NoError(t, p.Publish(context.Background(), sampleEvents()...))
	w.AssertExpectations(t)
}

func TestKafkaPublisher_ErrorDelBroker(t *testing.T) {
	w := new(mockWriter)
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available"))

	err := events.NewKafkaPublisherWithWriter(w, nil).Publish(context.Background(), sampleEvents()...)
	assert.ErrorContains(t, err, "leader not available")
}

func TestKafkaPublisher_LoteVacioNoEscribe(t *testing.T) {
	w := new(mockWriter)
	require.NoError(t, events.NewKafkaPublisherWithWriter(w, nil).Publish(context.Background()))
	w.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestLogPublisher_NuncaFalla(t *testing.T) {
	assert.NoError(t, events.NewLogPublisher(logger.Nop()).Publish(context.Background(), sampleEvents()...))
}
