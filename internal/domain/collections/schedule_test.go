package collections_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/domain/collections"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

func ptr(t time.Time) *time.Time { return &t }

func TestCalculateDaysToDue(t *testing.T) {
	today := date(2024, 1, 15)
	assert.Equal(t, 0, collections.CalculateDaysToDue(today.Add(20*time.Hour), today), "misma fecha calendario")
	assert.Equal(t, 5, collections.CalculateDaysToDue(date(2024, 1, 20), today))
	assert.Equal(t, -5, collections.CalculateDaysToDue(date(2024, 1, 10), today))
	assert.Equal(t, 5, collections.CalculateDaysOverdue(date(2024, 1, 10), today))
	assert.Equal(t, 0, collections.CalculateDaysOverdue(date(2024, 1, 20), today))
}

// Escenario C: sin fecha esperada => sin_fecha y próxima acción mañana.
func TestTracking_EscenarioC_SinFecha(t *testing.T) {
	today := date(2024, 1, 15)
	inv := testInvoice("1000", date(2024, 1, 1), date(2024, 1, 31))

	assert.Equal(t, collections.TrackingNoDate, collections.GetDerivedTrackingStatus(inv, today))
	next := collections.CalculateNextActionAt(inv, today)
	require.NotNil(t, next)
	assert.True(t, next.Equal(date(2024, 1, 16)), "próxima acción %s", next)
}

// Escenario D: promesa vencida => promesa_incumplida y próxima acción al día siguiente de la promesa.
func TestTracking_EscenarioD_PromesaIncumplida(t *testing.T) {
	today := date(2024, 1, 15)
	inv := testInvoice("1000", date(2024, 1, 1), date(2024, 1, 31))
	inv.ExpectedPaymentDate = ptr(date(2024, 1, 12))
	inv.PaymentPromiseDate = ptr(date(2024, 1, 10))

	assert.Equal(t, collections.TrackingPromiseBroken, collections.GetDerivedTrackingStatus(inv, today))
	next := collections.CalculateNextActionAt(inv, today)
	require.NotNil(t, next)
	assert.True(t, next.Equal(date(2024, 1, 11)), "próxima acción %s", next)
}

func TestGetDerivedTrackingStatus_Cascada(t *testing.T) {
	today := date(2024, 1, 15)
	tests := []struct {
		name     string
		status   entity.InvoiceStatus
		due      time.Time
		expected *time.Time
		promise  *time.Time
		want     collections.TrackingStatus
	}{
		{"pagada gana a todo", entity.InvoiceStatusPaid, date(2024, 1, 1), nil, ptr(date(2024, 1, 1)), collections.TrackingPaid},
		{"cancelada", entity.InvoiceStatusCancelled, date(2024, 1, 1), nil, nil, collections.TrackingCancelled},
		{"sin fecha esperada", entity.InvoiceStatusOverdue, date(2024, 1, 1), nil, nil, collections.TrackingNoDate},
		{"promesa hoy", entity.InvoiceStatusPending, date(2024, 1, 31), ptr(date(2024, 1, 20)), ptr(today), collections.TrackingPromiseToday},
		{"promesa futura sigue cascada", entity.InvoiceStatusPending, today, ptr(date(2024, 1, 20)), ptr(date(2024, 1, 18)), collections.TrackingDueToday},
		{"vence hoy", entity.InvoiceStatusPending, today, ptr(date(2024, 1, 20)), nil, collections.TrackingDueToday},
		{"vencida", entity.InvoiceStatusOverdue, date(2024, 1, 10), ptr(date(2024, 1, 20)), nil, collections.TrackingOverdue},
		{"con fecha", entity.InvoiceStatusPending, date(2024, 1, 31), ptr(date(2024, 1, 20)), nil, collections.TrackingWithDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := testInvoice("1000", date(2024, 1, 1), tt.due)
			inv.Status = tt.status
			inv.ExpectedPaymentDate = tt.expected
			inv.PaymentPromiseDate = tt.promise
			assert.Equal(t, tt.want, collections.GetDerivedTrackingStatus(inv, today))
		})
	}
}

func TestCalculateNextActionAt(t *testing.T) {
	today := date(2024, 1, 15)
	tests := []struct {
		name     string
		status   entity.InvoiceStatus
		due      time.Time
		expected *time.Time
		promise  *time.Time
		want     *time.Time
	}{
		{"pagada", entity.InvoiceStatusPaid, date(2024, 1, 31), nil, nil, nil},
		{"cancelada", entity.InvoiceStatusCancelled, date(2024, 1, 31), ptr(date(2024, 1, 20)), nil, nil},
		{"fecha esperada futura", entity.InvoiceStatusPending, date(2024, 1, 31), ptr(date(2024, 1, 20)), nil, ptr(date(2024, 1, 19))},
		{"vencida sin promesa", entity.InvoiceStatusOverdue, date(2024, 1, 10), ptr(date(2024, 1, 12)), nil, ptr(today)},
		{"con promesa", entity.InvoiceStatusOverdue, date(2024, 1, 10), ptr(date(2024, 1, 12)), ptr(date(2024, 1, 14)), ptr(date(2024, 1, 15))},
		{"esperada pasada y no vencida", entity.InvoiceStatusPending, date(2024, 1, 31), ptr(date(2024, 1, 12)), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := testInvoice("1000", date(2024, 1, 1), tt.due)
			inv.Status = tt.status
			inv.ExpectedPaymentDate = tt.expected
			inv.PaymentPromiseDate = tt.promise
			got := collections.CalculateNextActionAt(inv, today)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.Equal(*tt.want), "esperado %s, obtenido %s", tt.want, got)
		})
	}
}
