package collections

import (
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// TrackingStatus clasificación de seguimiento derivada (no se persiste).
type TrackingStatus string

const (
	TrackingPaid          TrackingStatus = "pagada"
	TrackingCancelled     TrackingStatus = "cancelada"
	TrackingNoDate        TrackingStatus = "sin_fecha"
	TrackingPromiseToday  TrackingStatus = "con_promesa_hoy"
	TrackingPromiseBroken TrackingStatus = "promesa_incumplida"
	TrackingDueToday      TrackingStatus = "vence_hoy"
	TrackingOverdue       TrackingStatus = "vencida"
	TrackingWithDate      TrackingStatus = "con_fecha"
	TrackingPending       TrackingStatus = "pendiente"
)

const day = 24 * time.Hour

// CalculateDaysToDue diferencia en días calendario entre dueDate y today.
// Negativo = vencida; 0 = vence hoy.
func CalculateDaysToDue(dueDate, today time.Time) int {
	return int(entity.DateOf(dueDate).Sub(entity.DateOf(today)) / day)
}

// CalculateDaysOverdue días de mora (nunca negativo).
func CalculateDaysOverdue(dueDate, today time.Time) int {
	if d := -CalculateDaysToDue(dueDate, today); d > 0 {
		return d
	}
	return 0
}

// GetDerivedTrackingStatus cascada de prioridad; el orden de las reglas es significativo.
func GetDerivedTrackingStatus(inv entity.Invoice, today time.Time) TrackingStatus {
	switch inv.Status {
	case entity.InvoiceStatusPaid:
		return TrackingPaid
	case entity.InvoiceStatusCancelled:
		return TrackingCancelled
	}
	if inv.ExpectedPaymentDate == nil {
		return TrackingNoDate
	}
	if inv.PaymentPromiseDate != nil {
		promise, t := entity.DateOf(*inv.PaymentPromiseDate), entity.DateOf(today)
		if promise.Equal(t) {
			return TrackingPromiseToday
		}
		if promise.Before(t) {
			return TrackingPromiseBroken
		}
	}
	daysToDue := CalculateDaysToDue(inv.DueDate, today)
	if daysToDue == 0 {
		return TrackingDueToday
	}
	if daysToDue < 0 {
		return TrackingOverdue
	}
	if inv.ExpectedPaymentDate != nil {
		return TrackingWithDate
	}
	return TrackingPending
}

// CalculateNextActionAt fecha en que el sistema debe volver a actuar sobre la factura (nil = ninguna):
//   - pagada o cancelada: nil
//   - sin fecha esperada: mañana (pedir fecha)
//   - fecha esperada futura: un día antes (recordatorio previo)
//   - vencida sin promesa: hoy
//   - con promesa: el día siguiente a la promesa (verificar cumplimiento)
func CalculateNextActionAt(inv entity.Invoice, today time.Time) *time.Time {
	if inv.Status.IsSettled() {
		return nil
	}
	t := entity.DateOf(today)
	if inv.ExpectedPaymentDate == nil {
		next := t.AddDate(0, 0, 1)
		return &next
	}
	if expected := entity.DateOf(*inv.ExpectedPaymentDate); expected.After(t) {
		next := expected.AddDate(0, 0, -1)
		return &next
	}
	if inv.PaymentPromiseDate == nil && CalculateDaysToDue(inv.DueDate, t) < 0 {
		return &t
	}
	if inv.PaymentPromiseDate != nil {
		next := entity.DateOf(*inv.PaymentPromiseDate).AddDate(0, 0, 1)
		return &next
	}
	return nil
}
