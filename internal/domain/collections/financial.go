// Package collections contiene los servicios de dominio puros del núcleo de cobranza:
// saldo y estado de facturas, máquina de estados de casos, seguimiento de comunicaciones,
// ejecuciones del agente y cálculo de la próxima acción.
// Ninguna función lee el reloj del sistema: "hoy" o "ahora" siempre llegan como parámetro.
package collections

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// InvoiceSnapshot agregado de lectura usado para derivar el estado de una factura.
type InvoiceSnapshot struct {
	Invoice      entity.Invoice
	Installments []entity.Installment
	Payments     []entity.Payment
	Today        time.Time
}

// CalculateOutstandingAmount resta del monto de la factura la suma de los pagos COMPLETED,
// redondeado a 2 decimales. Pagos en otros estados no afectan el saldo.
func CalculateOutstandingAmount(invoiceAmount decimal.Decimal, payments []entity.Payment) decimal.Decimal {
	return invoiceAmount.Sub(CompletedTotal(payments)).Round(2)
}

// CompletedTotal suma de los pagos COMPLETED.
func CompletedTotal(payments []entity.Payment) decimal.Decimal {
	total := decimal.Zero
	for i := range payments {
		if payments[i].IsCompleted() {
			total = total.Add(payments[i].Amount)
		}
	}
	return total
}

// DetermineInvoiceStatus deriva el estado de la factura. Cascada:
// CANCELLED es pegajoso; saldo <= 0 => PAID; con pagos COMPLETED => OVERDUE si venció, si no PARTIALLY_PAID;
// sin pagos => OVERDUE si venció, si no PENDING. "Venció" mira solo el dueDate de la factura: la mora de
// una cuota se ve en el estado de la cuota (DeriveInstallmentStatus), no aquí.
// Rama propia: una factura DRAFT sin pagos sigue en DRAFT hasta emitirse (IssueInvoice), no pasa a PENDING ni a OVERDUE.
// Es una función pura e idempotente.
func DetermineInvoiceStatus(s InvoiceSnapshot) entity.InvoiceStatus {
	inv := s.Invoice
	if inv.Status == entity.InvoiceStatusCancelled {
		return entity.InvoiceStatusCancelled
	}
	outstanding := CalculateOutstandingAmount(inv.Amount, s.Payments)
	if !outstanding.IsPositive() {
		return entity.InvoiceStatusPaid
	}
	pastDue := CalculateDaysToDue(inv.DueDate, s.Today) < 0
	if hasCompletedPayment(s.Payments) {
		if pastDue {
			return entity.InvoiceStatusOverdue
		}
		return entity.InvoiceStatusPartiallyPaid
	}
	if inv.Status == entity.InvoiceStatusDraft {
		return entity.InvoiceStatusDraft
	}
	if pastDue {
		return entity.InvoiceStatusOverdue
	}
	return entity.InvoiceStatusPending
}

func hasCompletedPayment(payments []entity.Payment) bool {
	for i := range payments {
		if payments[i].IsCompleted() {
			return true
		}
	}
	return false
}

// DeriveInstallmentStatus CANCELLED es pegajoso; PAID si lo pagado cubre el monto;
// OVERDUE si la fecha venció; PENDING en otro caso.
func DeriveInstallmentStatus(inst entity.Installment, today time.Time) entity.InstallmentStatus {
	if inst.Status == entity.InstallmentStatusCancelled {
		return entity.InstallmentStatusCancelled
	}
	if inst.PaidAmount.GreaterThanOrEqual(inst.Amount) {
		return entity.InstallmentStatusPaid
	}
	if entity.DateOf(inst.DueDate).Before(entity.DateOf(today)) {
		return entity.InstallmentStatusOverdue
	}
	return entity.InstallmentStatusPending
}

// ApplyPaymentToInstallment suma un pago COMPLETED a lo pagado de la cuota y re-deriva su estado.
// Pagos no completados dejan la cuota intacta.
func ApplyPaymentToInstallment(inst entity.Installment, p entity.Payment, today time.Time) (entity.Installment, error) {
	if p.InstallmentID != inst.ID || p.InvoiceID != inst.InvoiceID {
		return inst, domain.Invalid(domain.ErrInstallmentMismatch, "pago %s, cuota %s", p.ID, inst.ID)
	}
	if !p.IsCompleted() {
		return inst, nil
	}
	inst.PaidAmount = inst.PaidAmount.Add(p.Amount).Round(2)
	inst.Status = DeriveInstallmentStatus(inst, today)
	if inst.Status == entity.InstallmentStatusPaid && inst.PaidAt == nil {
		t := p.PaidAt
		inst.PaidAt = &t
	}
	inst.UpdatedAt = p.UpdatedAt
	return inst, nil
}

// ReverseInstallmentPayment descuenta un pago que dejó de contar (reembolso) de lo pagado en la cuota.
func ReverseInstallmentPayment(inst entity.Installment, p entity.Payment, today time.Time) entity.Installment {
	inst.PaidAmount = inst.PaidAmount.Sub(p.Amount).Round(2)
	if inst.PaidAmount.IsNegative() {
		inst.PaidAmount = decimal.Zero
	}
	if inst.Status != entity.InstallmentStatusCancelled {
		inst.Status = DeriveInstallmentStatus(inst, today)
	}
	if inst.Status != entity.InstallmentStatusPaid {
		inst.PaidAt = nil
	}
	inst.UpdatedAt = p.UpdatedAt
	return inst
}

// ApplyDerivedInvoiceState recalcula saldo y estado y los fija en la factura.
// Devuelve true si algo cambió.
func ApplyDerivedInvoiceState(inv *entity.Invoice, installments []entity.Installment, payments []entity.Payment, now time.Time) bool {
	status := DetermineInvoiceStatus(InvoiceSnapshot{
		Invoice:      *inv,
		Installments: installments,
		Payments:     payments,
		Today:        now,
	})
	outstanding := CalculateOutstandingAmount(inv.Amount, payments)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}
	changed := status != inv.Status || !outstanding.Equal(inv.OutstandingAmount)
	inv.Status = status
	inv.OutstandingAmount = outstanding
	switch {
	case status == entity.InvoiceStatusPaid && inv.PaidAt == nil:
		t := lastCompletedPaymentAt(payments, now)
		inv.PaidAt = &t
		changed = true
	case status != entity.InvoiceStatusPaid && inv.PaidAt != nil:
		inv.PaidAt = nil
		changed = true
	}
	if changed {
		inv.UpdatedAt = now
	}
	return changed
}

func lastCompletedPaymentAt(payments []entity.Payment, fallback time.Time) time.Time {
	var last time.Time
	for i := range payments {
		if payments[i].IsCompleted() && payments[i].PaidAt.After(last) {
			last = payments[i].PaidAt
		}
	}
	if last.IsZero() {
		return fallback
	}
	return last
}

// CancelInvoice cancelación explícita (terminal). Una factura pagada no se cancela.
func CancelInvoice(inv entity.Invoice, now time.Time) (entity.Invoice, error) {
	switch inv.Status {
	case entity.InvoiceStatusCancelled:
		return inv, nil
	case entity.InvoiceStatusPaid:
		return inv, domain.Invalid(domain.ErrInvoiceInvalidTransition, "%s -> %s", inv.Status, entity.InvoiceStatusCancelled)
	}
	t := now
	inv.Status = entity.InvoiceStatusCancelled
	inv.CancelledAt = &t
	inv.UpdatedAt = now
	return inv, nil
}

// IssueInvoice pasa una factura DRAFT a PENDING para que entre al cálculo derivado.
func IssueInvoice(inv entity.Invoice, now time.Time) (entity.Invoice, error) {
	if inv.Status != entity.InvoiceStatusDraft {
		return inv, domain.Invalid(domain.ErrInvoiceInvalidTransition, "%s -> %s", inv.Status, entity.InvoiceStatusPending)
	}
	inv.Status = entity.InvoiceStatusPending
	inv.UpdatedAt = now
	return inv, nil
}
