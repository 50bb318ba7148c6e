package collections_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/collections"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testInvoice(amount string, issue, due time.Time) entity.Invoice {
	return entity.Invoice{
		ID:                "inv-1",
		OrganizationID:    "org-1",
		CustomerCompanyID: "cc-1",
		Number:            "F-001",
		IssueDate:         issue,
		DueDate:           due,
		Amount:            dec(amount),
		OutstandingAmount: dec(amount),
		Currency:          "USD",
		Status:            entity.InvoiceStatusPending,
	}
}

func payment(amount string, status entity.PaymentStatus) entity.Payment {
	return entity.Payment{
		ID:        "pay-" + amount + string(status),
		InvoiceID: "inv-1",
		Amount:    dec(amount),
		Currency:  "USD",
		PaidAt:    date(2024, 1, 10),
		Status:    status,
	}
}

func TestCalculateOutstandingAmount_SoloPagosCompletados(t *testing.T) {
	payments := []entity.Payment{
		payment("100.10", entity.PaymentStatusCompleted),
		payment("50", entity.PaymentStatusPending),
		payment("25", entity.PaymentStatusFailed),
		payment("10", entity.PaymentStatusRefunded),
		payment("5", entity.PaymentStatusCancelled),
	}
	got := collections.CalculateOutstandingAmount(dec("1000"), payments)
	assert.True(t, dec("899.90").Equal(got), "saldo esperado 899.90, obtenido %s", got)
}

func TestCalculateOutstandingAmount_RedondeaADosDecimales(t *testing.T) {
	got := collections.CalculateOutstandingAmount(dec("100.005"), nil)
	assert.Equal(t, "100.01", got.StringFixed(2))
	assert.Equal(t, int32(-2), got.Exponent())
}

func TestCalculateOutstandingAmount_Monotonico(t *testing.T) {
	amount := dec("1000")
	var payments []entity.Payment
	prev := collections.CalculateOutstandingAmount(amount, payments)

	for _, p := range []string{"100", "250.50", "0.01", "700"} {
		payments = append(payments, payment(p, entity.PaymentStatusCompleted))
		next := collections.CalculateOutstandingAmount(amount, payments)
		assert.True(t, next.LessThanOrEqual(prev), "agregar un pago COMPLETED nunca aumenta el saldo")
		prev = next
	}

	for _, st := range []entity.PaymentStatus{entity.PaymentStatusPending, entity.PaymentStatusFailed,
		entity.PaymentStatusCancelled, entity.PaymentStatusRefunded} {
		payments = append(payments, payment("300", st))
		next := collections.CalculateOutstandingAmount(amount, payments)
		assert.True(t, next.Equal(prev), "pagos %s no alteran el saldo", st)
	}
}

// Escenario A: factura 1000 con un pago completo de 1000 => PAID, saldo 0.
func TestDetermineInvoiceStatus_EscenarioA_Pagada(t *testing.T) {
	today := date(2024, 1, 15)
	inv := testInvoice("1000", date(2024, 1, 1), date(2024, 1, 31))
	payments := []entity.Payment{payment("1000", entity.PaymentStatusCompleted)}

	status := collections.DetermineInvoiceStatus(collections.InvoiceSnapshot{Invoice: inv, Payments: payments, Today: today})
	assert.Equal(t, entity.InvoiceStatusPaid, status)
	assert.True(t, collections.CalculateOutstandingAmount(inv.Amount, payments).IsZero())
}

// Escenario B: factura 1000 vencida ayer con pago de 400 => OVERDUE, saldo 600.
func TestDetermineInvoiceStatus_EscenarioB_VencidaConAbono(t *testing.T) {
	today := date(2024, 1, 15)
	inv := testInvoice("1000", date(2024, 1, 1), today.AddDate(0, 0, -1))
	payments := []entity.Payment{payment("400", entity.PaymentStatusCompleted)}

	status := collections.DetermineInvoiceStatus(collections.InvoiceSnapshot{Invoice: inv, Payments: payments, Today: today})
	assert.Equal(t, entity.InvoiceStatusOverdue, status)
	assert.True(t, dec("600").Equal(collections.CalculateOutstandingAmount(inv.Amount, payments)))
}

func TestDetermineInvoiceStatus_Cascada(t *testing.T) {
	today := date(2024, 1, 15)
	future := date(2024, 2, 15)
	past := date(2024, 1, 10)

	tests := []struct {
		name     string
		status   entity.InvoiceStatus
		due      time.Time
		payments []entity.Payment
		want     entity.InvoiceStatus
	}{
		{"cancelada es pegajosa aunque esté pagada", entity.InvoiceStatusCancelled, future,
			[]entity.Payment{payment("1000", entity.PaymentStatusCompleted)}, entity.InvoiceStatusCancelled},
		{"sobrepago es PAID", entity.InvoiceStatusPending, future,
			[]entity.Payment{payment("1200", entity.PaymentStatusCompleted)}, entity.InvoiceStatusPaid},
		{"abono sin vencer es PARTIALLY_PAID", entity.InvoiceStatusPending, future,
			[]entity.Payment{payment("10", entity.PaymentStatusCompleted)}, entity.InvoiceStatusPartiallyPaid},
		{"sin pagos y vencida es OVERDUE", entity.InvoiceStatusPending, past, nil, entity.InvoiceStatusOverdue},
		{"sin pagos al día es PENDING", entity.InvoiceStatusPending, future, nil, entity.InvoiceStatusPending},
		{"vence hoy no está vencida", entity.InvoiceStatusPending, today, nil, entity.InvoiceStatusPending},
		{"pago pendiente no cuenta", entity.InvoiceStatusPending, future,
			[]entity.Payment{payment("1000", entity.PaymentStatusPending)}, entity.InvoiceStatusPending},
		{"estado OVERDUE previo se recalcula", entity.InvoiceStatusOverdue, future, nil, entity.InvoiceStatusPending},
		{"borrador sin pagos sigue en DRAFT", entity.InvoiceStatusDraft, past, nil, entity.InvoiceStatusDraft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := testInvoice("1000", date(2024, 1, 1), tt.due)
			inv.Status = tt.status
			got := collections.DetermineInvoiceStatus(collections.InvoiceSnapshot{Invoice: inv, Payments: tt.payments, Today: today})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetermineInvoiceStatus_CuotaVencidaNoVenceLaFactura(t *testing.T) {
	today := date(2024, 1, 15)
	inv := testInvoice("1000", date(2024, 1, 1), date(2024, 3, 1))
	installments := []entity.Installment{
		{ID: "i1", InvoiceID: inv.ID, Sequence: 1, DueDate: date(2024, 1, 10), Amount: dec("500"), PaidAmount: decimal.Zero, Status: entity.InstallmentStatusPending},
		{ID: "i2", InvoiceID: inv.ID, Sequence: 2, DueDate: date(2024, 3, 1), Amount: dec("500"), PaidAmount: decimal.Zero, Status: entity.InstallmentStatusPending},
	}
	got := collections.DetermineInvoiceStatus(collections.InvoiceSnapshot{Invoice: inv, Installments: installments, Today: today})
	assert.Equal(t, entity.InvoiceStatusPending, got, "solo cuenta el vencimiento de la factura")
	assert.Equal(t, entity.InstallmentStatusOverdue, collections.DeriveInstallmentStatus(installments[0], today))

	got = collections.DetermineInvoiceStatus(collections.InvoiceSnapshot{Invoice: inv, Installments: installments, Today: date(2024, 3, 2)})
	assert.Equal(t, entity.InvoiceStatusOverdue, got)
}

func TestDetermineInvoiceStatus_Idempotente(t *testing.T) {
	snap := collections.InvoiceSnapshot{
		Invoice:  testInvoice("1000", date(2024, 1, 1), date(2024, 1, 20)),
		Payments: []entity.Payment{payment("300", entity.PaymentStatusCompleted)},
		Today:    date(2024, 1, 25),
	}
	first := collections.DetermineInvoiceStatus(snap)
	second := collections.DetermineInvoiceStatus(snap)
	assert.Equal(t, first, second)

	inv := snap.Invoice
	collections.ApplyDerivedInvoiceState(&inv, nil, snap.Payments, snap.Today)
	changed := collections.ApplyDerivedInvoiceState(&inv, nil, snap.Payments, snap.Today)
	assert.False(t, changed, "recalcular dos veces no produce cambios")
}

func TestDeriveInstallmentStatus(t *testing.T) {
	today := date(2024, 1, 15)
	base := entity.Installment{ID: "i1", Sequence: 1, Amount: dec("100"), PaidAmount: decimal.Zero, Status: entity.InstallmentStatusPending}

	tests := []struct {
		name string
		mut  func(i *entity.Installment)
		want entity.InstallmentStatus
	}{
		{"cancelada pegajosa", func(i *entity.Installment) { i.Status = entity.InstallmentStatusCancelled; i.PaidAmount = dec("100") }, entity.InstallmentStatusCancelled},
		{"pagada completa", func(i *entity.Installment) { i.PaidAmount = dec("100"); i.DueDate = date(2024, 1, 1) }, entity.InstallmentStatusPaid},
		{"vencida", func(i *entity.Installment) { i.DueDate = date(2024, 1, 14) }, entity.InstallmentStatusOverdue},
		{"vence hoy", func(i *entity.Installment) { i.DueDate = today }, entity.InstallmentStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := base
			tt.mut(&inst)
			assert.Equal(t, tt.want, collections.DeriveInstallmentStatus(inst, today))
		})
	}
}

func TestApplyPaymentToInstallment(t *testing.T) {
	today := date(2024, 1, 15)
	inst := entity.Installment{ID: "i1", InvoiceID: "inv-1", Sequence: 1, DueDate: date(2024, 2, 1), Amount: dec("100"), PaidAmount: decimal.Zero, Status: entity.InstallmentStatusPending}

	p := payment("60", entity.PaymentStatusCompleted)
	p.InstallmentID = "i1"
	got, err := collections.ApplyPaymentToInstallment(inst, p, today)
	require.NoError(t, err)
	assert.True(t, dec("60").Equal(got.PaidAmount))
	assert.Equal(t, entity.InstallmentStatusPending, got.Status)
	assert.Nil(t, got.PaidAt)

	got, err = collections.ApplyPaymentToInstallment(got, p, today)
	require.NoError(t, err)
	assert.Equal(t, entity.InstallmentStatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)

	reversed := collections.ReverseInstallmentPayment(got, p, today)
	assert.Equal(t, entity.InstallmentStatusPending, reversed.Status)
	assert.Nil(t, reversed.PaidAt)

	other := p
	other.InstallmentID = "i2"
	_, err = collections.ApplyPaymentToInstallment(inst, other, today)
	assert.ErrorIs(t, err, domain.ErrInstallmentMismatch)
}

func TestCancelInvoice(t *testing.T) {
	now := date(2024, 1, 15)
	inv := testInvoice("1000", date(2024, 1, 1), date(2024, 1, 31))

	cancelled, err := collections.CancelInvoice(inv, now)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	inv.Status = entity.InvoiceStatusPaid
	_, err = collections.CancelInvoice(inv, now)
	assert.ErrorIs(t, err, domain.ErrInvoiceInvalidTransition)
	assert.True(t, domain.IsInvalidTransition(err))
}
