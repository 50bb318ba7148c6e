package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

var now = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func validInvoiceDraft() entity.InvoiceDraft {
	return entity.InvoiceDraft{
		ID:                "inv-1",
		OrganizationID:    "org-1",
		CustomerCompanyID: "cc-1",
		Number:            " F-001 ",
		IssueDate:         time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC),
		DueDate:           time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC),
		Amount:            decimal.RequireFromString("1000.456"),
		Currency:          "usd",
	}
}

func TestNewInvoice_Valida(t *testing.T) {
	inv, err := entity.NewInvoice(validInvoiceDraft(), now)
	require.NoError(t, err)
	assert.Equal(t, "F-001", inv.Number)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, entity.InvoiceStatusPending, inv.Status)
	assert.Equal(t, "1000.46", inv.Amount.StringFixed(2))
	assert.True(t, inv.OutstandingAmount.Equal(inv.Amount), "el saldo inicial es el monto")
	assert.Equal(t, 0, inv.DueDate.Hour(), "las fechas se normalizan a fecha calendario")
}

func TestNewInvoice_MontoNegativo(t *testing.T) {
	d := validInvoiceDraft()
	d.Amount = decimal.NewFromInt(-1)
	_, err := entity.NewInvoice(d, now)
	require.Error(t, err)
	assert.Equal(t, "invoice.invalid_amount", domain.CodeOf(err))
	assert.True(t, domain.IsValidation(err))
}

func TestNewInvoice_FechasInvertidas(t *testing.T) {
	d := validInvoiceDraft()
	d.IssueDate, d.DueDate = d.DueDate, d.IssueDate
	_, err := entity.NewInvoice(d, now)
	require.Error(t, err)
	assert.Equal(t, "invoice.invalid_dates", domain.CodeOf(err))
}

func TestNewInvoice_VenceElMismoDia(t *testing.T) {
	d := validInvoiceDraft()
	d.IssueDate = time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	d.DueDate = time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	_, err := entity.NewInvoice(d, now)
	assert.NoError(t, err, "se comparan fechas calendario, no instantes")
}

func TestNewInvoice_Rechazos(t *testing.T) {
	tests := []struct {
		name string
		mut  func(d *entity.InvoiceDraft)
		want error
	}{
		{"sin empresa", func(d *entity.InvoiceDraft) { d.CustomerCompanyID = "" }, domain.ErrInvoiceMissingCompany},
		{"sin número", func(d *entity.InvoiceDraft) { d.Number = "  " }, domain.ErrInvoiceMissingNumber},
		{"monto cero", func(d *entity.InvoiceDraft) { d.Amount = decimal.Zero }, domain.ErrInvoiceInvalidAmount},
		{"moneda inválida", func(d *entity.InvoiceDraft) { d.Currency = "PESOS" }, domain.ErrInvoiceInvalidCurrency},
		{"moneda desconocida", func(d *entity.InvoiceDraft) { d.Currency = "ZZZ" }, domain.ErrInvoiceInvalidCurrency},
		{"estado derivado", func(d *entity.InvoiceDraft) { d.Status = entity.InvoiceStatusPaid }, domain.ErrInvoiceInvalidInitialStatus},
		{"estado vencido", func(d *entity.InvoiceDraft) { d.Status = entity.InvoiceStatusOverdue }, domain.ErrInvoiceInvalidInitialStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validInvoiceDraft()
			tt.mut(&d)
			_, err := entity.NewInvoice(d, now)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewInvoice_BorradorYCancelada(t *testing.T) {
	d := validInvoiceDraft()
	d.Status = entity.InvoiceStatusDraft
	inv, err := entity.NewInvoice(d, now)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusDraft, inv.Status)

	d.Status = entity.InvoiceStatusCancelled
	inv, err = entity.NewInvoice(d, now)
	require.NoError(t, err)
	require.NotNil(t, inv.CancelledAt)
}

func TestNewInstallment(t *testing.T) {
	inst, err := entity.NewInstallment(entity.InstallmentDraft{
		InvoiceID: "inv-1", Sequence: 1, DueDate: now, Amount: decimal.NewFromInt(500),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, entity.InstallmentStatusPending, inst.Status)
	assert.True(t, inst.Remaining().Equal(decimal.NewFromInt(500)))

	_, err = entity.NewInstallment(entity.InstallmentDraft{Sequence: 0, Amount: decimal.NewFromInt(1)}, now)
	assert.ErrorIs(t, err, domain.ErrInstallmentInvalidSequence)

	_, err = entity.NewInstallment(entity.InstallmentDraft{Sequence: 1, Amount: decimal.Zero}, now)
	assert.ErrorIs(t, err, domain.ErrInstallmentInvalidAmount)
}

func TestNewPayment(t *testing.T) {
	p, err := entity.NewPayment(entity.PaymentDraft{InvoiceID: "inv-1", Amount: decimal.NewFromInt(100), Currency: "cop"}, now)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCompleted, p.Status)
	assert.Equal(t, "COP", p.Currency)
	assert.True(t, p.PaidAt.Equal(now))

	_, err = entity.NewPayment(entity.PaymentDraft{Amount: decimal.NewFromInt(-5), Currency: "COP"}, now)
	assert.ErrorIs(t, err, domain.ErrPaymentInvalidAmount)
}

func TestPayment_SetStatus(t *testing.T) {
	p, err := entity.NewPayment(entity.PaymentDraft{Amount: decimal.NewFromInt(100), Currency: "USD", Status: entity.PaymentStatusPending}, now)
	require.NoError(t, err)

	require.NoError(t, p.SetStatus(entity.PaymentStatusCompleted, now))
	require.NoError(t, p.SetStatus(entity.PaymentStatusRefunded, now))
	err = p.SetStatus(entity.PaymentStatusCompleted, now)
	assert.ErrorIs(t, err, domain.ErrPaymentInvalidTransition)
	assert.True(t, domain.IsInvalidTransition(err))
}
