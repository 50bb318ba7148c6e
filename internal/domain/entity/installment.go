package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/emiliofantozzi/cobra/internal/domain"
)

// InstallmentStatus estado de una cuota; salvo CANCELLED, siempre se deriva.
type InstallmentStatus string

const (
	InstallmentStatusPending   InstallmentStatus = "PENDING"
	InstallmentStatusPaid      InstallmentStatus = "PAID"
	InstallmentStatusOverdue   InstallmentStatus = "OVERDUE"
	InstallmentStatusCancelled InstallmentStatus = "CANCELLED"
)

// Installment cuota de un plan de pagos de una factura.
type Installment struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id"`
	InvoiceID      string            `json:"invoice_id"`
	Sequence       int               `json:"sequence"`
	DueDate        time.Time         `json:"due_date"`
	Amount         decimal.Decimal   `json:"amount"`
	Status         InstallmentStatus `json:"status"`
	PaidAmount     decimal.Decimal   `json:"paid_amount"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// InstallmentDraft datos de creación de una cuota.
type InstallmentDraft struct {
	ID             string
	OrganizationID string
	InvoiceID      string
	Sequence       int
	DueDate        time.Time
	Amount         decimal.Decimal
}

// NewInstallment valida y crea la cuota en PENDING.
func NewInstallment(d InstallmentDraft, now time.Time) (*Installment, error) {
	if d.Sequence < 1 {
		return nil, domain.Invalid(domain.ErrInstallmentInvalidSequence, "%d", d.Sequence)
	}
	if !d.Amount.IsPositive() {
		return nil, domain.Invalid(domain.ErrInstallmentInvalidAmount, "monto %s", d.Amount.String())
	}
	return &Installment{
		ID:             d.ID,
		OrganizationID: d.OrganizationID,
		InvoiceID:      d.InvoiceID,
		Sequence:       d.Sequence,
		DueDate:        DateOf(d.DueDate),
		Amount:         d.Amount.Round(2),
		Status:         InstallmentStatusPending,
		PaidAmount:     decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Remaining saldo pendiente de la cuota (nunca negativo).
func (i *Installment) Remaining() decimal.Decimal {
	r := i.Amount.Sub(i.PaidAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}
