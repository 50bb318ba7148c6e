package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emiliofantozzi/cobra/internal/domain"
)

// PaymentStatus estado de un pago. Solo COMPLETED reduce el saldo.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// IsValid indica si el estado es conocido.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// paymentTransitions transiciones permitidas de estado de pago.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusCompleted: {PaymentStatusRefunded},
}

// Payment pago recibido sobre una factura (opcionalmente imputado a una cuota).
type Payment struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	InvoiceID      string          `json:"invoice_id"`
	InstallmentID  string          `json:"installment_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PaidAt         time.Time       `json:"paid_at"`
	Method         string          `json:"method,omitempty"`
	Reference      string          `json:"reference,omitempty"`
	Status         PaymentStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// PaymentDraft datos de registro de un pago.
type PaymentDraft struct {
	ID             string
	OrganizationID string
	InvoiceID      string
	InstallmentID  string
	Amount         decimal.Decimal
	Currency       string
	PaidAt         time.Time
	Method         string
	Reference      string
	Status         PaymentStatus // vacío = COMPLETED
}

// NewPayment valida el borrador y construye el pago.
func NewPayment(d PaymentDraft, now time.Time) (*Payment, error) {
	if !d.Amount.IsPositive() {
		return nil, domain.Invalid(domain.ErrPaymentInvalidAmount, "monto %s", d.Amount.String())
	}
	cur, err := NormalizeCurrency(d.Currency)
	if err != nil {
		return nil, err
	}
	status := d.Status
	if status == "" {
		status = PaymentStatusCompleted
	}
	if !status.IsValid() {
		return nil, domain.Invalid(domain.ErrPaymentInvalidStatus, "%q", status)
	}
	paidAt := d.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}
	return &Payment{
		ID:             d.ID,
		OrganizationID: d.OrganizationID,
		InvoiceID:      d.InvoiceID,
		InstallmentID:  d.InstallmentID,
		Amount:         d.Amount.Round(2),
		Currency:       cur,
		PaidAt:         paidAt,
		Method:         strings.TrimSpace(d.Method),
		Reference:      strings.TrimSpace(d.Reference),
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsCompleted indica si el pago cuenta para el saldo.
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

// SetStatus aplica una transición de estado del pago.
func (p *Payment) SetStatus(to PaymentStatus, now time.Time) error {
	if !to.IsValid() {
		return domain.Invalid(domain.ErrPaymentInvalidStatus, "%q", to)
	}
	if p.Status == to {
		return nil
	}
	for _, allowed := range paymentTransitions[p.Status] {
		if allowed == to {
			p.Status = to
			p.UpdatedAt = now
			return nil
		}
	}
	return domain.Invalid(domain.ErrPaymentInvalidTransition, "%s -> %s", p.Status, to)
}
