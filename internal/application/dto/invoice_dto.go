package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// CreateInvoiceRequest body para POST /api/v1/invoices.
// El monto y el estado inicial los valida el dominio para devolver códigos estables.
type CreateInvoiceRequest struct {
	CustomerCompanyID   string               `json:"customer_company_id" validate:"required"`
	Number              string               `json:"number" validate:"required,max=50"`
	Description         string               `json:"description,omitempty" validate:"max=2000"`
	IssueDate           string               `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DueDate             string               `json:"due_date" validate:"required,datetime=2006-01-02"`
	Amount              decimal.Decimal      `json:"amount"`
	Currency            string               `json:"currency" validate:"required,len=3"`
	Status              string               `json:"status,omitempty" validate:"max=20"`
	ExpectedPaymentDate *string              `json:"expected_payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Installments        []InstallmentRequest `json:"installments,omitempty" validate:"omitempty,max=120,dive"`
	OpenCase            bool                 `json:"open_case"`
	PrimaryContactID    string               `json:"primary_contact_id,omitempty"`
}

// InstallmentRequest cuota del plan de pagos; la secuencia es el orden en la lista.
type InstallmentRequest struct {
	DueDate string          `json:"due_date" validate:"required,datetime=2006-01-02"`
	Amount  decimal.Decimal `json:"amount"`
}

// ListInvoicesRequest query de GET /api/v1/invoices.
type ListInvoicesRequest struct {
	PageRequest
	CustomerCompanyID string `query:"customer_company_id"`
	Status            string `query:"status"` // lista separada por comas
}

// RecordPaymentRequest body para POST /api/v1/invoices/:id/payments.
type RecordPaymentRequest struct {
	InstallmentID string          `json:"installment_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty" validate:"omitempty,len=3"` // vacío = moneda de la factura
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	Method        string          `json:"method,omitempty" validate:"max=50"`
	Reference     string          `json:"reference,omitempty" validate:"max=100"`
	Status        string          `json:"status,omitempty" validate:"omitempty,oneof=PENDING COMPLETED"`
}

// UpdatePaymentStatusRequest body para PATCH /api/v1/payments/:id/status.
type UpdatePaymentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=COMPLETED FAILED CANCELLED REFUNDED"`
}

// SetExpectedPaymentDateRequest fecha esperada de pago; null la limpia.
type SetExpectedPaymentDateRequest struct {
	Date *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// RegisterPaymentPromiseRequest promesa de pago del deudor.
type RegisterPaymentPromiseRequest struct {
	PromiseDate string `json:"promise_date" validate:"required,datetime=2006-01-02"`
	Note        string `json:"note,omitempty" validate:"max=2000"`
}

// InvoiceDetailResponse factura con cuotas, pagos y seguimiento derivado.
type InvoiceDetailResponse struct {
	Invoice      *entity.Invoice        `json:"invoice"`
	Installments []*entity.Installment  `json:"installments"`
	Payments     []*entity.Payment      `json:"payments"`
	Tracking     InvoiceTrackingDTO     `json:"tracking"`
	Case         *entity.CollectionCase `json:"collection_case,omitempty"`
}

// InvoiceTrackingDTO clasificación de seguimiento calculada a la fecha.
type InvoiceTrackingDTO struct {
	Status       string     `json:"status"`
	DaysToDue    int        `json:"days_to_due"`
	DaysOverdue  int        `json:"days_overdue"`
	NextActionAt *time.Time `json:"next_action_at,omitempty"`
	Today        string     `json:"today"`
}
