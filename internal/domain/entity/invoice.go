package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/emiliofantozzi/cobra/internal/domain"
)

// InvoiceStatus estado financiero de una factura.
// PARTIALLY_PAID, PAID y OVERDUE siempre son derivados; CANCELLED es una acción explícita.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusPending       InvoiceStatus = "PENDING"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

// IsValid indica si el estado es conocido.
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// IsSettled indica si la factura ya no requiere gestión de cobro.
func (s InvoiceStatus) IsSettled() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// IsDerived indica si el estado solo puede obtenerse por cálculo.
func (s InvoiceStatus) IsDerived() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusOverdue || s == InvoiceStatusPartiallyPaid
}

// Invoice factura por cobrar de una empresa cliente.
type Invoice struct {
	ID                  string          `json:"id"`
	OrganizationID      string          `json:"organization_id"`
	CustomerCompanyID   string          `json:"customer_company_id"`
	Number              string          `json:"number"`
	Description         string          `json:"description,omitempty"`
	IssueDate           time.Time       `json:"issue_date"`
	DueDate             time.Time       `json:"due_date"`
	Amount              decimal.Decimal `json:"amount"`
	OutstandingAmount   decimal.Decimal `json:"outstanding_amount"`
	Currency            string          `json:"currency"`
	Status              InvoiceStatus   `json:"status"`
	ExpectedPaymentDate *time.Time      `json:"expected_payment_date,omitempty"`
	PaymentPromiseDate  *time.Time      `json:"payment_promise_date,omitempty"`
	PaidAt              *time.Time      `json:"paid_at,omitempty"`
	CancelledAt         *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// InvoiceDraft datos de creación de una factura.
type InvoiceDraft struct {
	ID                  string
	OrganizationID      string
	CustomerCompanyID   string
	Number              string
	Description         string
	IssueDate           time.Time
	DueDate             time.Time
	Amount              decimal.Decimal
	Currency            string
	Status              InvoiceStatus // vacío = PENDING
	ExpectedPaymentDate *time.Time
}

// NewInvoice valida el borrador y crea la factura (createInvoice).
func NewInvoice(d InvoiceDraft, now time.Time) (*Invoice, error) {
	if strings.TrimSpace(d.CustomerCompanyID) == "" {
		return nil, domain.ErrInvoiceMissingCompany
	}
	number := strings.TrimSpace(d.Number)
	if number == "" {
		return nil, domain.ErrInvoiceMissingNumber
	}
	if !d.Amount.IsPositive() {
		return nil, domain.Invalid(domain.ErrInvoiceInvalidAmount, "monto %s", d.Amount.String())
	}
	issue, due := DateOf(d.IssueDate), DateOf(d.DueDate)
	if due.Before(issue) {
		return nil, domain.Invalid(domain.ErrInvoiceInvalidDates, "vence %s, emitida %s",
			due.Format("2006-01-02"), issue.Format("2006-01-02"))
	}
	cur, err := NormalizeCurrency(d.Currency)
	if err != nil {
		return nil, err
	}
	status := d.Status
	if status == "" {
		status = InvoiceStatusPending
	}
	if !status.IsValid() || status.IsDerived() {
		return nil, domain.Invalid(domain.ErrInvoiceInvalidInitialStatus, "%q", status)
	}
	inv := &Invoice{
		ID:                  d.ID,
		OrganizationID:      d.OrganizationID,
		CustomerCompanyID:   d.CustomerCompanyID,
		Number:              number,
		Description:         d.Description,
		IssueDate:           issue,
		DueDate:             due,
		Amount:              d.Amount.Round(2),
		OutstandingAmount:   d.Amount.Round(2),
		Currency:            cur,
		Status:              status,
		ExpectedPaymentDate: DatePtr(d.ExpectedPaymentDate),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if status == InvoiceStatusCancelled {
		t := now
		inv.CancelledAt = &t
	}
	return inv, nil
}

// NormalizeCurrency valida un código ISO 4217 y lo devuelve en mayúsculas.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", domain.Invalid(domain.ErrInvoiceInvalidCurrency, "%q", code)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", domain.Invalid(domain.ErrInvoiceInvalidCurrency, "%q", code)
	}
	return unit.String(), nil
}
