package postgres

import (
	"context"
	"fmt"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

var (
	_ repository.InvoiceRepository     = (*InvoiceRepo)(nil)
	_ repository.InstallmentRepository = (*InstallmentRepo)(nil)
	_ repository.PaymentRepository     = (*PaymentRepo)(nil)
)

// InvoiceRepo implementación del puerto InvoiceRepository sobre PostgreSQL.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador de persistencia para facturas.
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, organization_id, customer_company_id, number, description, issue_date, due_date,
	amount, outstanding_amount, currency, status, expected_payment_date, payment_promise_date,
	paid_at, cancelled_at, created_at, updated_at`

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := row.Scan(
		&inv.ID, &inv.OrganizationID, &inv.CustomerCompanyID, &inv.Number, &inv.Description, &inv.IssueDate, &inv.DueDate,
		&inv.Amount, &inv.OutstandingAmount, &inv.Currency, &inv.Status, &inv.ExpectedPaymentDate, &inv.PaymentPromiseDate,
		&inv.PaidAt, &inv.CancelledAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserta la factura. El número es único por organización.
func (r *InvoiceRepo) Create(ctx context.Context, rc repository.RepositoryContext, inv *entity.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, rc.OrganizationID, inv.CustomerCompanyID, inv.Number, inv.Description, inv.IssueDate, inv.DueDate,
		inv.Amount, inv.OutstandingAmount, inv.Currency, inv.Status, inv.ExpectedPaymentDate, inv.PaymentPromiseDate,
		inv.PaidAt, inv.CancelledAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID obtiene una factura de la organización.
func (r *InvoiceRepo) GetByID(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.Invoice, error) {
	return r.get(ctx, rc, id, "")
}

// GetForUpdate igual que GetByID pero bloquea la fila hasta el fin de la transacción.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.Invoice, error) {
	return r.get(ctx, rc, id, " FOR UPDATE")
}

func (r *InvoiceRepo) get(ctx context.Context, rc repository.RepositoryContext, id, lock string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND organization_id = $2` + lock
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, id, rc.OrganizationID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// Update persiste estado, saldo y fechas de seguimiento de la factura.
func (r *InvoiceRepo) Update(ctx context.Context, rc repository.RepositoryContext, inv *entity.Invoice) error {
	query := `
		UPDATE invoices SET description = $3, issue_date = $4, due_date = $5, amount = $6, outstanding_amount = $7,
			currency = $8, status = $9, expected_payment_date = $10, payment_promise_date = $11,
			paid_at = $12, cancelled_at = $13, updated_at = $14
		WHERE id = $1 AND organization_id = $2`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, rc.OrganizationID, inv.Description, inv.IssueDate, inv.DueDate, inv.Amount, inv.OutstandingAmount,
		inv.Currency, inv.Status, inv.ExpectedPaymentDate, inv.PaymentPromiseDate,
		inv.PaidAt, inv.CancelledAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return affected(tag)
}

// List facturas por vencimiento, filtradas por empresa y estados.
func (r *InvoiceRepo) List(ctx context.Context, rc repository.RepositoryContext, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + ` FROM invoices
		WHERE organization_id = $1
		  AND ($2 = '' OR customer_company_id::text = $2)
		  AND (cardinality($3::text[]) = 0 OR status = ANY($3))
		ORDER BY due_date, number
		LIMIT NULLIF($4, 0) OFFSET $5`
	rows, err := r.q.Query(ctx, query, rc.OrganizationID, f.CustomerCompanyID, textSlice(f.Statuses), f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	out := []*entity.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// InstallmentRepo implementación del puerto InstallmentRepository sobre PostgreSQL.
type InstallmentRepo struct {
	q Querier
}

// NewInstallmentRepository construye el adaptador de persistencia para cuotas.
func NewInstallmentRepository(q Querier) *InstallmentRepo {
	return &InstallmentRepo{q: q}
}

const installmentColumns = `id, organization_id, invoice_id, sequence, due_date, amount, status, paid_amount,
	paid_at, created_at, updated_at`

func scanInstallment(row rowScanner) (*entity.Installment, error) {
	var i entity.Installment
	err := row.Scan(
		&i.ID, &i.OrganizationID, &i.InvoiceID, &i.Sequence, &i.DueDate, &i.Amount, &i.Status, &i.PaidAmount,
		&i.PaidAt, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create inserta una cuota. La secuencia es única por factura.
func (r *InstallmentRepo) Create(ctx context.Context, rc repository.RepositoryContext, i *entity.Installment) error {
	query := `
		INSERT INTO installments (` + installmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		i.ID, rc.OrganizationID, i.InvoiceID, i.Sequence, i.DueDate, i.Amount, i.Status, i.PaidAmount,
		i.PaidAt, i.CreatedAt, i.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert installment: %w", err)
	}
	return nil
}

// GetByID obtiene una cuota de la organización.
func (r *InstallmentRepo) GetByID(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE id = $1 AND organization_id = $2`
	i, err := scanInstallment(r.q.QueryRow(ctx, query, id, rc.OrganizationID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get installment: %w", err)
	}
	return i, nil
}

// Update persiste estado y monto pagado de la cuota.
func (r *InstallmentRepo) Update(ctx context.Context, rc repository.RepositoryContext, i *entity.Installment) error {
	query := `
		UPDATE installments SET due_date = $3, amount = $4, status = $5, paid_amount = $6, paid_at = $7, updated_at = $8
		WHERE id = $1 AND organization_id = $2`
	tag, err := r.q.Exec(ctx, query,
		i.ID, rc.OrganizationID, i.DueDate, i.Amount, i.Status, i.PaidAmount, i.PaidAt, i.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update installment: %w", err)
	}
	return affected(tag)
}

// ListByInvoice cuotas de la factura por secuencia.
func (r *InstallmentRepo) ListByInvoice(ctx context.Context, rc repository.RepositoryContext, invoiceID string) ([]*entity.Installment, error) {
	query := `
		SELECT ` + installmentColumns + ` FROM installments
		WHERE organization_id = $1 AND invoice_id = $2
		ORDER BY sequence`
	rows, err := r.q.Query(ctx, query, rc.OrganizationID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()
	out := []*entity.Installment{}
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// PaymentRepo implementación del puerto PaymentRepository sobre PostgreSQL.
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construye el adaptador de persistencia para pagos.
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

const paymentColumns = `id, organization_id, invoice_id, installment_id, amount, currency, paid_at, method,
	reference, status, created_at, updated_at`

func scanPayment(row rowScanner) (*entity.Payment, error) {
	var (
		p           entity.Payment
		installment *string
	)
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.InvoiceID, &installment, &p.Amount, &p.Currency, &p.PaidAt, &p.Method,
		&p.Reference, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.InstallmentID = deref(installment)
	return &p, nil
}

// Create registra un pago.
func (r *PaymentRepo) Create(ctx context.Context, rc repository.RepositoryContext, p *entity.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		p.ID, rc.OrganizationID, p.InvoiceID, nullable(p.InstallmentID), p.Amount, p.Currency, p.PaidAt, p.Method,
		p.Reference, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID obtiene un pago de la organización.
func (r *PaymentRepo) GetByID(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND organization_id = $2`
	p, err := scanPayment(r.q.QueryRow(ctx, query, id, rc.OrganizationID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// Update persiste el estado del pago.
func (r *PaymentRepo) Update(ctx context.Context, rc repository.RepositoryContext, p *entity.Payment) error {
	query := `
		UPDATE payments SET status = $3, method = $4, reference = $5, updated_at = $6
		WHERE id = $1 AND organization_id = $2`
	tag, err := r.q.Exec(ctx, query, p.ID, rc.OrganizationID, p.Status, p.Method, p.Reference, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return affected(tag)
}

// ListByInvoice pagos de la factura por fecha de pago.
func (r *PaymentRepo) ListByInvoice(ctx context.Context, rc repository.RepositoryContext, invoiceID string) ([]*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE organization_id = $1 AND invoice_id = $2
		ORDER BY paid_at, created_at`
	rows, err := r.q.Query(ctx, query, rc.OrganizationID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	out := []*entity.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
