package repository

import (
	"context"

	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// InvoiceFilter filtros de listado de facturas.
type InvoiceFilter struct {
	CustomerCompanyID string
	Statuses          []entity.InvoiceStatus // vacío = todos
	Limit             int
	Offset            int
}

// InvoiceRepository define el puerto de persistencia para facturas.
type InvoiceRepository interface {
	// Create devuelve domain.ErrDuplicate si el número ya existe en la organización.
	Create(ctx context.Context, rc RepositoryContext, invoice *entity.Invoice) error
	GetByID(ctx context.Context, rc RepositoryContext, id string) (*entity.Invoice, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT ... FOR UPDATE).
	GetForUpdate(ctx context.Context, rc RepositoryContext, id string) (*entity.Invoice, error)
	Update(ctx context.Context, rc RepositoryContext, invoice *entity.Invoice) error
	List(ctx context.Context, rc RepositoryContext, f InvoiceFilter) ([]*entity.Invoice, error)
}

// InstallmentRepository define el puerto de persistencia para cuotas.
type InstallmentRepository interface {
	Create(ctx context.Context, rc RepositoryContext, installment *entity.Installment) error
	GetByID(ctx context.Context, rc RepositoryContext, id string) (*entity.Installment, error)
	Update(ctx context.Context, rc RepositoryContext, installment *entity.Installment) error
	// ListByInvoice ordenadas por secuencia.
	ListByInvoice(ctx context.Context, rc RepositoryContext, invoiceID string) ([]*entity.Installment, error)
}

// PaymentRepository define el puerto de persistencia para pagos.
type PaymentRepository interface {
	Create(ctx context.Context, rc RepositoryContext, payment *entity.Payment) error
	GetByID(ctx context.Context, rc RepositoryContext, id string) (*entity.Payment, error)
	Update(ctx context.Context, rc RepositoryContext, payment *entity.Payment) error
	// ListByInvoice ordenados por fecha de pago.
	ListByInvoice(ctx context.Context, rc RepositoryContext, invoiceID string) ([]*entity.Payment, error)
}
