package repository

import (
	"context"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// CollectionCaseRepository define el puerto de persistencia para casos de cobranza.
type CollectionCaseRepository interface {
	Create(ctx context.Context, rc RepositoryContext, c *entity.CollectionCase) error
	GetByID(ctx context.Context, rc RepositoryContext, id string) (*entity.CollectionCase, error)
	Update(ctx context.Context, rc RepositoryContext, c *entity.CollectionCase) error
	// GetOpenByInvoice devuelve el caso no cerrado de la factura, o (nil, nil).
	GetOpenByInvoice(ctx context.Context, rc RepositoryContext, invoiceID string) (*entity.CollectionCase, error)
	// ListDueForAction casos ACTIVE con next_action_at <= before, los más atrasados primero.
	ListDueForAction(ctx context.Context, rc RepositoryContext, before time.Time, limit int) ([]*entity.CollectionCase, error)
	// ListOpen casos no cerrados (ACTIVE o PAUSED).
	ListOpen(ctx context.Context, rc RepositoryContext) ([]*entity.CollectionCase, error)
}

// CommunicationAttemptRepository define el puerto de persistencia para intentos de comunicación.
type CommunicationAttemptRepository interface {
	Create(ctx context.Context, rc RepositoryContext, a *entity.CommunicationAttempt) error
	GetByID(ctx context.Context, rc RepositoryContext, id string) (*entity.CommunicationAttempt, error)
	// GetForUpdate como GetByID, bloqueando la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, rc RepositoryContext, id string) (*entity.CommunicationAttempt, error)
	Update(ctx context.Context, rc RepositoryContext, a *entity.CommunicationAttempt) error
	// GetByExternalID intento saliente con ese id del proveedor, o (nil, nil).
	GetByExternalID(ctx context.Context, rc RepositoryContext, externalID string) (*entity.CommunicationAttempt, error)
	// ListByCase ordenados por fecha de creación.
	ListByCase(ctx context.Context, rc RepositoryContext, caseID string) ([]*entity.CommunicationAttempt, error)
	// ListStale intentos DRAFT/PENDING sin cambios desde olderThan.
	ListStale(ctx context.Context, rc RepositoryContext, olderThan time.Time) ([]*entity.CommunicationAttempt, error)
}
