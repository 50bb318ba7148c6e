package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emiliofantozzi/cobra/internal/application/collections"
)

var _ collections.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos collections.Repositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewRepositories arma el conjunto de repositorios sobre q (pool para lecturas, tx dentro de Run).
func NewRepositories(q Querier) collections.Repositories {
	return collections.Repositories{
		Organizations:  NewOrganizationRepository(q),
		Companies:      NewCustomerCompanyRepository(q),
		Contacts:       NewContactRepository(q),
		Invoices:       NewInvoiceRepository(q),
		Installments:   NewInstallmentRepository(q),
		Payments:       NewPaymentRepository(q),
		Cases:          NewCollectionCaseRepository(q),
		Communications: NewCommunicationAttemptRepository(q),
		AgentRuns:      NewAgentRunRepository(q),
		AgentActions:   NewAgentActionLogRepository(q),
		AgentConfigs:   NewAgentConfigRepository(q),
	}
}
