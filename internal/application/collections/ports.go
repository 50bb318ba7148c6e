package collections

import (
	"context"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

// Repositories repositorios que ve un caso de uso. Dentro de TxRunner.Run están atados a la transacción.
type Repositories struct {
	Organizations  repository.OrganizationRepository
	Companies      repository.CustomerCompanyRepository
	Contacts       repository.ContactRepository
	Invoices       repository.InvoiceRepository
	Installments   repository.InstallmentRepository
	Payments       repository.PaymentRepository
	Cases          repository.CollectionCaseRepository
	Communications repository.CommunicationAttemptRepository
	AgentRuns      repository.AgentRunRepository
	AgentActions   repository.AgentActionLogRepository
	AgentConfigs   repository.AgentConfigRepository
}

// TxRunner ejecuta fn dentro de una transacción: Commit si fn devuelve nil, Rollback en otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repositories) error) error
}

// Clock fuente de "ahora" del servicio; el dominio nunca lee el reloj.
type Clock interface {
	Now() time.Time
}

// SystemClock reloj real en UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock reloj fijo (pruebas y reprocesos).
type FixedClock struct {
	At time.Time
}

func (c *FixedClock) Now() time.Time { return c.At }

// Advance mueve el reloj fijo.
func (c *FixedClock) Advance(d time.Duration) { c.At = c.At.Add(d) }
