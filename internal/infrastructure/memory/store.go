// Package memory implementa los repositorios de cobranza en memoria. Sirve a las pruebas de la
// fachada y al modo sin base de datos (DB_DRIVER=memory). Las entidades se guardan por valor:
// lo que sale del store es una copia y lo que entra se copia.
package memory

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/emiliofantozzi/cobra/internal/application/collections"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// tables estado completo; TxRunner trabaja sobre una copia.
type tables struct {
	organizations  map[string]entity.Organization
	companies      map[string]entity.CustomerCompany
	contacts       map[string]entity.Contact
	invoices       map[string]entity.Invoice
	installments   map[string]entity.Installment
	payments       map[string]entity.Payment
	cases          map[string]entity.CollectionCase
	communications map[string]entity.CommunicationAttempt
	agentRuns      map[string]entity.AgentRun
	agentActions   map[string]entity.AgentActionLog
	agentConfigs   map[string]entity.AgentConfig // por organización
}

func newTables() tables {
	return tables{
		organizations:  map[string]entity.Organization{},
		companies:      map[string]entity.CustomerCompany{},
		contacts:       map[string]entity.Contact{},
		invoices:       map[string]entity.Invoice{},
		installments:   map[string]entity.Installment{},
		payments:       map[string]entity.Payment{},
		cases:          map[string]entity.CollectionCase{},
		communications: map[string]entity.CommunicationAttempt{},
		agentRuns:      map[string]entity.AgentRun{},
		agentActions:   map[string]entity.AgentActionLog{},
		agentConfigs:   map[string]entity.AgentConfig{},
	}
}

func (t tables) clone() tables {
	return tables{
		organizations:  maps.Clone(t.organizations),
		companies:      maps.Clone(t.companies),
		contacts:       maps.Clone(t.contacts),
		invoices:       maps.Clone(t.invoices),
		installments:   maps.Clone(t.installments),
		payments:       maps.Clone(t.payments),
		cases:          maps.Clone(t.cases),
		communications: maps.Clone(t.communications),
		agentRuns:      maps.Clone(t.agentRuns),
		agentActions:   maps.Clone(t.agentActions),
		agentConfigs:   maps.Clone(t.agentConfigs),
	}
}

// view un juego de tablas con su candado. La vista confirmada del store es la que leen los
// repositorios fuera de transacción; cada transacción trabaja sobre una copia propia.
type view struct {
	mu    sync.RWMutex
	data  tables
	outer *sync.Mutex // txMu del store en la vista confirmada; nil dentro de una transacción
}

// write toma el candado de escritura. En la vista confirmada espera además a que no haya
// transacción en curso, para que su commit no pise la escritura.
func (v *view) write() func() {
	if v.outer != nil {
		v.outer.Lock()
	}
	v.mu.Lock()
	return func() {
		v.mu.Unlock()
		if v.outer != nil {
			v.outer.Unlock()
		}
	}
}

func (v *view) repositories() collections.Repositories {
	return collections.Repositories{
		Organizations:  &OrganizationRepository{s: v},
		Companies:      &CustomerCompanyRepository{s: v},
		Contacts:       &ContactRepository{s: v},
		Invoices:       &InvoiceRepository{s: v},
		Installments:   &InstallmentRepository{s: v},
		Payments:       &PaymentRepository{s: v},
		Cases:          &CollectionCaseRepository{s: v},
		Communications: &CommunicationAttemptRepository{s: v},
		AgentRuns:      &AgentRunRepository{s: v},
		AgentActions:   &AgentActionLogRepository{s: v},
		AgentConfigs:   &AgentConfigRepository{s: v},
	}
}

// Store base de datos en memoria.
type Store struct {
	txMu      sync.Mutex // serializa transacciones
	committed *view
}

// NewStore crea un store vacío.
func NewStore() *Store {
	s := &Store{}
	s.committed = &view{data: newTables(), outer: &s.txMu}
	return s
}

// Repositories devuelve los repositorios sobre el estado confirmado.
func (s *Store) Repositories() collections.Repositories {
	return s.committed.repositories()
}

// SeedOrganization registra (o reemplaza) una organización.
func (s *Store) SeedOrganization(org entity.Organization) {
	defer s.committed.write()()
	s.committed.data.organizations[org.ID] = org
}

// TxRunner transacciones en memoria, una a la vez. fn escribe sobre una copia del estado
// que solo se publica si termina sin error.
type TxRunner struct {
	s *Store
}

var _ collections.TxRunner = (*TxRunner)(nil)

// NewTxRunner crea el runner sobre el store.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

func (t *TxRunner) Run(ctx context.Context, fn func(r collections.Repositories) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	committed := t.s.committed
	committed.mu.RLock()
	work := &view{data: committed.data.clone()}
	committed.mu.RUnlock()

	if err := fn(work.repositories()); err != nil {
		return err
	}

	committed.mu.Lock()
	committed.data = work.data
	committed.mu.Unlock()
	return nil
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}

func page[T any](in []*T, limit, offset int) []*T {
	if offset > len(in) {
		return []*T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
