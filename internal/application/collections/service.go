// Package collections implementa los casos de uso del núcleo de cobranza sobre los motores puros de
// internal/domain/collections. Cada caso de uso corre en una transacción y publica sus eventos
// de dominio solo después de confirmarla.
package collections

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
	"github.com/emiliofantozzi/cobra/pkg/logger"
)

// Service fachada de cobranza.
type Service struct {
	tx         TxRunner
	repos      Repositories // lecturas fuera de transacción
	sender     ports.MessageSender
	classifier ports.ReplyClassifier   // opcional
	events     ports.EventPublisher    // opcional
	renderer   ports.StatementRenderer // opcional
	clock      Clock
	log        *logger.Logger
	newID      func() string
}

// NewService construye la fachada. clock y log nil usan el reloj del sistema y un logger mudo.
func NewService(
	tx TxRunner,
	repos Repositories,
	sender ports.MessageSender,
	classifier ports.ReplyClassifier,
	events ports.EventPublisher,
	renderer ports.StatementRenderer,
	clock Clock,
	log *logger.Logger,
) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		tx:         tx,
		repos:      repos,
		sender:     sender,
		classifier: classifier,
		events:     events,
		renderer:   renderer,
		clock:      clock,
		log:        log,
		newID:      func() string { return uuid.New().String() },
	}
}

// notFound error NotFound con el recurso y su id.
func notFound(what, id string) error {
	return domain.Invalid(domain.ErrNotFound, "%s %s", what, id)
}

// localNow "ahora" en la zona horaria de la organización; de ahí sale el "hoy" de los cálculos de vencimiento.
func (s *Service) localNow(ctx context.Context, r Repositories, rc repository.RepositoryContext) (time.Time, error) {
	cfg, err := r.AgentConfigs.Get(ctx, rc)
	if err != nil {
		return time.Time{}, fmt.Errorf("config del agente: %w", err)
	}
	if cfg == nil {
		cfg = entity.NewDefaultAgentConfig(rc.OrganizationID, s.clock.Now())
	}
	return s.clock.Now().In(cfg.Location()), nil
}

// eventBatch acumula eventos durante la transacción.
type eventBatch struct {
	rc     repository.RepositoryContext
	at     time.Time
	newID  func() string
	events []ports.DomainEvent
}

func (s *Service) batch(rc repository.RepositoryContext) *eventBatch {
	return &eventBatch{rc: rc, at: s.clock.Now(), newID: s.newID}
}

func (b *eventBatch) add(typ, aggregateID string, data any) {
	b.events = append(b.events, ports.DomainEvent{
		ID:             b.newID(),
		Type:           typ,
		OrganizationID: b.rc.OrganizationID,
		AggregateID:    aggregateID,
		OccurredAt:     b.at,
		Data:           data,
	})
}

// publish entrega los eventos ya confirmados; un fallo solo se registra.
func (s *Service) publish(ctx context.Context, b *eventBatch) {
	if s.events == nil || b == nil || len(b.events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, b.events...); err != nil {
		s.log.Warn().Err(err).
			Str("organization_id", b.rc.OrganizationID).
			Int("events", len(b.events)).
			Msg("no se pudieron publicar eventos de dominio")
	}
}

// loadInvoiceForUpdate bloquea la factura o devuelve NotFound.
func loadInvoiceForUpdate(ctx context.Context, r Repositories, rc repository.RepositoryContext, id string) (*entity.Invoice, error) {
	inv, err := r.Invoices.GetForUpdate(ctx, rc, id)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return nil, notFound("factura", id)
	}
	return inv, nil
}

func loadCase(ctx context.Context, r Repositories, rc repository.RepositoryContext, id string) (*entity.CollectionCase, error) {
	c, err := r.Cases.GetByID(ctx, rc, id)
	if err != nil {
		return nil, fmt.Errorf("obtener caso: %w", err)
	}
	if c == nil {
		return nil, notFound("caso", id)
	}
	return c, nil
}

func loadContact(ctx context.Context, r Repositories, rc repository.RepositoryContext, id string) (*entity.Contact, error) {
	c, err := r.Contacts.GetByID(ctx, rc, id)
	if err != nil {
		return nil, fmt.Errorf("obtener contacto: %w", err)
	}
	if c == nil {
		return nil, notFound("contacto", id)
	}
	return c, nil
}

func loadCompany(ctx context.Context, r Repositories, rc repository.RepositoryContext, id string) (*entity.CustomerCompany, error) {
	c, err := r.Companies.GetByID(ctx, rc, id)
	if err != nil {
		return nil, fmt.Errorf("obtener empresa: %w", err)
	}
	if c == nil {
		return nil, notFound("empresa", id)
	}
	return c, nil
}

// values convierte []*T del repositorio en []T para los motores puros.
func values[T any](in []*T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, *v)
	}
	return out
}
