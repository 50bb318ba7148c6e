package collections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emiliofantozzi/cobra/internal/application/dto"
	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain"
	domcollections "github.com/emiliofantozzi/cobra/internal/domain/collections"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

// defaultDueLimit tope de casos devueltos por ListCasesDueForAction sin límite explícito.
const defaultDueLimit = 100

// OpenCollectionCase abre el caso de cobranza de una factura. Solo puede haber uno abierto por factura.
func (s *Service) OpenCollectionCase(ctx context.Context, rc repository.RepositoryContext, in dto.OpenCaseRequest) (*entity.CollectionCase, error) {
	ev := s.batch(rc)
	var out *entity.CollectionCase
	err := s.tx.Run(ctx, func(r Repositories) error {
		inv, err := loadInvoiceForUpdate(ctx, r, rc, in.InvoiceID)
		if err != nil {
			return err
		}
		now, err := s.localNow(ctx, r, rc)
		if err != nil {
			return err
		}
		out, err = s.openCase(ctx, r, rc, inv, in.PrimaryContactID, entity.RiskLevel(strings.ToUpper(in.RiskLevel)), in.Summary, now, ev)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	s.log.Info().Str("organization_id", rc.OrganizationID).Str("collection_case_id", out.ID).Str("invoice_id", out.InvoiceID).Msg("caso de cobranza abierto")
	return out, nil
}

// openCase valida la factura, resuelve el contacto y crea el caso en INITIAL con su próxima acción.
// Sin riesgo explícito se estima con días de mora y saldo.
func (s *Service) openCase(ctx context.Context, r Repositories, rc repository.RepositoryContext, inv *entity.Invoice, contactID string, risk entity.RiskLevel, summary string, now time.Time, ev *eventBatch) (*entity.CollectionCase, error) {
	if inv.Status.IsSettled() || inv.Status == entity.InvoiceStatusDraft {
		return nil, domain.Invalid(domain.ErrInvoiceInvalidTransition, "factura %s en %s no admite caso de cobranza", inv.Number, inv.Status)
	}
	existing, err := r.Cases.GetOpenByInvoice(ctx, rc, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("obtener caso: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrCaseAlreadyOpen
	}
	if contactID != "" {
		contact, err := loadContact(ctx, r, rc, contactID)
		if err != nil {
			return nil, err
		}
		if contact.CustomerCompanyID != inv.CustomerCompanyID {
			return nil, notFound("contacto", contactID)
		}
	} else if contactID, err = defaultContactID(ctx, r, rc, inv.CustomerCompanyID); err != nil {
		return nil, err
	}
	if risk == "" {
		risk = domcollections.RiskLevelFor(domcollections.CalculateDaysOverdue(inv.DueDate, now), inv.OutstandingAmount)
	}
	c, err := entity.NewCollectionCase(entity.CollectionCaseDraft{
		ID:               s.newID(),
		OrganizationID:   rc.OrganizationID,
		InvoiceID:        inv.ID,
		RiskLevel:        risk,
		PrimaryContactID: contactID,
		NextActionAt:     domcollections.CalculateNextActionAt(*inv, now),
		Summary:          strings.TrimSpace(summary),
	}, now)
	if err != nil {
		return nil, err
	}
	if err := r.Cases.Create(ctx, rc, c); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.ErrCaseAlreadyOpen
		}
		return nil, fmt.Errorf("crear caso: %w", err)
	}
	ev.add(ports.EventCaseOpened, c.ID, map[string]any{"invoice_id": inv.ID, "risk_level": c.RiskLevel})
	return c, nil
}

// defaultContactID contacto de facturación de la empresa; si no hay, el principal.
func defaultContactID(ctx context.Context, r Repositories, rc repository.RepositoryContext, companyID string) (string, error) {
	contacts, err := r.Contacts.ListByCompany(ctx, rc, companyID)
	if err != nil {
		return "", fmt.Errorf("listar contactos: %w", err)
	}
	primary := ""
	for _, c := range contacts {
		if c.IsBillingContact {
			return c.ID, nil
		}
		if c.IsPrimary {
			primary = c.ID
		}
	}
	return primary, nil
}

// TransitionCaseStage aplica una transición de etapa validada por la máquina de estados.
// Llegar a RESOLVED cierra el caso.
func (s *Service) TransitionCaseStage(ctx context.Context, rc repository.RepositoryContext, caseID string, in dto.TransitionStageRequest) (*entity.CollectionCase, error) {
	ev := s.batch(rc)
	var out *entity.CollectionCase
	err := s.tx.Run(ctx, func(r Repositories) error {
		c, err := loadCase(ctx, r, rc, caseID)
		if err != nil {
			return err
		}
		updated, err := s.changeStage(ctx, r, rc, c, entity.CaseStage(strings.ToUpper(in.Stage)), in.Note, ev)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return out, nil
}

// changeStage aplica y persiste una transición de etapa; emite los eventos correspondientes.
func (s *Service) changeStage(ctx context.Context, r Repositories, rc repository.RepositoryContext, c *entity.CollectionCase, to entity.CaseStage, note string, ev *eventBatch) (*entity.CollectionCase, error) {
	now := s.clock.Now()
	prev := c.Stage
	updated, err := domcollections.ChangeStage(*c, to, now)
	if err != nil {
		return nil, err
	}
	if updated.Stage == prev {
		return c, nil
	}
	if note = strings.TrimSpace(note); note != "" {
		updated.Summary = note
	}
	if err := r.Cases.Update(ctx, rc, &updated); err != nil {
		return nil, fmt.Errorf("actualizar caso: %w", err)
	}
	ev.add(ports.EventCaseStageChanged, updated.ID, stageChange(prev, updated.Stage))
	if updated.IsClosed() {
		ev.add(ports.EventCaseClosed, updated.ID, map[string]any{"invoice_id": updated.InvoiceID, "summary": updated.Summary})
	}
	return &updated, nil
}

// SetCaseStatus pausa o reanuda el caso. El cierre solo ocurre resolviendo el caso.
func (s *Service) SetCaseStatus(ctx context.Context, rc repository.RepositoryContext, caseID, status string) (*entity.CollectionCase, error) {
	var out *entity.CollectionCase
	err := s.tx.Run(ctx, func(r Repositories) error {
		c, err := loadCase(ctx, r, rc, caseID)
		if err != nil {
			return err
		}
		updated, err := domcollections.ChangeStatus(*c, entity.CaseStatus(strings.ToUpper(status)), s.clock.Now())
		if err != nil {
			return err
		}
		if updated.Status != c.Status {
			if err := r.Cases.Update(ctx, rc, &updated); err != nil {
				return fmt.Errorf("actualizar caso: %w", err)
			}
		}
		out = &updated
		return nil
	})
	return out, err
}

// GetCase devuelve el caso con su factura, comunicaciones y las etapas a las que puede pasar.
func (s *Service) GetCase(ctx context.Context, rc repository.RepositoryContext, caseID string) (*dto.CaseDetailResponse, error) {
	c, err := loadCase(ctx, s.repos, rc, caseID)
	if err != nil {
		return nil, err
	}
	inv, err := s.repos.Invoices.GetByID(ctx, rc, c.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	comms, err := s.repos.Communications.ListByCase(ctx, rc, c.ID)
	if err != nil {
		return nil, fmt.Errorf("listar comunicaciones: %w", err)
	}
	if comms == nil {
		comms = []*entity.CommunicationAttempt{}
	}
	allowed := []entity.CaseStage{}
	if !c.IsClosed() {
		allowed = append(allowed, domcollections.AllowedStages(c.Stage)...)
	}
	return &dto.CaseDetailResponse{Case: c, Invoice: inv, Communications: comms, AllowedStages: allowed}, nil
}

// ListCasesDueForAction casos ACTIVE cuya próxima acción ya llegó, los más atrasados primero.
func (s *Service) ListCasesDueForAction(ctx context.Context, rc repository.RepositoryContext, limit int) ([]*entity.CollectionCase, error) {
	if limit <= 0 {
		limit = defaultDueLimit
	}
	list, err := s.repos.Cases.ListDueForAction(ctx, rc, s.clock.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("listar casos pendientes: %w", err)
	}
	return list, nil
}
