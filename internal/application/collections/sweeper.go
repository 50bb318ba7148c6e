package collections

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emiliofantozzi/cobra/internal/application/ports"
	domcollections "github.com/emiliofantozzi/cobra/internal/domain/collections"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

// sweeperActor actor registrado en las operaciones del barrido.
const sweeperActor = "system:sweeper"

// SweepConfig parámetros del barrido periódico.
type SweepConfig struct {
	Concurrency     int           // organizaciones en paralelo
	StaleAttemptAge time.Duration // antigüedad a partir de la cual un intento PENDING es "entrega desconocida"
	DueCaseBatch    int           // casos vencidos revisados por organización
}

// SweepReport totales de una pasada.
type SweepReport struct {
	Organizations   int `json:"organizations"`
	Failed          int `json:"failed"`
	InvoicesChanged int `json:"invoices_changed"`
	CasesClosed     int `json:"cases_closed"`
	EscalationsDue  int `json:"escalations_due"`
	StaleAttempts   int `json:"stale_attempts"`
}

func (r *SweepReport) merge(o SweepReport) {
	r.Organizations += o.Organizations
	r.Failed += o.Failed
	r.InvoicesChanged += o.InvoicesChanged
	r.CasesClosed += o.CasesClosed
	r.EscalationsDue += o.EscalationsDue
	r.StaleAttempts += o.StaleAttempts
}

// Sweeper recorre todas las organizaciones activas: recalcula facturas abiertas, reprograma casos,
// emite avisos de escalamiento y marca intentos sin confirmación de entrega.
type Sweeper struct {
	svc *Service
	cfg SweepConfig
}

// NewSweeper construye el barrido sobre la fachada.
func NewSweeper(svc *Service, cfg SweepConfig) *Sweeper {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.DueCaseBatch <= 0 {
		cfg.DueCaseBatch = defaultDueLimit
	}
	if cfg.StaleAttemptAge <= 0 {
		cfg.StaleAttemptAge = 2 * time.Hour
	}
	return &Sweeper{svc: svc, cfg: cfg}
}

// Run ejecuta una pasada. El fallo de una organización se registra y no detiene a las demás;
// solo un error al listar organizaciones o la cancelación del contexto se devuelven.
func (w *Sweeper) Run(ctx context.Context) (SweepReport, error) {
	ids, err := w.svc.repos.Organizations.ListActiveIDs(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("listar organizaciones: %w", err)
	}
	var (
		mu     sync.Mutex
		report SweepReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			r, err := w.sweepOrganization(gctx, id)
			r.Organizations = 1
			if err != nil {
				r.Failed = 1
				w.svc.log.Error().Err(err).Str("organization_id", id).Msg("barrido de organización fallido")
			}
			mu.Lock()
			report.merge(r)
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	w.svc.log.Info().
		Int("organizations", report.Organizations).
		Int("failed", report.Failed).
		Int("invoices_changed", report.InvoicesChanged).
		Int("cases_closed", report.CasesClosed).
		Int("escalations_due", report.EscalationsDue).
		Int("stale_attempts", report.StaleAttempts).
		Msg("barrido completado")
	return report, nil
}

// Loop ejecuta Run cada interval hasta que ctx se cancele.
func (w *Sweeper) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := w.Run(ctx); err != nil && ctx.Err() == nil {
			w.svc.log.Error().Err(err).Msg("barrido fallido")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Sweeper) sweepOrganization(ctx context.Context, orgID string) (SweepReport, error) {
	var report SweepReport
	rc := repository.RepositoryContext{OrganizationID: orgID, ActorID: sweeperActor}

	for offset := 0; ; offset += statementPageSize {
		page, err := w.svc.repos.Invoices.List(ctx, rc, repository.InvoiceFilter{
			Statuses: openStatuses,
			Limit:    statementPageSize,
			Offset:   offset,
		})
		if err != nil {
			return report, fmt.Errorf("listar facturas abiertas: %w", err)
		}
		for _, inv := range page {
			res, err := w.svc.RecomputeInvoiceStatus(ctx, rc, inv.ID)
			if err != nil {
				return report, fmt.Errorf("recalcular factura %s: %w", inv.ID, err)
			}
			if res.StatusChanged {
				report.InvoicesChanged++
			}
			if res.CaseClosed {
				report.CasesClosed++
			}
		}
		if len(page) < statementPageSize {
			break
		}
	}

	due, err := w.svc.escalationsDue(ctx, rc, w.cfg.DueCaseBatch)
	if err != nil {
		return report, err
	}
	report.EscalationsDue = due

	stale, err := w.svc.markStaleAttempts(ctx, rc, w.cfg.StaleAttemptAge)
	if err != nil {
		return report, err
	}
	report.StaleAttempts = stale
	return report, nil
}

// escalationsDue publica un aviso por cada caso ACTIVE cuya próxima acción ya venció,
// con la etapa que correspondería en la escalera de recordatorios. No cambia la etapa: decide el agente.
func (s *Service) escalationsDue(ctx context.Context, rc repository.RepositoryContext, limit int) (int, error) {
	now := s.clock.Now()
	cases, err := s.repos.Cases.ListDueForAction(ctx, rc, now, limit)
	if err != nil {
		return 0, fmt.Errorf("listar casos vencidos: %w", err)
	}
	ev := s.batch(rc)
	for _, c := range cases {
		if !domcollections.DetermineEscalationNeeded(*c, now) {
			continue
		}
		data := map[string]any{"invoice_id": c.InvoiceID, "stage": c.Stage, "next_action_at": c.NextActionAt}
		if next, ok := domcollections.NextReminderStage(c.Stage); ok {
			data["suggested_stage"] = next
		}
		ev.add(ports.EventCaseEscalationDue, c.ID, data)
	}
	s.publish(ctx, ev)
	return len(ev.events), nil
}

// markStaleAttempts marca los intentos atascados en DRAFT/PENDING como entrega desconocida.
// No se dan por entregados ni por fallidos. Cada intento se relee bloqueado dentro de la
// transacción: un recibo que llegó después del listado gana.
func (s *Service) markStaleAttempts(ctx context.Context, rc repository.RepositoryContext, staleAfter time.Duration) (int, error) {
	now := s.clock.Now()
	list, err := s.repos.Communications.ListStale(ctx, rc, now.Add(-staleAfter))
	if err != nil {
		return 0, fmt.Errorf("listar intentos atascados: %w", err)
	}
	marked := 0
	for _, a := range list {
		if !domcollections.IsDeliveryUnknown(*a, now, staleAfter) || domcollections.IsDeliveryFlagged(*a) {
			continue
		}
		var flagged *entity.CommunicationAttempt
		err := s.tx.Run(ctx, func(r Repositories) error {
			cur, err := r.Communications.GetForUpdate(ctx, rc, a.ID)
			if err != nil {
				return fmt.Errorf("releer intento: %w", err)
			}
			if cur == nil || !domcollections.IsDeliveryUnknown(*cur, now, staleAfter) || domcollections.IsDeliveryFlagged(*cur) {
				return nil
			}
			updated, err := domcollections.AppendDeliveryMetadata(*cur, "", map[string]any{
				"delivery_unknown": true,
				"flagged_at":       now.Format(time.RFC3339),
			}, now)
			if err != nil {
				return err
			}
			if err := r.Communications.Update(ctx, rc, &updated); err != nil {
				return err
			}
			flagged = &updated
			return nil
		})
		if err != nil {
			return marked, fmt.Errorf("marcar intento %s: %w", a.ID, err)
		}
		if flagged == nil {
			continue
		}
		s.log.Warn().
			Str("organization_id", rc.OrganizationID).
			Str("communication_attempt_id", flagged.ID).
			Str("status", string(flagged.Status)).
			Msg("entrega desconocida")
		marked++
	}
	return marked, nil
}
