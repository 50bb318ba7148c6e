package collections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emiliofantozzi/cobra/internal/application/dto"
	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain"
	domcollections "github.com/emiliofantozzi/cobra/internal/domain/collections"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

// RecomputeResult resultado de recalcular el estado derivado de una factura.
type RecomputeResult struct {
	Invoice        *entity.Invoice      `json:"invoice"`
	PreviousStatus entity.InvoiceStatus `json:"previous_status"`
	StatusChanged  bool                 `json:"status_changed"`
	CaseClosed     bool                 `json:"case_closed"`
}

// CreateInvoice registra la factura, su plan de cuotas opcional y, si se pide, abre el caso de cobranza.
// El estado inicial ya sale derivado: una factura cargada con vencimiento pasado nace OVERDUE.
func (s *Service) CreateInvoice(ctx context.Context, rc repository.RepositoryContext, in dto.CreateInvoiceRequest) (*dto.InvoiceDetailResponse, error) {
	issue, err := dto.ParseDate(in.IssueDate)
	if err != nil {
		return nil, domain.Invalid(domain.ErrInvalidInput, "issue_date: %v", err)
	}
	due, err := dto.ParseDate(in.DueDate)
	if err != nil {
		return nil, domain.Invalid(domain.ErrInvalidInput, "due_date: %v", err)
	}
	expected, err := dto.ParseOptionalDate(in.ExpectedPaymentDate)
	if err != nil {
		return nil, domain.Invalid(domain.ErrInvalidInput, "expected_payment_date: %v", err)
	}
	planDates := make([]time.Time, len(in.Installments))
	for i, inst := range in.Installments {
		if planDates[i], err = dto.ParseDate(inst.DueDate); err != nil {
			return nil, domain.Invalid(domain.ErrInvalidInput, "installments[%d].due_date: %v", i, err)
		}
	}

	ev := s.batch(rc)
	var out *dto.InvoiceDetailResponse
	err = s.tx.Run(ctx, func(r Repositories) error {
		company, err := loadCompany(ctx, r, rc, in.CustomerCompanyID)
		if err != nil {
			return err
		}
		if company.Status == entity.CompanyStatusArchived {
			return domain.ErrCompanyArchived
		}
		now, err := s.localNow(ctx, r, rc)
		if err != nil {
			return err
		}
		inv, err := entity.NewInvoice(entity.InvoiceDraft{
			ID:                  s.newID(),
			OrganizationID:      rc.OrganizationID,
			CustomerCompanyID:   company.ID,
			Number:              in.Number,
			Description:         in.Description,
			IssueDate:           issue,
			DueDate:             due,
			Amount:              in.Amount,
			Currency:            in.Currency,
			Status:              entity.InvoiceStatus(strings.ToUpper(in.Status)),
			ExpectedPaymentDate: expected,
		}, now)
		if err != nil {
			return err
		}
		installments, err := s.buildInstallments(inv, in.Installments, planDates, now)
		if err != nil {
			return err
		}
		domcollections.ApplyDerivedInvoiceState(inv, values(installments), nil, now)
		if err := r.Invoices.Create(ctx, rc, inv); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return domain.Invalid(domain.ErrDuplicate, "factura %s ya existe", inv.Number)
			}
			return fmt.Errorf("crear factura: %w", err)
		}
		for _, inst := range installments {
			if err := r.Installments.Create(ctx, rc, inst); err != nil {
				return fmt.Errorf("crear cuota %d: %w", inst.Sequence, err)
			}
		}
		ev.add(ports.EventInvoiceCreated, inv.ID, map[string]any{
			"number":              inv.Number,
			"customer_company_id": inv.CustomerCompanyID,
			"amount":              inv.Amount.StringFixed(2),
			"currency":            inv.Currency,
			"status":              inv.Status,
		})
		var cc *entity.CollectionCase
		if in.OpenCase {
			if cc, err = s.openCase(ctx, r, rc, inv, in.PrimaryContactID, "", "", now, ev); err != nil {
				return err
			}
		}
		out = invoiceDetail(inv, installments, nil, cc, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	s.log.Info().
		Str("organization_id", rc.OrganizationID).
		Str("invoice_id", out.Invoice.ID).
		Str("status", string(out.Invoice.Status)).
		Msg("factura creada")
	return out, nil
}

// buildInstallments valida el plan: la suma de cuotas debe igualar el monto de la factura.
func (s *Service) buildInstallments(inv *entity.Invoice, plan []dto.InstallmentRequest, dates []time.Time, now time.Time) ([]*entity.Installment, error) {
	if len(plan) == 0 {
		return nil, nil
	}
	out := make([]*entity.Installment, 0, len(plan))
	total := decimal.Zero
	for i, p := range plan {
		inst, err := entity.NewInstallment(entity.InstallmentDraft{
			ID:             s.newID(),
			OrganizationID: inv.OrganizationID,
			InvoiceID:      inv.ID,
			Sequence:       i + 1,
			DueDate:        dates[i],
			Amount:         p.Amount,
		}, now)
		if err != nil {
			return nil, err
		}
		inst.Status = domcollections.DeriveInstallmentStatus(*inst, now)
		total = total.Add(inst.Amount)
		out = append(out, inst)
	}
	if !total.Equal(inv.Amount) {
		return nil, domain.Invalid(domain.ErrInstallmentInvalidAmount, "la suma de cuotas %s no coincide con el monto %s",
			total.StringFixed(2), inv.Amount.StringFixed(2))
	}
	return out, nil
}

// IssueInvoice pasa una factura DRAFT a PENDING y la incorpora al cálculo derivado.
func (s *Service) IssueInvoice(ctx context.Context, rc repository.RepositoryContext, id string) (*dto.InvoiceDetailResponse, error) {
	ev := s.batch(rc)
	var out *dto.InvoiceDetailResponse
	err := s.tx.Run(ctx, func(r Repositories) error {
		inv, err := loadInvoiceForUpdate(ctx, r, rc, id)
		if err != nil {
			return err
		}
		now, err := s.localNow(ctx, r, rc)
		if err != nil {
			return err
		}
		issued, err := domcollections.IssueInvoice(*inv, now)
		if err != nil {
			return err
		}
		*inv = issued
		if err := r.Invoices.Update(ctx, rc, inv); err != nil {
			return fmt.Errorf("actualizar factura: %w", err)
		}
		ev.add(ports.EventInvoiceStatusChanged, inv.ID, statusChange(entity.InvoiceStatusDraft, inv.Status))
		if _, err := s.recompute(ctx, r, rc, inv, now, ev); err != nil {
			return err
		}
		out, err = s.loadDetail(ctx, r, rc, inv, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return out, nil
}

// CancelInvoice cancela la factura (terminal) y cierra su caso abierto.
func (s *Service) CancelInvoice(ctx context.Context, rc repository.RepositoryContext, id string) (*dto.InvoiceDetailResponse, error) {
	ev := s.batch(rc)
	var out *dto.InvoiceDetailResponse
	err := s.tx.Run(ctx, func(r Repositories) error {
		inv, err := loadInvoiceForUpdate(ctx, r, rc, id)
		if err != nil {
			return err
		}
		now, err := s.localNow(ctx, r, rc)
		if err != nil {
			return err
		}
		prev := inv.Status
		cancelled, err := domcollections.CancelInvoice(*inv, now)
		if err != nil {
			return err
		}
		*inv = cancelled
		if prev != inv.Status {
			if err := r.Invoices.Update(ctx, rc, inv); err != nil {
				return fmt.Errorf("actualizar factura: %w", err)
			}
			ev.add(ports.EventInvoiceStatusChanged, inv.ID, statusChange(prev, inv.Status))
		}
		if _, err := closeOpenCase(ctx, r, rc, inv.ID, "factura cancelada", now, ev); err != nil {
			return err
		}
		out, err = s.loadDetail(ctx, r, rc, inv, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return out, nil
}

// RecordPayment registra un pago en una sola transacción:
// pago -> pagado de la cuota -> saldo y estado de la factura -> cierre del caso si quedó saldada.
// La fila de la factura queda bloqueada para serializar pagos concurrentes.
func (s *Service) RecordPayment(ctx context.Context, rc repository.RepositoryContext, invoiceID string, in dto.RecordPaymentRequest) (*dto.InvoiceDetailResponse, error) {
	ev := s.batch(rc)
	var out *dto.InvoiceDetailResponse
	err := s.tx.Run(ctx, func(r Repositories) error {
		inv, err := loadInvoiceForUpdate(ctx, r, rc, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == entity.InvoiceStatusCancelled || inv.Status == entity.InvoiceStatusDraft {
			return domain.Invalid(domain.ErrInvoiceInvalidTransition, "factura %s en %s no admite pagos", inv.Number, inv.Status)
		}
		now, err := s.localNow(ctx, r, rc)
		if err != nil {
			return err
		}
		currency := in.Currency
		if strings.TrimSpace(currency) == "" {
			currency = inv.Currency
		}
		var paidAt time.Time
		if in.PaidAt != nil {
			paidAt = *in.PaidAt
		}
		p, err := entity.NewPayment(entity.PaymentDraft{
			ID:             s.newID(),
			OrganizationID: rc.OrganizationID,
			InvoiceID:      inv.ID,
			InstallmentID:  in.InstallmentID,
			Amount:         in.Amount,
			Currency:       currency,
			PaidAt:         paidAt,
			Method:         in.Method,
			Reference:      in.Reference,
			Status:         entity.PaymentStatus(strings.ToUpper(in.Status)),
		}, now)
		if err != nil {
			return err
		}
		if p.Currency != inv.Currency {
			return domain.Invalid(domain.ErrPaymentInvalidCurrency, "%s, factura en %s", p.Currency, inv.Currency)
		}

		installments, err := r.Installments.ListByInvoice(ctx, rc, inv.ID)
		if err != nil {
			return fmt.Errorf("listar cuotas: %w", err)
		}
		if p.InstallmentID != "" {
			idx := findInstallment(installments, p.InstallmentID)
			if idx < 0 {
				return notFound("cuota", p.InstallmentID)
			}
			updated, err := domcollections.ApplyPaymentToInstallment(*installments[idx], *p, now)
			if err != nil {
				return err
			}
			if err := r.Installments.Update(ctx, rc, &updated); err != nil {
				return fmt.Errorf("actualizar cuota: %w", err)
			}
			installments[idx] = &updated
		}
		if err := r.Payments.Create(ctx, rc, p); err != nil {
			return fmt.Errorf("crear pago: %w", err)
		}
		ev.add(ports.EventPaymentRecorded, p.ID, map[string]any{
			"invoice_id": inv.ID,
			"amount":     p.Amount.StringFixed(2),
			"currency":   p.Currency,
			"status":     p.Status,
		})
		res, err := s.recomputeWith(ctx, r, rc, inv, installments, now, ev, true)
		if err != nil {
			return err
		}
		out, err = s.loadDetail(ctx, r, rc, res.Invoice, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	s.log.Info().
		Str("organization_id", rc.OrganizationID).
		Str("invoice_id", invoiceID).
		Str("status", string(out.Invoice.Status)).
		Str("outstanding", out.Invoice.OutstandingAmount.StringFixed(2)).
		Msg("pago registrado")
	return out, nil
}

// UpdatePaymentStatus aplica la transición del pago y, si cambió lo que cuenta para el saldo,
// revierte o imputa la cuota y recalcula la factura.
func (s *Service) UpdatePaymentStatus(ctx context.Context, rc repository.RepositoryContext, paymentID, status string) (*dto.InvoiceDetailResponse, error) {
	ev := s.batch(rc)
	var out *dto.InvoiceDetailResponse
	err := s.tx.Run(ctx, func(r Repositories) error {
		p, err := r.Payments.GetByID(ctx, rc, paymentID)
		if err != nil {
			return fmt.Errorf("obtener pago: %w", err)
		}
		if p == nil {
			return notFound("pago", paymentID)
		}
		inv, err := loadInvoiceForUpdate(ctx, r, rc, p.InvoiceID)
		if err != nil {
			return err
		}
		now, err := s.localNow(ctx, r, rc)
		if err != nil {
			return err
		}
		wasCompleted := p.IsCompleted()
		if err := p.SetStatus(entity.PaymentStatus(strings.ToUpper(status)), now); err != nil {
			return err
		}
		if err := r.Payments.Update(ctx, rc, p); err != nil {
			return fmt.Errorf("actualizar pago: %w", err)
		}
		installments, err := r.Installments.ListByInvoice(ctx, rc, inv.ID)
		if err != nil {
			return fmt.Errorf("listar cuotas: %w", err)
		}
		if p.InstallmentID != "" && wasCompleted != p.IsCompleted() {
			if idx := findInstallment(installments, p.InstallmentID); idx >= 0 {
				var updated entity.Installment
				if wasCompleted {
					updated = domcollections.ReverseInstallmentPayment(*installments[idx], *p, now)
				} else if updated, err = domcollections.ApplyPaymentToInstallment(*installments[idx], *p, now); err != nil {
					return err
				}
				if err := r.Installments.Update(ctx, rc, &updated); err != nil {
					return fmt.Errorf("actualizar cuota: %w", err)
				}
				installments[idx] = &updated
			}
		}
		res, err := s.recomputeWith(ctx, r, rc, inv, installments, now, ev, true)
		if err != nil {
			return err
		}
		out, err = s.loadDetail(ctx, r, rc, res.Invoice, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return out, nil
}

// SetExpectedPaymentDate fija o limpia la fecha esperada de pago y reprograma el caso.
func (s *Service) SetExpectedPaymentDate(ctx context.Context, rc repository.RepositoryContext, invoiceID string, in dto.SetExpectedPaymentDateRequest) (*dto.InvoiceDetailResponse, error) {
	date, err := dto.ParseOptionalDate(in.Date)
	if err != nil {
		return nil, domain.Invalid(domain.ErrInvalidInput, "date: %v", err)
	}
	ev := s.batch(rc)
	var out *dto.InvoiceDetailResponse
	err = s.tx.Run(ctx, func(r Repositories) error {
		inv, err := loadInvoiceForUpdate(ctx, r, rc, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status.IsSettled() {
			return domain.Invalid(domain.ErrInvoiceInvalidTransition, "factura %s en %s", inv.Number, inv.Status)
		}
		now, err := s.localNow(ctx, r, rc)
		if err != nil {
			return err
		}
		inv.ExpectedPaymentDate = entity.DatePtr(date)
		inv.UpdatedAt = now
		if err := r.Invoices.Update(ctx, rc, inv); err != nil {
			return fmt.Errorf("actualizar factura: %w", err)
		}
		if _, _, err := syncCase(ctx, r, rc, inv, now, ev, true); err != nil {
			return err
		}
		out, err = s.loadDetail(ctx, r, rc, inv, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return out, nil
}

// RegisterPaymentPromise registra la promesa de pago y lleva el caso a PROMISE_TO_PAY cuando la etapa lo permite.
func (s *Service) RegisterPaymentPromise(ctx context.Context, rc repository.RepositoryContext, invoiceID string, in dto.RegisterPaymentPromiseRequest) (*dto.InvoiceDetailResponse, error) {
	promise, err := dto.ParseDate(in.PromiseDate)
	if err != nil {
		return nil, domain.Invalid(domain.ErrInvalidInput, "promise_date: %v", err)
	}
	ev := s.batch(rc)
	var out *dto.InvoiceDetailResponse
	err = s.tx.Run(ctx, func(r Repositories) error {
		inv, err := loadInvoiceForUpdate(ctx, r, rc, invoiceID)
		if err != nil {
			return err
		}
		now, err := s.localNow(ctx, r, rc)
		if err != nil {
			return err
		}
		if _, err := s.applyPromise(ctx, r, rc, inv, promise, in.Note, now, ev); err != nil {
			return err
		}
		out, err = s.loadDetail(ctx, r, rc, inv, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return out, nil
}

// applyPromise fija la promesa (y la fecha esperada si faltaba) y ajusta el caso abierto.
func (s *Service) applyPromise(ctx context.Context, r Repositories, rc repository.RepositoryContext, inv *entity.Invoice, promise time.Time, note string, now time.Time, ev *eventBatch) (*entity.CollectionCase, error) {
	if inv.Status.IsSettled() || inv.Status == entity.InvoiceStatusDraft {
		return nil, domain.Invalid(domain.ErrInvoiceInvalidTransition, "factura %s en %s no admite promesa", inv.Number, inv.Status)
	}
	promise = entity.DateOf(promise)
	if promise.Before(entity.DateOf(now)) {
		return nil, domain.Invalid(domain.ErrInvalidInput, "la promesa %s es anterior a hoy", promise.Format(dto.DateLayout))
	}
	inv.PaymentPromiseDate = &promise
	if inv.ExpectedPaymentDate == nil {
		expected := promise
		inv.ExpectedPaymentDate = &expected
	}
	inv.UpdatedAt = now
	if err := r.Invoices.Update(ctx, rc, inv); err != nil {
		return nil, fmt.Errorf("actualizar factura: %w", err)
	}
	c, err := r.Cases.GetOpenByInvoice(ctx, rc, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("obtener caso: %w", err)
	}
	if c == nil {
		return nil, nil
	}
	updated := *c
	if updated.Stage != entity.StagePromiseToPay && domcollections.CanTransitionStage(updated.Stage, entity.StagePromiseToPay) {
		prev := updated.Stage
		if updated, err = domcollections.ChangeStage(updated, entity.StagePromiseToPay, now); err != nil {
			return nil, err
		}
		ev.add(ports.EventCaseStageChanged, updated.ID, stageChange(prev, updated.Stage))
	}
	updated.NextActionAt = domcollections.CalculateNextActionAt(*inv, now)
	if note = strings.TrimSpace(note); note != "" {
		updated.Summary = note
	}
	updated.UpdatedAt = now
	if err := r.Cases.Update(ctx, rc, &updated); err != nil {
		return nil, fmt.Errorf("actualizar caso: %w", err)
	}
	return &updated, nil
}

// RecomputeInvoiceStatus vuelve a derivar cuotas, saldo y estado de la factura a la fecha de hoy.
// El barrido periódico la usa para marcar vencimientos.
func (s *Service) RecomputeInvoiceStatus(ctx context.Context, rc repository.RepositoryContext, invoiceID string) (*RecomputeResult, error) {
	ev := s.batch(rc)
	var out *RecomputeResult
	err := s.tx.Run(ctx, func(r Repositories) error {
		inv, err := loadInvoiceForUpdate(ctx, r, rc, invoiceID)
		if err != nil {
			return err
		}
		now, err := s.localNow(ctx, r, rc)
		if err != nil {
			return err
		}
		out, err = s.recompute(ctx, r, rc, inv, now, ev)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return out, nil
}

// recompute re-deriva el estado de cada cuota y luego el de la factura.
func (s *Service) recompute(ctx context.Context, r Repositories, rc repository.RepositoryContext, inv *entity.Invoice, now time.Time, ev *eventBatch) (*RecomputeResult, error) {
	installments, err := r.Installments.ListByInvoice(ctx, rc, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("listar cuotas: %w", err)
	}
	for i, inst := range installments {
		st := domcollections.DeriveInstallmentStatus(*inst, now)
		if st == inst.Status {
			continue
		}
		updated := *inst
		updated.Status = st
		updated.UpdatedAt = now
		if err := r.Installments.Update(ctx, rc, &updated); err != nil {
			return nil, fmt.Errorf("actualizar cuota: %w", err)
		}
		installments[i] = &updated
	}
	return s.recomputeWith(ctx, r, rc, inv, installments, now, ev, false)
}

// recomputeWith aplica el estado derivado con las cuotas ya cargadas, persiste si cambió
// y sincroniza el caso abierto. reschedule fuerza recalcular la próxima acción del caso.
func (s *Service) recomputeWith(ctx context.Context, r Repositories, rc repository.RepositoryContext, inv *entity.Invoice, installments []*entity.Installment, now time.Time, ev *eventBatch, reschedule bool) (*RecomputeResult, error) {
	payments, err := r.Payments.ListByInvoice(ctx, rc, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("listar pagos: %w", err)
	}
	prev := inv.Status
	if domcollections.ApplyDerivedInvoiceState(inv, values(installments), values(payments), now) {
		if err := r.Invoices.Update(ctx, rc, inv); err != nil {
			return nil, fmt.Errorf("actualizar factura: %w", err)
		}
	}
	res := &RecomputeResult{Invoice: inv, PreviousStatus: prev, StatusChanged: prev != inv.Status}
	if res.StatusChanged {
		ev.add(ports.EventInvoiceStatusChanged, inv.ID, statusChange(prev, inv.Status))
	}
	_, closed, err := syncCase(ctx, r, rc, inv, now, ev, reschedule || res.StatusChanged)
	if err != nil {
		return nil, err
	}
	res.CaseClosed = closed
	return res, nil
}

// GetInvoice devuelve la factura con cuotas, pagos, caso abierto y seguimiento a hoy.
func (s *Service) GetInvoice(ctx context.Context, rc repository.RepositoryContext, id string) (*dto.InvoiceDetailResponse, error) {
	inv, err := s.repos.Invoices.GetByID(ctx, rc, id)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return nil, notFound("factura", id)
	}
	now, err := s.localNow(ctx, s.repos, rc)
	if err != nil {
		return nil, err
	}
	return s.loadDetail(ctx, s.repos, rc, inv, now)
}

// GetInvoiceTracking clasificación de seguimiento de la factura a la fecha de hoy.
func (s *Service) GetInvoiceTracking(ctx context.Context, rc repository.RepositoryContext, id string) (*dto.InvoiceTrackingDTO, error) {
	inv, err := s.repos.Invoices.GetByID(ctx, rc, id)
	if err != nil {
		return nil, fmt.Errorf("obtener factura: %w", err)
	}
	if inv == nil {
		return nil, notFound("factura", id)
	}
	now, err := s.localNow(ctx, s.repos, rc)
	if err != nil {
		return nil, err
	}
	t := trackingOf(*inv, now)
	return &t, nil
}

// ListInvoices lista facturas; in.Status acepta varios estados separados por coma.
func (s *Service) ListInvoices(ctx context.Context, rc repository.RepositoryContext, in dto.ListInvoicesRequest) ([]*entity.Invoice, error) {
	in.DefaultPage()
	statuses, err := parseInvoiceStatuses(in.Status)
	if err != nil {
		return nil, err
	}
	list, err := s.repos.Invoices.List(ctx, rc, repository.InvoiceFilter{
		CustomerCompanyID: in.CustomerCompanyID,
		Statuses:          statuses,
		Limit:             in.Limit,
		Offset:            in.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listar facturas: %w", err)
	}
	return list, nil
}

func parseInvoiceStatuses(raw string) ([]entity.InvoiceStatus, error) {
	var out []entity.InvoiceStatus
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		st := entity.InvoiceStatus(part)
		if !st.IsValid() {
			return nil, domain.Invalid(domain.ErrInvalidInput, "estado de factura %q", part)
		}
		out = append(out, st)
	}
	return out, nil
}

// syncCase alinea el caso abierto con la factura: lo cierra si quedó saldada; si no, actualiza
// el riesgo y, con reschedule o sin próxima acción, la recalcula.
func syncCase(ctx context.Context, r Repositories, rc repository.RepositoryContext, inv *entity.Invoice, now time.Time, ev *eventBatch, reschedule bool) (*entity.CollectionCase, bool, error) {
	if inv.Status.IsSettled() {
		summary := "factura pagada"
		if inv.Status == entity.InvoiceStatusCancelled {
			summary = "factura cancelada"
		}
		c, err := closeOpenCase(ctx, r, rc, inv.ID, summary, now, ev)
		return c, c != nil, err
	}
	c, err := r.Cases.GetOpenByInvoice(ctx, rc, inv.ID)
	if err != nil {
		return nil, false, fmt.Errorf("obtener caso: %w", err)
	}
	if c == nil {
		return nil, false, nil
	}
	changed := false
	risk := domcollections.RiskLevelFor(domcollections.CalculateDaysOverdue(inv.DueDate, now), inv.OutstandingAmount)
	if risk != c.RiskLevel {
		c.RiskLevel = risk
		changed = true
	}
	if reschedule || c.NextActionAt == nil {
		next := domcollections.CalculateNextActionAt(*inv, now)
		if !sameInstant(c.NextActionAt, next) {
			c.NextActionAt = next
			changed = true
		}
	}
	if changed {
		c.UpdatedAt = now
		if err := r.Cases.Update(ctx, rc, c); err != nil {
			return nil, false, fmt.Errorf("actualizar caso: %w", err)
		}
	}
	return c, false, nil
}

// closeOpenCase cierra el caso abierto de la factura, si existe.
func closeOpenCase(ctx context.Context, r Repositories, rc repository.RepositoryContext, invoiceID, summary string, now time.Time, ev *eventBatch) (*entity.CollectionCase, error) {
	c, err := r.Cases.GetOpenByInvoice(ctx, rc, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("obtener caso: %w", err)
	}
	if c == nil {
		return nil, nil
	}
	closed, err := domcollections.CloseCase(*c, summary, now)
	if err != nil {
		return nil, err
	}
	if err := r.Cases.Update(ctx, rc, &closed); err != nil {
		return nil, fmt.Errorf("cerrar caso: %w", err)
	}
	ev.add(ports.EventCaseClosed, closed.ID, map[string]any{"invoice_id": invoiceID, "summary": closed.Summary})
	return &closed, nil
}

// loadDetail arma la respuesta de detalle leyendo cuotas, pagos y caso abierto.
func (s *Service) loadDetail(ctx context.Context, r Repositories, rc repository.RepositoryContext, inv *entity.Invoice, now time.Time) (*dto.InvoiceDetailResponse, error) {
	installments, err := r.Installments.ListByInvoice(ctx, rc, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("listar cuotas: %w", err)
	}
	payments, err := r.Payments.ListByInvoice(ctx, rc, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("listar pagos: %w", err)
	}
	c, err := r.Cases.GetOpenByInvoice(ctx, rc, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("obtener caso: %w", err)
	}
	return invoiceDetail(inv, installments, payments, c, now), nil
}

func invoiceDetail(inv *entity.Invoice, installments []*entity.Installment, payments []*entity.Payment, c *entity.CollectionCase, now time.Time) *dto.InvoiceDetailResponse {
	if installments == nil {
		installments = []*entity.Installment{}
	}
	if payments == nil {
		payments = []*entity.Payment{}
	}
	return &dto.InvoiceDetailResponse{
		Invoice:      inv,
		Installments: installments,
		Payments:     payments,
		Tracking:     trackingOf(*inv, now),
		Case:         c,
	}
}

func trackingOf(inv entity.Invoice, now time.Time) dto.InvoiceTrackingDTO {
	return dto.InvoiceTrackingDTO{
		Status:       string(domcollections.GetDerivedTrackingStatus(inv, now)),
		DaysToDue:    domcollections.CalculateDaysToDue(inv.DueDate, now),
		DaysOverdue:  domcollections.CalculateDaysOverdue(inv.DueDate, now),
		NextActionAt: domcollections.CalculateNextActionAt(inv, now),
		Today:        entity.DateOf(now).Format(dto.DateLayout),
	}
}

func findInstallment(list []*entity.Installment, id string) int {
	for i, inst := range list {
		if inst.ID == id {
			return i
		}
	}
	return -1
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func statusChange(from, to entity.InvoiceStatus) map[string]any {
	return map[string]any{"from": from, "to": to}
}

func stageChange(from, to entity.CaseStage) map[string]any {
	return map[string]any{"from": from, "to": to}
}
