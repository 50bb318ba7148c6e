package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

var (
	_ repository.OrganizationRepository         = (*OrganizationRepository)(nil)
	_ repository.CustomerCompanyRepository      = (*CustomerCompanyRepository)(nil)
	_ repository.ContactRepository              = (*ContactRepository)(nil)
	_ repository.InvoiceRepository              = (*InvoiceRepository)(nil)
	_ repository.InstallmentRepository          = (*InstallmentRepository)(nil)
	_ repository.PaymentRepository              = (*PaymentRepository)(nil)
	_ repository.CollectionCaseRepository       = (*CollectionCaseRepository)(nil)
	_ repository.CommunicationAttemptRepository = (*CommunicationAttemptRepository)(nil)
	_ repository.AgentRunRepository             = (*AgentRunRepository)(nil)
	_ repository.AgentActionLogRepository       = (*AgentActionLogRepository)(nil)
	_ repository.AgentConfigRepository          = (*AgentConfigRepository)(nil)
)

// ── Organizaciones ───────────────────────────────────────────────────────────

type OrganizationRepository struct{ s *view }

func (r *OrganizationRepository) GetByID(_ context.Context, id string) (*entity.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.data.organizations[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *OrganizationRepository) ListActiveIDs(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := []string{}
	for id, o := range r.s.data.organizations {
		if o.Status == "" || o.Status == entity.OrganizationActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ── Empresas cliente ─────────────────────────────────────────────────────────

type CustomerCompanyRepository struct{ s *view }

func (r *CustomerCompanyRepository) Create(_ context.Context, rc repository.RepositoryContext, c *entity.CustomerCompany) error {
	defer r.s.write()()
	if _, ok := r.s.data.companies[c.ID]; ok {
		return domain.ErrDuplicate
	}
	v := *c
	v.OrganizationID = rc.OrganizationID
	r.s.data.companies[c.ID] = v
	return nil
}

func (r *CustomerCompanyRepository) GetByID(_ context.Context, rc repository.RepositoryContext, id string) (*entity.CustomerCompany, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.data.companies[id]
	if !ok || c.OrganizationID != rc.OrganizationID {
		return nil, nil
	}
	return &c, nil
}

func (r *CustomerCompanyRepository) Update(_ context.Context, rc repository.RepositoryContext, c *entity.CustomerCompany) error {
	defer r.s.write()()
	cur, ok := r.s.data.companies[c.ID]
	if !ok || cur.OrganizationID != rc.OrganizationID {
		return domain.ErrNotFound
	}
	v := *c
	v.OrganizationID = cur.OrganizationID
	r.s.data.companies[c.ID] = v
	return nil
}

func (r *CustomerCompanyRepository) List(_ context.Context, rc repository.RepositoryContext, f repository.CustomerCompanyFilter) ([]*entity.CustomerCompany, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := []*entity.CustomerCompany{}
	for _, c := range r.s.data.companies {
		if c.OrganizationID != rc.OrganizationID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.TaxID), q) {
			continue
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, f.Limit, f.Offset), nil
}

// ── Contactos ────────────────────────────────────────────────────────────────

type ContactRepository struct{ s *view }

// flagTaken replica los índices únicos parciales de principal/facturación por empresa.
func (r *ContactRepository) flagTaken(c entity.Contact) bool {
	for id, o := range r.s.data.contacts {
		if id == c.ID || o.CustomerCompanyID != c.CustomerCompanyID || o.OrganizationID != c.OrganizationID {
			continue
		}
		if (c.IsPrimary && o.IsPrimary) || (c.IsBillingContact && o.IsBillingContact) {
			return true
		}
	}
	return false
}

func (r *ContactRepository) Create(_ context.Context, rc repository.RepositoryContext, c *entity.Contact) error {
	defer r.s.write()()
	v := *c
	v.OrganizationID = rc.OrganizationID
	if _, ok := r.s.data.contacts[c.ID]; ok || r.flagTaken(v) {
		return domain.ErrDuplicate
	}
	r.s.data.contacts[c.ID] = v
	return nil
}

func (r *ContactRepository) GetByID(_ context.Context, rc repository.RepositoryContext, id string) (*entity.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.data.contacts[id]
	if !ok || c.OrganizationID != rc.OrganizationID {
		return nil, nil
	}
	return &c, nil
}

func (r *ContactRepository) Update(_ context.Context, rc repository.RepositoryContext, c *entity.Contact) error {
	defer r.s.write()()
	cur, ok := r.s.data.contacts[c.ID]
	if !ok || cur.OrganizationID != rc.OrganizationID {
		return domain.ErrNotFound
	}
	v := *c
	v.OrganizationID = cur.OrganizationID
	if r.flagTaken(v) {
		return domain.ErrDuplicate
	}
	r.s.data.contacts[c.ID] = v
	return nil
}

func (r *ContactRepository) ListByCompany(_ context.Context, rc repository.RepositoryContext, companyID string) ([]*entity.Contact, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entity.Contact{}
	for _, c := range r.s.data.contacts {
		if c.OrganizationID == rc.OrganizationID && c.CustomerCompanyID == companyID {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ContactRepository) ClearPrimary(_ context.Context, rc repository.RepositoryContext, companyID, exceptID string) error {
	return r.clear(rc, companyID, exceptID, func(c *entity.Contact) { c.IsPrimary = false })
}

func (r *ContactRepository) ClearBilling(_ context.Context, rc repository.RepositoryContext, companyID, exceptID string) error {
	return r.clear(rc, companyID, exceptID, func(c *entity.Contact) { c.IsBillingContact = false })
}

func (r *ContactRepository) clear(rc repository.RepositoryContext, companyID, exceptID string, fn func(*entity.Contact)) error {
	defer r.s.write()()
	for id, c := range r.s.data.contacts {
		if id == exceptID || c.OrganizationID != rc.OrganizationID || c.CustomerCompanyID != companyID {
			continue
		}
		fn(&c)
		r.s.data.contacts[id] = c
	}
	return nil
}

// ── Facturas, cuotas y pagos ─────────────────────────────────────────────────

type InvoiceRepository struct{ s *view }

func (r *InvoiceRepository) Create(_ context.Context, rc repository.RepositoryContext, inv *entity.Invoice) error {
	defer r.s.write()()
	if _, ok := r.s.data.invoices[inv.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, o := range r.s.data.invoices {
		if o.OrganizationID == rc.OrganizationID && o.Number == inv.Number {
			return domain.ErrDuplicate
		}
	}
	v := *inv
	v.OrganizationID = rc.OrganizationID
	r.s.data.invoices[inv.ID] = v
	return nil
}

func (r *InvoiceRepository) GetByID(_ context.Context, rc repository.RepositoryContext, id string) (*entity.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inv, ok := r.s.data.invoices[id]
	if !ok || inv.OrganizationID != rc.OrganizationID {
		return nil, nil
	}
	return &inv, nil
}

// GetForUpdate igual que GetByID: TxRunner ya serializa las transacciones.
func (r *InvoiceRepository) GetForUpdate(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, rc, id)
}

func (r *InvoiceRepository) Update(_ context.Context, rc repository.RepositoryContext, inv *entity.Invoice) error {
	defer r.s.write()()
	cur, ok := r.s.data.invoices[inv.ID]
	if !ok || cur.OrganizationID != rc.OrganizationID {
		return domain.ErrNotFound
	}
	v := *inv
	v.OrganizationID = cur.OrganizationID
	r.s.data.invoices[inv.ID] = v
	return nil
}

func (r *InvoiceRepository) List(_ context.Context, rc repository.RepositoryContext, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entity.Invoice{}
	for _, inv := range r.s.data.invoices {
		if inv.OrganizationID != rc.OrganizationID {
			continue
		}
		if f.CustomerCompanyID != "" && inv.CustomerCompanyID != f.CustomerCompanyID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, inv.Status) {
			continue
		}
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].Number < out[j].Number
	})
	return page(out, f.Limit, f.Offset), nil
}

type InstallmentRepository struct{ s *view }

func (r *InstallmentRepository) Create(_ context.Context, rc repository.RepositoryContext, inst *entity.Installment) error {
	defer r.s.write()()
	if _, ok := r.s.data.installments[inst.ID]; ok {
		return domain.ErrDuplicate
	}
	v := *inst
	v.OrganizationID = rc.OrganizationID
	r.s.data.installments[inst.ID] = v
	return nil
}

func (r *InstallmentRepository) GetByID(_ context.Context, rc repository.RepositoryContext, id string) (*entity.Installment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	inst, ok := r.s.data.installments[id]
	if !ok || inst.OrganizationID != rc.OrganizationID {
		return nil, nil
	}
	return &inst, nil
}

func (r *InstallmentRepository) Update(_ context.Context, rc repository.RepositoryContext, inst *entity.Installment) error {
	defer r.s.write()()
	cur, ok := r.s.data.installments[inst.ID]
	if !ok || cur.OrganizationID != rc.OrganizationID {
		return domain.ErrNotFound
	}
	v := *inst
	v.OrganizationID = cur.OrganizationID
	r.s.data.installments[inst.ID] = v
	return nil
}

func (r *InstallmentRepository) ListByInvoice(_ context.Context, rc repository.RepositoryContext, invoiceID string) ([]*entity.Installment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entity.Installment{}
	for _, inst := range r.s.data.installments {
		if inst.OrganizationID == rc.OrganizationID && inst.InvoiceID == invoiceID {
			inst := inst
			out = append(out, &inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

type PaymentRepository struct{ s *view }

func (r *PaymentRepository) Create(_ context.Context, rc repository.RepositoryContext, p *entity.Payment) error {
	defer r.s.write()()
	if _, ok := r.s.data.payments[p.ID]; ok {
		return domain.ErrDuplicate
	}
	v := *p
	v.OrganizationID = rc.OrganizationID
	r.s.data.payments[p.ID] = v
	return nil
}

func (r *PaymentRepository) GetByID(_ context.Context, rc repository.RepositoryContext, id string) (*entity.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.data.payments[id]
	if !ok || p.OrganizationID != rc.OrganizationID {
		return nil, nil
	}
	return &p, nil
}

func (r *PaymentRepository) Update(_ context.Context, rc repository.RepositoryContext, p *entity.Payment) error {
	defer r.s.write()()
	cur, ok := r.s.data.payments[p.ID]
	if !ok || cur.OrganizationID != rc.OrganizationID {
		return domain.ErrNotFound
	}
	v := *p
	v.OrganizationID = cur.OrganizationID
	r.s.data.payments[p.ID] = v
	return nil
}

func (r *PaymentRepository) ListByInvoice(_ context.Context, rc repository.RepositoryContext, invoiceID string) ([]*entity.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entity.Payment{}
	for _, p := range r.s.data.payments {
		if p.OrganizationID == rc.OrganizationID && p.InvoiceID == invoiceID {
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.Before(out[j].PaidAt) })
	return out, nil
}

// ── Casos ────────────────────────────────────────────────────────────────────

type CollectionCaseRepository struct{ s *view }

// openTaken replica el índice único parcial "un caso abierto por factura".
func (r *CollectionCaseRepository) openTaken(c entity.CollectionCase) bool {
	if c.IsClosed() {
		return false
	}
	for id, o := range r.s.data.cases {
		if id != c.ID && o.OrganizationID == c.OrganizationID && o.InvoiceID == c.InvoiceID && !o.IsClosed() {
			return true
		}
	}
	return false
}

func (r *CollectionCaseRepository) Create(_ context.Context, rc repository.RepositoryContext, c *entity.CollectionCase) error {
	defer r.s.write()()
	v := *c
	v.OrganizationID = rc.OrganizationID
	if _, ok := r.s.data.cases[c.ID]; ok || r.openTaken(v) {
		return domain.ErrDuplicate
	}
	r.s.data.cases[c.ID] = v
	return nil
}

func (r *CollectionCaseRepository) GetByID(_ context.Context, rc repository.RepositoryContext, id string) (*entity.CollectionCase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.data.cases[id]
	if !ok || c.OrganizationID != rc.OrganizationID {
		return nil, nil
	}
	return &c, nil
}

func (r *CollectionCaseRepository) Update(_ context.Context, rc repository.RepositoryContext, c *entity.CollectionCase) error {
	defer r.s.write()()
	cur, ok := r.s.data.cases[c.ID]
	if !ok || cur.OrganizationID != rc.OrganizationID {
		return domain.ErrNotFound
	}
	v := *c
	v.OrganizationID = cur.OrganizationID
	if r.openTaken(v) {
		return domain.ErrDuplicate
	}
	r.s.data.cases[c.ID] = v
	return nil
}

func (r *CollectionCaseRepository) GetOpenByInvoice(_ context.Context, rc repository.RepositoryContext, invoiceID string) (*entity.CollectionCase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.data.cases {
		if c.OrganizationID == rc.OrganizationID && c.InvoiceID == invoiceID && !c.IsClosed() {
			return &c, nil
		}
	}
	return nil, nil
}

func (r *CollectionCaseRepository) ListDueForAction(_ context.Context, rc repository.RepositoryContext, before time.Time, limit int) ([]*entity.CollectionCase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entity.CollectionCase{}
	for _, c := range r.s.data.cases {
		if c.OrganizationID != rc.OrganizationID || c.Status != entity.CaseStatusActive {
			continue
		}
		if c.NextActionAt == nil || c.NextActionAt.After(before) {
			continue
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextActionAt.Before(*out[j].NextActionAt) })
	return page(out, limit, 0), nil
}

func (r *CollectionCaseRepository) ListOpen(_ context.Context, rc repository.RepositoryContext) ([]*entity.CollectionCase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entity.CollectionCase{}
	for _, c := range r.s.data.cases {
		if c.OrganizationID == rc.OrganizationID && !c.IsClosed() {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ── Comunicaciones ───────────────────────────────────────────────────────────

type CommunicationAttemptRepository struct{ s *view }

func (r *CommunicationAttemptRepository) Create(_ context.Context, rc repository.RepositoryContext, a *entity.CommunicationAttempt) error {
	defer r.s.write()()
	if _, ok := r.s.data.communications[a.ID]; ok {
		return domain.ErrDuplicate
	}
	v := *a
	v.OrganizationID = rc.OrganizationID
	v.Payload = cloneRaw(a.Payload)
	r.s.data.communications[a.ID] = v
	return nil
}

func (r *CommunicationAttemptRepository) GetByID(_ context.Context, rc repository.RepositoryContext, id string) (*entity.CommunicationAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.data.communications[id]
	if !ok || a.OrganizationID != rc.OrganizationID {
		return nil, nil
	}
	a.Payload = cloneRaw(a.Payload)
	return &a, nil
}

// GetForUpdate igual que GetByID: TxRunner ya serializa las transacciones.
func (r *CommunicationAttemptRepository) GetForUpdate(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.CommunicationAttempt, error) {
	return r.GetByID(ctx, rc, id)
}

func (r *CommunicationAttemptRepository) Update(_ context.Context, rc repository.RepositoryContext, a *entity.CommunicationAttempt) error {
	defer r.s.write()()
	cur, ok := r.s.data.communications[a.ID]
	if !ok || cur.OrganizationID != rc.OrganizationID {
		return domain.ErrNotFound
	}
	v := *a
	v.OrganizationID = cur.OrganizationID
	v.Payload = cloneRaw(a.Payload)
	r.s.data.communications[a.ID] = v
	return nil
}

func (r *CommunicationAttemptRepository) GetByExternalID(_ context.Context, rc repository.RepositoryContext, externalID string) (*entity.CommunicationAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if externalID == "" {
		return nil, nil
	}
	for _, a := range r.s.data.communications {
		if a.OrganizationID == rc.OrganizationID && a.ExternalID == externalID && a.Direction == entity.DirectionOutbound {
			a.Payload = cloneRaw(a.Payload)
			return &a, nil
		}
	}
	return nil, nil
}

func (r *CommunicationAttemptRepository) ListByCase(_ context.Context, rc repository.RepositoryContext, caseID string) ([]*entity.CommunicationAttempt, error) {
	return r.list(rc, func(a entity.CommunicationAttempt) bool { return a.CollectionCaseID == caseID }), nil
}

func (r *CommunicationAttemptRepository) ListStale(_ context.Context, rc repository.RepositoryContext, olderThan time.Time) ([]*entity.CommunicationAttempt, error) {
	return r.list(rc, func(a entity.CommunicationAttempt) bool {
		pending := a.Status == entity.CommunicationStatusDraft || a.Status == entity.CommunicationStatusPending
		return pending && a.UpdatedAt.Before(olderThan)
	}), nil
}

func (r *CommunicationAttemptRepository) list(rc repository.RepositoryContext, keep func(entity.CommunicationAttempt) bool) []*entity.CommunicationAttempt {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entity.CommunicationAttempt{}
	for _, a := range r.s.data.communications {
		if a.OrganizationID != rc.OrganizationID || !keep(a) {
			continue
		}
		a.Payload = cloneRaw(a.Payload)
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return timeOrZero(out[i].SentAt).Before(timeOrZero(out[j].SentAt))
	})
	return out
}

// ── Agente ───────────────────────────────────────────────────────────────────

type AgentRunRepository struct{ s *view }

func (r *AgentRunRepository) Create(_ context.Context, rc repository.RepositoryContext, run *entity.AgentRun) error {
	defer r.s.write()()
	if _, ok := r.s.data.agentRuns[run.ID]; ok {
		return domain.ErrDuplicate
	}
	v := *run
	v.OrganizationID = rc.OrganizationID
	v.Metadata = cloneRaw(run.Metadata)
	r.s.data.agentRuns[run.ID] = v
	return nil
}

func (r *AgentRunRepository) GetByID(_ context.Context, rc repository.RepositoryContext, id string) (*entity.AgentRun, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	run, ok := r.s.data.agentRuns[id]
	if !ok || run.OrganizationID != rc.OrganizationID {
		return nil, nil
	}
	run.Metadata = cloneRaw(run.Metadata)
	return &run, nil
}

func (r *AgentRunRepository) Update(_ context.Context, rc repository.RepositoryContext, run *entity.AgentRun) error {
	defer r.s.write()()
	cur, ok := r.s.data.agentRuns[run.ID]
	if !ok || cur.OrganizationID != rc.OrganizationID {
		return domain.ErrNotFound
	}
	v := *run
	v.OrganizationID = cur.OrganizationID
	v.Metadata = cloneRaw(run.Metadata)
	r.s.data.agentRuns[run.ID] = v
	return nil
}

func (r *AgentRunRepository) ListByCase(_ context.Context, rc repository.RepositoryContext, caseID string) ([]*entity.AgentRun, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entity.AgentRun{}
	for _, run := range r.s.data.agentRuns {
		if run.OrganizationID == rc.OrganizationID && run.CollectionCaseID == caseID {
			run.Metadata = cloneRaw(run.Metadata)
			out = append(out, &run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type AgentActionLogRepository struct{ s *view }

func (r *AgentActionLogRepository) Append(_ context.Context, rc repository.RepositoryContext, a *entity.AgentActionLog) error {
	defer r.s.write()()
	if _, ok := r.s.data.agentActions[a.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, o := range r.s.data.agentActions {
		if o.AgentRunID == a.AgentRunID && o.Sequence == a.Sequence {
			return domain.ErrDuplicate
		}
	}
	v := *a
	v.OrganizationID = rc.OrganizationID
	r.s.data.agentActions[a.ID] = v
	return nil
}

func (r *AgentActionLogRepository) GetByID(_ context.Context, rc repository.RepositoryContext, id string) (*entity.AgentActionLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.data.agentActions[id]
	if !ok || a.OrganizationID != rc.OrganizationID {
		return nil, nil
	}
	return &a, nil
}

func (r *AgentActionLogRepository) UpdateStatus(_ context.Context, rc repository.RepositoryContext, a *entity.AgentActionLog) error {
	defer r.s.write()()
	cur, ok := r.s.data.agentActions[a.ID]
	if !ok || cur.OrganizationID != rc.OrganizationID {
		return domain.ErrNotFound
	}
	cur.Status = a.Status
	cur.Error = a.Error
	cur.UpdatedAt = a.UpdatedAt
	r.s.data.agentActions[a.ID] = cur
	return nil
}

func (r *AgentActionLogRepository) ListByRun(_ context.Context, rc repository.RepositoryContext, runID string) ([]*entity.AgentActionLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*entity.AgentActionLog{}
	for _, a := range r.s.data.agentActions {
		if a.OrganizationID == rc.OrganizationID && a.AgentRunID == runID {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

type AgentConfigRepository struct{ s *view }

func (r *AgentConfigRepository) Get(_ context.Context, rc repository.RepositoryContext) (*entity.AgentConfig, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cfg, ok := r.s.data.agentConfigs[rc.OrganizationID]
	if !ok {
		return nil, nil
	}
	cfg.WorkingHours = cloneRaw(cfg.WorkingHours)
	return &cfg, nil
}

func (r *AgentConfigRepository) Upsert(_ context.Context, rc repository.RepositoryContext, cfg *entity.AgentConfig) error {
	defer r.s.write()()
	v := *cfg
	v.OrganizationID = rc.OrganizationID
	v.WorkingHours = cloneRaw(cfg.WorkingHours)
	r.s.data.agentConfigs[rc.OrganizationID] = v
	return nil
}
