package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

var (
	_ repository.CollectionCaseRepository       = (*CollectionCaseRepo)(nil)
	_ repository.CommunicationAttemptRepository = (*CommunicationAttemptRepo)(nil)
)

// CollectionCaseRepo implementación del puerto CollectionCaseRepository sobre PostgreSQL.
// El índice parcial uq_collection_cases_open garantiza un solo caso abierto por factura.
type CollectionCaseRepo struct {
	q Querier
}

// NewCollectionCaseRepository construye el adaptador de persistencia para casos.
func NewCollectionCaseRepository(q Querier) *CollectionCaseRepo {
	return &CollectionCaseRepo{q: q}
}

const caseColumns = `id, organization_id, invoice_id, stage, status, risk_level, primary_contact_id,
	last_communication_at, next_action_at, last_agent_action_at, escalation_at, closed_at, summary,
	created_at, updated_at`

func scanCase(row rowScanner) (*entity.CollectionCase, error) {
	var (
		c       entity.CollectionCase
		contact *string
	)
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.InvoiceID, &c.Stage, &c.Status, &c.RiskLevel, &contact,
		&c.LastCommunicationAt, &c.NextActionAt, &c.LastAgentActionAt, &c.EscalationAt, &c.ClosedAt, &c.Summary,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.PrimaryContactID = deref(contact)
	return &c, nil
}

func (r *CollectionCaseRepo) list(ctx context.Context, query string, args ...any) ([]*entity.CollectionCase, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list collection cases: %w", err)
	}
	defer rows.Close()
	out := []*entity.CollectionCase{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create abre el caso. Si la factura ya tiene uno abierto devuelve ErrDuplicate.
func (r *CollectionCaseRepo) Create(ctx context.Context, rc repository.RepositoryContext, c *entity.CollectionCase) error {
	query := `
		INSERT INTO collection_cases (` + caseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		c.ID, rc.OrganizationID, c.InvoiceID, c.Stage, c.Status, c.RiskLevel, nullable(c.PrimaryContactID),
		c.LastCommunicationAt, c.NextActionAt, c.LastAgentActionAt, c.EscalationAt, c.ClosedAt, c.Summary,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert collection case: %w", err)
	}
	return nil
}

// GetByID obtiene un caso de la organización.
func (r *CollectionCaseRepo) GetByID(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.CollectionCase, error) {
	query := `SELECT ` + caseColumns + ` FROM collection_cases WHERE id = $1 AND organization_id = $2`
	c, err := scanCase(r.q.QueryRow(ctx, query, id, rc.OrganizationID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get collection case: %w", err)
	}
	return c, nil
}

// Update persiste etapa, estado, riesgo y marcas de tiempo del caso.
func (r *CollectionCaseRepo) Update(ctx context.Context, rc repository.RepositoryContext, c *entity.CollectionCase) error {
	query := `
		UPDATE collection_cases SET stage = $3, status = $4, risk_level = $5, primary_contact_id = $6,
			last_communication_at = $7, next_action_at = $8, last_agent_action_at = $9, escalation_at = $10,
			closed_at = $11, summary = $12, updated_at = $13
		WHERE id = $1 AND organization_id = $2`
	tag, err := r.q.Exec(ctx, query,
		c.ID, rc.OrganizationID, c.Stage, c.Status, c.RiskLevel, nullable(c.PrimaryContactID),
		c.LastCommunicationAt, c.NextActionAt, c.LastAgentActionAt, c.EscalationAt,
		c.ClosedAt, c.Summary, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update collection case: %w", err)
	}
	return affected(tag)
}

// GetOpenByInvoice caso no cerrado de la factura.
func (r *CollectionCaseRepo) GetOpenByInvoice(ctx context.Context, rc repository.RepositoryContext, invoiceID string) (*entity.CollectionCase, error) {
	query := `
		SELECT ` + caseColumns + ` FROM collection_cases
		WHERE organization_id = $1 AND invoice_id = $2 AND status <> $3`
	c, err := scanCase(r.q.QueryRow(ctx, query, rc.OrganizationID, invoiceID, entity.CaseStatusClosed))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get open collection case: %w", err)
	}
	return c, nil
}

// ListDueForAction casos activos con acción vencida a la fecha before.
func (r *CollectionCaseRepo) ListDueForAction(ctx context.Context, rc repository.RepositoryContext, before time.Time, limit int) ([]*entity.CollectionCase, error) {
	query := `
		SELECT ` + caseColumns + ` FROM collection_cases
		WHERE organization_id = $1 AND status = $2 AND next_action_at <= $3
		ORDER BY next_action_at
		LIMIT NULLIF($4, 0)`
	return r.list(ctx, query, rc.OrganizationID, entity.CaseStatusActive, before, limit)
}

// ListOpen casos ACTIVE o PAUSED de la organización.
func (r *CollectionCaseRepo) ListOpen(ctx context.Context, rc repository.RepositoryContext) ([]*entity.CollectionCase, error) {
	query := `
		SELECT ` + caseColumns + ` FROM collection_cases
		WHERE organization_id = $1 AND status <> $2
		ORDER BY created_at`
	return r.list(ctx, query, rc.OrganizationID, entity.CaseStatusClosed)
}

// CommunicationAttemptRepo implementación del puerto CommunicationAttemptRepository sobre PostgreSQL.
type CommunicationAttemptRepo struct {
	q Querier
}

// NewCommunicationAttemptRepository construye el adaptador de persistencia para comunicaciones.
func NewCommunicationAttemptRepository(q Querier) *CommunicationAttemptRepo {
	return &CommunicationAttemptRepo{q: q}
}

const communicationColumns = `id, organization_id, collection_case_id, contact_id, channel, direction, status,
	subject, body, payload, external_id, sent_at, delivered_at, read_at, error, created_at, updated_at`

func scanCommunication(row rowScanner) (*entity.CommunicationAttempt, error) {
	var (
		a       entity.CommunicationAttempt
		contact *string
	)
	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.CollectionCaseID, &contact, &a.Channel, &a.Direction, &a.Status,
		&a.Subject, &a.Body, &a.Payload, &a.ExternalID, &a.SentAt, &a.DeliveredAt, &a.ReadAt, &a.Error,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ContactID = deref(contact)
	return &a, nil
}

func (r *CommunicationAttemptRepo) list(ctx context.Context, query string, args ...any) ([]*entity.CommunicationAttempt, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list communication attempts: %w", err)
	}
	defer rows.Close()
	out := []*entity.CommunicationAttempt{}
	for rows.Next() {
		a, err := scanCommunication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create registra un intento de comunicación.
func (r *CommunicationAttemptRepo) Create(ctx context.Context, rc repository.RepositoryContext, a *entity.CommunicationAttempt) error {
	query := `
		INSERT INTO communication_attempts (` + communicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(ctx, query,
		a.ID, rc.OrganizationID, a.CollectionCaseID, nullable(a.ContactID), a.Channel, a.Direction, a.Status,
		a.Subject, a.Body, a.Payload, a.ExternalID, a.SentAt, a.DeliveredAt, a.ReadAt, a.Error,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert communication attempt: %w", err)
	}
	return nil
}

// GetByID obtiene un intento de la organización.
func (r *CommunicationAttemptRepo) GetByID(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.CommunicationAttempt, error) {
	return r.get(ctx, rc, id, "")
}

// GetForUpdate igual que GetByID pero bloquea la fila hasta el fin de la transacción.
func (r *CommunicationAttemptRepo) GetForUpdate(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.CommunicationAttempt, error) {
	return r.get(ctx, rc, id, " FOR UPDATE")
}

func (r *CommunicationAttemptRepo) get(ctx context.Context, rc repository.RepositoryContext, id, lock string) (*entity.CommunicationAttempt, error) {
	query := `SELECT ` + communicationColumns + ` FROM communication_attempts WHERE id = $1 AND organization_id = $2` + lock
	a, err := scanCommunication(r.q.QueryRow(ctx, query, id, rc.OrganizationID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get communication attempt: %w", err)
	}
	return a, nil
}

// Update persiste estado, id externo y marcas de entrega del intento.
func (r *CommunicationAttemptRepo) Update(ctx context.Context, rc repository.RepositoryContext, a *entity.CommunicationAttempt) error {
	query := `
		UPDATE communication_attempts SET contact_id = $3, status = $4, subject = $5, body = $6, payload = $7,
			external_id = $8, sent_at = $9, delivered_at = $10, read_at = $11, error = $12, updated_at = $13
		WHERE id = $1 AND organization_id = $2`
	tag, err := r.q.Exec(ctx, query,
		a.ID, rc.OrganizationID, nullable(a.ContactID), a.Status, a.Subject, a.Body, a.Payload,
		a.ExternalID, a.SentAt, a.DeliveredAt, a.ReadAt, a.Error, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update communication attempt: %w", err)
	}
	return affected(tag)
}

// GetByExternalID intento saliente con el id asignado por el proveedor.
func (r *CommunicationAttemptRepo) GetByExternalID(ctx context.Context, rc repository.RepositoryContext, externalID string) (*entity.CommunicationAttempt, error) {
	if externalID == "" {
		return nil, nil
	}
	query := `
		SELECT ` + communicationColumns + ` FROM communication_attempts
		WHERE organization_id = $1 AND external_id = $2 AND direction = $3
		ORDER BY created_at DESC
		LIMIT 1`
	a, err := scanCommunication(r.q.QueryRow(ctx, query, rc.OrganizationID, externalID, entity.DirectionOutbound))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get communication by external id: %w", err)
	}
	return a, nil
}

// ListByCase historial del caso en orden cronológico.
func (r *CommunicationAttemptRepo) ListByCase(ctx context.Context, rc repository.RepositoryContext, caseID string) ([]*entity.CommunicationAttempt, error) {
	query := `
		SELECT ` + communicationColumns + ` FROM communication_attempts
		WHERE organization_id = $1 AND collection_case_id = $2
		ORDER BY created_at, id`
	return r.list(ctx, query, rc.OrganizationID, caseID)
}

// ListStale intentos DRAFT o PENDING sin movimiento desde olderThan.
func (r *CommunicationAttemptRepo) ListStale(ctx context.Context, rc repository.RepositoryContext, olderThan time.Time) ([]*entity.CommunicationAttempt, error) {
	query := `
		SELECT ` + communicationColumns + ` FROM communication_attempts
		WHERE organization_id = $1 AND status = ANY($2) AND updated_at < $3
		ORDER BY created_at, id`
	statuses := textSlice([]entity.CommunicationStatus{entity.CommunicationStatusDraft, entity.CommunicationStatusPending})
	return r.list(ctx, query, rc.OrganizationID, statuses, olderThan)
}
