package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

var (
	_ repository.AgentRunRepository       = (*AgentRunRepo)(nil)
	_ repository.AgentActionLogRepository = (*AgentActionLogRepo)(nil)
	_ repository.AgentConfigRepository    = (*AgentConfigRepo)(nil)
)

// AgentRunRepo implementación del puerto AgentRunRepository sobre PostgreSQL.
type AgentRunRepo struct {
	q Querier
}

// NewAgentRunRepository construye el adaptador de persistencia para ejecuciones del agente.
func NewAgentRunRepository(q Querier) *AgentRunRepo {
	return &AgentRunRepo{q: q}
}

const runColumns = `id, organization_id, collection_case_id, status, started_at, finished_at, error, metadata,
	created_at, updated_at`

func scanRun(row rowScanner) (*entity.AgentRun, error) {
	var run entity.AgentRun
	err := row.Scan(
		&run.ID, &run.OrganizationID, &run.CollectionCaseID, &run.Status, &run.StartedAt, &run.FinishedAt,
		&run.Error, &run.Metadata, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Create registra una ejecución.
func (r *AgentRunRepo) Create(ctx context.Context, rc repository.RepositoryContext, run *entity.AgentRun) error {
	query := `
		INSERT INTO agent_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		run.ID, rc.OrganizationID, run.CollectionCaseID, run.Status, run.StartedAt, run.FinishedAt,
		run.Error, run.Metadata, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert agent run: %w", err)
	}
	return nil
}

// GetByID obtiene una ejecución de la organización.
func (r *AgentRunRepo) GetByID(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.AgentRun, error) {
	query := `SELECT ` + runColumns + ` FROM agent_runs WHERE id = $1 AND organization_id = $2`
	run, err := scanRun(r.q.QueryRow(ctx, query, id, rc.OrganizationID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get agent run: %w", err)
	}
	return run, nil
}

// Update persiste estado, marcas de tiempo y error de la ejecución.
func (r *AgentRunRepo) Update(ctx context.Context, rc repository.RepositoryContext, run *entity.AgentRun) error {
	query := `
		UPDATE agent_runs SET status = $3, started_at = $4, finished_at = $5, error = $6, metadata = $7, updated_at = $8
		WHERE id = $1 AND organization_id = $2`
	tag, err := r.q.Exec(ctx, query,
		run.ID, rc.OrganizationID, run.Status, run.StartedAt, run.FinishedAt, run.Error, run.Metadata, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update agent run: %w", err)
	}
	return affected(tag)
}

// ListByCase ejecuciones del caso, más antiguas primero.
func (r *AgentRunRepo) ListByCase(ctx context.Context, rc repository.RepositoryContext, caseID string) ([]*entity.AgentRun, error) {
	query := `
		SELECT ` + runColumns + ` FROM agent_runs
		WHERE organization_id = $1 AND collection_case_id = $2
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, rc.OrganizationID, caseID)
	if err != nil {
		return nil, fmt.Errorf("list agent runs: %w", err)
	}
	defer rows.Close()
	out := []*entity.AgentRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// AgentActionLogRepo registro append-only de acciones sobre PostgreSQL.
// El payload se guarda como jsonb y se reconstruye según la columna type.
type AgentActionLogRepo struct {
	q Querier
}

// NewAgentActionLogRepository construye el adaptador del registro de acciones.
func NewAgentActionLogRepository(q Querier) *AgentActionLogRepo {
	return &AgentActionLogRepo{q: q}
}

const actionColumns = `id, organization_id, agent_run_id, collection_case_id, sequence, type, status, summary,
	payload, error, created_at, updated_at`

func scanAction(row rowScanner) (*entity.AgentActionLog, error) {
	var (
		a   entity.AgentActionLog
		raw json.RawMessage
	)
	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.AgentRunID, &a.CollectionCaseID, &a.Sequence, &a.Type, &a.Status, &a.Summary,
		&raw, &a.Error, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.Payload, err = entity.DecodeActionPayload(a.Type, raw); err != nil {
		return nil, err
	}
	return &a, nil
}

// Append agrega una acción. Repetir (run, secuencia) da ErrDuplicate.
func (r *AgentActionLogRepo) Append(ctx context.Context, rc repository.RepositoryContext, a *entity.AgentActionLog) error {
	payload, err := entity.EncodeActionPayload(a.Payload)
	if err != nil {
		return fmt.Errorf("encode action payload: %w", err)
	}
	query := `
		INSERT INTO agent_action_logs (` + actionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.q.Exec(ctx, query,
		a.ID, rc.OrganizationID, a.AgentRunID, a.CollectionCaseID, a.Sequence, a.Type, a.Status, a.Summary,
		payload, a.Error, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert agent action: %w", err)
	}
	return nil
}

// GetByID obtiene una acción de la organización.
func (r *AgentActionLogRepo) GetByID(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.AgentActionLog, error) {
	query := `SELECT ` + actionColumns + ` FROM agent_action_logs WHERE id = $1 AND organization_id = $2`
	a, err := scanAction(r.q.QueryRow(ctx, query, id, rc.OrganizationID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get agent action: %w", err)
	}
	return a, nil
}

// UpdateStatus solo toca estado, error y updated_at.
func (r *AgentActionLogRepo) UpdateStatus(ctx context.Context, rc repository.RepositoryContext, a *entity.AgentActionLog) error {
	query := `
		UPDATE agent_action_logs SET status = $3, error = $4, updated_at = $5
		WHERE id = $1 AND organization_id = $2`
	tag, err := r.q.Exec(ctx, query, a.ID, rc.OrganizationID, a.Status, a.Error, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update agent action status: %w", err)
	}
	return affected(tag)
}

// ListByRun acciones de la ejecución por secuencia.
func (r *AgentActionLogRepo) ListByRun(ctx context.Context, rc repository.RepositoryContext, runID string) ([]*entity.AgentActionLog, error) {
	query := `
		SELECT ` + actionColumns + ` FROM agent_action_logs
		WHERE organization_id = $1 AND agent_run_id = $2
		ORDER BY sequence`
	rows, err := r.q.Query(ctx, query, rc.OrganizationID, runID)
	if err != nil {
		return nil, fmt.Errorf("list agent actions: %w", err)
	}
	defer rows.Close()
	out := []*entity.AgentActionLog{}
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AgentConfigRepo configuración del agente, una fila por organización.
type AgentConfigRepo struct {
	q Querier
}

// NewAgentConfigRepository construye el adaptador de configuración del agente.
func NewAgentConfigRepository(q Querier) *AgentConfigRepo {
	return &AgentConfigRepo{q: q}
}

// Get devuelve (nil, nil) si la organización no tiene configuración guardada.
func (r *AgentConfigRepo) Get(ctx context.Context, rc repository.RepositoryContext) (*entity.AgentConfig, error) {
	query := `
		SELECT organization_id, default_timezone, escalation_contact, escalation_channel, llm_model,
			working_hours, created_at, updated_at
		FROM agent_configs WHERE organization_id = $1`
	var c entity.AgentConfig
	err := r.q.QueryRow(ctx, query, rc.OrganizationID).Scan(
		&c.OrganizationID, &c.DefaultTimezone, &c.EscalationContact, &c.EscalationChannel, &c.LLMModel,
		&c.WorkingHours, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get agent config: %w", err)
	}
	return &c, nil
}

// Upsert crea o reemplaza la configuración; created_at se conserva en la actualización.
func (r *AgentConfigRepo) Upsert(ctx context.Context, rc repository.RepositoryContext, c *entity.AgentConfig) error {
	query := `
		INSERT INTO agent_configs (organization_id, default_timezone, escalation_contact, escalation_channel,
			llm_model, working_hours, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (organization_id) DO UPDATE SET
			default_timezone = EXCLUDED.default_timezone,
			escalation_contact = EXCLUDED.escalation_contact,
			escalation_channel = EXCLUDED.escalation_channel,
			llm_model = EXCLUDED.llm_model,
			working_hours = EXCLUDED.working_hours,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		rc.OrganizationID, c.DefaultTimezone, c.EscalationContact, c.EscalationChannel,
		c.LLMModel, c.WorkingHours, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert agent config: %w", err)
	}
	return nil
}
