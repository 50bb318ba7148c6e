package repository

import (
	"context"

	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// AgentRunRepository define el puerto de persistencia para ejecuciones del agente.
type AgentRunRepository interface {
	Create(ctx context.Context, rc RepositoryContext, run *entity.AgentRun) error
	GetByID(ctx context.Context, rc RepositoryContext, id string) (*entity.AgentRun, error)
	Update(ctx context.Context, rc RepositoryContext, run *entity.AgentRun) error
	ListByCase(ctx context.Context, rc RepositoryContext, caseID string) ([]*entity.AgentRun, error)
}

// AgentActionLogRepository registro append-only de acciones: no hay borrado y la secuencia no se reescribe.
type AgentActionLogRepository interface {
	Append(ctx context.Context, rc RepositoryContext, a *entity.AgentActionLog) error
	GetByID(ctx context.Context, rc RepositoryContext, id string) (*entity.AgentActionLog, error)
	// UpdateStatus persiste solo estado, error y updated_at.
	UpdateStatus(ctx context.Context, rc RepositoryContext, a *entity.AgentActionLog) error
	// ListByRun ordenadas por secuencia ascendente.
	ListByRun(ctx context.Context, rc RepositoryContext, runID string) ([]*entity.AgentActionLog, error)
}

// AgentConfigRepository una configuración por organización. Get devuelve (nil, nil) si no existe.
type AgentConfigRepository interface {
	Get(ctx context.Context, rc RepositoryContext) (*entity.AgentConfig, error)
	Upsert(ctx context.Context, rc RepositoryContext, cfg *entity.AgentConfig) error
}
