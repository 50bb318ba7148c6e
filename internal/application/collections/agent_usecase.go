package collections

import (
	"context"
	"encoding/json"
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

// StartAgentRun crea la ejecución del agente sobre un caso abierto y la deja RUNNING.
func (s *Service) StartAgentRun(ctx context.Context, rc repository.RepositoryContext, in dto.StartAgentRunRequest) (*entity.AgentRun, error) {
	if len(in.Metadata) > 0 && !json.Valid(in.Metadata) {
		return nil, domain.Invalid(domain.ErrInvalidInput, "metadata no es JSON válido")
	}
	ev := s.batch(rc)
	var out *entity.AgentRun
	err := s.tx.Run(ctx, func(r Repositories) error {
		c, err := loadCase(ctx, r, rc, in.CollectionCaseID)
		if err != nil {
			return err
		}
		if c.IsClosed() {
			return domain.Invalid(domain.ErrCaseInvalidStatusTransition, "caso %s cerrado", c.ID)
		}
		now := s.clock.Now()
		run, err := entity.NewAgentRun(s.newID(), rc.OrganizationID, c.ID, in.Metadata, now)
		if err != nil {
			return err
		}
		started, err := domcollections.StartAgentRun(*run, now)
		if err != nil {
			return err
		}
		if err := r.AgentRuns.Create(ctx, rc, &started); err != nil {
			return fmt.Errorf("crear ejecución: %w", err)
		}
		if err := touchCase(ctx, r, rc, c.ID, func(cc *entity.CollectionCase) { cc.LastAgentActionAt = &now }, now); err != nil {
			return err
		}
		ev.add(ports.EventAgentRunStarted, started.ID, map[string]any{"collection_case_id": c.ID})
		out = &started
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return out, nil
}

// RecordAgentAction agrega una acción al registro de la ejecución. Una acción registrada como
// SUCCEEDED aplica su efecto sobre el caso en la misma transacción.
func (s *Service) RecordAgentAction(ctx context.Context, rc repository.RepositoryContext, runID string, in dto.RecordAgentActionRequest) (*entity.AgentActionLog, error) {
	typ := entity.ActionType(strings.ToUpper(in.Type))
	if !typ.IsValid() {
		return nil, domain.Invalid(domain.ErrAgentActionInvalidType, "%q", in.Type)
	}
	payload, err := entity.DecodeActionPayload(typ, in.Payload)
	if err != nil {
		return nil, domain.Invalid(domain.ErrInvalidInput, "%v", err)
	}
	ev := s.batch(rc)
	var out *entity.AgentActionLog
	err = s.tx.Run(ctx, func(r Repositories) error {
		now := s.clock.Now()
		a, err := s.appendAction(ctx, r, rc, runID, nil, domcollections.ActionDraft{
			Type:    typ,
			Status:  entity.ActionStatus(strings.ToUpper(in.Status)),
			Summary: strings.TrimSpace(in.Summary),
			Payload: payload,
		}, now)
		if err != nil {
			return err
		}
		if a.Status == entity.ActionSucceeded {
			if err := s.applyActionEffects(ctx, r, rc, *a, ev); err != nil {
				return err
			}
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return out, nil
}

// UpdateAgentActionStatus avanza el estado de una acción; al pasar a SUCCEEDED aplica su efecto.
func (s *Service) UpdateAgentActionStatus(ctx context.Context, rc repository.RepositoryContext, actionID string, in dto.UpdateAgentActionStatusRequest) (*entity.AgentActionLog, error) {
	ev := s.batch(rc)
	var out *entity.AgentActionLog
	err := s.tx.Run(ctx, func(r Repositories) error {
		a, err := r.AgentActions.GetByID(ctx, rc, actionID)
		if err != nil {
			return fmt.Errorf("obtener acción: %w", err)
		}
		if a == nil {
			return notFound("acción", actionID)
		}
		now := s.clock.Now()
		updated, err := domcollections.UpdateActionStatus(*a, entity.ActionStatus(strings.ToUpper(in.Status)), in.Error, now)
		if err != nil {
			return err
		}
		if updated.Status == a.Status {
			out = a
			return nil
		}
		if err := r.AgentActions.UpdateStatus(ctx, rc, &updated); err != nil {
			return fmt.Errorf("actualizar acción: %w", err)
		}
		if updated.Status == entity.ActionSucceeded {
			if err := s.applyActionEffects(ctx, r, rc, updated, ev); err != nil {
				return err
			}
		}
		out = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	return out, nil
}

// FinalizeAgentRun cierra la ejecución en COMPLETED, FAILED o CANCELLED.
func (s *Service) FinalizeAgentRun(ctx context.Context, rc repository.RepositoryContext, runID string, in dto.FinalizeAgentRunRequest) (*entity.AgentRun, error) {
	ev := s.batch(rc)
	var out *entity.AgentRun
	err := s.tx.Run(ctx, func(r Repositories) error {
		run, err := loadRun(ctx, r, rc, runID)
		if err != nil {
			return err
		}
		finished, err := domcollections.FinalizeAgentRun(*run, domcollections.RunOutcome{
			Status: entity.AgentRunStatus(strings.ToUpper(in.Status)),
			Error:  in.Error,
		}, s.clock.Now())
		if err != nil {
			return err
		}
		if err := r.AgentRuns.Update(ctx, rc, &finished); err != nil {
			return fmt.Errorf("actualizar ejecución: %w", err)
		}
		ev.add(ports.EventAgentRunFinished, finished.ID, map[string]any{
			"collection_case_id": finished.CollectionCaseID,
			"status":             finished.Status,
		})
		out = &finished
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ev)
	s.log.Info().
		Str("organization_id", rc.OrganizationID).
		Str("agent_run_id", runID).
		Str("status", string(out.Status)).
		Msg("ejecución del agente finalizada")
	return out, nil
}

// GetAgentRunTimeline devuelve la ejecución con sus acciones en orden de secuencia.
func (s *Service) GetAgentRunTimeline(ctx context.Context, rc repository.RepositoryContext, runID string) (*dto.AgentRunTimelineResponse, error) {
	run, err := loadRun(ctx, s.repos, rc, runID)
	if err != nil {
		return nil, err
	}
	actions, err := s.repos.AgentActions.ListByRun(ctx, rc, runID)
	if err != nil {
		return nil, fmt.Errorf("listar acciones: %w", err)
	}
	if actions == nil {
		actions = []*entity.AgentActionLog{}
	}
	return &dto.AgentRunTimelineResponse{Run: run, Actions: actions}, nil
}

// ListAgentRuns ejecuciones de un caso.
func (s *Service) ListAgentRuns(ctx context.Context, rc repository.RepositoryContext, caseID string) ([]*entity.AgentRun, error) {
	if _, err := loadCase(ctx, s.repos, rc, caseID); err != nil {
		return nil, err
	}
	runs, err := s.repos.AgentRuns.ListByCase(ctx, rc, caseID)
	if err != nil {
		return nil, fmt.Errorf("listar ejecuciones: %w", err)
	}
	return runs, nil
}

// GetAgentConfig configuración del agente de la organización; sin fila guardada devuelve la de defecto.
func (s *Service) GetAgentConfig(ctx context.Context, rc repository.RepositoryContext) (*entity.AgentConfig, error) {
	cfg, err := s.repos.AgentConfigs.Get(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("obtener config del agente: %w", err)
	}
	if cfg == nil {
		cfg = entity.NewDefaultAgentConfig(rc.OrganizationID, s.clock.Now())
	}
	return cfg, nil
}

// PatchAgentConfig mezcla el parche con la configuración actual: campos ausentes se conservan
// y campos presentes en null se limpian.
func (s *Service) PatchAgentConfig(ctx context.Context, rc repository.RepositoryContext, patch entity.AgentConfigPatch) (*entity.AgentConfig, error) {
	var out *entity.AgentConfig
	err := s.tx.Run(ctx, func(r Repositories) error {
		now := s.clock.Now()
		cfg, err := r.AgentConfigs.Get(ctx, rc)
		if err != nil {
			return fmt.Errorf("obtener config del agente: %w", err)
		}
		if cfg == nil {
			cfg = entity.NewDefaultAgentConfig(rc.OrganizationID, now)
		}
		updated, err := entity.ApplyAgentConfigPatch(*cfg, patch, now)
		if err != nil {
			return err
		}
		if err := r.AgentConfigs.Upsert(ctx, rc, &updated); err != nil {
			return fmt.Errorf("guardar config del agente: %w", err)
		}
		out = &updated
		return nil
	})
	return out, err
}

// appendAction agrega la acción al final del registro de la ejecución y actualiza lastAgentActionAt del caso.
// Si c no es nil, la ejecución debe pertenecer a ese caso.
func (s *Service) appendAction(ctx context.Context, r Repositories, rc repository.RepositoryContext, runID string, c *entity.CollectionCase, d domcollections.ActionDraft, now time.Time) (*entity.AgentActionLog, error) {
	run, err := loadRun(ctx, r, rc, runID)
	if err != nil {
		return nil, err
	}
	if c != nil && run.CollectionCaseID != c.ID {
		return nil, domain.Invalid(domain.ErrInvalidInput, "la ejecución %s no pertenece al caso %s", run.ID, c.ID)
	}
	existing, err := r.AgentActions.ListByRun(ctx, rc, run.ID)
	if err != nil {
		return nil, fmt.Errorf("listar acciones: %w", err)
	}
	if d.ID == "" {
		d.ID = s.newID()
	}
	a, err := domcollections.AppendAction(*run, values(existing), d, now)
	if err != nil {
		return nil, err
	}
	if err := r.AgentActions.Append(ctx, rc, &a); err != nil {
		return nil, fmt.Errorf("registrar acción: %w", err)
	}
	if err := touchCase(ctx, r, rc, run.CollectionCaseID, func(cc *entity.CollectionCase) { cc.LastAgentActionAt = &now }, now); err != nil {
		return nil, err
	}
	return &a, nil
}

// finishAction lleva una acción a su estado final.
func finishAction(ctx context.Context, r Repositories, rc repository.RepositoryContext, actionID string, status entity.ActionStatus, errMsg string, now time.Time) error {
	a, err := r.AgentActions.GetByID(ctx, rc, actionID)
	if err != nil {
		return fmt.Errorf("obtener acción: %w", err)
	}
	if a == nil {
		return notFound("acción", actionID)
	}
	updated, err := domcollections.UpdateActionStatus(*a, status, errMsg, now)
	if err != nil {
		return err
	}
	if err := r.AgentActions.UpdateStatus(ctx, rc, &updated); err != nil {
		return fmt.Errorf("actualizar acción: %w", err)
	}
	return nil
}

// applyActionEffects efecto sobre el caso de una acción exitosa:
// seguimiento programado, cambio de etapa/estado, escalamiento o cierre.
func (s *Service) applyActionEffects(ctx context.Context, r Repositories, rc repository.RepositoryContext, a entity.AgentActionLog, ev *eventBatch) error {
	switch a.Type {
	case entity.ActionScheduleFollowUp, entity.ActionUpdateStatus, entity.ActionEscalate, entity.ActionCloseCase:
	default:
		return nil
	}
	c, err := loadCase(ctx, r, rc, a.CollectionCaseID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	switch a.Type {
	case entity.ActionScheduleFollowUp:
		p, ok := a.Payload.(entity.ScheduleFollowUpPayload)
		if !ok || p.FollowUpAt.IsZero() {
			return domain.Invalid(domain.ErrInvalidInput, "%s requiere follow_up_at", a.Type)
		}
		if c.IsClosed() {
			return domain.Invalid(domain.ErrCaseInvalidStatusTransition, "caso %s cerrado", c.ID)
		}
		t := p.FollowUpAt
		c.NextActionAt = &t
		c.UpdatedAt = now
		if err := r.Cases.Update(ctx, rc, c); err != nil {
			return fmt.Errorf("actualizar caso: %w", err)
		}
	case entity.ActionUpdateStatus:
		p, ok := a.Payload.(entity.UpdateStatusPayload)
		if !ok || (p.ToStage == "" && p.ToStatus == "") {
			return domain.Invalid(domain.ErrInvalidInput, "%s requiere to_stage o to_status", a.Type)
		}
		if p.ToStage != "" {
			if c, err = s.changeStage(ctx, r, rc, c, p.ToStage, a.Summary, ev); err != nil {
				return err
			}
		}
		if p.ToStatus != "" {
			updated, err := domcollections.ChangeStatus(*c, p.ToStatus, now)
			if err != nil {
				return err
			}
			if updated.Status != c.Status {
				if err := r.Cases.Update(ctx, rc, &updated); err != nil {
					return fmt.Errorf("actualizar caso: %w", err)
				}
			}
		}
	case entity.ActionEscalate:
		reason := a.Summary
		if p, ok := a.Payload.(entity.EscalatePayload); ok && p.Reason != "" {
			reason = p.Reason
		}
		if _, err := s.changeStage(ctx, r, rc, c, entity.StageEscalated, reason, ev); err != nil {
			return err
		}
	case entity.ActionCloseCase:
		reason := a.Summary
		if p, ok := a.Payload.(entity.CloseCasePayload); ok && p.Reason != "" {
			reason = p.Reason
		}
		if _, err := s.changeStage(ctx, r, rc, c, entity.StageResolved, reason, ev); err != nil {
			return err
		}
	}
	return nil
}

func loadRun(ctx context.Context, r Repositories, rc repository.RepositoryContext, id string) (*entity.AgentRun, error) {
	run, err := r.AgentRuns.GetByID(ctx, rc, id)
	if err != nil {
		return nil, fmt.Errorf("obtener ejecución: %w", err)
	}
	if run == nil {
		return nil, notFound("ejecución", id)
	}
	return run, nil
}
