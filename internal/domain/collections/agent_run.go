package collections

import (
	"strings"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

var runTransitions = map[entity.AgentRunStatus][]entity.AgentRunStatus{
	entity.AgentRunPending: {entity.AgentRunRunning, entity.AgentRunCancelled},
	entity.AgentRunRunning: {entity.AgentRunCompleted, entity.AgentRunFailed, entity.AgentRunCancelled},
}

var actionTransitions = map[entity.ActionStatus][]entity.ActionStatus{
	entity.ActionPending:    {entity.ActionInProgress, entity.ActionSucceeded, entity.ActionFailed},
	entity.ActionInProgress: {entity.ActionSucceeded, entity.ActionFailed},
}

// CanTransitionRun indica si from -> to está permitido.
func CanTransitionRun(from, to entity.AgentRunStatus) bool {
	for _, s := range runTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StartAgentRun PENDING -> RUNNING y fija startedAt.
func StartAgentRun(run entity.AgentRun, now time.Time) (entity.AgentRun, error) {
	if !CanTransitionRun(run.Status, entity.AgentRunRunning) {
		return run, domain.Invalid(domain.ErrAgentRunInvalidTransition, "%s -> %s", run.Status, entity.AgentRunRunning)
	}
	t := now
	run.Status = entity.AgentRunRunning
	run.StartedAt = &t
	run.UpdatedAt = now
	return run, nil
}

// RunOutcome resultado final de una ejecución.
type RunOutcome struct {
	Status entity.AgentRunStatus
	Error  string
}

// FinalizeAgentRun valida el estado terminal, fija finishedAt y guarda el error solo si FAILED.
func FinalizeAgentRun(run entity.AgentRun, outcome RunOutcome, now time.Time) (entity.AgentRun, error) {
	if !outcome.Status.IsTerminal() || !CanTransitionRun(run.Status, outcome.Status) {
		return run, domain.Invalid(domain.ErrAgentRunInvalidTransition, "%s -> %s", run.Status, outcome.Status)
	}
	t := now
	run.Status = outcome.Status
	run.FinishedAt = &t
	run.Error = ""
	if outcome.Status == entity.AgentRunFailed {
		run.Error = strings.TrimSpace(outcome.Error)
	}
	run.UpdatedAt = now
	return run, nil
}

// ActionDraft datos de una nueva acción del agente.
type ActionDraft struct {
	ID      string
	Type    entity.ActionType
	Status  entity.ActionStatus // vacío = PENDING
	Summary string
	Payload entity.ActionPayload
}

// AppendAction agrega una acción al final del registro de la ejecución.
// La secuencia es el orden de creación; solo ejecuciones RUNNING aceptan acciones.
func AppendAction(run entity.AgentRun, existing []entity.AgentActionLog, d ActionDraft, now time.Time) (entity.AgentActionLog, error) {
	if run.Status != entity.AgentRunRunning {
		return entity.AgentActionLog{}, domain.Invalid(domain.ErrAgentActionRunClosed, "ejecución en %s", run.Status)
	}
	if err := entity.ValidateActionPayload(d.Type, d.Payload); err != nil {
		return entity.AgentActionLog{}, err
	}
	status := d.Status
	if status == "" {
		status = entity.ActionPending
	}
	switch status {
	case entity.ActionPending, entity.ActionInProgress, entity.ActionSucceeded, entity.ActionFailed:
	default:
		return entity.AgentActionLog{}, domain.Invalid(domain.ErrAgentActionInvalidTransition, "estado inicial %q", status)
	}
	seq := 1
	for i := range existing {
		if existing[i].Sequence >= seq {
			seq = existing[i].Sequence + 1
		}
	}
	return entity.AgentActionLog{
		ID:               d.ID,
		OrganizationID:   run.OrganizationID,
		AgentRunID:       run.ID,
		CollectionCaseID: run.CollectionCaseID,
		Sequence:         seq,
		Type:             d.Type,
		Status:           status,
		Summary:          d.Summary,
		Payload:          d.Payload,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// UpdateActionStatus cambia el estado de una acción sin tocar su secuencia.
// El error solo se guarda cuando la acción falla.
func UpdateActionStatus(a entity.AgentActionLog, to entity.ActionStatus, errMsg string, now time.Time) (entity.AgentActionLog, error) {
	if a.Status == to {
		return a, nil
	}
	allowed := false
	for _, s := range actionTransitions[a.Status] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return a, domain.Invalid(domain.ErrAgentActionInvalidTransition, "%s -> %s", a.Status, to)
	}
	a.Status = to
	if to == entity.ActionFailed {
		a.Error = strings.TrimSpace(errMsg)
	}
	a.UpdatedAt = now
	return a, nil
}
