package collections

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// stageTransitions transiciones de etapa permitidas. RESOLVED es terminal.
var stageTransitions = map[entity.CaseStage][]entity.CaseStage{
	entity.StageInitial:      {entity.StageReminder1, entity.StagePromiseToPay, entity.StageManualReview},
	entity.StageReminder1:    {entity.StageReminder2, entity.StagePromiseToPay, entity.StageManualReview},
	entity.StageReminder2:    {entity.StageEscalated, entity.StagePromiseToPay, entity.StageManualReview},
	entity.StageEscalated:    {entity.StagePromiseToPay, entity.StageManualReview, entity.StageResolved},
	entity.StagePromiseToPay: {entity.StageReminder2, entity.StageEscalated, entity.StageResolved, entity.StageManualReview},
	entity.StageResolved:     {},
	entity.StageManualReview: {entity.StageReminder1, entity.StageReminder2, entity.StageEscalated, entity.StageResolved},
}

// CanTransitionStage indica si from -> to está en la tabla. Misma etapa no es una transición.
func CanTransitionStage(from, to entity.CaseStage) bool {
	for _, s := range stageTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedStages etapas alcanzables desde from.
func AllowedStages(from entity.CaseStage) []entity.CaseStage {
	out := make([]entity.CaseStage, len(stageTransitions[from]))
	copy(out, stageTransitions[from])
	return out
}

// TransitionCollectionStage valida el cambio de etapa. Igual etapa es un no-op.
// Nunca ajusta a la etapa legal más cercana.
func TransitionCollectionStage(from, to entity.CaseStage) (entity.CaseStage, error) {
	if !to.IsValid() {
		return from, domain.Invalid(domain.ErrCaseInvalidStage, "%q", to)
	}
	if from == to {
		return from, nil
	}
	if !CanTransitionStage(from, to) {
		return from, domain.Invalid(domain.ErrCaseInvalidStageTransition, "%s -> %s", from, to)
	}
	return to, nil
}

// TransitionCaseStatus ACTIVE y PAUSED son intercambiables; CLOSED es terminal.
func TransitionCaseStatus(from, to entity.CaseStatus) (entity.CaseStatus, error) {
	if !to.IsValid() {
		return from, domain.Invalid(domain.ErrCaseInvalidStatusTransition, "estado %q", to)
	}
	if from == entity.CaseStatusClosed {
		if to == entity.CaseStatusClosed {
			return from, nil
		}
		return from, domain.Invalid(domain.ErrCaseInvalidStatusTransition, "%s -> %s", from, to)
	}
	return to, nil
}

// ChangeStage aplica una transición de etapa sobre el caso.
// Llegar a RESOLVED cierra el caso para mantener la paridad RESOLVED/CLOSED.
func ChangeStage(c entity.CollectionCase, to entity.CaseStage, now time.Time) (entity.CollectionCase, error) {
	if c.IsClosed() && to != c.Stage {
		return c, domain.Invalid(domain.ErrCaseInvalidStatusTransition, "caso cerrado")
	}
	stage, err := TransitionCollectionStage(c.Stage, to)
	if err != nil {
		return c, err
	}
	if stage == c.Stage {
		return c, nil
	}
	c.Stage = stage
	switch stage {
	case entity.StageResolved:
		t := now
		c.Status = entity.CaseStatusClosed
		c.ClosedAt = &t
		c.NextActionAt = nil
	case entity.StageEscalated:
		t := now
		c.EscalationAt = &t
	}
	c.UpdatedAt = now
	return c, nil
}

// ChangeStatus aplica una transición de estado operativo.
// El cierre por esta vía no está permitido: cerrar exige resolver (ver CloseCase).
func ChangeStatus(c entity.CollectionCase, to entity.CaseStatus, now time.Time) (entity.CollectionCase, error) {
	if to == entity.CaseStatusClosed && !c.IsClosed() {
		return c, domain.Invalid(domain.ErrCaseInvalidStatePairing, "use el cierre del caso")
	}
	status, err := TransitionCaseStatus(c.Status, to)
	if err != nil {
		return c, err
	}
	if status != c.Status {
		c.Status = status
		c.UpdatedAt = now
	}
	return c, nil
}

// CloseCase cierra el caso por liquidación de la factura (pagada o cancelada aguas arriba):
// fija RESOLVED + CLOSED desde cualquier etapa abierta.
func CloseCase(c entity.CollectionCase, summary string, now time.Time) (entity.CollectionCase, error) {
	if c.IsClosed() {
		return c, domain.Invalid(domain.ErrCaseInvalidStatusTransition, "%s -> %s", c.Status, entity.CaseStatusClosed)
	}
	t := now
	c.Stage = entity.StageResolved
	c.Status = entity.CaseStatusClosed
	c.ClosedAt = &t
	c.NextActionAt = nil
	if summary != "" {
		c.Summary = summary
	}
	c.UpdatedAt = now
	return c, nil
}

// DetermineEscalationNeeded verdadero si el caso está ACTIVE y su próxima acción ya venció.
func DetermineEscalationNeeded(c entity.CollectionCase, now time.Time) bool {
	if c.Status != entity.CaseStatusActive || c.NextActionAt == nil {
		return false
	}
	return !c.NextActionAt.After(now)
}

// NextReminderStage etapa que sigue en la escalera de recordatorios cuando vence la próxima acción.
// Devuelve false si la etapa actual no avanza automáticamente.
func NextReminderStage(s entity.CaseStage) (entity.CaseStage, bool) {
	switch s {
	case entity.StageInitial:
		return entity.StageReminder1, true
	case entity.StageReminder1:
		return entity.StageReminder2, true
	case entity.StageReminder2, entity.StagePromiseToPay:
		return entity.StageEscalated, true
	}
	return s, false
}

// Umbrales de riesgo por días de mora.
const (
	riskMediumDays   = 1
	riskHighDays     = 31
	riskCriticalDays = 91
)

// riskCriticalAmount saldos desde este monto suben un nivel de riesgo.
var riskCriticalAmount = decimal.NewFromInt(10000)

// RiskLevelFor estima el riesgo a partir de los días de mora y el saldo pendiente.
func RiskLevelFor(daysOverdue int, outstanding decimal.Decimal) entity.RiskLevel {
	level := entity.RiskLow
	switch {
	case daysOverdue >= riskCriticalDays:
		level = entity.RiskCritical
	case daysOverdue >= riskHighDays:
		level = entity.RiskHigh
	case daysOverdue >= riskMediumDays:
		level = entity.RiskMedium
	}
	if daysOverdue > 0 && outstanding.GreaterThanOrEqual(riskCriticalAmount) {
		switch level {
		case entity.RiskMedium:
			level = entity.RiskHigh
		case entity.RiskHigh:
			level = entity.RiskCritical
		}
	}
	return level
}
