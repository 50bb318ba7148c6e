package collections_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/collections"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

var allStages = []entity.CaseStage{
	entity.StageInitial, entity.StageReminder1, entity.StageReminder2, entity.StageEscalated,
	entity.StagePromiseToPay, entity.StageResolved, entity.StageManualReview,
}

func openCase(stage entity.CaseStage) entity.CollectionCase {
	return entity.CollectionCase{
		ID:             "case-1",
		OrganizationID: "org-1",
		InvoiceID:      "inv-1",
		Stage:          stage,
		Status:         entity.CaseStatusActive,
		RiskLevel:      entity.RiskLow,
	}
}

func TestTransitionCollectionStage_ResolvedEsTerminal(t *testing.T) {
	for _, to := range allStages {
		if to == entity.StageResolved {
			continue
		}
		_, err := collections.TransitionCollectionStage(entity.StageResolved, to)
		require.Error(t, err, "RESOLVED -> %s debe fallar", to)
		assert.Equal(t, "collection_case.invalid_stage_transition", domain.CodeOf(err))
	}
}

func TestTransitionCollectionStage_NoSaltaEtapas(t *testing.T) {
	got, err := collections.TransitionCollectionStage(entity.StageInitial, entity.StageReminder2)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCaseInvalidStageTransition)
	assert.Equal(t, entity.StageInitial, got, "nunca ajusta a la etapa legal más cercana")
}

func TestTransitionCollectionStage_Tabla(t *testing.T) {
	allowed := map[entity.CaseStage][]entity.CaseStage{
		entity.StageInitial:      {entity.StageReminder1, entity.StagePromiseToPay, entity.StageManualReview},
		entity.StageReminder1:    {entity.StageReminder2, entity.StagePromiseToPay, entity.StageManualReview},
		entity.StageReminder2:    {entity.StageEscalated, entity.StagePromiseToPay, entity.StageManualReview},
		entity.StageEscalated:    {entity.StagePromiseToPay, entity.StageManualReview, entity.StageResolved},
		entity.StagePromiseToPay: {entity.StageReminder2, entity.StageEscalated, entity.StageResolved, entity.StageManualReview},
		entity.StageManualReview: {entity.StageReminder1, entity.StageReminder2, entity.StageEscalated, entity.StageResolved},
	}
	for from, targets := range allowed {
		for _, to := range allStages {
			if to == from {
				continue
			}
			_, err := collections.TransitionCollectionStage(from, to)
			if contains(targets, to) {
				assert.NoError(t, err, "%s -> %s debe ser válida", from, to)
			} else {
				assert.Error(t, err, "%s -> %s debe ser inválida", from, to)
			}
		}
		assert.ElementsMatch(t, targets, collections.AllowedStages(from))
	}
}

func contains(list []entity.CaseStage, s entity.CaseStage) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestTransitionCollectionStage_MismaEtapaEsNoOp(t *testing.T) {
	got, err := collections.TransitionCollectionStage(entity.StageReminder1, entity.StageReminder1)
	require.NoError(t, err)
	assert.Equal(t, entity.StageReminder1, got)
}

func TestChangeStage_ResolverCierraElCaso(t *testing.T) {
	now := date(2024, 1, 15)
	c := openCase(entity.StageEscalated)
	next := now
	c.NextActionAt = &next

	got, err := collections.ChangeStage(c, entity.StageResolved, now)
	require.NoError(t, err)
	assert.Equal(t, entity.StageResolved, got.Stage)
	assert.Equal(t, entity.CaseStatusClosed, got.Status)
	require.NotNil(t, got.ClosedAt)
	assert.Nil(t, got.NextActionAt)
}

func TestChangeStage_EscalarFijaFecha(t *testing.T) {
	now := date(2024, 1, 15)
	got, err := collections.ChangeStage(openCase(entity.StageReminder2), entity.StageEscalated, now)
	require.NoError(t, err)
	require.NotNil(t, got.EscalationAt)
	assert.True(t, got.EscalationAt.Equal(now))
}

func TestChangeStatus_PausaYCierre(t *testing.T) {
	now := date(2024, 1, 15)
	c := openCase(entity.StageReminder1)

	paused, err := collections.ChangeStatus(c, entity.CaseStatusPaused, now)
	require.NoError(t, err)
	assert.Equal(t, entity.CaseStatusPaused, paused.Status)

	active, err := collections.ChangeStatus(paused, entity.CaseStatusActive, now)
	require.NoError(t, err)
	assert.Equal(t, entity.CaseStatusActive, active.Status)

	_, err = collections.ChangeStatus(active, entity.CaseStatusClosed, now)
	assert.ErrorIs(t, err, domain.ErrCaseInvalidStatePairing, "cerrar sin resolver rompe la paridad")
}

func TestCloseCase(t *testing.T) {
	now := date(2024, 1, 15)
	closed, err := collections.CloseCase(openCase(entity.StageReminder1), "factura pagada", now)
	require.NoError(t, err)
	assert.Equal(t, entity.StageResolved, closed.Stage)
	assert.Equal(t, entity.CaseStatusClosed, closed.Status)
	assert.Equal(t, "factura pagada", closed.Summary)

	_, err = collections.CloseCase(closed, "", now)
	assert.ErrorIs(t, err, domain.ErrCaseInvalidStatusTransition)

	_, err = collections.ChangeStatus(closed, entity.CaseStatusActive, now)
	assert.ErrorIs(t, err, domain.ErrCaseInvalidStatusTransition, "CLOSED es terminal")
}

func TestDetermineEscalationNeeded(t *testing.T) {
	now := date(2024, 1, 15)
	past := date(2024, 1, 14)
	future := date(2024, 1, 16)

	c := openCase(entity.StageReminder1)
	assert.False(t, collections.DetermineEscalationNeeded(c, now), "sin próxima acción")

	c.NextActionAt = &past
	assert.True(t, collections.DetermineEscalationNeeded(c, now))

	c.NextActionAt = &now
	assert.True(t, collections.DetermineEscalationNeeded(c, now), "vence en este instante")

	c.NextActionAt = &future
	assert.False(t, collections.DetermineEscalationNeeded(c, now))

	c.NextActionAt = &past
	c.Status = entity.CaseStatusPaused
	assert.False(t, collections.DetermineEscalationNeeded(c, now), "casos pausados no escalan")
}

func TestNextReminderStage(t *testing.T) {
	tests := []struct {
		from entity.CaseStage
		want entity.CaseStage
		ok   bool
	}{
		{entity.StageInitial, entity.StageReminder1, true},
		{entity.StageReminder1, entity.StageReminder2, true},
		{entity.StageReminder2, entity.StageEscalated, true},
		{entity.StagePromiseToPay, entity.StageEscalated, true},
		{entity.StageEscalated, entity.StageEscalated, false},
		{entity.StageManualReview, entity.StageManualReview, false},
		{entity.StageResolved, entity.StageResolved, false},
	}
	for _, tt := range tests {
		got, ok := collections.NextReminderStage(tt.from)
		assert.Equal(t, tt.ok, ok, string(tt.from))
		assert.Equal(t, tt.want, got, string(tt.from))
		if ok {
			assert.True(t, collections.CanTransitionStage(tt.from, got), "la escalera respeta la tabla")
		}
	}
}

func TestRiskLevelFor(t *testing.T) {
	small := decimal.NewFromInt(500)
	big := decimal.NewFromInt(15000)
	tests := []struct {
		name        string
		days        int
		outstanding decimal.Decimal
		want        entity.RiskLevel
	}{
		{"al día", 0, big, entity.RiskLow},
		{"un día", 1, small, entity.RiskMedium},
		{"un día saldo alto", 1, big, entity.RiskHigh},
		{"31 días", 31, small, entity.RiskHigh},
		{"31 días saldo alto", 31, big, entity.RiskCritical},
		{"91 días", 91, small, entity.RiskCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, collections.RiskLevelFor(tt.days, tt.outstanding))
		})
	}
}
