package collections_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/collections"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

func newRun(t *testing.T) entity.AgentRun {
	t.Helper()
	run, err := entity.NewAgentRun("run-1", "org-1", "case-1", nil, date(2024, 1, 15))
	require.NoError(t, err)
	return *run
}

// Escenario E: iniciar una ejecución ya completada falla.
func TestStartAgentRun_EscenarioE_Completada(t *testing.T) {
	run := newRun(t)
	run.Status = entity.AgentRunCompleted

	_, err := collections.StartAgentRun(run, date(2024, 1, 15))
	require.Error(t, err)
	assert.Equal(t, "agent_run.invalid_status_transition", domain.CodeOf(err))
}

func TestAgentRun_CicloCompleto(t *testing.T) {
	now := date(2024, 1, 15)
	run := newRun(t)
	assert.Equal(t, entity.AgentRunPending, run.Status)

	run, err := collections.StartAgentRun(run, now)
	require.NoError(t, err)
	assert.Equal(t, entity.AgentRunRunning, run.Status)
	require.NotNil(t, run.StartedAt)

	done, err := collections.FinalizeAgentRun(run, collections.RunOutcome{Status: entity.AgentRunCompleted, Error: "ignorado"}, now)
	require.NoError(t, err)
	assert.Equal(t, entity.AgentRunCompleted, done.Status)
	assert.Empty(t, done.Error, "el error solo se guarda si FAILED")
	require.NotNil(t, done.FinishedAt)

	failed, err := collections.FinalizeAgentRun(run, collections.RunOutcome{Status: entity.AgentRunFailed, Error: "timeout proveedor"}, now)
	require.NoError(t, err)
	assert.Equal(t, "timeout proveedor", failed.Error)

	_, err = collections.FinalizeAgentRun(run, collections.RunOutcome{Status: entity.AgentRunRunning}, now)
	assert.ErrorIs(t, err, domain.ErrAgentRunInvalidTransition, "RUNNING no es terminal")

	_, err = collections.FinalizeAgentRun(done, collections.RunOutcome{Status: entity.AgentRunFailed}, now)
	assert.ErrorIs(t, err, domain.ErrAgentRunInvalidTransition, "no se refinaliza")
}

func TestFinalizeAgentRun_CancelarPendiente(t *testing.T) {
	got, err := collections.FinalizeAgentRun(newRun(t), collections.RunOutcome{Status: entity.AgentRunCancelled}, date(2024, 1, 15))
	require.NoError(t, err)
	assert.Equal(t, entity.AgentRunCancelled, got.Status)
}

func TestAppendAction_SecuenciaCreciente(t *testing.T) {
	now := date(2024, 1, 15)
	run, err := collections.StartAgentRun(newRun(t), now)
	require.NoError(t, err)

	var logs []entity.AgentActionLog
	for i, d := range []collections.ActionDraft{
		{ID: "a1", Type: entity.ActionLogNote, Payload: entity.LogNotePayload{Note: "inicio"}},
		{ID: "a2", Type: entity.ActionSendMessage, Payload: entity.SendMessagePayload{CommunicationAttemptID: "att-1", Channel: entity.ChannelEmail}},
		{ID: "a3", Type: entity.ActionEscalate},
	} {
		a, err := collections.AppendAction(run, logs, d, now)
		require.NoError(t, err)
		assert.Equal(t, i+1, a.Sequence)
		assert.Equal(t, entity.ActionPending, a.Status)
		assert.Equal(t, run.CollectionCaseID, a.CollectionCaseID)
		logs = append(logs, a)
	}

	updated, err := collections.UpdateActionStatus(logs[1], entity.ActionSucceeded, "", now)
	require.NoError(t, err)
	assert.Equal(t, logs[1].Sequence, updated.Sequence, "la secuencia no se reescribe")
}

func TestAppendAction_Rechazos(t *testing.T) {
	now := date(2024, 1, 15)
	pending := newRun(t)

	_, err := collections.AppendAction(pending, nil, collections.ActionDraft{Type: entity.ActionLogNote}, now)
	assert.ErrorIs(t, err, domain.ErrAgentActionRunClosed)

	run, err := collections.StartAgentRun(pending, now)
	require.NoError(t, err)

	_, err = collections.AppendAction(run, nil, collections.ActionDraft{
		Type:    entity.ActionCloseCase,
		Payload: entity.LogNotePayload{Note: "x"},
	}, now)
	assert.ErrorIs(t, err, domain.ErrAgentActionInvalidType, "payload de otro tipo")

	_, err = collections.AppendAction(run, nil, collections.ActionDraft{Type: "BORRAR_TODO"}, now)
	assert.ErrorIs(t, err, domain.ErrAgentActionInvalidType)
}

func TestUpdateActionStatus(t *testing.T) {
	now := date(2024, 1, 15)
	a := entity.AgentActionLog{ID: "a1", Sequence: 1, Type: entity.ActionSendMessage, Status: entity.ActionPending}

	inProgress, err := collections.UpdateActionStatus(a, entity.ActionInProgress, "", now)
	require.NoError(t, err)

	failed, err := collections.UpdateActionStatus(inProgress, entity.ActionFailed, "rebote", now)
	require.NoError(t, err)
	assert.Equal(t, "rebote", failed.Error)

	_, err = collections.UpdateActionStatus(failed, entity.ActionSucceeded, "", now)
	assert.ErrorIs(t, err, domain.ErrAgentActionInvalidTransition)
}
