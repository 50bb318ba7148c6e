package collections_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/application/dto"
	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

func TestOpenCollectionCase_UnoAbiertoPorFactura(t *testing.T) {
	f := newFixture(t)
	_, inv := f.withCase(t)

	_, err := f.svc.OpenCollectionCase(context.Background(), f.rc, dto.OpenCaseRequest{InvoiceID: inv.Invoice.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCaseAlreadyOpen)
}

func TestOpenCollectionCase_RiesgoPorMoraYContactoDeOtraEmpresa(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "Deudor")
	other := f.company(t, "Otra")
	stranger := f.contact(t, other.ID)
	inv := f.invoice(t, company.ID, invoiceOpts{number: "FV-M", issue: "2025-01-01", due: "2025-01-20", amount: 20000})

	_, err := f.svc.OpenCollectionCase(ctx, f.rc, dto.OpenCaseRequest{InvoiceID: inv.Invoice.ID, PrimaryContactID: stranger.ID})
	assert.True(t, domain.IsNotFound(err), "el contacto debe ser de la empresa de la factura")

	c, err := f.svc.OpenCollectionCase(ctx, f.rc, dto.OpenCaseRequest{InvoiceID: inv.Invoice.ID})
	require.NoError(t, err)
	assert.Equal(t, entity.RiskCritical, c.RiskLevel, "49 días de mora y saldo alto")
	assert.Empty(t, c.PrimaryContactID)
	require.NotNil(t, c.NextActionAt)
}

func TestOpenCollectionCase_FacturaDraft(t *testing.T) {
	f := newFixture(t)
	company := f.company(t, "Cliente")
	draft := f.invoice(t, company.ID, invoiceOpts{number: "FV-D", due: "2025-03-20", amount: 100, status: "DRAFT"})

	_, err := f.svc.OpenCollectionCase(context.Background(), f.rc, dto.OpenCaseRequest{InvoiceID: draft.Invoice.ID})
	assert.ErrorIs(t, err, domain.ErrInvoiceInvalidTransition)
}

func TestTransitionCaseStage_RespetaLaTabla(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.withCase(t)
	caseID := inv.Case.ID

	_, err := f.svc.TransitionCaseStage(ctx, f.rc, caseID, dto.TransitionStageRequest{Stage: "REMINDER_2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCaseInvalidStageTransition)

	c, err := f.svc.TransitionCaseStage(ctx, f.rc, caseID, dto.TransitionStageRequest{Stage: "reminder_1", Note: "primer recordatorio"})
	require.NoError(t, err)
	assert.Equal(t, entity.StageReminder1, c.Stage)
	assert.Equal(t, "primer recordatorio", c.Summary)

	detail, err := f.svc.GetCase(ctx, f.rc, caseID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []entity.CaseStage{entity.StageReminder2, entity.StagePromiseToPay, entity.StageManualReview}, detail.AllowedStages)
	assert.Equal(t, inv.Invoice.ID, detail.Invoice.ID)
	assert.NotNil(t, detail.Communications)
}

func TestTransitionCaseStage_ResolvedCierraElCaso(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.withCase(t)
	caseID := inv.Case.ID

	for _, st := range []string{"MANUAL_REVIEW", "RESOLVED"} {
		_, err := f.svc.TransitionCaseStage(ctx, f.rc, caseID, dto.TransitionStageRequest{Stage: st})
		require.NoError(t, err, st)
	}
	detail, err := f.svc.GetCase(ctx, f.rc, caseID)
	require.NoError(t, err)
	assert.Equal(t, entity.CaseStatusClosed, detail.Case.Status)
	assert.NotNil(t, detail.Case.ClosedAt)
	assert.Empty(t, detail.AllowedStages)

	_, err = f.svc.OpenCollectionCase(ctx, f.rc, dto.OpenCaseRequest{InvoiceID: inv.Invoice.ID})
	assert.NoError(t, err, "cerrado el anterior, la factura admite un caso nuevo")
}

func TestSetCaseStatus_PausaPeroNoCierra(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.withCase(t)

	paused, err := f.svc.SetCaseStatus(ctx, f.rc, inv.Case.ID, "PAUSED")
	require.NoError(t, err)
	assert.Equal(t, entity.CaseStatusPaused, paused.Status)

	_, err = f.svc.SetCaseStatus(ctx, f.rc, inv.Case.ID, "CLOSED")
	require.Error(t, err)

	f.clock.Advance(72 * time.Hour)
	due, err := f.svc.ListCasesDueForAction(ctx, f.rc, 0)
	require.NoError(t, err)
	assert.Empty(t, due, "un caso pausado no aparece como pendiente")

	_, err = f.svc.SetCaseStatus(ctx, f.rc, inv.Case.ID, "ACTIVE")
	require.NoError(t, err)
	due, err = f.svc.ListCasesDueForAction(ctx, f.rc, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, inv.Case.ID, due[0].ID)
}
