package collections_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/application/dto"
	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

func TestCreateInvoice_AbreCasoConProximaAccion(t *testing.T) {
	f := newFixture(t)
	contact, inv := f.withCase(t)

	assert.Equal(t, entity.InvoiceStatusPending, inv.Invoice.Status)
	assert.Equal(t, "sin_fecha", inv.Tracking.Status)
	assert.Equal(t, 10, inv.Tracking.DaysToDue)
	assert.Equal(t, "2025-03-10", inv.Tracking.Today)

	c := inv.Case
	assert.Equal(t, entity.StageInitial, c.Stage)
	assert.Equal(t, entity.CaseStatusActive, c.Status)
	assert.Equal(t, entity.RiskLow, c.RiskLevel)
	assert.Equal(t, contact.ID, c.PrimaryContactID, "sin contacto explícito usa el de facturación")
	require.NotNil(t, c.NextActionAt)
	assert.Equal(t, day(2025, 3, 11), *c.NextActionAt, "sin fecha esperada: mañana")

	assert.Equal(t, []string{ports.EventInvoiceCreated, ports.EventCaseOpened}, f.events.types())
}

func TestCreateInvoice_VencidaNaceOverdue(t *testing.T) {
	f := newFixture(t)
	company := f.company(t, "Cliente Dos")
	inv := f.invoice(t, company.ID, invoiceOpts{number: "FV-1", issue: "2025-02-01", due: "2025-03-01", amount: 500})

	assert.Equal(t, entity.InvoiceStatusOverdue, inv.Invoice.Status)
	assert.Equal(t, 9, inv.Tracking.DaysOverdue)
	assert.Nil(t, inv.Case)
}

func TestCreateInvoice_NumeroDuplicado(t *testing.T) {
	f := newFixture(t)
	company := f.company(t, "Cliente Tres")
	f.invoice(t, company.ID, invoiceOpts{number: "FV-7", due: "2025-03-20", amount: 100})

	_, err := f.svc.CreateInvoice(context.Background(), f.rc, dto.CreateInvoiceRequest{
		CustomerCompanyID: company.ID,
		Number:            "FV-7",
		IssueDate:         "2025-03-01",
		DueDate:           "2025-03-25",
		Amount:            decimal.NewFromInt(200),
		Currency:          "COP",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestCreateInvoice_CuotasDebenSumarElMonto(t *testing.T) {
	f := newFixture(t)
	company := f.company(t, "Cliente Cuatro")

	_, err := f.svc.CreateInvoice(context.Background(), f.rc, dto.CreateInvoiceRequest{
		CustomerCompanyID: company.ID,
		Number:            "FV-8",
		IssueDate:         "2025-03-01",
		DueDate:           "2025-04-30",
		Amount:            decimal.NewFromInt(1000),
		Currency:          "COP",
		Installments: []dto.InstallmentRequest{
			{DueDate: "2025-03-31", Amount: decimal.NewFromInt(400)},
			{DueDate: "2025-04-30", Amount: decimal.NewFromInt(500)},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInstallmentInvalidAmount)

	list, err := f.svc.ListInvoices(context.Background(), f.rc, dto.ListInvoicesRequest{})
	require.NoError(t, err)
	assert.Empty(t, list, "la transacción se revierte completa")
}

func TestRecordPayment_ParcialYLuegoTotalCierraCaso(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.withCase(t)

	partial, err := f.svc.RecordPayment(ctx, f.rc, inv.Invoice.ID, dto.RecordPaymentRequest{Amount: decimal.NewFromInt(400)})
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, partial.Invoice.Status)
	assert.Equal(t, "600.00", partial.Invoice.OutstandingAmount.StringFixed(2))
	require.NotNil(t, partial.Case)
	assert.Len(t, partial.Payments, 1)

	paid, err := f.svc.RecordPayment(ctx, f.rc, inv.Invoice.ID, dto.RecordPaymentRequest{Amount: decimal.NewFromInt(600), Method: "transferencia"})
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, paid.Invoice.Status)
	assert.True(t, paid.Invoice.OutstandingAmount.IsZero())
	assert.NotNil(t, paid.Invoice.PaidAt)
	assert.Nil(t, paid.Case, "la factura pagada ya no tiene caso abierto")
	assert.Equal(t, "pagada", paid.Tracking.Status)

	c, err := f.repos.Cases.GetByID(ctx, f.rc, inv.Case.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CaseStatusClosed, c.Status)
	assert.Equal(t, entity.StageResolved, c.Stage)
	assert.Equal(t, "factura pagada", c.Summary)
	assert.Nil(t, c.NextActionAt)
	assert.Equal(t, 1, f.events.count(ports.EventCaseClosed))
}

func TestRecordPayment_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.withCase(t)

	_, err := f.svc.RecordPayment(ctx, f.rc, inv.Invoice.ID, dto.RecordPaymentRequest{Amount: decimal.NewFromInt(100), Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrPaymentInvalidCurrency)

	_, err = f.svc.RecordPayment(ctx, f.rc, inv.Invoice.ID, dto.RecordPaymentRequest{Amount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrPaymentInvalidAmount)

	_, err = f.svc.RecordPayment(ctx, f.rc, "no-existe", dto.RecordPaymentRequest{Amount: decimal.NewFromInt(1)})
	assert.True(t, domain.IsNotFound(err))

	detail, err := f.svc.GetInvoice(ctx, f.rc, inv.Invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Payments)
	assert.Equal(t, entity.InvoiceStatusPending, detail.Invoice.Status)
}

func TestRecordPayment_FacturaDraftNoAdmitePagosHastaEmitirse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "Cliente Cinco")
	inv := f.invoice(t, company.ID, invoiceOpts{number: "FV-D", due: "2025-03-20", amount: 300, status: "DRAFT"})
	require.Equal(t, entity.InvoiceStatusDraft, inv.Invoice.Status)

	_, err := f.svc.RecordPayment(ctx, f.rc, inv.Invoice.ID, dto.RecordPaymentRequest{Amount: decimal.NewFromInt(300)})
	assert.ErrorIs(t, err, domain.ErrInvoiceInvalidTransition)

	issued, err := f.svc.IssueInvoice(ctx, f.rc, inv.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPending, issued.Invoice.Status)

	paid, err := f.svc.RecordPayment(ctx, f.rc, inv.Invoice.ID, dto.RecordPaymentRequest{Amount: decimal.NewFromInt(300)})
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaid, paid.Invoice.Status)
}

func TestUpdatePaymentStatus_ReembolsoReabreSaldo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.withCase(t)

	paid, err := f.svc.RecordPayment(ctx, f.rc, inv.Invoice.ID, dto.RecordPaymentRequest{Amount: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	require.Equal(t, entity.InvoiceStatusPaid, paid.Invoice.Status)

	refunded, err := f.svc.UpdatePaymentStatus(ctx, f.rc, paid.Payments[0].ID, "REFUNDED")
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPending, refunded.Invoice.Status)
	assert.Equal(t, "1000.00", refunded.Invoice.OutstandingAmount.StringFixed(2))
	assert.Nil(t, refunded.Invoice.PaidAt)

	_, err = f.svc.UpdatePaymentStatus(ctx, f.rc, paid.Payments[0].ID, "COMPLETED")
	assert.ErrorIs(t, err, domain.ErrPaymentInvalidTransition)
}

func TestRecordPayment_CuotaVencidaConFacturaAlDia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "Cliente Seis")

	inv, err := f.svc.CreateInvoice(ctx, f.rc, dto.CreateInvoiceRequest{
		CustomerCompanyID: company.ID,
		Number:            "FV-C",
		IssueDate:         "2025-02-01",
		DueDate:           "2025-04-30",
		Amount:            decimal.NewFromInt(1000),
		Currency:          "COP",
		Installments: []dto.InstallmentRequest{
			{DueDate: "2025-03-05", Amount: decimal.NewFromInt(400)},
			{DueDate: "2025-04-30", Amount: decimal.NewFromInt(600)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPending, inv.Invoice.Status, "la factura vence el 30 de abril")
	require.Len(t, inv.Installments, 2)
	assert.Equal(t, entity.InstallmentStatusOverdue, inv.Installments[0].Status)

	out, err := f.svc.RecordPayment(ctx, f.rc, inv.Invoice.ID, dto.RecordPaymentRequest{
		Amount:        decimal.NewFromInt(400),
		InstallmentID: inv.Installments[0].ID,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, out.Invoice.Status)
	assert.Equal(t, entity.InstallmentStatusPaid, out.Installments[0].Status)
	assert.Equal(t, entity.InstallmentStatusPending, out.Installments[1].Status)
}

func TestRegisterPaymentPromise_LlevaCasoAPromesa(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.withCase(t)

	out, err := f.svc.RegisterPaymentPromise(ctx, f.rc, inv.Invoice.ID, dto.RegisterPaymentPromiseRequest{PromiseDate: "2025-03-15", Note: "paga el viernes"})
	require.NoError(t, err)
	require.NotNil(t, out.Invoice.PaymentPromiseDate)
	assert.Equal(t, day(2025, 3, 15), *out.Invoice.PaymentPromiseDate)
	require.NotNil(t, out.Invoice.ExpectedPaymentDate)
	assert.Equal(t, day(2025, 3, 15), *out.Invoice.ExpectedPaymentDate, "la promesa fija la fecha esperada faltante")
	assert.Equal(t, "con_fecha", out.Tracking.Status)

	require.NotNil(t, out.Case)
	assert.Equal(t, entity.StagePromiseToPay, out.Case.Stage)
	assert.Equal(t, "paga el viernes", out.Case.Summary)
	require.NotNil(t, out.Case.NextActionAt)
	assert.Equal(t, day(2025, 3, 14), *out.Case.NextActionAt, "recordatorio un día antes de la fecha esperada")

	_, err = f.svc.RegisterPaymentPromise(ctx, f.rc, inv.Invoice.ID, dto.RegisterPaymentPromiseRequest{PromiseDate: "2025-03-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSetExpectedPaymentDate_ReprogramaCaso(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.withCase(t)

	out, err := f.svc.SetExpectedPaymentDate(ctx, f.rc, inv.Invoice.ID, dto.SetExpectedPaymentDateRequest{Date: strPtr("2025-03-18")})
	require.NoError(t, err)
	assert.Equal(t, "con_fecha", out.Tracking.Status)
	require.NotNil(t, out.Case.NextActionAt)
	assert.Equal(t, day(2025, 3, 17), *out.Case.NextActionAt)

	cleared, err := f.svc.SetExpectedPaymentDate(ctx, f.rc, inv.Invoice.ID, dto.SetExpectedPaymentDateRequest{})
	require.NoError(t, err)
	assert.Nil(t, cleared.Invoice.ExpectedPaymentDate)
	assert.Equal(t, day(2025, 3, 11), *cleared.Case.NextActionAt)
}

func TestCancelInvoice_CierraCaso(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.withCase(t)

	out, err := f.svc.CancelInvoice(ctx, f.rc, inv.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusCancelled, out.Invoice.Status)
	assert.Nil(t, out.Case)

	c, err := f.repos.Cases.GetByID(ctx, f.rc, inv.Case.ID)
	require.NoError(t, err)
	assert.True(t, c.IsClosed())
	assert.Equal(t, "factura cancelada", c.Summary)

	_, err = f.svc.RecordPayment(ctx, f.rc, inv.Invoice.ID, dto.RecordPaymentRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrInvoiceInvalidTransition)
}

func TestListInvoices_FiltraPorEstados(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "Cliente Siete")
	f.invoice(t, company.ID, invoiceOpts{number: "A-1", due: "2025-03-20", amount: 100})
	f.invoice(t, company.ID, invoiceOpts{number: "A-2", issue: "2025-02-01", due: "2025-03-01", amount: 100})
	f.invoice(t, company.ID, invoiceOpts{number: "A-3", due: "2025-03-20", amount: 100, status: "DRAFT"})

	list, err := f.svc.ListInvoices(ctx, f.rc, dto.ListInvoicesRequest{Status: "pending, overdue"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A-2", list[0].Number, "ordenadas por vencimiento")

	_, err = f.svc.ListInvoices(ctx, f.rc, dto.ListInvoicesRequest{Status: "PAGADA"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInvoices_AisladasPorOrganizacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, inv := f.withCase(t)

	other := f.rc
	other.OrganizationID = "org-2"
	_, err := f.svc.GetInvoice(ctx, other, inv.Invoice.ID)
	assert.True(t, domain.IsNotFound(err))
}
