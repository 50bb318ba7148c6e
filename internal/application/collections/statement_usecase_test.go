package collections_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/application/collections"
	"github.com/emiliofantozzi/cobra/internal/application/dto"
	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/infrastructure/memory"
)

func TestRenderCustomerStatement_SoloFacturasAbiertas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "Cliente")
	contact := f.contact(t, company.ID)
	f.invoice(t, company.ID, invoiceOpts{number: "FV-2", due: "2025-04-15", amount: 700})
	f.invoice(t, company.ID, invoiceOpts{number: "FV-1", issue: "2025-02-01", due: "2025-03-01", amount: 300, expected: strPtr("2025-03-05")})
	paid := f.invoice(t, company.ID, invoiceOpts{number: "FV-3", due: "2025-03-30", amount: 900})
	_, err := f.svc.RecordPayment(ctx, f.rc, paid.Invoice.ID, dto.RecordPaymentRequest{Amount: decimal.NewFromInt(900)})
	require.NoError(t, err)

	att, err := f.svc.RenderCustomerStatement(ctx, f.rc, company.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", att.ContentType)
	assert.Equal(t, []byte("%PDF-1.4"), att.Data)

	st := f.renderer.last
	require.NotNil(t, st)
	require.Len(t, st.Lines, 2, "la pagada no entra")
	assert.Equal(t, "FV-1", st.Lines[0].Invoice.Number)
	assert.Equal(t, "vencida", st.Lines[0].Tracking)
	assert.Equal(t, 9, st.Lines[0].DaysOverdue)
	assert.Equal(t, "FV-2", st.Lines[1].Invoice.Number)
	assert.True(t, decimal.NewFromInt(1000).Equal(st.Totals["COP"]))
	require.NotNil(t, st.Contact)
	assert.Equal(t, contact.ID, st.Contact.ID, "sin contacto explícito usa el de facturación")
	assert.Equal(t, "Acme Cobranzas", st.Organization.Name)
}

func TestRenderCustomerStatement_SinGenerador(t *testing.T) {
	store := memory.NewStore()
	svc := collections.NewService(memory.NewTxRunner(store), store.Repositories(), &fakeSender{}, nil, nil, nil, &collections.FixedClock{At: fixtureNow}, nil)
	f := newFixture(t)

	_, err := svc.RenderCustomerStatement(context.Background(), f.rc, "cualquiera")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.RenderCustomerStatement(context.Background(), f.rc, "no-existe")
	assert.True(t, domain.IsNotFound(err))
}
