package pdf_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/infrastructure/pdf"
)

func TestRenderStatement_GeneraPDF(t *testing.T) {
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	st := ports.Statement{
		Organization: &entity.Organization{ID: "org-1", Name: "Acme Cobranzas", TaxID: "900123456"},
		Company:      &entity.CustomerCompany{ID: "co-1", Name: "Cliente SAS", TaxID: "800111222"},
		Contact:      &entity.Contact{FirstName: "Ana", LastName: "Pérez", Email: "ana@cliente.co"},
		Lines: []ports.StatementLine{{
			Invoice: &entity.Invoice{
				Number: "FV-1", IssueDate: due.AddDate(0, -1, 0), DueDate: due,
				Currency: "COP", OutstandingAmount: decimal.NewFromInt(1500000),
			},
			Tracking:    "vencida",
			DaysOverdue: 9,
		}},
		Totals:      map[string]decimal.Decimal{"COP": decimal.NewFromInt(1500000)},
		GeneratedAt: due.AddDate(0, 0, 9),
	}

	data, err := pdf.NewMarotoPDFGenerator().RenderStatement(context.Background(), st)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestRenderStatement_SinFacturas(t *testing.T) {
	st := ports.Statement{
		Company:     &entity.CustomerCompany{ID: "co-1", Name: "Cliente SAS"},
		Totals:      map[string]decimal.Decimal{},
		GeneratedAt: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	data, err := pdf.NewMarotoPDFGenerator().RenderStatement(context.Background(), st)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRenderStatement_SinEmpresa(t *testing.T) {
	_, err := pdf.NewMarotoPDFGenerator().RenderStatement(context.Background(), ports.Statement{})
	assert.Error(t, err)
}
