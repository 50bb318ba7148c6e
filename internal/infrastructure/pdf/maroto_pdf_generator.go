// Package pdf genera el estado de cuenta de una empresa cliente: facturas abiertas con su
// seguimiento y saldo pendiente por moneda.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Organización + NIT  │  ESTADO DE CUENTA + Fecha     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLIENTE: Razón social + NIT + contacto                      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Factura | Emisión | Vence | Seguimiento | Mora | Saldo│
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: saldo pendiente por moneda                         │
//	│  FOOTER: leyenda                                             │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"sort"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

var _ ports.StatementRenderer = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorDanger  = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// trackingLabels texto del seguimiento derivado en el documento.
var trackingLabels = map[string]string{
	"pagada":             "Pagada",
	"cancelada":          "Cancelada",
	"sin_fecha":          "Sin fecha de pago",
	"con_promesa_hoy":    "Promesa vence hoy",
	"promesa_incumplida": "Promesa incumplida",
	"vence_hoy":          "Vence hoy",
	"vencida":            "Vencida",
	"con_fecha":          "Con fecha de pago",
	"pendiente":          "Pendiente",
}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa ports.StatementRenderer usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// RenderStatement genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) RenderStatement(_ context.Context, st ports.Statement) ([]byte, error) {
	if st.Company == nil {
		return nil, fmt.Errorf("pdf: estado de cuenta sin empresa cliente")
	}
	orgName := "Cobranza"
	if st.Organization != nil && st.Organization.Name != "" {
		orgName = st.Organization.Name
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Estado de cuenta "+st.Company.Name, true).
		WithAuthor(orgName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(st, orgName))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(st.Company, st.Contact))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	if len(st.Lines) == 0 {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("La empresa no tiene facturas pendientes.", props.Text{Size: 8, Align: align.Center, Top: 2, Color: colorGray}),
		)))
	}
	for _, r := range tableDetailRows(st.Lines) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRows(st.Totals)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(row.New(8).Add(col.New(12).Add(
		text.New(
			"Si ya realizó el pago, por favor ignore este documento o responda con el soporte de la transacción.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(st ports.Statement, orgName string) core.Row {
	taxID := ""
	if st.Organization != nil && st.Organization.TaxID != "" {
		taxID = "NIT: " + st.Organization.TaxID
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(orgName, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New(taxID, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("ESTADO DE CUENTA", props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New("Corte: "+st.GeneratedAt.Format("02/01/2006"), props.Text{Size: 8, Align: align.Right, Top: 9, Color: colorGray}),
		),
	)
}

func customerRow(company *entity.CustomerCompany, contact *entity.Contact) core.Row {
	name := company.Name
	if company.LegalName != "" {
		name = company.LegalName
	}
	attn := "—"
	if contact != nil {
		attn = nonEmpty(strings.TrimSpace(contact.FullName()), nonEmpty(contact.Email, "—"))
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("CLIENTE", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(fmt.Sprintf("NIT: %s   |   Atención: %s", nonEmpty(company.TaxID, "—"), attn),
				props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Factura", 2, align.Left),
		h("Emisión", 2, align.Center),
		h("Vence", 2, align.Center),
		h("Seguimiento", 2, align.Left),
		h("Días mora", 1, align.Center),
		h("Saldo", 3, align.Right),
	)
}

func tableDetailRows(lines []ports.StatementLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		inv := l.Invoice
		overdue := props.Text{Size: 8, Align: align.Center, Top: 1}
		if l.DaysOverdue > 0 {
			overdue.Color = colorDanger
		}
		result = append(result, row.New(7).Add(
			col.New(2).Add(text.New(inv.Number, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(inv.IssueDate.Format("02/01/2006"), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(inv.DueDate.Format("02/01/2006"), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(trackingLabel(l.Tracking), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(fmt.Sprintf("%d", l.DaysOverdue), overdue)),
			col.New(3).Add(text.New(
				inv.Currency+" "+formatMoney(inv.OutstandingAmount),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRows una fila por moneda, en orden alfabético.
func totalsRows(totals map[string]decimal.Decimal) []core.Row {
	currencies := make([]string, 0, len(totals))
	for c := range totals {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	rows := make([]core.Row, 0, len(currencies))
	for _, c := range currencies {
		rows = append(rows, row.New(7).Add(
			col.New(6),
			col.New(3).Add(text.New("TOTAL PENDIENTE "+c+":", props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Right: 2, Top: 1,
			})),
			col.New(3).Add(text.New(formatMoney(totals[c]), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Right: 1, Top: 1,
			})),
		))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func trackingLabel(code string) string {
	if l, ok := trackingLabels[code]; ok {
		return l
	}
	return code
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney puntos de miles y coma decimal. Ej: 1234567.5 → "1.234.567,50".
func formatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3+4)
	if d.IsNegative() {
		buf = append(buf, '-')
	}
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf) + "," + frac
}
