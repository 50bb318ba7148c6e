package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// StatementLine una factura abierta dentro del estado de cuenta.
type StatementLine struct {
	Invoice     *entity.Invoice
	Tracking    string
	DaysOverdue int
}

// Statement estado de cuenta de una empresa cliente a una fecha.
type Statement struct {
	Organization *entity.Organization
	Company      *entity.CustomerCompany
	Contact      *entity.Contact
	Lines        []StatementLine
	Totals       map[string]decimal.Decimal // saldo pendiente por moneda
	GeneratedAt  time.Time
}

// StatementRenderer genera la representación PDF del estado de cuenta.
type StatementRenderer interface {
	RenderStatement(ctx context.Context, st Statement) ([]byte, error)
}
