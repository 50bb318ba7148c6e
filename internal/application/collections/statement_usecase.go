package collections

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain"
	domcollections "github.com/emiliofantozzi/cobra/internal/domain/collections"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

// statementPageSize facturas leídas por página al armar el estado de cuenta.
const statementPageSize = 200

// openStatuses estados de factura que entran al estado de cuenta.
var openStatuses = []entity.InvoiceStatus{
	entity.InvoiceStatusPending,
	entity.InvoiceStatusPartiallyPaid,
	entity.InvoiceStatusOverdue,
}

// RenderCustomerStatement genera el PDF del estado de cuenta de una empresa cliente:
// facturas abiertas con su seguimiento y el saldo total por moneda.
func (s *Service) RenderCustomerStatement(ctx context.Context, rc repository.RepositoryContext, companyID string) (*ports.Attachment, error) {
	return s.renderStatement(ctx, rc, companyID, nil)
}

func (s *Service) renderStatement(ctx context.Context, rc repository.RepositoryContext, companyID string, contact *entity.Contact) (*ports.Attachment, error) {
	if s.renderer == nil {
		return nil, domain.Invalid(domain.ErrInvalidInput, "generador de estados de cuenta no configurado")
	}
	st, err := s.buildStatement(ctx, rc, companyID, contact)
	if err != nil {
		return nil, err
	}
	data, err := s.renderer.RenderStatement(ctx, *st)
	if err != nil {
		return nil, fmt.Errorf("generar estado de cuenta: %w", err)
	}
	return &ports.Attachment{
		Filename:    fmt.Sprintf("estado-de-cuenta-%s.pdf", st.GeneratedAt.Format("20060102")),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func (s *Service) buildStatement(ctx context.Context, rc repository.RepositoryContext, companyID string, contact *entity.Contact) (*ports.Statement, error) {
	company, err := loadCompany(ctx, s.repos, rc, companyID)
	if err != nil {
		return nil, err
	}
	org, err := s.repos.Organizations.GetByID(ctx, rc.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("obtener organización: %w", err)
	}
	if org == nil {
		org = &entity.Organization{ID: rc.OrganizationID}
	}
	if contact == nil {
		id, err := defaultContactID(ctx, s.repos, rc, companyID)
		if err != nil {
			return nil, err
		}
		if id != "" {
			if contact, err = loadContact(ctx, s.repos, rc, id); err != nil {
				return nil, err
			}
		}
	}
	now, err := s.localNow(ctx, s.repos, rc)
	if err != nil {
		return nil, err
	}

	st := &ports.Statement{
		Organization: org,
		Company:      company,
		Contact:      contact,
		Totals:       map[string]decimal.Decimal{},
		GeneratedAt:  now,
	}
	for offset := 0; ; offset += statementPageSize {
		page, err := s.repos.Invoices.List(ctx, rc, repository.InvoiceFilter{
			CustomerCompanyID: companyID,
			Statuses:          openStatuses,
			Limit:             statementPageSize,
			Offset:            offset,
		})
		if err != nil {
			return nil, fmt.Errorf("listar facturas: %w", err)
		}
		for _, inv := range page {
			st.Lines = append(st.Lines, ports.StatementLine{
				Invoice:     inv,
				Tracking:    string(domcollections.GetDerivedTrackingStatus(*inv, now)),
				DaysOverdue: domcollections.CalculateDaysOverdue(inv.DueDate, now),
			})
			st.Totals[inv.Currency] = st.Totals[inv.Currency].Add(inv.OutstandingAmount)
		}
		if len(page) < statementPageSize {
			break
		}
	}
	sort.SliceStable(st.Lines, func(i, j int) bool {
		return st.Lines[i].Invoice.DueDate.Before(st.Lines[j].Invoice.DueDate)
	})
	return st, nil
}
