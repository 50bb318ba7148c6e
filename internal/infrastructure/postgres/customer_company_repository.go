package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

var (
	_ repository.CustomerCompanyRepository = (*CustomerCompanyRepo)(nil)
	_ repository.ContactRepository         = (*ContactRepo)(nil)
)

// CustomerCompanyRepo implementación del puerto CustomerCompanyRepository sobre PostgreSQL.
type CustomerCompanyRepo struct {
	q Querier
}

// NewCustomerCompanyRepository construye el adaptador de persistencia para empresas cliente.
func NewCustomerCompanyRepository(q Querier) *CustomerCompanyRepo {
	return &CustomerCompanyRepo{q: q}
}

const companyColumns = `id, organization_id, name, legal_name, tax_id, status, industry, website, notes,
	archived_at, created_at, updated_at`

func scanCompany(row rowScanner) (*entity.CustomerCompany, error) {
	var c entity.CustomerCompany
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.Name, &c.LegalName, &c.TaxID, &c.Status, &c.Industry, &c.Website, &c.Notes,
		&c.ArchivedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create persiste una nueva empresa cliente.
func (r *CustomerCompanyRepo) Create(ctx context.Context, rc repository.RepositoryContext, c *entity.CustomerCompany) error {
	query := `
		INSERT INTO customer_companies (` + companyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		c.ID, rc.OrganizationID, c.Name, c.LegalName, c.TaxID, c.Status, c.Industry, c.Website, c.Notes,
		c.ArchivedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert customer company: %w", err)
	}
	return nil
}

// GetByID obtiene una empresa de la organización por ID.
func (r *CustomerCompanyRepo) GetByID(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.CustomerCompany, error) {
	query := `SELECT ` + companyColumns + ` FROM customer_companies WHERE id = $1 AND organization_id = $2`
	c, err := scanCompany(r.q.QueryRow(ctx, query, id, rc.OrganizationID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer company: %w", err)
	}
	return c, nil
}

// Update actualiza los datos mutables de la empresa.
func (r *CustomerCompanyRepo) Update(ctx context.Context, rc repository.RepositoryContext, c *entity.CustomerCompany) error {
	query := `
		UPDATE customer_companies SET name = $3, legal_name = $4, tax_id = $5, status = $6, industry = $7,
			website = $8, notes = $9, archived_at = $10, updated_at = $11
		WHERE id = $1 AND organization_id = $2`
	tag, err := r.q.Exec(ctx, query,
		c.ID, rc.OrganizationID, c.Name, c.LegalName, c.TaxID, c.Status, c.Industry,
		c.Website, c.Notes, c.ArchivedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update customer company: %w", err)
	}
	return affected(tag)
}

// List lista empresas por nombre con filtros opcionales de estado y búsqueda.
func (r *CustomerCompanyRepo) List(ctx context.Context, rc repository.RepositoryContext, f repository.CustomerCompanyFilter) ([]*entity.CustomerCompany, error) {
	var search string
	if s := strings.TrimSpace(f.Search); s != "" {
		search = "%" + s + "%"
	}
	query := `
		SELECT ` + companyColumns + ` FROM customer_companies
		WHERE organization_id = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR name ILIKE $3 OR legal_name ILIKE $3 OR tax_id ILIKE $3)
		ORDER BY name, created_at
		LIMIT NULLIF($4, 0) OFFSET $5`
	rows, err := r.q.Query(ctx, query, rc.OrganizationID, string(f.Status), search, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list customer companies: %w", err)
	}
	defer rows.Close()
	out := []*entity.CustomerCompany{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ContactRepo implementación del puerto ContactRepository sobre PostgreSQL.
type ContactRepo struct {
	q Querier
}

// NewContactRepository construye el adaptador de persistencia para contactos.
func NewContactRepository(q Querier) *ContactRepo {
	return &ContactRepo{q: q}
}

const contactColumns = `id, organization_id, customer_company_id, first_name, last_name, email, phone_number,
	whatsapp_number, role, preferred_channel, email_status, whatsapp_status, is_primary, is_billing_contact,
	opted_out_email, opted_out_email_at, opted_out_whatsapp, opted_out_whatsapp_at, created_at, updated_at`

func scanContact(row rowScanner) (*entity.Contact, error) {
	var c entity.Contact
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.CustomerCompanyID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber,
		&c.WhatsappNumber, &c.Role, &c.PreferredChannel, &c.EmailStatus, &c.WhatsappStatus, &c.IsPrimary, &c.IsBillingContact,
		&c.OptedOutEmail, &c.OptedOutEmailAt, &c.OptedOutWhatsapp, &c.OptedOutWhatsappAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create persiste un contacto. Un segundo principal o de facturación en la empresa da ErrDuplicate.
func (r *ContactRepo) Create(ctx context.Context, rc repository.RepositoryContext, c *entity.Contact) error {
	query := `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.q.Exec(ctx, query,
		c.ID, rc.OrganizationID, c.CustomerCompanyID, c.FirstName, c.LastName, c.Email, c.PhoneNumber,
		c.WhatsappNumber, c.Role, c.PreferredChannel, c.EmailStatus, c.WhatsappStatus, c.IsPrimary, c.IsBillingContact,
		c.OptedOutEmail, c.OptedOutEmailAt, c.OptedOutWhatsapp, c.OptedOutWhatsappAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// GetByID obtiene un contacto de la organización por ID.
func (r *ContactRepo) GetByID(ctx context.Context, rc repository.RepositoryContext, id string) (*entity.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1 AND organization_id = $2`
	c, err := scanContact(r.q.QueryRow(ctx, query, id, rc.OrganizationID))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// Update actualiza el contacto. La empresa no cambia.
func (r *ContactRepo) Update(ctx context.Context, rc repository.RepositoryContext, c *entity.Contact) error {
	query := `
		UPDATE contacts SET first_name = $3, last_name = $4, email = $5, phone_number = $6, whatsapp_number = $7,
			role = $8, preferred_channel = $9, email_status = $10, whatsapp_status = $11, is_primary = $12,
			is_billing_contact = $13, opted_out_email = $14, opted_out_email_at = $15, opted_out_whatsapp = $16,
			opted_out_whatsapp_at = $17, updated_at = $18
		WHERE id = $1 AND organization_id = $2`
	tag, err := r.q.Exec(ctx, query,
		c.ID, rc.OrganizationID, c.FirstName, c.LastName, c.Email, c.PhoneNumber, c.WhatsappNumber,
		c.Role, c.PreferredChannel, c.EmailStatus, c.WhatsappStatus, c.IsPrimary,
		c.IsBillingContact, c.OptedOutEmail, c.OptedOutEmailAt, c.OptedOutWhatsapp,
		c.OptedOutWhatsappAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update contact: %w", err)
	}
	return affected(tag)
}

// ListByCompany contactos de la empresa por fecha de alta.
func (r *ContactRepo) ListByCompany(ctx context.Context, rc repository.RepositoryContext, companyID string) ([]*entity.Contact, error) {
	query := `
		SELECT ` + contactColumns + ` FROM contacts
		WHERE organization_id = $1 AND customer_company_id = $2
		ORDER BY created_at`
	rows, err := r.q.Query(ctx, query, rc.OrganizationID, companyID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()
	out := []*entity.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ClearPrimary desmarca el principal actual de la empresa salvo exceptID.
func (r *ContactRepo) ClearPrimary(ctx context.Context, rc repository.RepositoryContext, companyID, exceptID string) error {
	return r.clearFlag(ctx, rc, "is_primary", companyID, exceptID)
}

// ClearBilling desmarca el contacto de facturación actual salvo exceptID.
func (r *ContactRepo) ClearBilling(ctx context.Context, rc repository.RepositoryContext, companyID, exceptID string) error {
	return r.clearFlag(ctx, rc, "is_billing_contact", companyID, exceptID)
}

// column es siempre una constante del paquete.
func (r *ContactRepo) clearFlag(ctx context.Context, rc repository.RepositoryContext, column, companyID, exceptID string) error {
	query := `
		UPDATE contacts SET ` + column + ` = false
		WHERE organization_id = $1 AND customer_company_id = $2 AND ` + column + ` AND id::text <> $3`
	if _, err := r.q.Exec(ctx, query, rc.OrganizationID, companyID, exceptID); err != nil {
		return fmt.Errorf("clear %s: %w", column, err)
	}
	return nil
}
