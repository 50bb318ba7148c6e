package entity

import (
	"strings"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/pkg/nit"
)

// CompanyStatus estado de una empresa cliente.
type CompanyStatus string

const (
	CompanyStatusActive   CompanyStatus = "ACTIVE"
	CompanyStatusInactive CompanyStatus = "INACTIVE"
	CompanyStatusArchived CompanyStatus = "ARCHIVED"
)

// IsValid indica si el estado es conocido.
func (s CompanyStatus) IsValid() bool {
	switch s {
	case CompanyStatusActive, CompanyStatusInactive, CompanyStatusArchived:
		return true
	}
	return false
}

// CustomerCompany representa una empresa deudora dentro de una organización (tenant).
type CustomerCompany struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organization_id"`
	Name           string        `json:"name"`
	LegalName      string        `json:"legal_name,omitempty"`
	TaxID          string        `json:"tax_id,omitempty"`
	Status         CompanyStatus `json:"status"`
	Industry       string        `json:"industry,omitempty"`
	Website        string        `json:"website,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	ArchivedAt     *time.Time    `json:"archived_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// CustomerCompanyDraft datos de alta de una empresa cliente.
type CustomerCompanyDraft struct {
	ID             string
	OrganizationID string
	Name           string
	LegalName      string
	TaxID          string
	Status         CompanyStatus
	Industry       string
	Website        string
	Notes          string
}

// NewCustomerCompany valida el borrador y construye la empresa.
// Una empresa no puede nacer archivada.
func NewCustomerCompany(d CustomerCompanyDraft, now time.Time) (*CustomerCompany, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, domain.ErrCompanyInvalidName
	}
	status := d.Status
	if status == "" {
		status = CompanyStatusActive
	}
	if !status.IsValid() || status == CompanyStatusArchived {
		return nil, domain.Invalid(domain.ErrCompanyInvalidStatus, "estado inicial %q", status)
	}
	taxID, err := NormalizeTaxID(d.TaxID)
	if err != nil {
		return nil, err
	}
	return &CustomerCompany{
		ID:             d.ID,
		OrganizationID: d.OrganizationID,
		Name:           name,
		LegalName:      strings.TrimSpace(d.LegalName),
		TaxID:          taxID,
		Status:         status,
		Industry:       strings.TrimSpace(d.Industry),
		Website:        strings.TrimSpace(d.Website),
		Notes:          d.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NormalizeTaxID un NIT colombiano se guarda sin puntos y, si trae dígito de verificación, validado.
// Identificadores extranjeros se conservan tal cual.
func NormalizeTaxID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !nit.IsNumeric(raw) {
		return raw, nil
	}
	out, err := nit.Normalize(raw)
	if err != nil {
		return "", domain.Invalid(domain.ErrCompanyInvalidTaxID, "%s", err)
	}
	return out, nil
}

// Rename cambia el nombre validando que no quede vacío.
func (c *CustomerCompany) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrCompanyInvalidName
	}
	c.Name = name
	c.UpdatedAt = now
	return nil
}

// SetStatus aplica el ciclo de vida ACTIVE <-> INACTIVE y -> ARCHIVED (terminal).
func (c *CustomerCompany) SetStatus(status CompanyStatus, now time.Time) error {
	if !status.IsValid() {
		return domain.Invalid(domain.ErrCompanyInvalidStatus, "%q", status)
	}
	if c.Status == status {
		return nil
	}
	if c.Status == CompanyStatusArchived {
		return domain.ErrCompanyArchived
	}
	c.Status = status
	if status == CompanyStatusArchived {
		t := now
		c.ArchivedAt = &t
	}
	c.UpdatedAt = now
	return nil
}
