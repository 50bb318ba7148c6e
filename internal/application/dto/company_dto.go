package dto

import "github.com/emiliofantozzi/cobra/internal/domain/entity"

// CreateCustomerCompanyRequest body para POST /api/v1/customer-companies.
type CreateCustomerCompanyRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	LegalName string `json:"legal_name,omitempty" validate:"max=200"`
	TaxID     string `json:"tax_id,omitempty" validate:"max=50"`
	Status    string `json:"status,omitempty" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	Industry  string `json:"industry,omitempty" validate:"max=100"`
	Website   string `json:"website,omitempty" validate:"omitempty,url"`
	Notes     string `json:"notes,omitempty" validate:"max=4000"`
}

// UpdateCustomerCompanyRequest body para PATCH; solo los campos presentes se aplican.
type UpdateCustomerCompanyRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,max=200"`
	LegalName *string `json:"legal_name,omitempty" validate:"omitempty,max=200"`
	TaxID     *string `json:"tax_id,omitempty" validate:"omitempty,max=50"`
	Industry  *string `json:"industry,omitempty" validate:"omitempty,max=100"`
	Website   *string `json:"website,omitempty" validate:"omitempty,url"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=4000"`
}

// SetStatusRequest cambio de estado genérico (empresa o caso).
type SetStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ListCustomerCompaniesRequest query de GET /api/v1/customer-companies.
type ListCustomerCompaniesRequest struct {
	PageRequest
	Status string `query:"status" validate:"omitempty,oneof=ACTIVE INACTIVE ARCHIVED"`
	Search string `query:"q" validate:"max=100"`
}

// CreateContactRequest body para POST /api/v1/customer-companies/:id/contacts.
type CreateContactRequest struct {
	CustomerCompanyID string `json:"-"`
	FirstName         string `json:"first_name,omitempty" validate:"max=100"`
	LastName          string `json:"last_name,omitempty" validate:"max=100"`
	Email             string `json:"email,omitempty" validate:"omitempty,email"`
	PhoneNumber       string `json:"phone_number,omitempty" validate:"max=30"`
	WhatsappNumber    string `json:"whatsapp_number,omitempty" validate:"max=30"`
	Role              string `json:"role,omitempty" validate:"max=100"`
	PreferredChannel  string `json:"preferred_channel,omitempty" validate:"omitempty,oneof=EMAIL WHATSAPP SMS PHONE"`
	IsPrimary         bool   `json:"is_primary"`
	IsBillingContact  bool   `json:"is_billing_contact"`
}

// UpdateContactRequest body para PATCH /api/v1/contacts/:id.
// Los canales se reemplazan juntos si alguno viene presente.
type UpdateContactRequest struct {
	FirstName        *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName         *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Email            *string `json:"email,omitempty" validate:"omitempty,max=200"`
	PhoneNumber      *string `json:"phone_number,omitempty" validate:"omitempty,max=30"`
	WhatsappNumber   *string `json:"whatsapp_number,omitempty" validate:"omitempty,max=30"`
	Role             *string `json:"role,omitempty" validate:"omitempty,max=100"`
	PreferredChannel *string `json:"preferred_channel,omitempty" validate:"omitempty,max=20"`
	IsPrimary        *bool   `json:"is_primary,omitempty"`
	IsBillingContact *bool   `json:"is_billing_contact,omitempty"`
}

// OptOutRequest baja de un canal.
type OptOutRequest struct {
	Channel string `json:"channel" validate:"required,oneof=EMAIL WHATSAPP"`
}

// CustomerCompanyDetailResponse empresa con sus contactos.
type CustomerCompanyDetailResponse struct {
	Company  *entity.CustomerCompany `json:"company"`
	Contacts []*entity.Contact       `json:"contacts"`
}
