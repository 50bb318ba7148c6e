package entity

import "time"

// OrganizationStatus estado del tenant.
type OrganizationStatus string

const (
	OrganizationActive    OrganizationStatus = "ACTIVE"
	OrganizationSuspended OrganizationStatus = "SUSPENDED"
)

// Organization representa un tenant del sistema. Todos los datos de cobranza cuelgan de una organización.
type Organization struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	TaxID     string             `json:"tax_id,omitempty"`
	Status    OrganizationStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
