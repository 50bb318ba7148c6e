package repository

import (
	"context"

	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// CustomerCompanyFilter filtros de listado de empresas cliente.
type CustomerCompanyFilter struct {
	Status entity.CompanyStatus // vacío = todas
	Search string               // coincidencia parcial por nombre o NIT
	Limit  int
	Offset int
}

// CustomerCompanyRepository define el puerto de persistencia para empresas cliente.
// GetByID devuelve (nil, nil) si no existe en la organización.
type CustomerCompanyRepository interface {
	Create(ctx context.Context, rc RepositoryContext, company *entity.CustomerCompany) error
	GetByID(ctx context.Context, rc RepositoryContext, id string) (*entity.CustomerCompany, error)
	Update(ctx context.Context, rc RepositoryContext, company *entity.CustomerCompany) error
	List(ctx context.Context, rc RepositoryContext, f CustomerCompanyFilter) ([]*entity.CustomerCompany, error)
}

// ContactRepository define el puerto de persistencia para contactos.
type ContactRepository interface {
	Create(ctx context.Context, rc RepositoryContext, contact *entity.Contact) error
	GetByID(ctx context.Context, rc RepositoryContext, id string) (*entity.Contact, error)
	Update(ctx context.Context, rc RepositoryContext, contact *entity.Contact) error
	ListByCompany(ctx context.Context, rc RepositoryContext, customerCompanyID string) ([]*entity.Contact, error)

	// ClearPrimary desmarca el contacto principal de la empresa salvo exceptID.
	// Se llama en la misma transacción antes de marcar uno nuevo.
	ClearPrimary(ctx context.Context, rc RepositoryContext, customerCompanyID, exceptID string) error
	// ClearBilling igual que ClearPrimary para el contacto de facturación.
	ClearBilling(ctx context.Context, rc RepositoryContext, customerCompanyID, exceptID string) error
}
