package repository

import (
	"context"

	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// OrganizationRepository define el puerto de lectura de tenants (lo usa el barrido periódico).
type OrganizationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Organization, error)
	ListActiveIDs(ctx context.Context) ([]string, error)
}
