package postgres

import (
	"context"
	"fmt"

	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/domain/repository"
)

var _ repository.OrganizationRepository = (*OrganizationRepo)(nil)

// OrganizationRepo lectura de tenants sobre PostgreSQL.
type OrganizationRepo struct {
	q Querier
}

// NewOrganizationRepository construye el adaptador de organizaciones.
func NewOrganizationRepository(q Querier) *OrganizationRepo {
	return &OrganizationRepo{q: q}
}

// GetByID obtiene una organización por ID.
func (r *OrganizationRepo) GetByID(ctx context.Context, id string) (*entity.Organization, error) {
	query := `
		SELECT id, name, tax_id, status, created_at, updated_at
		FROM organizations WHERE id = $1`
	var o entity.Organization
	err := r.q.QueryRow(ctx, query, id).Scan(&o.ID, &o.Name, &o.TaxID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &o, nil
}

// ListActiveIDs IDs de las organizaciones ACTIVE.
func (r *OrganizationRepo) ListActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM organizations WHERE status = $1 ORDER BY created_at`, entity.OrganizationActive)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Upsert crea la organización o actualiza nombre, NIT y estado si ya existe.
func (r *OrganizationRepo) Upsert(ctx context.Context, o *entity.Organization) error {
	query := `
		INSERT INTO organizations (id, name, tax_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, tax_id = EXCLUDED.tax_id, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at`
	if err := r.q.QueryRow(ctx, query, o.ID, o.Name, o.TaxID, o.Status, o.UpdatedAt).Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return fmt.Errorf("upsert organization: %w", err)
	}
	return nil
}
