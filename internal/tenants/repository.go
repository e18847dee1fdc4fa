package tenants

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetdesk/fleetdesk/internal/shared"
)

// Filter narrows tenant listings. Zero values match everything.
type Filter struct {
	Plan       string
	ActiveOnly bool
}

// Repository defines tenant read operations.
type Repository interface {
	GetTenant(ctx context.Context, id int64) (Tenant, error)
	ListTenants(ctx context.Context, f Filter) ([]Tenant, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const tenantColumns = `id, name, slug, plan, suspended, created_at`

// GetTenant fetches a tenant by ID.
func (r *PGRepository) GetTenant(ctx context.Context, id int64) (Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// ListTenants returns tenants matching the filter, ordered by name.
func (r *PGRepository) ListTenants(ctx context.Context, f Filter) ([]Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE 1=1`
	args := make([]any, 0, 1)
	if f.Plan != "" {
		args = append(args, f.Plan)
		query += ` AND plan = $1`
	}
	if f.ActiveOnly {
		query += ` AND NOT suspended`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Plan, &t.Suspended, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, shared.ErrNotFound
		}
		return Tenant{}, err
	}
	return t, nil
}

var _ Repository = (*PGRepository)(nil)
