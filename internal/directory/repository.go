package directory

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetdesk/fleetdesk/internal/rbac"
	"github.com/fleetdesk/fleetdesk/internal/shared"
)

// Filter narrows ListUsers results.
type Filter struct {
	TenantID *int64
	Role     rbac.RoleID
	// ActiveOnly excludes suspended accounts.
	ActiveOnly bool
}

// Repository defines read access to the user directory.
type Repository interface {
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, f Filter) ([]User, error)
}

// PGRepository implements Repository against the directory tables in
// PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, name, role, tenant_id, suspended, created_at, updated_at`

// GetUser fetches a user by ID.
func (r *PGRepository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM directory_users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail fetches a user by email.
func (r *PGRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM directory_users WHERE email = $1`, email)
	return scanUser(row)
}

// ListUsers returns directory accounts matching the filter, ordered by name.
func (r *PGRepository) ListUsers(ctx context.Context, f Filter) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM directory_users WHERE 1=1`
	args := make([]any, 0, 3)
	if f.TenantID != nil {
		args = append(args, *f.TenantID)
		query += ` AND tenant_id = $` + itoa(len(args))
	}
	if f.Role != "" {
		args = append(args, string(f.Role))
		query += ` AND role = $` + itoa(len(args))
	}
	if f.ActiveOnly {
		query += ` AND suspended = FALSE`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		u    User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.TenantID, &u.Suspended, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	u.Role = rbac.RoleID(role)
	return u, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

var _ Repository = (*PGRepository)(nil)
