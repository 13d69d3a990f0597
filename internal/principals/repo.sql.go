package principals

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatehouse-io/gatehouse/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListPrincipals returns a page of principals plus the total count.
func (r *Repository) ListPrincipals(ctx context.Context, page, perPage int) ([]Principal, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * perPage

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM principals`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, email, name, role, active, created_at, updated_at
		FROM principals
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var principals []Principal
	for rows.Next() {
		var p Principal
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		principals = append(principals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return principals, total, nil
}

// GetPrincipal fetches a principal by id.
func (r *Repository) GetPrincipal(ctx context.Context, id string) (*Principal, error) {
	var p Principal
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, role, active, created_at, updated_at
		FROM principals
		WHERE id = $1`, id).Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// DeactivatePrincipal flips the active flag. The row is never deleted.
func (r *Repository) DeactivatePrincipal(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE principals SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
