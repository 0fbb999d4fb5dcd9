package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Get(ctx context.Context, id string) (*Resource, error)
	List(ctx context.Context, f Filter) ([]Resource, error)
	Create(ctx context.Context, r *Resource) error
	Update(ctx context.Context, r *Resource) error
	Delete(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Resource, error) {
	const q = `
SELECT id, name, type, capacity, status, created_at, updated_at
FROM resources
WHERE id = $1
`
	var res Resource
	if err := r.db.QueryRow(ctx, q, id).Scan(
		&res.ID, &res.Name, &res.Type, &res.Capacity, &res.Status, &res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resource: %w", err)
	}
	return &res, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Resource, error) {
	const q = `
SELECT id, name, type, capacity, status, created_at, updated_at
FROM resources
WHERE ($1 = '' OR type = $1)
ORDER BY name ASC
`
	rows, err := r.db.Query(ctx, q, f.Type)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []Resource
	for rows.Next() {
		var res Resource
		if err := rows.Scan(&res.ID, &res.Name, &res.Type, &res.Capacity, &res.Status, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, res *Resource) error {
	const q = `
INSERT INTO resources (id, name, type, capacity, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := r.db.Exec(ctx, q, res.ID, res.Name, res.Type, res.Capacity, string(res.Status), res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, res *Resource) error {
	const q = `
UPDATE resources
SET name = $2, type = $3, capacity = $4, status = $5, updated_at = $6
WHERE id = $1
RETURNING created_at
`
	if err := r.db.QueryRow(ctx, q, res.ID, res.Name, res.Type, res.Capacity, string(res.Status), res.UpdatedAt).Scan(&res.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update resource: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
