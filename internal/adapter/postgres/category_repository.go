package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
)

type CategoryRepo struct {
	pool *pgxpool.Pool
}

var _ domain.CategoryRepository = (*CategoryRepo)(nil)

func NewCategoryRepo(pool *pgxpool.Pool) *CategoryRepo {
	return &CategoryRepo{pool: pool}
}

// ListCategories returns every category in display order.
func (r *CategoryRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, depth, parent_id
		FROM categories
		ORDER BY depth, sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		err := row.Scan(&c.ID, &c.Name, &c.Depth, &c.ParentID)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan categories: %w", err)
	}
	return categories, nil
}

// Create inserts a category and returns its id. parentID nil creates a root.
func (r *CategoryRepo) Create(ctx context.Context, name string, parentID *int64, sortOrder int) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO categories (name, depth, parent_id, sort_order)
		VALUES ($1, COALESCE((SELECT depth + 1 FROM categories WHERE id = $2), 1), $2, $3)
		RETURNING id`, name, parentID, sortOrder).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create category %q: %w", name, err)
	}
	return id, nil
}
