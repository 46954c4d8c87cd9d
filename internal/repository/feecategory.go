package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/schoolfin/backend/internal/domain"
)

const feeCategoryColumns = `id, name, description, default_amount, is_mandatory,
	is_active, display_order, created_at`

type FeeCategoryRepository struct {
	db *sql.DB
}

func NewFeeCategoryRepository(db *sql.DB) *FeeCategoryRepository {
	return &FeeCategoryRepository{db: db}
}

func (r *FeeCategoryRepository) Create(ctx context.Context, fc *domain.FeeCategory) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO fee_categories (id, name, description, default_amount, is_mandatory, is_active, display_order, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		fc.ID, fc.Name, fc.Description, fc.DefaultAmount, fc.IsMandatory, fc.IsActive, fc.DisplayOrder, fc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *FeeCategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FeeCategory, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+feeCategoryColumns+` FROM fee_categories WHERE id = $1`, id,
	)
	var fc domain.FeeCategory
	err := row.Scan(&fc.ID, &fc.Name, &fc.Description, &fc.DefaultAmount,
		&fc.IsMandatory, &fc.IsActive, &fc.DisplayOrder, &fc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return &fc, nil
}

func (r *FeeCategoryRepository) List(ctx context.Context) ([]domain.FeeCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+feeCategoryColumns+` FROM fee_categories WHERE is_active ORDER BY display_order, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var categories []domain.FeeCategory
	for rows.Next() {
		var fc domain.FeeCategory
		err := rows.Scan(&fc.ID, &fc.Name, &fc.Description, &fc.DefaultAmount,
			&fc.IsMandatory, &fc.IsActive, &fc.DisplayOrder, &fc.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		categories = append(categories, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return categories, nil
}
