package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// SequenceRepository hands out monotonic, collision-free numbers per scope
// (entity type + period). The increment rides the caller's
// transaction, so an aborted operation never burns a visible number gap
// that another committed operation depends on.
type SequenceRepository struct{}

func NewSequenceRepository() *SequenceRepository {
	return &SequenceRepository{}
}

func (r *SequenceRepository) Next(ctx context.Context, tx *sql.Tx, scope string) (int64, error) {
	var value int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO sequences (scope, value) VALUES ($1, 1)
		 ON CONFLICT (scope) DO UPDATE SET value = sequences.value + 1
		 RETURNING value`, scope,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("Next: scope %s: %w", scope, err)
	}
	return value, nil
}
