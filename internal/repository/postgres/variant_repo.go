package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/ivolkov/cartd/internal/errs"
	"github.com/ivolkov/cartd/internal/model"
)

// VariantRepo implements VariantRepository using PostgreSQL.
type VariantRepo struct{ db *DB }

// NewVariantRepo constructs a variant repository.
func NewVariantRepo(db *DB) *VariantRepo { return &VariantRepo{db: db} }

// Get selects a variant by id.
func (r *VariantRepo) Get(ctx context.Context, id uuid.UUID) (*model.Variant, error) {
	const q = `
SELECT id, sku, price_cents, in_stock
FROM product_variants WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var v model.Variant
	if err := row.Scan(&v.ID, &v.SKU, &v.PriceCents, &v.InStock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}
