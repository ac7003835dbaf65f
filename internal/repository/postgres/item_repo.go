package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/ivolkov/cartd/internal/model"
)

// ItemRepo implements ItemRepository using PostgreSQL.
type ItemRepo struct{ db *DB }

// NewItemRepo constructs an item repository.
func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

// AddOne applies the insert-or-increment rule for a variant within a
// cart. The unique index on (cart_id, product_variant_id) makes the
// upsert atomic, so at most one row per variant ever exists.
func (r *ItemRepo) AddOne(ctx context.Context, cartID, variantID uuid.UUID) (*model.CartItem, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO cart_items (id, cart_id, product_variant_id, quantity)
VALUES ($1, $2, $3, 1)
ON CONFLICT (cart_id, product_variant_id)
DO UPDATE SET quantity = cart_items.quantity + 1
RETURNING id, cart_id, product_variant_id, quantity`
	row := r.db.Pool.QueryRow(ctx, q, id, cartID, variantID)
	var it model.CartItem
	if err := row.Scan(&it.ID, &it.CartID, &it.ProductVariantID, &it.Quantity); err != nil {
		return nil, err
	}
	return &it, nil
}

// SetQuantity updates an item's quantity. Non-positive values delete the
// row; an update matching no row is a no-op, not an error.
func (r *ItemRepo) SetQuantity(ctx context.Context, itemID uuid.UUID, quantity int32) error {
	if quantity <= 0 {
		return r.Delete(ctx, itemID)
	}
	const q = `UPDATE cart_items SET quantity=$2 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, itemID, quantity)
	return err
}

// Delete removes an item row by id. Deleting an absent row is not an error.
func (r *ItemRepo) Delete(ctx context.Context, itemID uuid.UUID) error {
	const q = `DELETE FROM cart_items WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, itemID)
	return err
}

// ListByCart returns the cart's lines joined with variant data.
func (r *ItemRepo) ListByCart(ctx context.Context, cartID uuid.UUID) ([]model.CartLine, error) {
	const q = `
SELECT ci.id, ci.quantity, v.id, v.sku, v.price_cents, v.in_stock
FROM cart_items ci
JOIN product_variants v ON v.id = ci.product_variant_id
WHERE ci.cart_id=$1
ORDER BY ci.id`
	rows, err := r.db.Pool.Query(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CartLine
	for rows.Next() {
		var ln model.CartLine
		if err = rows.Scan(&ln.ItemID, &ln.Quantity, &ln.Variant.ID, &ln.Variant.SKU, &ln.Variant.PriceCents, &ln.Variant.InStock); err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}
