package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/ivolkov/cartd/internal/model"
)

// ItemRepository mutates and lists cart line items.
type ItemRepository interface {
	// AddOne inserts the variant with quantity 1 or increments the
	// existing row by 1. Atomic: at most one row per (cart, variant).
	AddOne(ctx context.Context, cartID, variantID uuid.UUID) (*model.CartItem, error)
	// SetQuantity updates an item's quantity. Non-positive values delete
	// the row; a missing row is a no-op either way.
	SetQuantity(ctx context.Context, itemID uuid.UUID, quantity int32) error
	// Delete removes an item row. Deleting an absent row is not an error.
	Delete(ctx context.Context, itemID uuid.UUID) error
	// ListByCart returns the cart's lines joined with variant data.
	ListByCart(ctx context.Context, cartID uuid.UUID) ([]model.CartLine, error)
}
