package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/ivolkov/cartd/internal/model"
)

// CartRepository resolves carts by owner. Get-or-create operations are
// atomic: backed by uniqueness constraints so two concurrent resolutions
// converge on a single row.
type CartRepository interface {
	// GetOrCreateByUser returns the user's cart, inserting one if absent.
	GetOrCreateByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	// GetOrCreateByGuest returns the guest's cart, inserting one if absent.
	GetOrCreateByGuest(ctx context.Context, guestID uuid.UUID) (*model.Cart, error)
	// GetByUser loads the user's cart without creating one.
	GetByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	// GetByGuest loads the guest's cart without creating one.
	GetByGuest(ctx context.Context, guestID uuid.UUID) (*model.Cart, error)
}
