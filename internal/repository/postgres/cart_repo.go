package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/ivolkov/cartd/internal/errs"
	"github.com/ivolkov/cartd/internal/model"
)

// CartRepo implements CartRepository using PostgreSQL.
type CartRepo struct{ db *DB }

// NewCartRepo constructs a cart repository.
func NewCartRepo(db *DB) *CartRepo { return &CartRepo{db: db} }

// GetOrCreateByUser returns the user's cart, inserting one if absent.
// The no-op DO UPDATE makes the insert return the existing row on
// conflict, so concurrent resolutions converge on a single cart.
func (r *CartRepo) GetOrCreateByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO carts (id, user_id) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING id, user_id, guest_id`
	return scanCart(r.db.Pool.QueryRow(ctx, q, id, userID))
}

// GetOrCreateByGuest returns the guest's cart, inserting one if absent.
func (r *CartRepo) GetOrCreateByGuest(ctx context.Context, guestID uuid.UUID) (*model.Cart, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO carts (id, guest_id) VALUES ($1, $2)
ON CONFLICT (guest_id) DO UPDATE SET guest_id = EXCLUDED.guest_id
RETURNING id, user_id, guest_id`
	return scanCart(r.db.Pool.QueryRow(ctx, q, id, guestID))
}

// GetByUser selects the user's cart without creating one.
func (r *CartRepo) GetByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	const q = `SELECT id, user_id, guest_id FROM carts WHERE user_id=$1`
	return scanCart(r.db.Pool.QueryRow(ctx, q, userID))
}

// GetByGuest selects the guest's cart without creating one.
func (r *CartRepo) GetByGuest(ctx context.Context, guestID uuid.UUID) (*model.Cart, error) {
	const q = `SELECT id, user_id, guest_id FROM carts WHERE guest_id=$1`
	return scanCart(r.db.Pool.QueryRow(ctx, q, guestID))
}

// scanCart reads one cart row; user_id and guest_id are nullable.
func scanCart(row pgx.Row) (*model.Cart, error) {
	var c model.Cart
	var userID, guestID uuid.NullUUID
	if err := row.Scan(&c.ID, &userID, &guestID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	c.UserID = userID.UUID
	c.GuestID = guestID.UUID
	return &c, nil
}
