// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Identity carries the caller's identity signals for a single request.
// At most one of UserID/GuestToken is meaningful; both may be absent on
// an anonymous first contact.
type Identity struct {
	UserID     uuid.UUID // uuid.Nil when the caller is not authenticated
	GuestToken string    // empty when no guest_session cookie was sent
}

// Authenticated reports whether the identity belongs to a known user.
func (id Identity) Authenticated() bool { return id.UserID != uuid.Nil }

// Guest is an anonymous visitor tracked by an opaque session token.
// ExpiresAt is advisory: a stored token keeps resolving until purged.
type Guest struct {
	ID           uuid.UUID
	SessionToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// GuestSession is a freshly minted token the transport layer must deliver
// back to the caller as the guest_session cookie.
type GuestSession struct {
	Token     string
	ExpiresAt time.Time
}

// Cart is owned by exactly one of a user or a guest, never both.
type Cart struct {
	ID      uuid.UUID
	UserID  uuid.UUID // uuid.Nil unless user-owned
	GuestID uuid.UUID // uuid.Nil unless guest-owned
}

// CartItem associates a variant with a cart. Quantity is >= 1 while the
// row exists; a transition to zero deletes the row instead.
type CartItem struct {
	ID               uuid.UUID
	CartID           uuid.UUID
	ProductVariantID uuid.UUID
	Quantity         int32
}

// Variant is read-only reference data about a purchasable SKU.
type Variant struct {
	ID         uuid.UUID
	SKU        string
	PriceCents int64
	InStock    bool
}

// CartLine pairs a cart item with its variant for display.
type CartLine struct {
	ItemID   uuid.UUID
	Variant  Variant
	Quantity int32
}

// CartView is the read-side aggregate of a cart.
type CartView struct {
	Lines           []CartLine
	TotalItems      int32
	TotalPriceCents int64
}
