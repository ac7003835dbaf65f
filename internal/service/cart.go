// Package service contains the cart application service.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/ivolkov/cartd/internal/errs"
	"github.com/ivolkov/cartd/internal/limiter"
	"github.com/ivolkov/cartd/internal/model"
	"github.com/ivolkov/cartd/internal/repository"
	"github.com/ivolkov/cartd/internal/token"
)

// CartService defines cart resolution and line-item operations.
type CartService interface {
	// AddItem validates the variant, resolves the caller's cart (creating
	// guest and cart if needed) and applies insert-or-increment. A non-nil
	// session means a guest was minted and must be delivered as a cookie.
	AddItem(ctx context.Context, ident model.Identity, variantID uuid.UUID, ip string) (*model.GuestSession, error)
	// GetCartView returns the cart's lines and aggregates. Read-only:
	// an identity with no cart gets an empty view and no writes happen.
	GetCartView(ctx context.Context, ident model.Identity) (model.CartView, error)
	// SetQuantity updates an item's quantity; non-positive deletes the row.
	SetQuantity(ctx context.Context, itemID uuid.UUID, quantity int32) error
	// RemoveItem deletes an item unconditionally (idempotent).
	RemoveItem(ctx context.Context, itemID uuid.UUID) error
}

type CartServiceImpl struct {
	guests   repository.GuestRepository
	carts    repository.CartRepository
	items    repository.ItemRepository
	variants repository.VariantRepository
	lim      limiter.Limiter
	guestTTL time.Duration
}

// NewCartService constructs CartService with its storage dependencies.
func NewCartService(
	guests repository.GuestRepository,
	carts repository.CartRepository,
	items repository.ItemRepository,
	variants repository.VariantRepository,
	lim limiter.Limiter,
	guestTTL time.Duration,
) *CartServiceImpl {
	if guestTTL <= 0 {
		guestTTL = 7 * 24 * time.Hour
	}
	return &CartServiceImpl{
		guests:   guests,
		carts:    carts,
		items:    items,
		variants: variants,
		lim:      lim,
		guestTTL: guestTTL,
	}
}

// AddItem checks the variant before any identity work so that an invalid
// request never mints a guest or creates a cart.
func (s *CartServiceImpl) AddItem(ctx context.Context, ident model.Identity, variantID uuid.UUID, ip string) (*model.GuestSession, error) {
	if variantID == uuid.Nil {
		return nil, errors.New("validation: empty variant id")
	}
	v, err := s.variants.Get(ctx, variantID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrVariantNotFound
		}
		return nil, err
	}
	if !v.InStock {
		return nil, errs.ErrOutOfStock
	}

	cart, sess, err := s.resolveCart(ctx, ident, ip)
	if err != nil {
		return nil, err
	}
	if _, err := s.items.AddOne(ctx, cart.ID, variantID); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetCartView resolves the cart read-only and computes display aggregates.
func (s *CartServiceImpl) GetCartView(ctx context.Context, ident model.Identity) (model.CartView, error) {
	view := model.CartView{Lines: []model.CartLine{}}

	cart, err := s.lookupCart(ctx, ident)
	if err != nil {
		return model.CartView{}, err
	}
	if cart == nil {
		return view, nil
	}

	lines, err := s.items.ListByCart(ctx, cart.ID)
	if err != nil {
		return model.CartView{}, err
	}
	for _, ln := range lines {
		view.Lines = append(view.Lines, ln)
		view.TotalItems += ln.Quantity
		view.TotalPriceCents += ln.Variant.PriceCents * int64(ln.Quantity)
	}
	return view, nil
}

// SetQuantity updates or deletes the item. An unknown item id no-ops.
func (s *CartServiceImpl) SetQuantity(ctx context.Context, itemID uuid.UUID, quantity int32) error {
	if itemID == uuid.Nil {
		return errors.New("validation: empty item id")
	}
	return s.items.SetQuantity(ctx, itemID, quantity)
}

// RemoveItem deletes the item by id; deleting an absent id is not an error.
func (s *CartServiceImpl) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	if itemID == uuid.Nil {
		return errors.New("validation: empty item id")
	}
	return s.items.Delete(ctx, itemID)
}

// resolveCart maps identity signals to exactly one cart, minting a guest
// session when an anonymous caller has none. A presented token that
// matches no guest fails with ErrInvalidSession rather than silently
// minting a fresh one.
func (s *CartServiceImpl) resolveCart(ctx context.Context, ident model.Identity, ip string) (*model.Cart, *model.GuestSession, error) {
	if ident.Authenticated() {
		c, err := s.carts.GetOrCreateByUser(ctx, ident.UserID)
		return c, nil, err
	}

	if ident.GuestToken != "" {
		// expires_at is advisory: a stored token keeps resolving until purged.
		g, err := s.guests.GetByToken(ctx, ident.GuestToken)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return nil, nil, errs.ErrInvalidSession
			}
			return nil, nil, err
		}
		c, err := s.carts.GetOrCreateByGuest(ctx, g.ID)
		return c, nil, err
	}

	// Anonymous first contact: mint a guest session.
	ipHash := limiter.HashIP(ip)
	allowed, _, err := s.lim.Allow(ctx, ipHash)
	if err != nil {
		return nil, nil, err
	}
	if !allowed {
		return nil, nil, errs.ErrRateLimited
	}

	tok, err := token.NewSessionToken()
	if err != nil {
		return nil, nil, err
	}
	gid, err := uuid.NewV4()
	if err != nil {
		return nil, nil, err
	}
	g := &model.Guest{
		ID:           gid,
		SessionToken: tok,
		ExpiresAt:    time.Now().Add(s.guestTTL),
	}
	if err := s.guests.Create(ctx, g); err != nil {
		return nil, nil, err
	}
	// Best-effort accounting; a dropped increment only loosens the cap.
	_, _, _ = s.lim.Minted(ctx, ipHash)

	c, err := s.carts.GetOrCreateByGuest(ctx, g.ID)
	if err != nil {
		return nil, nil, err
	}
	return c, &model.GuestSession{Token: tok, ExpiresAt: g.ExpiresAt}, nil
}

// lookupCart is the read-only resolution: it never writes. An unknown
// identity, including a stale guest token, simply has no cart.
func (s *CartServiceImpl) lookupCart(ctx context.Context, ident model.Identity) (*model.Cart, error) {
	switch {
	case ident.Authenticated():
		c, err := s.carts.GetByUser(ctx, ident.UserID)
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil
		}
		return c, err
	case ident.GuestToken != "":
		g, err := s.guests.GetByToken(ctx, ident.GuestToken)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		c, err := s.carts.GetByGuest(ctx, g.ID)
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil
		}
		return c, err
	default:
		return nil, nil
	}
}
