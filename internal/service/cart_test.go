package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/ivolkov/cartd/internal/errs"
	"github.com/ivolkov/cartd/internal/model"
	"github.com/ivolkov/cartd/internal/repository"
)

/************ fakes ************/

type fakeGuestRepo struct {
	byToken   map[string]*model.Guest
	created   []*model.Guest
	createErr error
}

var _ repository.GuestRepository = (*fakeGuestRepo)(nil)

func (f *fakeGuestRepo) Create(_ context.Context, g *model.Guest) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byToken == nil {
		f.byToken = map[string]*model.Guest{}
	}
	cp := *g
	f.byToken[g.SessionToken] = &cp
	f.created = append(f.created, &cp)
	return nil
}

func (f *fakeGuestRepo) GetByToken(_ context.Context, tok string) (*model.Guest, error) {
	if g, ok := f.byToken[tok]; ok {
		return g, nil
	}
	return nil, errs.ErrNotFound
}

type fakeCartRepo struct {
	byUser  map[uuid.UUID]*model.Cart
	byGuest map[uuid.UUID]*model.Cart
	creates int
}

var _ repository.CartRepository = (*fakeCartRepo)(nil)

func (f *fakeCartRepo) GetOrCreateByUser(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	if c, ok := f.byUser[userID]; ok {
		return c, nil
	}
	if f.byUser == nil {
		f.byUser = map[uuid.UUID]*model.Cart{}
	}
	c := &model.Cart{ID: uuid.Must(uuid.NewV4()), UserID: userID}
	f.byUser[userID] = c
	f.creates++
	return c, nil
}

func (f *fakeCartRepo) GetOrCreateByGuest(_ context.Context, guestID uuid.UUID) (*model.Cart, error) {
	if c, ok := f.byGuest[guestID]; ok {
		return c, nil
	}
	if f.byGuest == nil {
		f.byGuest = map[uuid.UUID]*model.Cart{}
	}
	c := &model.Cart{ID: uuid.Must(uuid.NewV4()), GuestID: guestID}
	f.byGuest[guestID] = c
	f.creates++
	return c, nil
}

func (f *fakeCartRepo) GetByUser(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	if c, ok := f.byUser[userID]; ok {
		return c, nil
	}
	return nil, errs.ErrNotFound
}

func (f *fakeCartRepo) GetByGuest(_ context.Context, guestID uuid.UUID) (*model.Cart, error) {
	if c, ok := f.byGuest[guestID]; ok {
		return c, nil
	}
	return nil, errs.ErrNotFound
}

type cartVariantKey struct{ cartID, variantID uuid.UUID }

type fakeItemRepo struct {
	items    map[uuid.UUID]*model.CartItem
	byKey    map[cartVariantKey]uuid.UUID
	variants map[uuid.UUID]*model.Variant // price/sku lookup for ListByCart
	addErr   error
}

var _ repository.ItemRepository = (*fakeItemRepo)(nil)

func (f *fakeItemRepo) AddOne(_ context.Context, cartID, variantID uuid.UUID) (*model.CartItem, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	if f.items == nil {
		f.items = map[uuid.UUID]*model.CartItem{}
		f.byKey = map[cartVariantKey]uuid.UUID{}
	}
	key := cartVariantKey{cartID, variantID}
	if id, ok := f.byKey[key]; ok {
		f.items[id].Quantity++
		return f.items[id], nil
	}
	it := &model.CartItem{
		ID:               uuid.Must(uuid.NewV4()),
		CartID:           cartID,
		ProductVariantID: variantID,
		Quantity:         1,
	}
	f.items[it.ID] = it
	f.byKey[key] = it.ID
	return it, nil
}

func (f *fakeItemRepo) SetQuantity(_ context.Context, itemID uuid.UUID, quantity int32) error {
	it, ok := f.items[itemID]
	if !ok {
		return nil // no match, no-op
	}
	if quantity <= 0 {
		delete(f.items, itemID)
		delete(f.byKey, cartVariantKey{it.CartID, it.ProductVariantID})
		return nil
	}
	it.Quantity = quantity
	return nil
}

func (f *fakeItemRepo) Delete(_ context.Context, itemID uuid.UUID) error {
	if it, ok := f.items[itemID]; ok {
		delete(f.byKey, cartVariantKey{it.CartID, it.ProductVariantID})
		delete(f.items, itemID)
	}
	return nil
}

func (f *fakeItemRepo) ListByCart(_ context.Context, cartID uuid.UUID) ([]model.CartLine, error) {
	var out []model.CartLine
	for _, it := range f.items {
		if it.CartID != cartID {
			continue
		}
		ln := model.CartLine{ItemID: it.ID, Quantity: it.Quantity}
		if v, ok := f.variants[it.ProductVariantID]; ok {
			ln.Variant = *v
		}
		out = append(out, ln)
	}
	return out, nil
}

type fakeVariantRepo struct {
	variants map[uuid.UUID]*model.Variant
}

var _ repository.VariantRepository = (*fakeVariantRepo)(nil)

func (f *fakeVariantRepo) Get(_ context.Context, id uuid.UUID) (*model.Variant, error) {
	if v, ok := f.variants[id]; ok {
		return v, nil
	}
	return nil, errs.ErrNotFound
}

type fakeLimiter struct {
	deny     bool
	allowErr error
	minted   int
}

func (f *fakeLimiter) Allow(context.Context, []byte) (bool, time.Duration, error) {
	return !f.deny, 0, f.allowErr
}

func (f *fakeLimiter) Minted(context.Context, []byte) (bool, time.Duration, error) {
	f.minted++
	return false, 0, nil
}

/************ helpers ************/

type fixture struct {
	guests   *fakeGuestRepo
	carts    *fakeCartRepo
	items    *fakeItemRepo
	variants *fakeVariantRepo
	lim      *fakeLimiter
	svc      *CartServiceImpl
}

func newFixture(vs ...*model.Variant) *fixture {
	variants := map[uuid.UUID]*model.Variant{}
	for _, v := range vs {
		variants[v.ID] = v
	}
	f := &fixture{
		guests:   &fakeGuestRepo{},
		carts:    &fakeCartRepo{},
		items:    &fakeItemRepo{variants: variants},
		variants: &fakeVariantRepo{variants: variants},
		lim:      &fakeLimiter{},
	}
	f.svc = NewCartService(f.guests, f.carts, f.items, f.variants, f.lim, 0)
	return f
}

func inStockVariant(cents int64) *model.Variant {
	return &model.Variant{ID: uuid.Must(uuid.NewV4()), SKU: "SKU", PriceCents: cents, InStock: true}
}

/************ tests ************/

func TestAddItem_UserCart_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := inStockVariant(1000)
	f := newFixture(v)
	ident := model.Identity{UserID: uuid.Must(uuid.NewV4())}

	sess, err := f.svc.AddItem(ctx, ident, v.ID, "1.2.3.4")
	if err != nil || sess != nil {
		t.Fatalf("first add: sess=%v err=%v", sess, err)
	}
	if _, err := f.svc.AddItem(ctx, ident, v.ID, "1.2.3.4"); err != nil {
		t.Fatalf("second add: %v", err)
	}

	if f.carts.creates != 1 {
		t.Fatalf("want exactly one cart created, got %d", f.carts.creates)
	}
	if len(f.items.items) != 1 {
		t.Fatalf("want exactly one item row, got %d", len(f.items.items))
	}
	for _, it := range f.items.items {
		if it.Quantity != 2 {
			t.Fatalf("want quantity 2, got %d", it.Quantity)
		}
	}
}

func TestAddItem_UnknownGuestToken_InvalidSession(t *testing.T) {
	t.Parallel()
	v := inStockVariant(500)
	f := newFixture(v)

	_, err := f.svc.AddItem(context.Background(), model.Identity{GuestToken: "forged"}, v.ID, "1.2.3.4")
	if !errors.Is(err, errs.ErrInvalidSession) {
		t.Fatalf("want ErrInvalidSession, got %v", err)
	}
	if len(f.guests.created) != 0 || f.carts.creates != 0 || len(f.items.items) != 0 {
		t.Fatalf("stale token must not create guest/cart/item")
	}
}

func TestAddItem_VariantNotFound_NoMutation(t *testing.T) {
	t.Parallel()
	f := newFixture()

	_, err := f.svc.AddItem(context.Background(), model.Identity{}, uuid.Must(uuid.NewV4()), "1.2.3.4")
	if !errors.Is(err, errs.ErrVariantNotFound) {
		t.Fatalf("want ErrVariantNotFound, got %v", err)
	}
	if len(f.guests.created) != 0 || f.carts.creates != 0 {
		t.Fatalf("invalid variant must not mint guest or cart")
	}
}

func TestAddItem_OutOfStock_NoMutation(t *testing.T) {
	t.Parallel()
	v := &model.Variant{ID: uuid.Must(uuid.NewV4()), SKU: "OOS", PriceCents: 900, InStock: false}
	f := newFixture(v)

	_, err := f.svc.AddItem(context.Background(), model.Identity{}, v.ID, "1.2.3.4")
	if !errors.Is(err, errs.ErrOutOfStock) {
		t.Fatalf("want ErrOutOfStock, got %v", err)
	}
	if len(f.guests.created) != 0 || f.carts.creates != 0 || len(f.items.items) != 0 {
		t.Fatalf("out-of-stock add must not mutate anything")
	}
}

func TestAddItem_MintsGuestSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := inStockVariant(1000)
	f := newFixture(v)

	sess, err := f.svc.AddItem(ctx, model.Identity{}, v.ID, "1.2.3.4")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sess == nil || sess.Token == "" {
		t.Fatalf("want minted session, got %+v", sess)
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl < 6*24*time.Hour || ttl > 8*24*time.Hour {
		t.Fatalf("expiry not ~7 days out: %v", ttl)
	}
	if len(f.guests.created) != 1 || f.lim.minted != 1 {
		t.Fatalf("want one guest minted and accounted, got %d/%d", len(f.guests.created), f.lim.minted)
	}

	// the returned token resolves to the same cart without a new guest
	sess2, err := f.svc.AddItem(ctx, model.Identity{GuestToken: sess.Token}, v.ID, "1.2.3.4")
	if err != nil || sess2 != nil {
		t.Fatalf("reuse: sess=%v err=%v", sess2, err)
	}
	if len(f.guests.created) != 1 || f.carts.creates != 1 {
		t.Fatalf("token reuse must not mint again")
	}
}

func TestAddItem_RateLimited(t *testing.T) {
	t.Parallel()
	v := inStockVariant(1000)
	f := newFixture(v)
	f.lim.deny = true

	_, err := f.svc.AddItem(context.Background(), model.Identity{}, v.ID, "1.2.3.4")
	if !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	if len(f.guests.created) != 0 || f.carts.creates != 0 {
		t.Fatalf("rate-limited mint must not create anything")
	}
}

func TestGetCartView_NoCart_EmptyAndReadOnly(t *testing.T) {
	t.Parallel()
	f := newFixture()

	for _, ident := range []model.Identity{
		{},
		{GuestToken: "unknown"},
		{UserID: uuid.Must(uuid.NewV4())},
	} {
		view, err := f.svc.GetCartView(context.Background(), ident)
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		if len(view.Lines) != 0 || view.TotalItems != 0 || view.TotalPriceCents != 0 {
			t.Fatalf("want empty view, got %+v", view)
		}
	}
	if len(f.guests.created) != 0 || f.carts.creates != 0 {
		t.Fatalf("read-only view must not create records")
	}
}

func TestGetCartView_Totals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v1 := inStockVariant(1000)
	v2 := inStockVariant(250)
	f := newFixture(v1, v2)
	ident := model.Identity{UserID: uuid.Must(uuid.NewV4())}

	for _, vid := range []uuid.UUID{v1.ID, v1.ID, v2.ID} {
		if _, err := f.svc.AddItem(ctx, ident, vid, "1.2.3.4"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	view, err := f.svc.GetCartView(ctx, ident)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.TotalItems != 3 {
		t.Fatalf("TotalItems want 3, got %d", view.TotalItems)
	}
	if view.TotalPriceCents != 2*1000+250 {
		t.Fatalf("TotalPriceCents want 2250, got %d", view.TotalPriceCents)
	}
	if len(view.Lines) != 2 {
		t.Fatalf("want 2 lines, got %d", len(view.Lines))
	}
}

func TestSetQuantity_ZeroDeletes_TwiceNoError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := inStockVariant(1000)
	f := newFixture(v)
	ident := model.Identity{UserID: uuid.Must(uuid.NewV4())}

	if _, err := f.svc.AddItem(ctx, ident, v.ID, "1.2.3.4"); err != nil {
		t.Fatalf("add: %v", err)
	}
	var itemID uuid.UUID
	for id := range f.items.items {
		itemID = id
	}

	if err := f.svc.SetQuantity(ctx, itemID, 0); err != nil {
		t.Fatalf("set 0: %v", err)
	}
	if len(f.items.items) != 0 {
		t.Fatalf("item must be deleted")
	}
	if err := f.svc.SetQuantity(ctx, itemID, -5); err != nil {
		t.Fatalf("set -5 on deleted item must no-op: %v", err)
	}
}

func TestSetQuantity_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture()
	if err := f.svc.SetQuantity(context.Background(), uuid.Nil, 1); err == nil {
		t.Fatalf("want validation error on empty item id")
	}
	if err := f.svc.RemoveItem(context.Background(), uuid.Nil); err == nil {
		t.Fatalf("want validation error on empty item id")
	}
}

func TestRemoveItem_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := inStockVariant(700)
	f := newFixture(v)
	ident := model.Identity{UserID: uuid.Must(uuid.NewV4())}

	if _, err := f.svc.AddItem(ctx, ident, v.ID, "1.2.3.4"); err != nil {
		t.Fatalf("add: %v", err)
	}
	var itemID uuid.UUID
	for id := range f.items.items {
		itemID = id
	}

	if err := f.svc.RemoveItem(ctx, itemID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.svc.RemoveItem(ctx, itemID); err != nil {
		t.Fatalf("second remove must no-op: %v", err)
	}
}

// Full walk of the add/add/view/zero-out flow for a fresh user.
func TestCartFlow_EndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := inStockVariant(1000)
	f := newFixture(v)
	ident := model.Identity{UserID: uuid.Must(uuid.NewV4())}

	if _, err := f.svc.AddItem(ctx, ident, v.ID, "1.2.3.4"); err != nil {
		t.Fatalf("add: %v", err)
	}
	view, err := f.svc.GetCartView(ctx, ident)
	if err != nil || view.TotalItems != 1 || view.TotalPriceCents != 1000 {
		t.Fatalf("after first add: %+v err=%v", view, err)
	}

	if _, err := f.svc.AddItem(ctx, ident, v.ID, "1.2.3.4"); err != nil {
		t.Fatalf("add: %v", err)
	}
	view, err = f.svc.GetCartView(ctx, ident)
	if err != nil || view.TotalItems != 2 || view.TotalPriceCents != 2000 {
		t.Fatalf("after second add: %+v err=%v", view, err)
	}

	if err := f.svc.SetQuantity(ctx, view.Lines[0].ItemID, 0); err != nil {
		t.Fatalf("set 0: %v", err)
	}
	view, err = f.svc.GetCartView(ctx, ident)
	if err != nil || view.TotalItems != 0 || len(view.Lines) != 0 {
		t.Fatalf("after zero-out: %+v err=%v", view, err)
	}
}
