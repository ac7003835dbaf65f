// Package httpapi exposes the cart HTTP API handlers.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/ivolkov/cartd/internal/errs"
	"github.com/ivolkov/cartd/internal/model"
	"github.com/ivolkov/cartd/internal/service"
)

// GuestCookieName is the cookie carrying the guest session token.
const GuestCookieName = "guest_session"

// Server wires the cart service into HTTP handlers.
type Server struct {
	cart    service.CartService
	signKey []byte
	mux     *http.ServeMux
}

// New constructs the server with routes configured. signKey verifies
// user access tokens issued by the auth service.
func New(cart service.CartService, signKey []byte) *Server {
	s := &Server{cart: cart, signKey: signKey, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/cart/items", s.handleAddItem)
	s.mux.HandleFunc("GET /api/cart", s.handleGetCart)
	s.mux.HandleFunc("PATCH /api/cart/items/{id}", s.handleSetQuantity)
	s.mux.HandleFunc("DELETE /api/cart/items/{id}", s.handleRemoveItem)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler { return s.mux }

type addItemRequest struct {
	ProductVariantID string `json:"productVariantId"`
}

type setQuantityRequest struct {
	Quantity int32 `json:"quantity"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type variantResponse struct {
	ID         string `json:"id"`
	SKU        string `json:"sku"`
	PriceCents int64  `json:"priceCents"`
	InStock    bool   `json:"inStock"`
}

type cartLineResponse struct {
	ItemID   string          `json:"itemId"`
	Variant  variantResponse `json:"variant"`
	Quantity int32           `json:"quantity"`
}

type cartResponse struct {
	Items           []cartLineResponse `json:"items"`
	TotalItems      int32              `json:"totalItems"`
	TotalPriceCents int64              `json:"totalPriceCents"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	variantID, err := uuid.FromString(req.ProductVariantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad productVariantId")
		return
	}

	ident := s.identityFromRequest(r)
	sess, err := s.cart.AddItem(r.Context(), ident, variantID, remoteIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sess != nil {
		setGuestCookie(w, sess)
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	view, err := s.cart.GetCartView(r.Context(), s.identityFromRequest(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := cartResponse{
		Items:           make([]cartLineResponse, 0, len(view.Lines)),
		TotalItems:      view.TotalItems,
		TotalPriceCents: view.TotalPriceCents,
	}
	for _, ln := range view.Lines {
		resp.Items = append(resp.Items, cartLineResponse{
			ItemID: ln.ItemID.String(),
			Variant: variantResponse{
				ID:         ln.Variant.ID.String(),
				SKU:        ln.Variant.SKU,
				PriceCents: ln.Variant.PriceCents,
				InStock:    ln.Variant.InStock,
			},
			Quantity: ln.Quantity,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.FromString(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad item id")
		return
	}
	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := s.cart.SetQuantity(r.Context(), itemID, req.Quantity); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.FromString(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad item id")
		return
	}
	if err := s.cart.RemoveItem(r.Context(), itemID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// setGuestCookie delivers a freshly minted guest session to the caller.
func setGuestCookie(w http.ResponseWriter, sess *model.GuestSession) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// writeServiceError maps sentinel errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, "invalid guest session")
	case errors.Is(err, errs.ErrVariantNotFound):
		writeError(w, http.StatusNotFound, "unknown product variant")
	case errors.Is(err, errs.ErrOutOfStock):
		writeError(w, http.StatusConflict, "out of stock")
	case errors.Is(err, errs.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many new sessions")
	default:
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
