package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/loyalty"
	"github.com/noah-isme/toko-pos/internal/pos"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

// Handler exposes checkout endpoints.
type Handler struct {
	Svc *Service
}

type checkoutRequest struct {
	CustomerID   string `json:"customerId"`
	RedeemPoints bool   `json:"redeemPoints"`
}

// Preview handles POST /api/v1/sessions/{sessionID}/checkout/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	summary, discount, err := h.Svc.Preview(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"summary":    summary,
		"redeemable": pricing.Money(discount),
	})
}

// Create handles POST /api/v1/sessions/{sessionID}/checkout.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	sale, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, sale)
}

// List handles GET /api/v1/sales.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	common.JSONData(w, http.StatusOK, h.Svc.Sales())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var payload checkoutRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
			return Input{}, false
		}
	}
	return Input{
		SessionID:    chi.URLParam(r, "sessionID"),
		CustomerID:   payload.CustomerID,
		RedeemPoints: payload.RedeemPoints,
	}, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pos.ErrSessionNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
	case errors.Is(err, pos.ErrEmptyCart):
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, loyalty.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "customer not found", nil)
	case errors.Is(err, ErrNoLoyalty):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "redemption requires a customer", nil)
	default:
		common.WriteError(w, err)
	}
}
