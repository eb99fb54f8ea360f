package loyalty

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pos/internal/common"
)

// Handler exposes loyalty customer endpoints.
type Handler struct {
	Svc *Service
}

// Create handles POST /api/v1/loyalty/customers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "loyalty service not configured", nil)
		return
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	customer, err := h.Svc.Register(payload.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, customer)
}

// List handles GET /api/v1/loyalty/customers.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "loyalty service not configured", nil)
		return
	}
	common.JSONData(w, http.StatusOK, h.Svc.List())
}

// Get handles GET /api/v1/loyalty/customers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "loyalty service not configured", nil)
		return
	}
	customer, err := h.Svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, customer)
}

// RedeemablePreview handles GET /api/v1/loyalty/customers/{id}/redeemable?total=<minor units>.
func (h *Handler) RedeemablePreview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "loyalty service not configured", nil)
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("total"))
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || total < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "total must be a non-negative integer in minor units", nil)
		return
	}
	redeemable, err := h.Svc.RedeemablePreview(chi.URLParam(r, "id"), total)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]int64{"redeemable": redeemable})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "customer not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid input", nil)
	default:
		common.WriteError(w, err)
	}
}
