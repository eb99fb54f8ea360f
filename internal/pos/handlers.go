package pos

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/common"
)

// Handler exposes terminal session endpoints.
type Handler struct {
	Svc *Service
}

// Routes mounts the session API on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.Create)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Close)
		r.Post("/keys", h.HandleKey)
		r.Put("/filter", h.SetFilter)
		r.Delete("/cart", h.ClearCart)
		r.Post("/cart/items", h.AddItem)
		r.Patch("/cart/items/{itemID}", h.ChangeQuantity)
		r.Delete("/cart/items/{itemID}", h.RemoveItem)
	})
}

// Create handles POST /api/v1/sessions. The optional terminalId resumes a
// previous session's cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TerminalID string `json:"terminalId"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
			return
		}
	}
	view, err := h.Svc.Create(r.Context(), payload.TerminalID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, view)
}

// Get handles GET /api/v1/sessions/{sessionID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// Close handles DELETE /api/v1/sessions/{sessionID}.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleKey handles POST /api/v1/sessions/{sessionID}/keys.
func (h *Handler) HandleKey(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Key        string `json:"key"`
		Columns    int    `json:"columns"`
		FromSearch bool   `json:"fromSearch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	key, err := ParseKey(payload.Key)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown key", map[string]string{"key": payload.Key})
		return
	}
	view, err := h.Svc.HandleKey(r.Context(), chi.URLParam(r, "sessionID"), KeyEvent{
		Key:        key,
		Columns:    payload.Columns,
		FromSearch: payload.FromSearch,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// SetFilter handles PUT /api/v1/sessions/{sessionID}/filter.
func (h *Handler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query    string `json:"q"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	category, err := catalog.ParseCategory(payload.Category)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown category", map[string]string{"category": payload.Category})
		return
	}
	view, err := h.Svc.SetFilter(r.Context(), chi.URLParam(r, "sessionID"), catalog.Filter{
		Query:    payload.Query,
		Category: category,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// AddItem handles POST /api/v1/sessions/{sessionID}/cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ItemID string `json:"itemId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ItemID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "itemId is required", nil)
		return
	}
	view, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "sessionID"), payload.ItemID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// ChangeQuantity handles PATCH /api/v1/sessions/{sessionID}/cart/items/{itemID}.
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	view, err := h.Svc.ChangeQuantity(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "itemID"), payload.Delta)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// RemoveItem handles DELETE /api/v1/sessions/{sessionID}/cart/items/{itemID}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// ClearCart handles DELETE /api/v1/sessions/{sessionID}/cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.ClearCart(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
	case errors.Is(err, ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "item not found", nil)
	case errors.Is(err, ErrOutOfStock):
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", "item is out of stock", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", "cart is empty", nil)
	default:
		common.WriteError(w, err)
	}
}
