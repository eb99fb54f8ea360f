package catalog

import (
	"net/http"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/events"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	catalog *Catalog
}

// NewHandler constructs a Handler.
func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

// List handles GET /api/v1/catalog with optional q and category filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	values := r.URL.Query()
	category, err := ParseCategory(values.Get("category"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown category", map[string]string{"category": values.Get("category")})
		return
	}
	items := h.catalog.Visible(Filter{Query: values.Get("q"), Category: category})
	common.JSONData(w, http.StatusOK, items)
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	common.JSONData(w, http.StatusOK, Categories())
}

// ReloadHandler refreshes the catalog from its source on demand. Open
// sessions see the new item set on their next render; stale cursors are
// clamped there.
type ReloadHandler struct {
	Catalog *Catalog
	Source  Source
	Events  *events.Bus
}

// Reload handles POST /api/v1/catalog/reload.
func (h *ReloadHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil || h.Source == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog source not configured", nil)
		return
	}
	items, err := h.Source.Load(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "SOURCE_UNAVAILABLE", "catalog source failed", nil)
		return
	}
	if err := h.Catalog.Replace(items); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_CATALOG", err.Error(), nil)
		return
	}
	if h.Events != nil {
		_, _ = h.Events.Emit(r.Context(), events.TopicCatalogReplaced, "system", map[string]int{"items": len(items)})
	}
	common.JSONData(w, http.StatusOK, map[string]int{"items": len(items)})
}
