package events

import (
	"net/http"
	"strings"

	"github.com/noah-isme/toko-pos/internal/common"
)

// Handler exposes the retained event stream for debug tooling and
// render-layer polling.
type Handler struct {
	Bus *Bus
}

// Recent handles GET /api/v1/events with an optional session filter.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.Bus == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "event bus not configured", nil)
		return
	}
	session := strings.TrimSpace(r.URL.Query().Get("session"))
	all := h.Bus.Recent()
	if session == "" {
		common.JSONData(w, http.StatusOK, all)
		return
	}
	filtered := make([]Event, 0, len(all))
	for _, ev := range all {
		if ev.SessionID == session {
			filtered = append(filtered, ev)
		}
	}
	common.JSONData(w, http.StatusOK, filtered)
}
