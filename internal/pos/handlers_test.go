package pos

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*Service, http.Handler) {
	t.Helper()
	svc, _ := newTestService(t, Config{})
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		(&Handler{Svc: svc}).Routes(r)
	})
	return svc, r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeView(t *testing.T, rr *httptest.ResponseRecorder) View {
	t.Helper()
	var envelope struct {
		Data View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	_, router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/sessions", map[string]string{"terminalId": "till-1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	view := decodeView(t, rr)
	require.Equal(t, "till-1", view.SessionID)
	require.Equal(t, CursorNone, view.Cursor)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/sessions/till-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, "/api/v1/sessions/till-1", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/sessions/till-1", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestKeyEndpoint(t *testing.T) {
	_, router := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/v1/sessions", map[string]string{"terminalId": "till-1"})

	rr := doJSON(t, router, http.MethodPost, "/api/v1/sessions/till-1/keys", map[string]any{"key": "ArrowDown", "columns": 2})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 0, decodeView(t, rr).Cursor)

	rr = doJSON(t, router, http.MethodPost, "/api/v1/sessions/till-1/keys", map[string]any{"key": "Enter", "columns": 2})
	require.Equal(t, http.StatusOK, rr.Code)
	view := decodeView(t, rr)
	require.Equal(t, 1, view.ItemCount)
	require.Equal(t, []string{"p1"}, view.Highlights)

	rr = doJSON(t, router, http.MethodPost, "/api/v1/sessions/till-1/keys", map[string]any{"key": "Tab"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/v1/sessions/ghost/keys", map[string]any{"key": "Enter"})
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFilterEndpoint(t *testing.T) {
	_, router := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/v1/sessions", map[string]string{"terminalId": "till-1"})

	rr := doJSON(t, router, http.MethodPut, "/api/v1/sessions/till-1/filter", map[string]string{"q": "apple", "category": "all"})
	require.Equal(t, http.StatusOK, rr.Code)
	view := decodeView(t, rr)
	require.Len(t, view.Visible, 2)
	require.Equal(t, CursorNone, view.Cursor)

	rr = doJSON(t, router, http.MethodPut, "/api/v1/sessions/till-1/filter", map[string]string{"category": "hardware"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCartEndpoints(t *testing.T) {
	_, router := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/v1/sessions", map[string]string{"terminalId": "till-1"})

	rr := doJSON(t, router, http.MethodPost, "/api/v1/sessions/till-1/cart/items", map[string]string{"itemId": "p1"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, decodeView(t, rr).ItemCount)

	rr = doJSON(t, router, http.MethodPost, "/api/v1/sessions/till-1/cart/items", map[string]string{"itemId": "p3"})
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = doJSON(t, router, http.MethodPatch, "/api/v1/sessions/till-1/cart/items/p1", map[string]int{"delta": 2})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 3, decodeView(t, rr).ItemCount)

	rr = doJSON(t, router, http.MethodDelete, "/api/v1/sessions/till-1/cart/items/p1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, decodeView(t, rr).Lines)

	doJSON(t, router, http.MethodPost, "/api/v1/sessions/till-1/cart/items", map[string]string{"itemId": "p2"})
	rr = doJSON(t, router, http.MethodDelete, "/api/v1/sessions/till-1/cart", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, decodeView(t, rr).Lines)
}
