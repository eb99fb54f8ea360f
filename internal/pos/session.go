package pos

import (
	"sync"
	"time"

	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

// Session is one terminal's working state: the in-progress cart, the
// catalog filter, the selection cursor, and transient highlights. All
// mutations run to completion under the session mutex, so a terminal never
// observes a partial update.
type Session struct {
	mu sync.Mutex

	id            string
	cart          *cart.Cart
	filter        catalog.Filter
	cursor        int
	searchFocused bool
	highlights    *Highlighter

	createdAt time.Time
	touchedAt time.Time
}

// keyOutcome reports what a keypress changed, so the service can emit the
// matching display events outside the session lock.
type keyOutcome struct {
	cartChanged      bool
	selectionChanged bool
	addedItemID      string
}

// applyKey advances the cursor state machine against the current visible
// list. Caller holds the session mutex.
func (s *Session) applyKey(ev KeyEvent, visible []catalog.Item) keyOutcome {
	var out keyOutcome

	if ev.Key == KeyFocusSearch {
		// Jumping to search never disturbs the cursor.
		s.searchFocused = true
		return out
	}

	if s.searchFocused || ev.FromSearch {
		// While typing, only "move down" leaves the query input. Every
		// other key belongs to the text field.
		if ev.Key != KeyDown {
			return out
		}
		s.searchFocused = false
		old := s.cursor
		if len(visible) > 0 {
			s.cursor = 0
		} else {
			s.cursor = CursorNone
		}
		out.selectionChanged = old != s.cursor
		return out
	}

	switch {
	case ev.Key.IsDirectional():
		old := s.cursor
		s.cursor = moveCursor(s.cursor, ev.Key, ev.Columns, len(visible))
		out.selectionChanged = old != s.cursor

	case ev.Key == KeyActivate:
		if s.cursor < 0 || s.cursor >= len(visible) {
			return out
		}
		item := visible[s.cursor]
		if !item.InStock() {
			return out
		}
		s.cart.AddItem(item)
		s.highlights.Flash(item.ID)
		out.cartChanged = true
		out.addedItemID = item.ID
		// The cursor stays put so repeated activation is cheap.

	case ev.Key == KeyCancel:
		if !s.cart.IsEmpty() {
			s.cart.Clear()
			out.cartChanged = true
		}
	}
	return out
}

// setFilter updates the filter and resets the cursor whenever the visible
// index set becomes invalid. Caller holds the session mutex.
func (s *Session) setFilter(f catalog.Filter) (selectionChanged bool) {
	if s.filter == f {
		return false
	}
	s.filter = f
	changed := s.cursor != CursorNone
	s.cursor = CursorNone
	return changed
}

// LineView is the wire form of one cart line.
type LineView struct {
	ItemID    string        `json:"itemId"`
	Name      string        `json:"name"`
	Unit      string        `json:"unit,omitempty"`
	Qty       int           `json:"qty"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Subtotal  pricing.Money `json:"subtotal"`
}

// View is the full session state a terminal needs to render.
type View struct {
	SessionID     string          `json:"sessionId"`
	Query         string          `json:"query"`
	Category      string          `json:"category"`
	Visible       []catalog.Item  `json:"visible"`
	Cursor        int             `json:"cursor"`
	SearchFocused bool            `json:"searchFocused"`
	Lines         []LineView      `json:"lines"`
	ItemCount     int             `json:"itemCount"`
	Summary       pricing.Summary `json:"summary"`
	Highlights    []string        `json:"highlights"`
}

// view renders the session against the catalog. Caller holds the session
// mutex. Totals are recomputed from the lines on every call.
func (s *Session) view(cat *catalog.Catalog, taxBps int) View {
	visible := cat.Visible(s.filter)
	cursor := s.cursor
	if cursor >= len(visible) {
		// The catalog shrank underneath us (external refresh); report
		// no selection rather than a stale index.
		cursor = CursorNone
	}
	lines := s.cart.Lines()
	lineViews := make([]LineView, 0, len(lines))
	for _, l := range lines {
		lineViews = append(lineViews, LineView{
			ItemID:    l.Item.ID,
			Name:      l.Item.Name,
			Unit:      l.Item.Unit,
			Qty:       l.Qty,
			UnitPrice: l.UnitPrice(),
			Subtotal:  l.Subtotal(),
		})
	}
	category := "all"
	if s.filter.Category != "" {
		category = string(s.filter.Category)
	}
	return View{
		SessionID:     s.id,
		Query:         s.filter.Query,
		Category:      category,
		Visible:       visible,
		Cursor:        cursor,
		SearchFocused: s.searchFocused,
		Lines:         lineViews,
		ItemCount:     s.cart.ItemCount(),
		Summary:       pricing.Compute(s.cart.PricingItems(), 0, taxBps),
		Highlights:    s.highlights.Active(),
	}
}
