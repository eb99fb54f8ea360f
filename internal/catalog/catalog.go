package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Filter narrows the visible catalog subset. A zero Filter matches
// everything. Matching is case-insensitive substring on the display name;
// category is exact or wildcard.
type Filter struct {
	Query    string
	Category Category
}

// Catalog is an ordered, read-only collection of items. Replace swaps the
// whole item set atomically so an external refresh is never observed
// half-applied.
type Catalog struct {
	mu    sync.RWMutex
	items []Item
	byID  map[string]int
}

var validate = validator.New()

// New constructs a catalog from the provided items. Item order is
// preserved; it governs display order. An empty or nil slice yields a
// usable empty catalog.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(items); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace swaps the catalog contents. Invariants per item: price >= 0,
// stock >= 0, discount in [0,100], category from the closed set, unique id.
func (c *Catalog) Replace(items []Item) error {
	byID := make(map[string]int, len(items))
	copied := make([]Item, len(items))
	for i, item := range items {
		if err := validate.Struct(item); err != nil {
			return fmt.Errorf("catalog: item %q: %w", item.ID, err)
		}
		if _, err := ParseCategory(string(item.Category)); err != nil {
			return fmt.Errorf("catalog: item %q: %w", item.ID, err)
		}
		if _, dup := byID[item.ID]; dup {
			return fmt.Errorf("catalog: duplicate item id %q", item.ID)
		}
		byID[item.ID] = i
		copied[i] = item
	}
	c.mu.Lock()
	c.items = copied
	c.byID = byID
	c.mu.Unlock()
	return nil
}

// Items returns a copy of all items in display order.
func (c *Catalog) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Get looks up an item by id.
func (c *Catalog) Get(id string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

// Len reports the number of items.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Visible returns the filtered subset in original order. It recomputes from
// the current item set on every call, so an external Replace is always
// reflected immediately.
func (c *Catalog) Visible(f Filter) []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Item, 0, len(c.items))
	for _, item := range c.items {
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(item.Name), query) {
			continue
		}
		out = append(out, item)
	}
	return out
}
