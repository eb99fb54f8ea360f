package cart

import (
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

// Line is one (item, quantity) pair. Quantity is always >= 1; a quantity
// that would drop to zero removes the line instead.
type Line struct {
	Item catalog.Item `json:"item"`
	Qty  int          `json:"qty"`
}

// UnitPrice is the line's effective unit price with any promotional
// discount applied.
func (l Line) UnitPrice() pricing.Money {
	return l.Item.EffectivePrice()
}

// Subtotal is the line total, recomputed on every call.
func (l Line) Subtotal() pricing.Money {
	return l.UnitPrice() * pricing.Money(l.Qty)
}

// Cart holds the working set for an in-progress sale. Lines keep insertion
// order, with at most one line per item id. All mutations are total
// functions: operations on absent lines are no-ops, never errors. The cart
// trusts its input; stock gating happens in the interaction layer.
type Cart struct {
	lines []Line
	index map[string]int
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{index: make(map[string]int)}
}

// AddItem increments the quantity of an existing line or appends a new
// line with quantity 1.
func (c *Cart) AddItem(item catalog.Item) {
	if idx, ok := c.index[item.ID]; ok {
		c.lines[idx].Qty++
		return
	}
	c.index[item.ID] = len(c.lines)
	c.lines = append(c.lines, Line{Item: item, Qty: 1})
}

// ChangeQuantity adds delta to the matching line's quantity. A resulting
// quantity <= 0 removes the line. Unknown ids are a no-op.
func (c *Cart) ChangeQuantity(itemID string, delta int) {
	idx, ok := c.index[itemID]
	if !ok {
		return
	}
	c.lines[idx].Qty += delta
	if c.lines[idx].Qty <= 0 {
		c.removeAt(idx)
	}
}

// RemoveItem deletes the line if present.
func (c *Cart) RemoveItem(itemID string) {
	if idx, ok := c.index[itemID]; ok {
		c.removeAt(idx)
	}
}

// Clear discards all lines.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[string]int)
}

func (c *Cart) removeAt(idx int) {
	delete(c.index, c.lines[idx].Item.ID)
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	for i := idx; i < len(c.lines); i++ {
		c.index[c.lines[i].Item.ID] = i
	}
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Qty reports the quantity for an item id, zero when absent.
func (c *Cart) Qty(itemID string) int {
	if idx, ok := c.index[itemID]; ok {
		return c.lines[idx].Qty
	}
	return 0
}

// ItemCount is the sum of all line quantities.
func (c *Cart) ItemCount() int {
	total := 0
	for _, l := range c.lines {
		total += l.Qty
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Subtotal recomputes the pre-tax, pre-discount total from current lines.
func (c *Cart) Subtotal() pricing.Money {
	var total pricing.Money
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

// PricingItems maps the lines into the pricing engine's input shape.
func (c *Cart) PricingItems() []pricing.Item {
	items := make([]pricing.Item, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, pricing.Item{Qty: l.Qty, UnitPrice: l.UnitPrice()})
	}
	return items
}

// Snapshot is the JSON-serializable form of a cart, usable by any external
// storage mechanism.
type Snapshot struct {
	Lines []Line `json:"lines"`
}

// Snapshot captures the current cart state.
func (c *Cart) Snapshot() Snapshot {
	return Snapshot{Lines: c.Lines()}
}

// Restore replaces the cart contents from a snapshot. Lines with a
// non-positive quantity are dropped, preserving the quantity floor.
func (c *Cart) Restore(snap Snapshot) {
	c.Clear()
	for _, l := range snap.Lines {
		if l.Qty <= 0 {
			continue
		}
		if _, ok := c.index[l.Item.ID]; ok {
			continue
		}
		c.index[l.Item.ID] = len(c.lines)
		c.lines = append(c.lines, l)
	}
}
