package catalog

import (
	"fmt"
	"strings"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// Category is the closed set of catalog categories. Invalid values are
// rejected at load time so downstream code never sees a free-form string.
type Category string

const (
	CategoryFruits     Category = "fruits"
	CategoryVegetables Category = "vegetables"
	CategoryDairy      Category = "dairy"
	CategoryBeverages  Category = "beverages"
	CategoryBakery     Category = "bakery"
	CategorySnacks     Category = "snacks"
	CategoryMeat       Category = "meat"
)

// Categories returns the enumerated category set in display order.
func Categories() []Category {
	return []Category{
		CategoryFruits,
		CategoryVegetables,
		CategoryDairy,
		CategoryBeverages,
		CategoryBakery,
		CategorySnacks,
		CategoryMeat,
	}
}

// ParseCategory validates a raw category value. The empty string and "all"
// act as the wildcard selector and map to the zero Category.
func ParseCategory(raw string) (Category, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == "all" {
		return "", nil
	}
	for _, c := range Categories() {
		if string(c) == trimmed {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", raw)
}

// Item is a sellable catalog entry. Items are read-only from the cart's
// perspective; stock is advisory and never decremented by a sale.
type Item struct {
	ID          string        `json:"id" validate:"required"`
	Name        string        `json:"name" validate:"required"`
	Price       pricing.Money `json:"price" validate:"gte=0"`
	Category    Category      `json:"category" validate:"required"`
	Unit        string        `json:"unit"`
	Stock       int           `json:"stock" validate:"gte=0"`
	DiscountPct int           `json:"discountPct,omitempty" validate:"gte=0,lte=100"`
	Promo       bool          `json:"promo,omitempty"`
	New         bool          `json:"new,omitempty"`
}

// EffectivePrice returns the unit price with any promotional discount
// applied, floored to the minor unit.
func (i Item) EffectivePrice() pricing.Money {
	return pricing.DiscountedUnitPrice(i.Price, i.DiscountPct)
}

// InStock reports whether the item can currently be added to a cart.
func (i Item) InStock() bool {
	return i.Stock > 0
}
