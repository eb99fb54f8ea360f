package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Discount Money `json:"discount"`
	Tax      Money `json:"tax"`
	Total    Money `json:"total"`
}

// Compute calculates sale totals given the provided inputs. The discount is
// clamped to the subtotal and applied before tax: the taxable amount is the
// post-discount subtotal.
func Compute(items []Item, discount Money, taxBps int) Summary {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	taxable := subtotal - discount
	tax := (taxable * Money(taxBps)) / 10000
	total := taxable + tax
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    total,
	}
}

// DiscountedUnitPrice applies a promotional percentage to a unit price,
// flooring to the minor unit. Percentages outside [0,100] leave the price
// unchanged.
func DiscountedUnitPrice(price Money, discountPct int) Money {
	if price < 0 {
		return 0
	}
	if discountPct <= 0 || discountPct > 100 {
		return price
	}
	return price * Money(100-discountPct) / 100
}
