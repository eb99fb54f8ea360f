package pricing

import "testing"

func TestComputeTaxAfterDiscount(t *testing.T) {
	// Subtotal 10000, discount 1000, 15% tax on the remaining 9000.
	items := []Item{{Qty: 2, UnitPrice: 5000}}
	summary := Compute(items, 1000, 1500)
	if summary.Subtotal != 10000 {
		t.Fatalf("expected subtotal 10000, got %d", summary.Subtotal)
	}
	if summary.Tax != 1350 {
		t.Fatalf("expected tax 1350, got %d", summary.Tax)
	}
	if summary.Total != 10350 {
		t.Fatalf("expected total 10350, got %d", summary.Total)
	}
}

func TestComputeClampsDiscount(t *testing.T) {
	items := []Item{{Qty: 1, UnitPrice: 500}}
	summary := Compute(items, 10_000, 1500)
	if summary.Discount != 500 {
		t.Fatalf("expected discount clamped to 500, got %d", summary.Discount)
	}
	if summary.Total != 0 {
		t.Fatalf("expected zero total, got %d", summary.Total)
	}
}

func TestComputeFloorsFractionalTax(t *testing.T) {
	// 349 * 15% = 52.35, floors to 52 minor units.
	items := []Item{{Qty: 1, UnitPrice: 349}}
	summary := Compute(items, 0, 1500)
	if summary.Tax != 52 {
		t.Fatalf("expected tax 52, got %d", summary.Tax)
	}
	if summary.Total != 401 {
		t.Fatalf("expected total 401, got %d", summary.Total)
	}
}

func TestComputeIgnoresNonPositiveQuantities(t *testing.T) {
	items := []Item{{Qty: 0, UnitPrice: 100}, {Qty: -3, UnitPrice: 100}, {Qty: 1, UnitPrice: 100}}
	summary := Compute(items, 0, 0)
	if summary.Subtotal != 100 {
		t.Fatalf("expected subtotal 100, got %d", summary.Subtotal)
	}
}

func TestDiscountedUnitPrice(t *testing.T) {
	cases := []struct {
		price Money
		pct   int
		want  Money
	}{
		{1000, 0, 1000},
		{1000, 25, 750},
		{349, 10, 314},
		{1000, 100, 0},
		{1000, 150, 1000},
		{-5, 10, 0},
	}
	for _, tc := range cases {
		if got := DiscountedUnitPrice(tc.price, tc.pct); got != tc.want {
			t.Fatalf("DiscountedUnitPrice(%d, %d) = %d, want %d", tc.price, tc.pct, got, tc.want)
		}
	}
}
