package loyalty

import (
	"github.com/noah-isme/toko-pos/internal/pricing"
)

// Tier is a loyalty rank derived purely from accrued points.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// tierThresholds is ordered ascending; the highest threshold <= points wins.
var tierThresholds = []struct {
	Tier      Tier
	MinPoints int64
}{
	{TierBronze, 0},
	{TierSilver, 500},
	{TierGold, 2000},
	{TierPlatinum, 5000},
}

// TierForPoints selects the highest tier whose threshold is at or below the
// point balance. Monotonic in points.
func TierForPoints(points int64) Tier {
	tier := TierBronze
	for _, t := range tierThresholds {
		if points >= t.MinPoints {
			tier = t.Tier
		}
	}
	return tier
}

// pointsPerUnit is how many points buy one whole currency unit of
// redemption, and how many points a unit of spend earns.
const pointsPerUnit = 100

// redemptionCapBps caps redemption at 20% of the order total.
const redemptionCapBps = 2000

// Redeemable returns the redeemable value in minor units:
// min(floor(points/100) whole currency units, 20% of the order total),
// clamped to >= 0. The cap is floored to the minor unit.
func Redeemable(points int64, orderTotal pricing.Money) pricing.Money {
	if points <= 0 || orderTotal <= 0 {
		return 0
	}
	fromPoints := pricing.Money(points/pointsPerUnit) * 100
	cap := orderTotal * redemptionCapBps / 10000
	if fromPoints < cap {
		return fromPoints
	}
	return cap
}

// PointsEarned converts the final paid amount into points: one point per
// whole currency unit, computed on the post-discount total.
func PointsEarned(finalTotal pricing.Money) int64 {
	if finalTotal <= 0 {
		return 0
	}
	return finalTotal / 100
}

// PointsForRedemption converts a redeemed value back into the points it
// consumes. At 100 points per currency unit one point covers one minor
// unit, so the conversion is the identity on the redeemed amount.
func PointsForRedemption(redeemed pricing.Money) int64 {
	if redeemed <= 0 {
		return 0
	}
	return int64(redeemed)
}
