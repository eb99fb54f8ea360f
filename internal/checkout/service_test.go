package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/events"
	"github.com/noah-isme/toko-pos/internal/loyalty"
	"github.com/noah-isme/toko-pos/internal/pos"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

type fixture struct {
	checkout *Service
	sessions *pos.Service
	loyalty  *loyalty.Service
	bus      *events.Bus
}

func newFixture(t *testing.T, taxBps int) *fixture {
	t.Helper()
	cat, err := catalog.New([]catalog.Item{
		{ID: "p1", Name: "Gala Apple", Price: 349, Category: catalog.CategoryFruits, Stock: 50},
		{ID: "p2", Name: "Whole Milk", Price: 189, Category: catalog.CategoryDairy, Stock: 50},
	})
	require.NoError(t, err)

	bus := &events.Bus{}
	sessions, err := pos.NewService(pos.Config{
		Catalog: cat,
		Events:  bus,
		TaxBps:  taxBps,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	members := loyalty.NewService()
	return &fixture{
		checkout: &Service{
			Sessions: sessions,
			Loyalty:  members,
			Events:   bus,
			TaxBps:   taxBps,
			Logger:   zerolog.Nop(),
		},
		sessions: sessions,
		loyalty:  members,
		bus:      bus,
	}
}

// seedCustomer registers a member and loads a point balance by settling a
// synthetic prior purchase.
func seedCustomer(t *testing.T, svc *loyalty.Service, points int64) loyalty.Customer {
	t.Helper()
	customer, err := svc.Register("Ayu Lestari")
	require.NoError(t, err)
	customer, err = svc.Settle(customer.ID, 0, pricing.Money(points)*100)
	require.NoError(t, err)
	require.Equal(t, points, customer.Points)
	return customer
}

func fillCart(t *testing.T, f *fixture, sessionID string, itemID string, qty int) {
	t.Helper()
	ctx := context.Background()
	_, err := f.sessions.Create(ctx, sessionID)
	require.NoError(t, err)
	for i := 0; i < qty; i++ {
		_, err := f.sessions.AddItem(ctx, sessionID, itemID)
		require.NoError(t, err)
	}
}

func TestCreateWithoutLoyalty(t *testing.T) {
	f := newFixture(t, 1500)
	fillCart(t, f, "till-1", "p1", 2)

	sale, err := f.checkout.Create(context.Background(), Input{SessionID: "till-1"})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(698), sale.Summary.Subtotal)
	require.Equal(t, pricing.Money(0), sale.Summary.Discount)
	require.Equal(t, pricing.Money(104), sale.Summary.Tax)
	require.Equal(t, pricing.Money(802), sale.Summary.Total)
	require.Len(t, sale.Lines, 1)
	require.Zero(t, sale.PointsEarned)

	// The session stays open with an empty cart.
	lines, err := f.sessions.CartLines("till-1")
	require.NoError(t, err)
	require.Empty(t, lines)

	topics := f.bus.Recent()
	require.Equal(t, events.TopicSaleCompleted, topics[len(topics)-1].Topic)
}

func TestRedemptionCapAndEarnOnDiscountedTotal(t *testing.T) {
	f := newFixture(t, 0)
	customer := seedCustomer(t, f.loyalty, 10000)
	fillCart(t, f, "till-1", "p1", 10)

	// Subtotal 3490; the 20% cap (698) binds before the point balance does.
	summary, redeemable, err := f.checkout.Preview(context.Background(), Input{
		SessionID:    "till-1",
		CustomerID:   customer.ID,
		RedeemPoints: true,
	})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(698), redeemable)
	require.Equal(t, pricing.Money(2792), summary.Total)

	sale, err := f.checkout.Create(context.Background(), Input{
		SessionID:    "till-1",
		CustomerID:   customer.ID,
		RedeemPoints: true,
	})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(698), sale.Summary.Discount)
	require.Equal(t, pricing.Money(2792), sale.Summary.Total)
	require.Equal(t, int64(698), sale.PointsRedeemed)
	// Earned points come from the discounted total, not the subtotal.
	require.Equal(t, int64(27), sale.PointsEarned)

	updated, err := f.loyalty.Get(customer.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10000-698+27), updated.Points)
	require.Equal(t, pricing.Money(2792), updated.LifetimeSpend-customer.LifetimeSpend)
}

func TestSmallBalanceRedeemsNothing(t *testing.T) {
	f := newFixture(t, 0)
	customer := seedCustomer(t, f.loyalty, 50)
	fillCart(t, f, "till-1", "p2", 3)

	_, redeemable, err := f.checkout.Preview(context.Background(), Input{
		SessionID:    "till-1",
		CustomerID:   customer.ID,
		RedeemPoints: true,
	})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(0), redeemable, "fewer than 100 points converts to no value")
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.checkout.Create(context.Background(), Input{SessionID: "ghost"})
	require.ErrorIs(t, err, pos.ErrSessionNotFound)

	_, err = f.sessions.Create(context.Background(), "till-1")
	require.NoError(t, err)
	_, err = f.checkout.Create(context.Background(), Input{SessionID: "till-1"})
	require.ErrorIs(t, err, pos.ErrEmptyCart)

	fillCart(t, f, "till-2", "p1", 1)
	_, err = f.checkout.Create(context.Background(), Input{SessionID: "till-2", RedeemPoints: true})
	require.ErrorIs(t, err, ErrNoLoyalty)

	_, err = f.checkout.Create(context.Background(), Input{
		SessionID:    "till-2",
		CustomerID:   "ghost",
		RedeemPoints: true,
	})
	require.ErrorIs(t, err, loyalty.ErrNotFound)
}

func TestCancelledContextAbortsBeforeCommit(t *testing.T) {
	f := newFixture(t, 0)
	f.checkout.ProcessingDelay = 500 * time.Millisecond
	fillCart(t, f, "till-1", "p1", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.checkout.Create(ctx, Input{SessionID: "till-1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Nothing was committed; the cart still holds the line.
	lines, err := f.sessions.CartLines("till-1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Empty(t, f.checkout.Sales())
}

func TestSalesRingIsBounded(t *testing.T) {
	f := newFixture(t, 0)
	f.checkout.Keep = 2

	for i := 0; i < 4; i++ {
		fillCart(t, f, "till-1", "p1", 1)
		_, err := f.checkout.Create(context.Background(), Input{SessionID: "till-1"})
		require.NoError(t, err)
	}
	sales := f.checkout.Sales()
	require.Len(t, sales, 2)
}
