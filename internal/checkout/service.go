package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/events"
	"github.com/noah-isme/toko-pos/internal/loyalty"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/pos"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

// ErrNoLoyalty indicates a redemption was requested without a customer.
var ErrNoLoyalty = errors.New("checkout: redemption requires a customer")

// Input describes one checkout request.
type Input struct {
	SessionID    string
	CustomerID   string
	RedeemPoints bool
}

// Sale is the immutable record of one completed checkout.
type Sale struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"sessionId"`
	Lines          []cart.Line     `json:"lines"`
	Summary        pricing.Summary `json:"summary"`
	CustomerID     string          `json:"customerId,omitempty"`
	PointsRedeemed int64           `json:"pointsRedeemed,omitempty"`
	PointsEarned   int64           `json:"pointsEarned,omitempty"`
	CompletedAt    time.Time       `json:"completedAt"`
}

// Service runs the checkout flow: price the cart, apply loyalty redemption,
// simulate payment capture, then drain the cart and settle points. Sales
// are retained in a bounded in-memory ring; durable sales storage is the
// back office's job.
type Service struct {
	Sessions        *pos.Service
	Loyalty         *loyalty.Service
	Events          *events.Bus
	TaxBps          int
	ProcessingDelay time.Duration
	Keep            int
	Logger          zerolog.Logger
	Now             func() time.Time

	mu    sync.Mutex
	sales []Sale
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) keep() int {
	if s.Keep <= 0 {
		return 512
	}
	return s.Keep
}

type saleCompletedPayload struct {
	SaleID    string        `json:"saleId"`
	Total     pricing.Money `json:"total"`
	ItemCount int           `json:"itemCount"`
}

// Preview prices the session's cart without committing anything, including
// the redemption the customer could apply.
func (s *Service) Preview(ctx context.Context, in Input) (pricing.Summary, pricing.Money, error) {
	lines, err := s.Sessions.CartLines(in.SessionID)
	if err != nil {
		return pricing.Summary{}, 0, err
	}
	if len(lines) == 0 {
		return pricing.Summary{}, 0, pos.ErrEmptyCart
	}
	discount, err := s.redemption(in, lines)
	if err != nil {
		return pricing.Summary{}, 0, err
	}
	return pricing.Compute(pricingItems(lines), discount, s.TaxBps), discount, nil
}

// Create runs the full checkout. The payment capture delay honours ctx so
// an abandoned terminal request does not commit a sale.
func (s *Service) Create(ctx context.Context, in Input) (Sale, error) {
	if _, _, err := s.Preview(ctx, in); err != nil {
		return Sale{}, err
	}

	if s.ProcessingDelay > 0 {
		timer := time.NewTimer(s.ProcessingDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Sale{}, ctx.Err()
		case <-timer.C:
		}
	}

	lines, err := s.Sessions.CompleteSale(ctx, in.SessionID)
	if err != nil {
		return Sale{}, err
	}

	// Redemption is recomputed against the drained lines; they are the
	// authoritative contents of the sale.
	discount, err := s.redemption(in, lines)
	if err != nil {
		return Sale{}, err
	}
	summary := pricing.Compute(pricingItems(lines), discount, s.TaxBps)

	sale := Sale{
		ID:          uuid.NewString(),
		SessionID:   in.SessionID,
		Lines:       lines,
		Summary:     summary,
		CustomerID:  in.CustomerID,
		CompletedAt: s.now(),
	}
	if in.CustomerID != "" {
		customer, err := s.Loyalty.Settle(in.CustomerID, discount, summary.Total)
		if err != nil {
			// The cart is already drained; record the sale and surface the
			// loyalty failure in the log rather than losing the payment.
			s.Logger.Error().Err(err).Str("customer_id", in.CustomerID).Msg("settle loyalty points")
		} else {
			sale.PointsRedeemed = loyalty.PointsForRedemption(discount)
			sale.PointsEarned = loyalty.PointsEarned(summary.Total)
			s.Logger.Info().
				Str("customer_id", customer.ID).
				Int64("points", customer.Points).
				Str("tier", string(customer.Tier)).
				Msg("loyalty settled")
		}
	}

	s.record(sale)
	if obs.SalesCompletedTotal != nil {
		obs.SalesCompletedTotal.Inc()
	}
	if obs.SaleValue != nil {
		obs.SaleValue.Observe(float64(summary.Total))
	}
	s.emit(ctx, sale)
	s.Logger.Info().
		Str("sale_id", sale.ID).
		Str("session_id", sale.SessionID).
		Int64("total", summary.Total).
		Msg("sale completed")
	return sale, nil
}

// redemption computes the discount for the request: the customer's
// redeemable value against the pre-tax subtotal, or zero when no
// redemption was asked for.
func (s *Service) redemption(in Input, lines []cart.Line) (pricing.Money, error) {
	if !in.RedeemPoints {
		return 0, nil
	}
	if in.CustomerID == "" {
		return 0, ErrNoLoyalty
	}
	var subtotal pricing.Money
	for _, l := range lines {
		subtotal += l.Subtotal()
	}
	return s.Loyalty.RedeemablePreview(in.CustomerID, subtotal)
}

func (s *Service) record(sale Sale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales = append(s.sales, sale)
	if overflow := len(s.sales) - s.keep(); overflow > 0 {
		s.sales = append([]Sale(nil), s.sales[overflow:]...)
	}
}

// Sales returns the retained sales, oldest first.
func (s *Service) Sales() []Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sale, len(s.sales))
	copy(out, s.sales)
	return out
}

func (s *Service) emit(ctx context.Context, sale Sale) {
	if s.Events == nil {
		return
	}
	itemCount := 0
	for _, l := range sale.Lines {
		itemCount += l.Qty
	}
	payload := saleCompletedPayload{SaleID: sale.ID, Total: sale.Summary.Total, ItemCount: itemCount}
	if _, err := s.Events.Emit(ctx, events.TopicSaleCompleted, sale.SessionID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("sale_id", sale.ID).Msg("emit sale event")
	}
}

func pricingItems(lines []cart.Line) []pricing.Item {
	items := make([]pricing.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, pricing.Item{Qty: l.Qty, UnitPrice: l.UnitPrice()})
	}
	return items
}
