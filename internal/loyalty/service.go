package loyalty

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pos/internal/pricing"
)

// ErrNotFound indicates the requested customer could not be located.
var ErrNotFound = errors.New("loyalty: customer not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("loyalty: invalid input")

// Customer is a loyalty program member. Tier is always derivable from
// Points; the service recomputes it on every balance change.
type Customer struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Points        int64         `json:"points"`
	Tier          Tier          `json:"tier"`
	LifetimeSpend pricing.Money `json:"lifetimeSpend"`
	JoinedAt      time.Time     `json:"joinedAt"`
}

// Service keeps the customer registry in memory. Durable membership
// storage belongs to the external management system.
type Service struct {
	mu        sync.RWMutex
	customers map[string]*Customer
	Now       func() time.Time
}

// NewService constructs an empty registry.
func NewService() *Service {
	return &Service{customers: make(map[string]*Customer)}
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Register adds a customer with a zero balance.
func (s *Service) Register(name string) (Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Customer{}, ErrInvalidInput
	}
	c := &Customer{
		ID:       uuid.NewString(),
		Name:     name,
		Tier:     TierBronze,
		JoinedAt: s.now(),
	}
	s.mu.Lock()
	s.customers[c.ID] = c
	s.mu.Unlock()
	return *c, nil
}

// Get returns a copy of the customer.
func (s *Service) Get(id string) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return *c, nil
}

// List returns all customers ordered by join date, newest last.
func (s *Service) List() []Customer {
	s.mu.RLock()
	out := make([]Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, *c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// RedeemablePreview reports how much of the order total the customer could
// cover with points.
func (s *Service) RedeemablePreview(id string, orderTotal pricing.Money) (pricing.Money, error) {
	c, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	return Redeemable(c.Points, orderTotal), nil
}

// Settle applies a completed sale to the customer: redeemed points are
// deducted first, then points earned on the paid total are credited and
// lifetime spend updated. The tier is recomputed from the new balance.
func (s *Service) Settle(id string, redeemed pricing.Money, paidTotal pricing.Money) (Customer, error) {
	if redeemed < 0 || paidTotal < 0 {
		return Customer{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	spent := PointsForRedemption(redeemed)
	if spent > c.Points {
		return Customer{}, ErrInvalidInput
	}
	c.Points -= spent
	c.Points += PointsEarned(paidTotal)
	c.LifetimeSpend += paidTotal
	c.Tier = TierForPoints(c.Points)
	return *c, nil
}
