package pos

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/events"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

var (
	ErrSessionNotFound = errors.New("pos: session not found")
	ErrItemNotFound    = errors.New("pos: item not found")
	ErrOutOfStock      = errors.New("pos: item is out of stock")
	ErrEmptyCart       = errors.New("pos: cart is empty")
)

// Config wires a session service.
type Config struct {
	Catalog      *catalog.Catalog
	Events       *events.Bus
	Store        *cart.Store
	TaxBps       int
	HighlightTTL time.Duration
	SessionTTL   time.Duration
	Logger       zerolog.Logger
	Now          func() time.Time
}

// Service owns all live terminal sessions. Lookups take the registry lock;
// each mutation then runs under its session's own mutex so terminals never
// block each other.
type Service struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService constructs the session registry.
func NewService(cfg Config) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("pos: catalog is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{cfg: cfg, sessions: make(map[string]*Session)}, nil
}

type cartChangedPayload struct {
	ItemCount int           `json:"itemCount"`
	Subtotal  pricing.Money `json:"subtotal"`
}

type selectionChangedPayload struct {
	Cursor int `json:"cursor"`
}

type itemAddedPayload struct {
	ItemID string `json:"itemId"`
}

// Create opens a session. When id names a previous session whose cart
// snapshot is still in the store, the cart is restored so a terminal
// restart does not lose an in-progress sale. An empty id gets a fresh uuid.
func (s *Service) Create(ctx context.Context, id string) (View, error) {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	if existing, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return s.render(existing), nil
	}
	now := s.cfg.Now()
	sess := &Session{
		id:         id,
		cart:       cart.New(),
		cursor:     CursorNone,
		highlights: NewHighlighter(s.cfg.HighlightTTL),
		createdAt:  now,
		touchedAt:  now,
	}
	s.sessions[id] = sess
	s.mu.Unlock()

	if s.cfg.Store != nil {
		snap, ok, err := s.cfg.Store.Load(ctx, id)
		if err != nil {
			s.cfg.Logger.Warn().Err(err).Str("session_id", id).Msg("load cart snapshot")
		} else if ok {
			sess.mu.Lock()
			sess.cart.Restore(snap)
			sess.mu.Unlock()
		}
	}

	if obs.SessionsActive != nil {
		obs.SessionsActive.Inc()
	}
	s.cfg.Logger.Info().Str("session_id", id).Msg("session opened")
	return s.render(sess), nil
}

// Get returns the current view of the session.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	return s.render(sess), nil
}

// Close tears down the session and drops its persisted cart snapshot.
func (s *Service) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	sess.highlights.Close()
	if s.cfg.Store != nil {
		if err := s.cfg.Store.Delete(ctx, id); err != nil {
			s.cfg.Logger.Warn().Err(err).Str("session_id", id).Msg("delete cart snapshot")
		}
	}
	if obs.SessionsActive != nil {
		obs.SessionsActive.Dec()
	}
	s.emit(ctx, events.TopicSessionClosed, id, nil)
	s.cfg.Logger.Info().Str("session_id", id).Msg("session closed")
	return nil
}

// HandleKey runs one keypress through the cursor state machine and reports
// the resulting view.
func (s *Service) HandleKey(ctx context.Context, id string, ev KeyEvent) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	sess.touchedAt = s.cfg.Now()
	visible := s.cfg.Catalog.Visible(sess.filter)
	out := sess.applyKey(ev, visible)
	view := sess.view(s.cfg.Catalog, s.cfg.TaxBps)
	sess.mu.Unlock()

	if out.addedItemID != "" {
		s.countItemAdded(out.addedItemID)
		s.emit(ctx, events.TopicItemAdded, id, itemAddedPayload{ItemID: out.addedItemID})
	}
	if out.cartChanged {
		s.persist(ctx, sess)
		s.emit(ctx, events.TopicCartChanged, id, cartChangedPayload{
			ItemCount: view.ItemCount,
			Subtotal:  view.Summary.Subtotal,
		})
	}
	if out.selectionChanged {
		s.emit(ctx, events.TopicSelectionChanged, id, selectionChangedPayload{Cursor: view.Cursor})
	}
	return view, nil
}

// SetFilter replaces the session's search query and category. Any change
// drops the selection, since the previous cursor indexed a different list.
func (s *Service) SetFilter(ctx context.Context, id string, f catalog.Filter) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	sess.touchedAt = s.cfg.Now()
	selectionChanged := sess.setFilter(f)
	view := sess.view(s.cfg.Catalog, s.cfg.TaxBps)
	sess.mu.Unlock()

	if selectionChanged {
		s.emit(ctx, events.TopicSelectionChanged, id, selectionChangedPayload{Cursor: view.Cursor})
	}
	return view, nil
}

// AddItem adds one unit of the catalog item to the cart, the pointer/tap
// equivalent of activating it with the keyboard.
func (s *Service) AddItem(ctx context.Context, id, itemID string) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	item, ok := s.cfg.Catalog.Get(itemID)
	if !ok {
		return View{}, ErrItemNotFound
	}
	if !item.InStock() {
		return View{}, ErrOutOfStock
	}

	sess.mu.Lock()
	sess.touchedAt = s.cfg.Now()
	sess.cart.AddItem(item)
	sess.highlights.Flash(item.ID)
	view := sess.view(s.cfg.Catalog, s.cfg.TaxBps)
	sess.mu.Unlock()

	s.countItemAdded(item.ID)
	s.persist(ctx, sess)
	s.emit(ctx, events.TopicItemAdded, id, itemAddedPayload{ItemID: item.ID})
	s.emit(ctx, events.TopicCartChanged, id, cartChangedPayload{
		ItemCount: view.ItemCount,
		Subtotal:  view.Summary.Subtotal,
	})
	return view, nil
}

// ChangeQuantity shifts a cart line's quantity by delta. Dropping to zero
// or below removes the line.
func (s *Service) ChangeQuantity(ctx context.Context, id, itemID string, delta int) (View, error) {
	return s.mutateCart(ctx, id, func(c *cart.Cart) {
		c.ChangeQuantity(itemID, delta)
	})
}

// RemoveItem deletes a cart line regardless of quantity.
func (s *Service) RemoveItem(ctx context.Context, id, itemID string) (View, error) {
	return s.mutateCart(ctx, id, func(c *cart.Cart) {
		c.RemoveItem(itemID)
	})
}

// ClearCart empties the cart.
func (s *Service) ClearCart(ctx context.Context, id string) (View, error) {
	return s.mutateCart(ctx, id, func(c *cart.Cart) {
		c.Clear()
	})
}

func (s *Service) mutateCart(ctx context.Context, id string, fn func(*cart.Cart)) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	sess.touchedAt = s.cfg.Now()
	fn(sess.cart)
	view := sess.view(s.cfg.Catalog, s.cfg.TaxBps)
	sess.mu.Unlock()

	s.persist(ctx, sess)
	s.emit(ctx, events.TopicCartChanged, id, cartChangedPayload{
		ItemCount: view.ItemCount,
		Subtotal:  view.Summary.Subtotal,
	})
	return view, nil
}

// CartLines returns a copy of the session's cart lines.
func (s *Service) CartLines(id string) ([]cart.Line, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.cart.Lines(), nil
}

// CompleteSale atomically drains the cart for checkout and returns the
// sold lines. The caller prices and records the sale; the session is left
// open with an empty cart for the next customer.
func (s *Service) CompleteSale(ctx context.Context, id string) ([]cart.Line, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.cart.IsEmpty() {
		sess.mu.Unlock()
		return nil, ErrEmptyCart
	}
	sess.touchedAt = s.cfg.Now()
	lines := sess.cart.Lines()
	sess.cart.Clear()
	sess.mu.Unlock()

	s.persist(ctx, sess)
	s.emit(ctx, events.TopicCartChanged, id, cartChangedPayload{})
	return lines, nil
}

// Sweep closes sessions idle for longer than the session TTL and returns
// how many were dropped.
func (s *Service) Sweep(ctx context.Context) int {
	cutoff := s.cfg.Now().Add(-s.cfg.SessionTTL)

	s.mu.RLock()
	var stale []string
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.touchedAt.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	sort.Strings(stale)
	closed := 0
	for _, id := range stale {
		if err := s.Close(ctx, id); err == nil {
			closed++
		}
	}
	if closed > 0 {
		s.cfg.Logger.Info().Int("count", closed).Msg("swept idle sessions")
	}
	return closed
}

// Count reports the number of open sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) lookup(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) render(sess *Session) View {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(s.cfg.Catalog, s.cfg.TaxBps)
}

func (s *Service) persist(ctx context.Context, sess *Session) {
	if s.cfg.Store == nil {
		return
	}
	sess.mu.Lock()
	snap := sess.cart.Snapshot()
	sess.mu.Unlock()
	if err := s.cfg.Store.Save(ctx, sess.id, snap); err != nil {
		s.cfg.Logger.Warn().Err(err).Str("session_id", sess.id).Msg("save cart snapshot")
	}
}

func (s *Service) emit(ctx context.Context, topic, sessionID string, payload any) {
	if s.cfg.Events == nil {
		return
	}
	if _, err := s.cfg.Events.Emit(ctx, topic, sessionID, payload); err != nil {
		s.cfg.Logger.Warn().Err(err).Str("topic", topic).Msg("emit event")
	}
}

func (s *Service) countItemAdded(itemID string) {
	if obs.ItemsAddedTotal == nil {
		return
	}
	category := "unknown"
	if item, ok := s.cfg.Catalog.Get(itemID); ok {
		category = string(item.Category)
	}
	obs.ItemsAddedTotal.WithLabelValues(category).Inc()
}
