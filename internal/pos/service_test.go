package pos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/cart"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/events"
	"github.com/noah-isme/toko-pos/internal/pricing"
)

func testItems() []catalog.Item {
	return []catalog.Item{
		{ID: "p1", Name: "Gala Apple", Price: 349, Category: catalog.CategoryFruits, Unit: "kg", Stock: 5},
		{ID: "p2", Name: "Whole Milk", Price: 189, Category: catalog.CategoryDairy, Unit: "l", Stock: 4},
		{ID: "p3", Name: "Apple Juice", Price: 250, Category: catalog.CategoryBeverages, Unit: "l", Stock: 0},
		{ID: "p4", Name: "Sourdough Loaf", Price: 520, Category: catalog.CategoryBakery, Unit: "pc", Stock: 2, DiscountPct: 10, Promo: true},
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev events.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) topics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Topic)
	}
	return out
}

func (n *recordingNotifier) count(topic string) int {
	total := 0
	for _, t := range n.topics() {
		if t == topic {
			total++
		}
	}
	return total
}

func newTestService(t *testing.T, cfg Config) (*Service, *recordingNotifier) {
	t.Helper()
	cat, err := catalog.New(testItems())
	require.NoError(t, err)
	notifier := &recordingNotifier{}
	cfg.Catalog = cat
	cfg.Events = &events.Bus{Notifiers: []events.Notifier{notifier}}
	cfg.Logger = zerolog.Nop()
	if cfg.TaxBps == 0 {
		cfg.TaxBps = 1500
	}
	svc, err := NewService(cfg)
	require.NoError(t, err)
	return svc, notifier
}

func press(t *testing.T, svc *Service, id string, key Key, columns int) View {
	t.Helper()
	view, err := svc.HandleKey(context.Background(), id, KeyEvent{Key: key, Columns: columns})
	require.NoError(t, err)
	return view
}

func TestCreateStartsUnfocused(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	view, err := svc.Create(context.Background(), "")
	require.NoError(t, err)
	require.NotEmpty(t, view.SessionID)
	require.Equal(t, CursorNone, view.Cursor)
	require.False(t, view.SearchFocused)
	require.Empty(t, view.Lines)
	require.Equal(t, "all", view.Category)
	require.Len(t, view.Visible, 4)
	require.Equal(t, 1, svc.Count())
}

func TestDirectionalNavigationAndActivate(t *testing.T) {
	svc, notifier := newTestService(t, Config{})
	view, err := svc.Create(context.Background(), "till-1")
	require.NoError(t, err)

	view = press(t, svc, view.SessionID, KeyDown, 2)
	require.Equal(t, 0, view.Cursor)

	view = press(t, svc, view.SessionID, KeyRight, 2)
	require.Equal(t, 1, view.Cursor)

	view = press(t, svc, view.SessionID, KeyActivate, 2)
	require.Equal(t, 1, view.Cursor, "activation must not move the cursor")
	require.Equal(t, 1, view.ItemCount)
	require.Equal(t, "p2", view.Lines[0].ItemID)
	require.Equal(t, []string{"p2"}, view.Highlights)

	require.Equal(t, 1, notifier.count(events.TopicItemAdded))
	require.Equal(t, 1, notifier.count(events.TopicCartChanged))
	require.Equal(t, 2, notifier.count(events.TopicSelectionChanged))
}

func TestSearchFocusTextGuard(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	view, err := svc.Create(context.Background(), "till-1")
	require.NoError(t, err)
	id := view.SessionID

	view = press(t, svc, id, KeyRight, 2)
	require.Equal(t, 0, view.Cursor)

	view = press(t, svc, id, KeyFocusSearch, 2)
	require.True(t, view.SearchFocused)
	require.Equal(t, 0, view.Cursor, "focusing search leaves the cursor alone")

	// While typing, navigation and activation keys belong to the input.
	for _, key := range []Key{KeyRight, KeyLeft, KeyUp, KeyActivate, KeyCancel} {
		view = press(t, svc, id, key, 2)
		require.True(t, view.SearchFocused)
		require.Equal(t, 0, view.Cursor)
		require.Empty(t, view.Lines)
	}

	view = press(t, svc, id, KeyDown, 2)
	require.False(t, view.SearchFocused)
	require.Equal(t, 0, view.Cursor)
}

func TestActivateRespectsStock(t *testing.T) {
	svc, notifier := newTestService(t, Config{})
	view, err := svc.Create(context.Background(), "till-1")
	require.NoError(t, err)
	id := view.SessionID

	_, err = svc.SetFilter(context.Background(), id, catalog.Filter{Category: catalog.CategoryBeverages})
	require.NoError(t, err)

	view = press(t, svc, id, KeyDown, 1)
	require.Equal(t, 0, view.Cursor)
	require.Equal(t, "p3", view.Visible[0].ID)

	view = press(t, svc, id, KeyActivate, 1)
	require.Empty(t, view.Lines)
	require.Empty(t, view.Highlights)
	require.Zero(t, notifier.count(events.TopicItemAdded))
}

func TestActivateWithoutSelectionIsNoop(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	view, err := svc.Create(context.Background(), "till-1")
	require.NoError(t, err)

	view = press(t, svc, view.SessionID, KeyActivate, 2)
	require.Empty(t, view.Lines)
	require.Equal(t, CursorNone, view.Cursor)
}

func TestFilterChangeResetsCursor(t *testing.T) {
	svc, notifier := newTestService(t, Config{})
	view, err := svc.Create(context.Background(), "till-1")
	require.NoError(t, err)
	id := view.SessionID

	view = press(t, svc, id, KeyDown, 2)
	view = press(t, svc, id, KeyRight, 2)
	require.Equal(t, 1, view.Cursor)
	before := notifier.count(events.TopicSelectionChanged)

	view, err = svc.SetFilter(context.Background(), id, catalog.Filter{Query: "apple"})
	require.NoError(t, err)
	require.Equal(t, CursorNone, view.Cursor)
	require.Len(t, view.Visible, 2)
	require.Equal(t, before+1, notifier.count(events.TopicSelectionChanged))

	// Re-applying the identical filter changes nothing.
	view, err = svc.SetFilter(context.Background(), id, catalog.Filter{Query: "apple"})
	require.NoError(t, err)
	require.Equal(t, before+1, notifier.count(events.TopicSelectionChanged))
}

func TestCancelClearsCart(t *testing.T) {
	svc, notifier := newTestService(t, Config{})
	view, err := svc.Create(context.Background(), "till-1")
	require.NoError(t, err)
	id := view.SessionID

	press(t, svc, id, KeyDown, 2)
	press(t, svc, id, KeyActivate, 2)
	view = press(t, svc, id, KeyActivate, 2)
	require.Equal(t, 2, view.ItemCount)

	view = press(t, svc, id, KeyCancel, 2)
	require.Empty(t, view.Lines)
	require.Equal(t, pricing.Money(0), view.Summary.Total)

	// Cancelling an already-empty cart emits nothing further.
	before := notifier.count(events.TopicCartChanged)
	press(t, svc, id, KeyCancel, 2)
	require.Equal(t, before, notifier.count(events.TopicCartChanged))
}

func TestViewSummaryRecomputedFromLines(t *testing.T) {
	svc, _ := newTestService(t, Config{TaxBps: 1500})
	view, err := svc.Create(context.Background(), "till-1")
	require.NoError(t, err)
	id := view.SessionID

	view, err = svc.AddItem(context.Background(), id, "p1")
	require.NoError(t, err)
	view, err = svc.AddItem(context.Background(), id, "p1")
	require.NoError(t, err)

	require.Equal(t, pricing.Money(698), view.Summary.Subtotal)
	require.Equal(t, pricing.Money(104), view.Summary.Tax)
	require.Equal(t, pricing.Money(802), view.Summary.Total)
}

func TestAddItemErrors(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	view, err := svc.Create(context.Background(), "till-1")
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), view.SessionID, "ghost")
	require.ErrorIs(t, err, ErrItemNotFound)

	_, err = svc.AddItem(context.Background(), view.SessionID, "p3")
	require.ErrorIs(t, err, ErrOutOfStock)

	_, err = svc.AddItem(context.Background(), "nope", "p1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestChangeQuantityFloorRemovesLine(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	view, err := svc.Create(context.Background(), "till-1")
	require.NoError(t, err)
	id := view.SessionID

	_, err = svc.AddItem(context.Background(), id, "p1")
	require.NoError(t, err)
	view, err = svc.ChangeQuantity(context.Background(), id, "p1", -1)
	require.NoError(t, err)
	require.Empty(t, view.Lines)

	// Unknown line is a no-op, not an error.
	view, err = svc.ChangeQuantity(context.Background(), id, "ghost", 3)
	require.NoError(t, err)
	require.Empty(t, view.Lines)
}

func TestCompleteSaleDrainsCart(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	view, err := svc.Create(context.Background(), "till-1")
	require.NoError(t, err)
	id := view.SessionID

	_, err = svc.CompleteSale(context.Background(), id)
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.AddItem(context.Background(), id, "p1")
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), id, "p4")
	require.NoError(t, err)

	lines, err := svc.CompleteSale(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, "p1", lines[0].Item.ID)

	view, err = svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Empty(t, view.Lines)
}

func TestCreateRestoresPersistedCart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := &cart.Store{R: client, TTL: time.Hour}

	svc, _ := newTestService(t, Config{Store: store})
	ctx := context.Background()

	view, err := svc.Create(ctx, "till-9")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, view.SessionID, "p2")
	require.NoError(t, err)

	// Simulate a terminal restart: forget the in-memory session but keep
	// the snapshot.
	svc.mu.Lock()
	delete(svc.sessions, "till-9")
	svc.mu.Unlock()

	view, err = svc.Create(ctx, "till-9")
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	require.Equal(t, "p2", view.Lines[0].ItemID)

	// Closing the session drops the snapshot for good.
	require.NoError(t, svc.Close(ctx, "till-9"))
	view, err = svc.Create(ctx, "till-9")
	require.NoError(t, err)
	require.Empty(t, view.Lines)
}

func TestSweepClosesIdleSessions(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	svc, notifier := newTestService(t, Config{SessionTTL: time.Hour, Now: clock})
	ctx := context.Background()

	_, err := svc.Create(ctx, "till-1")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "till-2")
	require.NoError(t, err)

	require.Zero(t, svc.Sweep(ctx))

	now = now.Add(30 * time.Minute)
	press(t, svc, "till-2", KeyDown, 2)

	now = now.Add(45 * time.Minute)
	require.Equal(t, 1, svc.Sweep(ctx))
	require.Equal(t, 1, svc.Count())

	_, err = svc.Get(ctx, "till-1")
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.Equal(t, 1, notifier.count(events.TopicSessionClosed))
}
