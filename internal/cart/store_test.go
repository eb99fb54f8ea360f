package cart_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pos/internal/cart"
)

func newStore(t *testing.T) *cart.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &cart.Store{R: client, TTL: time.Minute}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	c := cart.New()
	c.AddItem(apple())
	c.AddItem(apple())

	require.NoError(t, store.Save(ctx, "term-1", c.Snapshot()))

	snap, ok, err := store.Load(ctx, "term-1")
	require.NoError(t, err)
	require.True(t, ok)

	restored := cart.New()
	restored.Restore(snap)
	require.Equal(t, c.Lines(), restored.Lines())
}

func TestStoreLoadMissing(t *testing.T) {
	store := newStore(t)
	_, ok, err := store.Load(context.Background(), "absent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	c := cart.New()
	c.AddItem(milk())
	require.NoError(t, store.Save(ctx, "term-2", c.Snapshot()))
	require.NoError(t, store.Delete(ctx, "term-2"))

	_, ok, err := store.Load(ctx, "term-2")
	require.NoError(t, err)
	require.False(t, ok)

	// Deleting again is a no-op.
	require.NoError(t, store.Delete(ctx, "term-2"))
}

func TestStoreRequiresSessionID(t *testing.T) {
	store := newStore(t)
	err := store.Save(context.Background(), "", cart.Snapshot{})
	require.Error(t, err)
}
