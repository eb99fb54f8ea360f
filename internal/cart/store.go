package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists cart snapshots in Redis keyed by session id, so a
// terminal can resume its cart after a restart. Persistence is best-effort;
// the in-memory session remains the source of truth.
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

func key(sessionID string) string {
	return "pos:cart:" + sessionID
}

// Save writes the snapshot with the configured TTL.
func (s *Store) Save(ctx context.Context, sessionID string, snap Snapshot) error {
	if s == nil || s.R == nil {
		return errors.New("cart: store not configured")
	}
	if sessionID == "" {
		return errors.New("cart: session id is required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cart: encode snapshot: %w", err)
	}
	if err := s.R.Set(ctx, key(sessionID), data, s.ttl()).Err(); err != nil {
		return fmt.Errorf("cart: persist snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot. The second return value reports whether one
// existed.
func (s *Store) Load(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	if s == nil || s.R == nil {
		return Snapshot{}, false, errors.New("cart: store not configured")
	}
	data, err := s.R.Get(ctx, key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("cart: load snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("cart: decode snapshot: %w", err)
	}
	return snap, true, nil
}

// Delete removes a persisted snapshot. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if s == nil || s.R == nil {
		return errors.New("cart: store not configured")
	}
	if err := s.R.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("cart: delete snapshot: %w", err)
	}
	return nil
}
