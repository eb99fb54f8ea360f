package pos

import (
	"sort"
	"sync"
	"time"
)

// Highlighter tracks transient "item added" highlights keyed by item id.
// Each highlight expires exactly once after the configured TTL; re-flashing
// an active highlight restarts its timer. Close cancels every pending
// timer so nothing fires after the owning session is torn down.
type Highlighter struct {
	mu     sync.Mutex
	ttl    time.Duration
	timers map[string]*time.Timer
	closed bool
}

// NewHighlighter constructs a highlighter with the given TTL.
func NewHighlighter(ttl time.Duration) *Highlighter {
	if ttl <= 0 {
		ttl = 700 * time.Millisecond
	}
	return &Highlighter{ttl: ttl, timers: make(map[string]*time.Timer)}
}

// Flash marks the item as recently added.
func (h *Highlighter) Flash(itemID string) {
	if h == nil || itemID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if timer, ok := h.timers[itemID]; ok {
		timer.Stop()
	}
	h.timers[itemID] = time.AfterFunc(h.ttl, func() { h.expire(itemID) })
}

func (h *Highlighter) expire(itemID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.timers, itemID)
}

// Active returns the currently highlighted item ids, sorted for stable
// output.
func (h *Highlighter) Active() []string {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	out := make([]string, 0, len(h.timers))
	for id := range h.timers {
		out = append(out, id)
	}
	h.mu.Unlock()
	sort.Strings(out)
	return out
}

// Close cancels all pending highlights. Subsequent Flash calls are no-ops.
func (h *Highlighter) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, timer := range h.timers {
		timer.Stop()
		delete(h.timers, id)
	}
}
