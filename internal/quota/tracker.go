package quota

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"adprint/internal/infra"
)

// DefaultCeiling is the number of free creations before sign-up is required.
const DefaultCeiling = 5

// Store persists the creation counter. A Load of a key that was never
// written returns 0 and no error.
type Store interface {
	Load(ctx context.Context) (int, error)
	Save(ctx context.Context, count int) error
}

// Tracker is the process-wide free-tier counter. When the store fails it
// keeps counting in memory and stops touching the store for the rest of the
// process.
type Tracker struct {
	mu       sync.Mutex
	store    Store
	ceiling  int
	count    int
	degraded bool
	logger   infra.Logger
}

func NewTracker(ctx context.Context, store Store, ceiling int, logger infra.Logger) *Tracker {
	if ceiling < 1 {
		ceiling = DefaultCeiling
	}
	t := &Tracker{store: store, ceiling: ceiling, logger: logger}
	if store == nil {
		t.degraded = true
		return t
	}
	count, err := store.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("quota store unavailable, counting in memory")
		t.degraded = true
		return t
	}
	t.count = max(count, 0)
	logger.Debug().Int("count", t.count).Int("ceiling", ceiling).Msg("quota loaded")
	return t
}

func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *Tracker) Ceiling() int { return t.ceiling }

// Remaining is the number of creations left, never negative.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return max(t.ceiling-t.count, 0)
}

func (t *Tracker) HasQuota() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count < t.ceiling
}

// Persistent reports whether increments still reach the store.
func (t *Tracker) Persistent() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.degraded
}

// Increment records one successful creation and returns the new count. The
// in-memory count always advances, even if the save fails.
func (t *Tracker) Increment(ctx context.Context) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	if t.degraded {
		return t.count
	}
	if err := t.store.Save(ctx, t.count); err != nil {
		t.logger.Warn().Err(err).Int("count", t.count).Msg("quota save failed, counting in memory")
		t.degraded = true
	}
	return t.count
}

// parseCount reads a stored counter. Unreadable or negative values count as 0.
func parseCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func formatCount(n int) string { return strconv.Itoa(n) }
