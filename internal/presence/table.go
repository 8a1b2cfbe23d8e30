// Package presence tracks ephemeral presence entries (typing indicators,
// "agent is looking" markers) with a fixed time-to-live.
package presence

import (
	"sort"
	"sync"
	"time"
)

// DefaultTTL is how long an entry stays active without a refresh.
const DefaultTTL = 7 * time.Second

// Table is a TTL-keyed presence set. Expired entries are pruned lazily on
// every read and write; there is no background sweep, so an entry can linger
// only until the next touch, never forever.
type Table struct {
	mu      sync.Mutex
	ttl     time.Duration
	expires map[string]time.Time
	now     func() time.Time
}

// NewTable creates a table with the given TTL. A non-positive ttl falls back
// to DefaultTTL.
func NewTable(ttl time.Duration) *Table {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Table{
		ttl:     ttl,
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// SetActive marks id active for one TTL window from now, refreshing any
// existing entry.
func (t *Table) SetActive(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	t.expires[id] = t.now().Add(t.ttl)
}

// SetInactive removes id immediately.
func (t *Table) SetInactive(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	delete(t.expires, id)
}

// Snapshot prunes expired entries and returns the surviving ids in sorted
// order.
func (t *Table) Snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	ids := make([]string, 0, len(t.expires))
	for id := range t.expires {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entry reports the expiry instant for id, if the entry is present and
// unexpired.
func (t *Table) Entry(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	exp, ok := t.expires[id]
	return exp, ok
}

// Seed restores entries with absolute expiry instants, used when loading
// persisted presence state on boot. Already-expired entries are dropped on
// the next touch.
func (t *Table) Seed(entries map[string]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, exp := range entries {
		t.expires[id] = exp
	}
	t.prune()
}

// Dump returns the raw id -> expiry map for persistence.
func (t *Table) Dump() map[string]time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	out := make(map[string]time.Time, len(t.expires))
	for id, exp := range t.expires {
		out[id] = exp
	}
	return out
}

// caller must hold mu
func (t *Table) prune() {
	now := t.now()
	for id, exp := range t.expires {
		if exp.Before(now) {
			delete(t.expires, id)
		}
	}
}
