// Package dedup drops QoS 1 redeliveries by remembering payload hashes for a while.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"
)

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
	now  func() time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max), now: time.Now}
}

// Key hashes a payload into a dedup id.
func Key(payload []byte) string {
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:])
}

// ShouldProcess reports whether id was not seen within the TTL and records it.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.evict(now, id)
	}
	return true
}

// evict drops expired entries, then the ones expiring soonest until the set
// is back within max. keep is never evicted.
func (d *Deduper) evict(now time.Time, keep string) {
	for k, v := range d.seen {
		if now.After(v) {
			delete(d.seen, k)
		}
	}
	over := len(d.seen) - d.max
	if over <= 0 {
		return
	}
	type entry struct {
		id  string
		exp time.Time
	}
	entries := make([]entry, 0, len(d.seen))
	for k, v := range d.seen {
		if k != keep {
			entries = append(entries, entry{k, v})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].exp.Before(entries[j].exp) })
	for _, e := range entries[:over] {
		delete(d.seen, e.id)
	}
}

func (d *Deduper) ShouldProcessPayload(payload []byte) bool { return d.ShouldProcess(Key(payload)) }

func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
