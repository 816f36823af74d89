package overlay

import (
	"sort"

	"github.com/tutu-network/peersearch/internal/domain"
)

// Cache maps a resource to the peers known to hold it. Entries are only
// ever added, and only for holders confirmed by a search hit.
type Cache struct {
	entries map[domain.ResourceID]map[domain.PeerID]struct{}
}

func newCache() *Cache {
	return &Cache{entries: make(map[domain.ResourceID]map[domain.PeerID]struct{})}
}

func (c *Cache) add(r domain.ResourceID, holder domain.PeerID) {
	set, ok := c.entries[r]
	if !ok {
		set = make(map[domain.PeerID]struct{})
		c.entries[r] = set
	}
	set[holder] = struct{}{}
}

// Lookup returns one known holder of r. With several holders cached the
// smallest id wins, so redirects are reproducible.
func (c *Cache) Lookup(r domain.ResourceID) (domain.PeerID, bool) {
	set := c.entries[r]
	if len(set) == 0 {
		return "", false
	}
	var best domain.PeerID
	first := true
	for id := range set {
		if first || id < best {
			best, first = id, false
		}
	}
	return best, true
}

// Knows reports whether any holder of r is cached.
func (c *Cache) Knows(r domain.ResourceID) bool {
	return len(c.entries[r]) > 0
}

// Holders returns the cached holders of r, sorted.
func (c *Cache) Holders(r domain.ResourceID) []domain.PeerID {
	set := c.entries[r]
	out := make([]domain.PeerID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of (resource, holder) pairs cached.
func (c *Cache) Len() int {
	n := 0
	for _, set := range c.entries {
		n += len(set)
	}
	return n
}

// Snapshot returns a deep copy of the cache with sorted holder lists.
func (c *Cache) Snapshot() map[domain.ResourceID][]domain.PeerID {
	out := make(map[domain.ResourceID][]domain.PeerID, len(c.entries))
	for r := range c.entries {
		out[r] = c.Holders(r)
	}
	return out
}
