package overlay

import (
	"sort"

	"github.com/tutu-network/peersearch/internal/domain"
)

// Peer is a participant of the overlay: its resources, its neighbors and
// what it has learned about other peers' resources.
type Peer struct {
	id        domain.PeerID
	resources []domain.ResourceID // declaration order, deduplicated
	holds     map[domain.ResourceID]struct{}
	neighbors map[domain.PeerID]struct{}
	sorted    []domain.PeerID // neighbors in id order, filled on commit
	cache     *Cache
}

func newPeer(id domain.PeerID, resources []domain.ResourceID) *Peer {
	p := &Peer{
		id:        id,
		holds:     make(map[domain.ResourceID]struct{}, len(resources)),
		neighbors: make(map[domain.PeerID]struct{}),
		cache:     newCache(),
	}
	for _, r := range resources {
		if _, dup := p.holds[r]; dup {
			continue
		}
		p.holds[r] = struct{}{}
		p.resources = append(p.resources, r)
	}
	return p
}

// addNeighbor links id to p. Self links are rejected by the caller.
func (p *Peer) addNeighbor(id domain.PeerID) {
	p.neighbors[id] = struct{}{}
}

func (p *Peer) seal() {
	p.sorted = make([]domain.PeerID, 0, len(p.neighbors))
	for id := range p.neighbors {
		p.sorted = append(p.sorted, id)
	}
	sort.Slice(p.sorted, func(i, j int) bool { return p.sorted[i] < p.sorted[j] })
}

// ID returns the peer's identity.
func (p *Peer) ID() domain.PeerID { return p.id }

// Has reports whether the peer itself holds resource r.
func (p *Peer) Has(r domain.ResourceID) bool {
	_, ok := p.holds[r]
	return ok
}

// Resources returns the peer's resources in declaration order.
func (p *Peer) Resources() []domain.ResourceID {
	return append([]domain.ResourceID(nil), p.resources...)
}

// Neighbors returns the neighbor ids sorted ascending.
func (p *Peer) Neighbors() []domain.PeerID {
	return append([]domain.PeerID(nil), p.sorted...)
}

// Degree returns the number of neighbors.
func (p *Peer) Degree() int { return len(p.neighbors) }

// IsNeighbor reports whether id is linked to p.
func (p *Peer) IsNeighbor(id domain.PeerID) bool {
	_, ok := p.neighbors[id]
	return ok
}

// Cache returns the peer's resource cache. It is read-only from outside
// this package; entries are written through Network.RecordHit.
func (p *Peer) Cache() *Cache { return p.cache }

// Info returns a detached snapshot of the peer.
func (p *Peer) Info() domain.PeerInfo {
	return domain.PeerInfo{
		ID:        p.id,
		Resources: p.Resources(),
		Neighbors: p.Neighbors(),
		Cache:     p.cache.Snapshot(),
	}
}
