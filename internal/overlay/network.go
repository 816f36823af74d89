// Package overlay models a static peer-to-peer overlay: peers, their
// resources and caches, and the validated graph that links them.
//
// A Network is only ever produced by Build, which validates the whole
// candidate graph before handing it out. Once built, peers and edges never
// change; the only mutable state is each peer's cache, written through
// RecordHit. Caches are not synchronized: callers sharing a Network across
// goroutines must serialize searches themselves.
package overlay

import (
	"sort"

	"github.com/tutu-network/peersearch/internal/domain"
)

// Network is a validated, immutable overlay topology.
type Network struct {
	peers map[domain.PeerID]*Peer
	order []domain.PeerID
	min   int
	max   int
	edges int
}

// Build validates spec and returns the network it describes. On any
// violation it returns a *domain.TopologyError and no network.
func Build(spec domain.TopologySpec) (*Network, error) {
	c := &checker{stopOnFirst: true}
	cand := c.run(spec)
	if c.err != nil {
		return nil, c.err
	}
	return cand.commit(spec.MinNeighbors, spec.MaxNeighbors), nil
}

// MustBuild is like Build but panics on an invalid topology.
// Intended for tests and fixed fixtures.
func MustBuild(spec domain.TopologySpec) *Network {
	n, err := Build(spec)
	if err != nil {
		panic(err)
	}
	return n
}

// Peer returns the peer with the given id.
func (n *Network) Peer(id domain.PeerID) (*Peer, bool) {
	p, ok := n.peers[id]
	return p, ok
}

// Peers returns every peer, sorted by id.
func (n *Network) Peers() []*Peer {
	out := make([]*Peer, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, n.peers[id])
	}
	return out
}

// IDs returns every peer id, sorted.
func (n *Network) IDs() []domain.PeerID {
	return append([]domain.PeerID(nil), n.order...)
}

// Len returns the number of peers.
func (n *Network) Len() int { return len(n.order) }

// EdgeCount returns the number of distinct undirected edges.
func (n *Network) EdgeCount() int { return n.edges }

// Bounds returns the inclusive degree bounds the network was validated against.
func (n *Network) Bounds() (min, max int) { return n.min, n.max }

// Holders returns the peers that actually hold r, sorted.
func (n *Network) Holders(r domain.ResourceID) []domain.PeerID {
	var out []domain.PeerID
	for _, id := range n.order {
		if n.peers[id].Has(r) {
			out = append(out, id)
		}
	}
	return out
}

// RecordHit teaches every peer on path that holder has resource r.
// Callers must only pass holders confirmed to hold r.
func (n *Network) RecordHit(path []domain.PeerID, r domain.ResourceID, holder domain.PeerID) {
	for _, id := range path {
		if p, ok := n.peers[id]; ok {
			p.cache.add(r, holder)
		}
	}
}

// CacheEntries returns the total number of cached (resource, holder) pairs.
func (n *Network) CacheEntries() int {
	total := 0
	for _, p := range n.peers {
		total += p.cache.Len()
	}
	return total
}

// ─── Candidate graph ────────────────────────────────────────────────────────

// candidate is the graph under construction. It never escapes Build
// unless every check passed.
type candidate struct {
	peers map[domain.PeerID]*Peer
	order []domain.PeerID
	edges int
}

func (c *candidate) commit(min, max int) *Network {
	for _, p := range c.peers {
		p.seal()
	}
	return &Network{
		peers: c.peers,
		order: c.order,
		min:   min,
		max:   max,
		edges: c.edges,
	}
}

// reachable walks the candidate breadth-first from start over neighbor links.
func (c *candidate) reachable(start domain.PeerID) int {
	visited := map[domain.PeerID]bool{start: true}
	queue := []domain.PeerID{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		next := make([]domain.PeerID, 0, len(c.peers[id].neighbors))
		for nb := range c.peers[id].neighbors {
			next = append(next, nb)
		}
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		for _, nb := range next {
			if !visited[nb] {
				visited[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	return len(visited)
}
