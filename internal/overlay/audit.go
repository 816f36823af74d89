package overlay

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/tutu-network/peersearch/internal/domain"
)

// Audit re-checks a built network against the guarantees Build gave it and
// verifies that every cache entry names a peer that really holds the
// resource. It returns every violation found, combined with multierr.
func (n *Network) Audit() error {
	var errs error
	for _, id := range n.order {
		p := n.peers[id]
		for _, nb := range p.sorted {
			other, ok := n.peers[nb]
			if !ok || !other.IsNeighbor(id) {
				errs = multierr.Append(errs, &domain.TopologyError{
					Kind: domain.ErrInvalidEdgeEndpoint,
					Peer: nb,
					Edge: [2]domain.PeerID{id, nb},
				})
			}
		}
		if d := p.Degree(); d < n.min || d > n.max {
			errs = multierr.Append(errs, &domain.TopologyError{
				Kind:   domain.ErrDegreeOutOfRange,
				Peer:   id,
				Degree: d,
				Min:    n.min,
				Max:    n.max,
			})
		}
		errs = multierr.Append(errs, n.auditCache(p))
	}

	if len(n.order) > 0 {
		c := &candidate{peers: n.peers, order: n.order}
		if reached := c.reachable(n.order[0]); reached != len(n.order) {
			errs = multierr.Append(errs, &domain.TopologyError{
				Kind:    domain.ErrNetworkPartitioned,
				Peer:    n.order[0],
				Reached: reached,
				Total:   len(n.order),
			})
		}
	}
	return errs
}

func (n *Network) auditCache(p *Peer) error {
	snap := p.cache.Snapshot()
	resources := make([]domain.ResourceID, 0, len(snap))
	for r := range snap {
		resources = append(resources, r)
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i] < resources[j] })

	var errs error
	for _, r := range resources {
		for _, h := range snap[r] {
			if holder, ok := n.peers[h]; !ok || !holder.Has(r) {
				errs = multierr.Append(errs,
					fmt.Errorf("%w: %s points %s at %s", domain.ErrStaleCacheEntry, p.id, r, h))
			}
		}
	}
	return errs
}
