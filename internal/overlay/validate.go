package overlay

import (
	"go.uber.org/multierr"

	"github.com/tutu-network/peersearch/internal/domain"
)

// Diagnose checks spec like Build but keeps going after the first
// violation, returning every problem found combined into one error.
// It returns nil exactly when Build would succeed.
func Diagnose(spec domain.TopologySpec) error {
	c := &checker{}
	c.run(spec)
	return c.err
}

// Problems splits an error returned by Diagnose into its violations.
func Problems(err error) []error {
	return multierr.Errors(err)
}

type checker struct {
	stopOnFirst bool
	err         error
}

// fail records err and reports whether checking should continue.
func (c *checker) fail(err error) bool {
	c.err = multierr.Append(c.err, err)
	return !c.stopOnFirst
}

// run performs every construction check in order: bounds, peers, edges,
// degrees, connectivity. It returns the candidate graph, which is only
// meaningful when c.err is nil.
func (c *checker) run(spec domain.TopologySpec) *candidate {
	boundsOK := true
	if spec.MinNeighbors < 0 || spec.MinNeighbors > spec.MaxNeighbors {
		boundsOK = false
		if !c.fail(&domain.TopologyError{Kind: domain.ErrInvalidBounds, Min: spec.MinNeighbors, Max: spec.MaxNeighbors}) {
			return nil
		}
	}

	ids := spec.PeerIDs()
	if len(ids) == 0 {
		c.fail(&domain.TopologyError{Kind: domain.ErrEmptyNetwork})
		return nil
	}

	cand := &candidate{
		peers: make(map[domain.PeerID]*Peer, len(ids)),
		order: ids,
	}
	for _, id := range ids {
		res := spec.Resources[id]
		if len(res) == 0 {
			if !c.fail(&domain.TopologyError{Kind: domain.ErrPeerWithoutResources, Peer: id}) {
				return nil
			}
		}
		cand.peers[id] = newPeer(id, res)
	}

	for _, e := range spec.Edges {
		a, b := e[0], e[1]
		pa, okA := cand.peers[a]
		pb, okB := cand.peers[b]
		if !okA || !okB {
			missing := a
			if okA {
				missing = b
			}
			if !c.fail(&domain.TopologyError{Kind: domain.ErrInvalidEdgeEndpoint, Peer: missing, Edge: e}) {
				return nil
			}
			continue
		}
		if a == b {
			if !c.fail(&domain.TopologyError{Kind: domain.ErrSelfLoop, Peer: a, Edge: e}) {
				return nil
			}
			continue
		}
		if !pa.IsNeighbor(b) {
			cand.edges++
		}
		pa.addNeighbor(b)
		pb.addNeighbor(a)
	}

	if boundsOK {
		for _, id := range ids {
			deg := cand.peers[id].Degree()
			if deg < spec.MinNeighbors || deg > spec.MaxNeighbors {
				err := &domain.TopologyError{
					Kind:   domain.ErrDegreeOutOfRange,
					Peer:   id,
					Degree: deg,
					Min:    spec.MinNeighbors,
					Max:    spec.MaxNeighbors,
				}
				if !c.fail(err) {
					return nil
				}
			}
		}
	}

	if reached := cand.reachable(ids[0]); reached != len(ids) {
		c.fail(&domain.TopologyError{
			Kind:    domain.ErrNetworkPartitioned,
			Peer:    ids[0],
			Reached: reached,
			Total:   len(ids),
		})
		return nil
	}

	return cand
}
