package search

import (
	"context"

	"github.com/tutu-network/peersearch/internal/domain"
)

// walk follows a single random path of at most TTL hops. The origin is
// checked before any hop is spent, so up to TTL+1 peers are examined.
// The walk may revisit peers.
func (r *run) walk(ctx context.Context) error {
	cur := r.req.Origin
	path := []domain.PeerID{cur}

	for ttl := r.req.TTL; ttl >= 0; ttl-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.involved[cur] = true

		peer, _ := r.net.Peer(cur)
		if peer.Has(r.req.Resource) {
			r.hit(path)
			r.step(cur, path, true)
			return nil
		}

		if holder, ok := r.cachedHolder(peer); ok {
			if r.step(cur, path, false) {
				r.redirect(path, holder)
			}
			return nil
		}

		if !r.step(cur, path, false) {
			return nil
		}

		neighbors := peer.Neighbors()
		if ttl == 0 || len(neighbors) == 0 {
			break
		}

		cur = neighbors[r.rng.IntN(len(neighbors))]
		path = append(path, cur)
		r.messages++
		r.hops++
	}
	return nil
}
