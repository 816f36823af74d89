package search

import (
	"context"

	"github.com/tutu-network/peersearch/internal/domain"
)

// pending is a query in flight towards peer with ttl hops left.
type pending struct {
	peer domain.PeerID
	ttl  int
	path []domain.PeerID
}

// flood explores breadth-first up to the TTL. A peer is processed at most
// once, but every forward to a not-yet-processed neighbor is billed, so
// two peers forwarding to the same neighbor cost two messages.
func (r *run) flood(ctx context.Context) error {
	queue := []pending{{peer: r.req.Origin, ttl: r.req.TTL, path: []domain.PeerID{r.req.Origin}}}
	visited := make(map[domain.PeerID]bool)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		cur := queue[0]
		queue = queue[1:]

		if cur.ttl < 0 || visited[cur.peer] {
			continue
		}
		visited[cur.peer] = true
		r.involved[cur.peer] = true

		peer, _ := r.net.Peer(cur.peer)
		if peer.Has(r.req.Resource) {
			r.hit(cur.path)
			r.step(cur.peer, cur.path, true)
			return nil
		}

		if holder, ok := r.cachedHolder(peer); ok {
			if r.step(cur.peer, cur.path, false) {
				r.redirect(cur.path, holder)
			}
			return nil
		}

		if !r.step(cur.peer, cur.path, false) {
			return nil
		}

		if cur.ttl == 0 {
			continue
		}

		for _, nb := range peer.Neighbors() {
			if visited[nb] {
				continue
			}
			r.messages++
			queue = append(queue, pending{peer: nb, ttl: cur.ttl - 1, path: extend(cur.path, nb)})
		}
	}
	return nil
}
