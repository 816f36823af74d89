package search

import (
	"context"
	"math/rand/v2"
	"sort"

	"github.com/tutu-network/peersearch/internal/domain"
	"github.com/tutu-network/peersearch/internal/overlay"
)

// run holds the state of one search in progress.
type run struct {
	net  *overlay.Network
	req  domain.SearchRequest
	rng  *rand.Rand
	emit func(domain.Step) bool

	messages   int
	hops       int
	involved   map[domain.PeerID]bool
	steps      int
	found      bool
	redirected bool
	path       []domain.PeerID
	stopped    bool // the trace consumer asked to stop
}

func (r *run) exec(ctx context.Context) error {
	if r.req.Strategy.Walk() {
		return r.walk(ctx)
	}
	return r.flood(ctx)
}

func (r *run) outcome() domain.SearchResult {
	res := domain.SearchResult{
		Found:         r.found,
		Messages:      r.messages,
		NodesInvolved: len(r.involved),
		Path:          []domain.PeerID{},
		Strategy:      r.req.Strategy,
		Hops:          r.hops,
		Redirected:    r.redirected,
	}
	if r.found {
		res.Path = append(res.Path, r.path...)
	}
	return res
}

// hit records a confirmed holder at the end of path.
func (r *run) hit(path []domain.PeerID) {
	holder := path[len(path)-1]
	r.net.RecordHit(path, r.req.Resource, holder)
	r.found = true
	r.path = path
	r.hops = len(path) - 1
}

// redirect follows a cached holder from the last peer on path: one more
// message, and the holder joins the path and the involved set.
func (r *run) redirect(path []domain.PeerID, holder domain.PeerID) {
	r.messages++
	r.redirected = true
	r.involved[holder] = true
	full := extend(path, holder)
	r.hit(full)
	r.step(holder, full, true)
}

// cachedHolder returns the holder p would redirect to, if the strategy is
// informed and p has one cached.
func (r *run) cachedHolder(p *overlay.Peer) (domain.PeerID, bool) {
	if !r.req.Strategy.Informed() {
		return "", false
	}
	return p.Cache().Lookup(r.req.Resource)
}

// step emits a trace event. It reports false once the consumer stopped.
func (r *run) step(peer domain.PeerID, path []domain.PeerID, found bool) bool {
	if r.emit == nil {
		return true
	}
	if r.stopped {
		return false
	}
	st := domain.Step{
		Index:    r.steps,
		Peer:     peer,
		Visited:  sortedKeys(r.involved),
		Path:     append([]domain.PeerID(nil), path...),
		Messages: r.messages,
		Found:    found,
		Redirect: found && r.redirected,
	}
	r.steps++
	if !r.emit(st) {
		r.stopped = true
		return false
	}
	return true
}

// extend returns a copy of path with id appended.
func extend(path []domain.PeerID, id domain.PeerID) []domain.PeerID {
	out := make([]domain.PeerID, len(path)+1)
	copy(out, path)
	out[len(path)] = id
	return out
}

func sortedKeys(m map[domain.PeerID]bool) []domain.PeerID {
	out := make([]domain.PeerID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
