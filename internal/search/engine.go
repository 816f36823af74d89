// Package search runs resource lookups over a validated overlay.
//
// Four strategies are supported: flooding and random walk, each in a plain
// and an informed variant. Informed variants let a peer that has learned a
// holder from an earlier hit redirect the search straight to it. Every
// successful search teaches the peers on its path who the holder was.
//
// Searches run synchronously on the caller's goroutine. The peer caches are
// shared state of the overlay.Network: an Engine must not run two searches
// on the same network concurrently.
package search

import (
	"context"
	"fmt"
	"iter"
	"math/rand/v2"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutu-network/peersearch/internal/domain"
	"github.com/tutu-network/peersearch/internal/overlay"
)

// Engine searches a single overlay network.
type Engine struct {
	net       *overlay.Network
	logger    *zap.Logger
	clock     clock.Clock
	observers []domain.RunObserver
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l.Named("search") }
}

// WithClock sets the clock used to time runs.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithObserver registers an observer notified after each completed run.
func WithObserver(o domain.RunObserver) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// New creates an engine over net.
func New(net *overlay.Network, opts ...Option) *Engine {
	e := &Engine{
		net:    net,
		logger: zap.NewNop(),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Network returns the overlay this engine searches.
func (e *Engine) Network() *overlay.Network { return e.net }

// Search looks for req.Resource starting at req.Origin.
// Argument errors wrap domain.ErrUnknownPeer, domain.ErrUnknownStrategy or
// domain.ErrInvalidTTL. A resource that is not found is not an error.
func (e *Engine) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResult, error) {
	req, err := e.normalize(req)
	if err != nil {
		return domain.SearchResult{}, err
	}

	start := e.clock.Now()
	r := e.newRun(req, nil)
	if err := r.exec(ctx); err != nil {
		return domain.SearchResult{}, err
	}
	res := r.outcome()
	e.complete(req, res, start)
	return res, nil
}

// Trace returns the search as a lazy sequence of steps, in processing
// order. Each iteration of the sequence runs a fresh search against the
// current caches. Breaking out of the loop stops the search; the caches
// are only updated if a hit was reached before that.
func (e *Engine) Trace(ctx context.Context, req domain.SearchRequest) (iter.Seq[domain.Step], error) {
	req, err := e.normalize(req)
	if err != nil {
		return nil, err
	}

	return func(yield func(domain.Step) bool) {
		start := e.clock.Now()
		r := e.newRun(req, yield)
		if err := r.exec(ctx); err != nil {
			e.logger.Debug("trace aborted", zap.Error(err))
			return
		}
		// A consumer that stopped before the outcome was known did not see a
		// completed search.
		if r.stopped && !r.found {
			return
		}
		e.complete(req, r.outcome(), start)
	}, nil
}

func (e *Engine) normalize(req domain.SearchRequest) (domain.SearchRequest, error) {
	if _, ok := e.net.Peer(req.Origin); !ok {
		return req, fmt.Errorf("%w: origin %q", domain.ErrUnknownPeer, req.Origin)
	}
	s, err := domain.ParseStrategy(string(req.Strategy))
	if err != nil {
		return req, err
	}
	req.Strategy = s
	if req.TTL < 0 {
		return req, fmt.Errorf("%w: got %d", domain.ErrInvalidTTL, req.TTL)
	}
	return req, nil
}

func (e *Engine) newRun(req domain.SearchRequest, emit func(domain.Step) bool) *run {
	r := &run{
		net:      e.net,
		req:      req,
		emit:     emit,
		involved: make(map[domain.PeerID]bool),
	}
	if req.Strategy.Walk() {
		r.rng = newRand(req.Seed)
	}
	return r
}

// complete stamps a finished run and hands it to the observers.
func (e *Engine) complete(req domain.SearchRequest, res domain.SearchResult, start time.Time) {
	rec := domain.Run{
		ID:        uuid.NewString(),
		Request:   req,
		Result:    res,
		StartedAt: start,
		Elapsed:   e.clock.Since(start),
	}
	e.logger.Debug("search completed",
		zap.String("run", rec.ID),
		zap.String("strategy", string(req.Strategy)),
		zap.String("origin", string(req.Origin)),
		zap.String("resource", string(req.Resource)),
		zap.Int("ttl", req.TTL),
		zap.Bool("found", res.Found),
		zap.Int("messages", res.Messages),
		zap.Int("nodes_involved", res.NodesInvolved),
	)
	for _, o := range e.observers {
		o.ObserveRun(rec)
	}
}

// newRand seeds the walk generator. Without a seed every run differs.
func newRand(seed *int64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := uint64(*seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}
