package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	// Topology file errors (raised by the loader, before a network is built)
	ErrConfigInconsistent = errors.New("num_nodes does not match the number of peers in resources")

	// Topology validation errors
	ErrSelfLoop             = errors.New("self-loop edge")
	ErrInvalidEdgeEndpoint  = errors.New("edge references an unknown peer")
	ErrDegreeOutOfRange     = errors.New("peer degree out of range")
	ErrNetworkPartitioned   = errors.New("network is partitioned")
	ErrPeerWithoutResources = errors.New("peer has no resources")
	ErrInvalidBounds        = errors.New("invalid neighbor bounds")
	ErrEmptyNetwork         = errors.New("network has no peers")

	// Search errors
	ErrUnknownPeer     = errors.New("unknown peer")
	ErrUnknownStrategy = errors.New("unknown search strategy")
	ErrInvalidTTL      = errors.New("ttl must be non-negative")

	// Cache errors
	ErrStaleCacheEntry = errors.New("cached holder does not hold resource")
)

// TopologyError describes why a topology was rejected. Kind is one of the
// validation sentinels above, so callers can match it with errors.Is.
type TopologyError struct {
	Kind error

	Peer PeerID    // offending peer, if any
	Edge [2]PeerID // offending edge, for edge errors

	// Degree errors
	Degree int
	Min    int
	Max    int

	// Partition errors
	Reached int
	Total   int
}

func (e *TopologyError) Error() string {
	switch e.Kind {
	case ErrSelfLoop:
		return fmt.Sprintf("%v at %s", e.Kind, e.Peer)
	case ErrInvalidEdgeEndpoint:
		return fmt.Sprintf("%v: %s-%s (%s is not declared)", e.Kind, e.Edge[0], e.Edge[1], e.Peer)
	case ErrDegreeOutOfRange:
		return fmt.Sprintf("%v: %s has %d neighbors, outside [%d, %d]", e.Kind, e.Peer, e.Degree, e.Min, e.Max)
	case ErrNetworkPartitioned:
		return fmt.Sprintf("%v: reached %d of %d peers from %s", e.Kind, e.Reached, e.Total, e.Peer)
	case ErrPeerWithoutResources:
		return fmt.Sprintf("%v: %s", e.Kind, e.Peer)
	case ErrInvalidBounds:
		return fmt.Sprintf("%v: [%d, %d]", e.Kind, e.Min, e.Max)
	default:
		if e.Kind == nil {
			return "invalid topology"
		}
		return e.Kind.Error()
	}
}

func (e *TopologyError) Unwrap() error { return e.Kind }
