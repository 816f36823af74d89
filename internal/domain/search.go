package domain

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects how a search traverses the overlay.
type Strategy string

const (
	Flooding           Strategy = "flooding"
	InformedFlooding   Strategy = "informed_flooding"
	RandomWalk         Strategy = "random_walk"
	InformedRandomWalk Strategy = "informed_random_walk"
)

// Strategies lists every supported strategy.
func Strategies() []Strategy {
	return []Strategy{Flooding, InformedFlooding, RandomWalk, InformedRandomWalk}
}

// ParseStrategy resolves a strategy name, ignoring case.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	switch s {
	case Flooding, InformedFlooding, RandomWalk, InformedRandomWalk:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Informed reports whether peers may redirect through their cache.
func (s Strategy) Informed() bool {
	return s == InformedFlooding || s == InformedRandomWalk
}

// Walk reports whether the strategy follows a single random path.
func (s Strategy) Walk() bool {
	return s == RandomWalk || s == InformedRandomWalk
}

// SearchRequest describes one search invocation.
// Seed only affects the random-walk strategies.
type SearchRequest struct {
	Origin   PeerID     `json:"origin"`
	Resource ResourceID `json:"resource"`
	TTL      int        `json:"ttl"`
	Strategy Strategy   `json:"strategy"`
	Seed     *int64     `json:"seed,omitempty"`
}

// SearchResult is the outcome of a search. Path is empty when Found is false.
// Hops is len(Path)-1 on a hit; on a miss it is the number of hops a walk
// took, and zero for flooding.
type SearchResult struct {
	Found         bool     `json:"found"`
	Messages      int      `json:"message_count"`
	NodesInvolved int      `json:"nodes_involved"`
	Path          []PeerID `json:"path"`

	Strategy   Strategy `json:"strategy"`
	Hops       int      `json:"hops"`
	Redirected bool     `json:"redirected"`
}

// Step is one event of a traced search: a peer dequeued by flooding, a peer
// reached by a walk, or the target of an informed redirect.
type Step struct {
	Index    int      `json:"index"`
	Peer     PeerID   `json:"peer"`
	Visited  []PeerID `json:"visited"`
	Path     []PeerID `json:"path"`
	Messages int      `json:"message_count"`
	Found    bool     `json:"found"`
	Redirect bool     `json:"redirect,omitempty"`
}

// Run is a completed search as seen by observers (metrics, ledger).
type Run struct {
	ID        string        `json:"id"`
	Request   SearchRequest `json:"request"`
	Result    SearchResult  `json:"result"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}
