// Package domain holds the pure types shared by the overlay, the search
// engine and the outer surfaces (CLI, HTTP API, ledger).
package domain

// PeerID identifies a peer in the overlay.
type PeerID string

// ResourceID identifies a resource held by one or more peers.
type ResourceID string

// PeerInfo is a read-only view of a peer, safe to hand to presentation code.
type PeerInfo struct {
	ID        PeerID                  `json:"id"`
	Resources []ResourceID            `json:"resources"`
	Neighbors []PeerID                `json:"neighbors"`
	Cache     map[ResourceID][]PeerID `json:"cache,omitempty"`
}

// Degree returns the number of neighbors.
func (p PeerInfo) Degree() int {
	return len(p.Neighbors)
}
