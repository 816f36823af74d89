package domain

import "sort"

// TopologySpec is the declarative description of an overlay, as produced by
// a topology file loader. Field keys are the on-disk keys.
type TopologySpec struct {
	NumNodes     *int                    `json:"num_nodes,omitempty" toml:"num_nodes,omitempty" yaml:"num_nodes,omitempty"`
	MinNeighbors int                     `json:"min_neighbors" toml:"min_neighbors" yaml:"min_neighbors"`
	MaxNeighbors int                     `json:"max_neighbors" toml:"max_neighbors" yaml:"max_neighbors"`
	Resources    map[PeerID][]ResourceID `json:"resources" toml:"resources" yaml:"resources"`
	Edges        [][2]PeerID             `json:"edges" toml:"edges" yaml:"edges"`
}

// PeerIDs returns the declared peer ids in sorted order.
func (s TopologySpec) PeerIDs() []PeerID {
	ids := make([]PeerID, 0, len(s.Resources))
	for id := range s.Resources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
