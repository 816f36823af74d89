package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutu-network/peersearch/internal/domain"
)

func TestPeer_ResourcesKeepOrderWithoutDuplicates(t *testing.T) {
	p := newPeer("a", []domain.ResourceID{"r2", "r1", "r2"})
	assert.Equal(t, []domain.ResourceID{"r2", "r1"}, p.Resources())
	assert.True(t, p.Has("r1"))
}

func TestPeer_InfoIsDetached(t *testing.T) {
	net := MustBuild(ring4())
	p, _ := net.Peer("n1")

	info := p.Info()
	info.Neighbors[0] = "mutated"
	info.Resources[0] = "mutated"

	assert.Equal(t, []domain.PeerID{"n2", "n4"}, p.Neighbors())
	assert.Equal(t, []domain.ResourceID{"r1"}, p.Resources())
	assert.Equal(t, 2, info.Degree())
}

func TestCache_LookupPicksSmallestHolder(t *testing.T) {
	c := newCache()
	_, ok := c.Lookup("r")
	assert.False(t, ok)

	c.add("r", "p9")
	c.add("r", "p3")
	c.add("r", "p5")

	holder, ok := c.Lookup("r")
	require.True(t, ok)
	assert.Equal(t, domain.PeerID("p3"), holder)
	assert.Equal(t, []domain.PeerID{"p3", "p5", "p9"}, c.Holders("r"))
	assert.Equal(t, 3, c.Len())
}

func TestCache_Snapshot(t *testing.T) {
	c := newCache()
	c.add("r1", "b")
	c.add("r1", "a")
	c.add("r2", "c")

	snap := c.Snapshot()
	assert.Equal(t, map[domain.ResourceID][]domain.PeerID{
		"r1": {"a", "b"},
		"r2": {"c"},
	}, snap)

	snap["r1"][0] = "zzz"
	assert.Equal(t, []domain.PeerID{"a", "b"}, c.Holders("r1"))
}
