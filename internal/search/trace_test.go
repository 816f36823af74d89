package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutu-network/peersearch/internal/domain"
)

func collect(t *testing.T, e *Engine, r domain.SearchRequest) []domain.Step {
	t.Helper()
	seq, err := e.Trace(context.Background(), r)
	require.NoError(t, err)
	var steps []domain.Step
	for st := range seq {
		steps = append(steps, st)
	}
	return steps
}

func TestTrace_FloodingOrder(t *testing.T) {
	steps := collect(t, New(ring(t)), req("n1", "r3", 2, domain.Flooding))
	require.Len(t, steps, 4)

	var peers []domain.PeerID
	var messages []int
	for i, st := range steps {
		assert.Equal(t, i, st.Index)
		peers = append(peers, st.Peer)
		messages = append(messages, st.Messages)
	}
	assert.Equal(t, []domain.PeerID{"n1", "n2", "n4", "n3"}, peers)
	assert.Equal(t, []int{0, 2, 3, 4}, messages)

	last := steps[len(steps)-1]
	assert.True(t, last.Found)
	assert.False(t, last.Redirect)
	assert.Equal(t, []domain.PeerID{"n1", "n2", "n3"}, last.Path)
	assert.Equal(t, []domain.PeerID{"n1", "n2", "n3", "n4"}, last.Visited)

	for _, st := range steps[:3] {
		assert.False(t, st.Found)
	}
}

func TestTrace_MatchesSearch(t *testing.T) {
	for _, s := range domain.Strategies() {
		t.Run(string(s), func(t *testing.T) {
			r := domain.SearchRequest{Origin: "n1", Resource: "r3", TTL: 6, Strategy: s, Seed: seed(9)}

			res, err := New(ring(t)).Search(context.Background(), r)
			require.NoError(t, err)

			steps := collect(t, New(ring(t)), r)
			require.NotEmpty(t, steps)
			last := steps[len(steps)-1]

			assert.Equal(t, res.Found, last.Found)
			assert.Equal(t, res.Messages, last.Messages)
			assert.Equal(t, res.NodesInvolved, len(last.Visited))
			if res.Found {
				assert.Equal(t, res.Path, last.Path)
			}
		})
	}
}

func TestTrace_RedirectStep(t *testing.T) {
	e := New(ring(t))
	_, err := e.Search(context.Background(), req("n1", "r3", 2, domain.Flooding))
	require.NoError(t, err)

	steps := collect(t, e, req("n1", "r3", 2, domain.InformedFlooding))
	require.Len(t, steps, 2)

	assert.Equal(t, domain.PeerID("n1"), steps[0].Peer)
	assert.False(t, steps[0].Found)
	assert.Equal(t, 0, steps[0].Messages)

	assert.Equal(t, domain.PeerID("n3"), steps[1].Peer)
	assert.True(t, steps[1].Found)
	assert.True(t, steps[1].Redirect)
	assert.Equal(t, 1, steps[1].Messages)
	assert.Equal(t, []domain.PeerID{"n1", "n3"}, steps[1].Path)
}

func TestTrace_EarlyStopLeavesCachesAlone(t *testing.T) {
	spy := &runSpy{}
	net := ring(t)
	e := New(net, WithObserver(spy))

	seq, err := e.Trace(context.Background(), req("n1", "r3", 2, domain.Flooding))
	require.NoError(t, err)

	seen := 0
	for range seq {
		seen++
		break
	}

	assert.Equal(t, 1, seen)
	assert.Equal(t, 0, net.CacheEntries())
	assert.Empty(t, spy.runs)
}

func TestTrace_CompletedRunIsObserved(t *testing.T) {
	spy := &runSpy{}
	e := New(ring(t), WithObserver(spy))

	collect(t, e, req("n1", "r9", 3, domain.Flooding))
	require.Len(t, spy.runs, 1)
	assert.False(t, spy.runs[0].Result.Found)
}

func TestTrace_InvalidArguments(t *testing.T) {
	e := New(ring(t))
	_, err := e.Trace(context.Background(), req("nope", "r1", 1, domain.Flooding))
	assert.ErrorIs(t, err, domain.ErrUnknownPeer)

	_, err = e.Trace(context.Background(), req("n1", "r1", -3, domain.RandomWalk))
	assert.ErrorIs(t, err, domain.ErrInvalidTTL)
}
