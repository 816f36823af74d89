package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutu-network/peersearch/internal/domain"
)

const ringYAML = `
min_neighbors: 2
max_neighbors: 2
resources:
  n1: [r1]
  n2: [r2]
  n3: [r3]
  n4: [r4]
edges:
  - [n1, n2]
  - [n2, n3]
  - [n3, n4]
  - [n4, n1]
`

func writeTopology(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PEERSEARCH_HOME", t.TempDir())
	t.Cleanup(func() {
		searchJSON, searchRepeat, validateAll = false, 1, false
		traceJSON, benchQuiet, benchStrategies = false, false, nil
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", writeTopology(t, "ring.yaml", ringYAML))
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 4 peers, 4 edges, degree bounds [2, 2]")
	assert.Contains(t, out, "n2,n4", "neighbors of n1")
}

func TestValidate_All(t *testing.T) {
	bad := strings.Replace(ringYAML, "- [n3, n4]", "- [n3, n3]", 1)
	out, err := execute(t, "validate", "--all", writeTopology(t, "bad.yaml", bad))
	require.Error(t, err)
	assert.Contains(t, out, "self-loop")
	assert.Contains(t, err.Error(), "problem(s)")
}

func TestValidate_MalformedJSONEdge(t *testing.T) {
	data := `{"min_neighbors": 1, "max_neighbors": 2, "resources": {"a": ["x"], "b": ["y"], "c": ["z"]},
  "edges": [["a", "b", "c"], ["b", "c"]]}`
	_, err := execute(t, "validate", writeTopology(t, "bad.json", data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly two peers")
}

func TestSearch_JSON(t *testing.T) {
	path := writeTopology(t, "ring.yaml", ringYAML)
	out, err := execute(t, "search", "--json", path, "n1", "r3", "2", "flooding")
	require.NoError(t, err)

	var res domain.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.True(t, res.Found)
	assert.Equal(t, 4, res.Messages)
	assert.Equal(t, 4, res.NodesInvolved)
}

func TestSearch_RepeatLearns(t *testing.T) {
	path := writeTopology(t, "ring.yaml", ringYAML)
	out, err := execute(t, "search", "--repeat", "2", path, "n1", "r3", "2", "informed_flooding")
	require.NoError(t, err)
	assert.Contains(t, out, "run 2")
	assert.Contains(t, out, "cached holder n3")
}

func TestSearch_BadStrategy(t *testing.T) {
	path := writeTopology(t, "ring.yaml", ringYAML)
	_, err := execute(t, "search", path, "n1", "r3", "2", "gossip")
	assert.Error(t, err)
}

func TestTrace_JSON(t *testing.T) {
	path := writeTopology(t, "ring.yaml", ringYAML)
	out, err := execute(t, "trace", "--json", path, "n1", "r3", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4, out)

	var last domain.Step
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &last))
	assert.Equal(t, domain.PeerID("n3"), last.Peer)
	assert.True(t, last.Found)
	assert.Equal(t, 4, last.Messages)
}

func TestBench(t *testing.T) {
	path := writeTopology(t, "ring.yaml", ringYAML)
	out, err := execute(t, "bench", "--quiet", "--runs", "2", "--ttl", "2",
		"--strategy", "flooding,informed_flooding", path, "r3")
	require.NoError(t, err)
	assert.Contains(t, out, "informed_flooding")
	assert.Contains(t, out, "AVG MESSAGES")
	assert.NotContains(t, out, "random_walk", "bench ran a strategy it was not asked for")
}
