package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutu-network/peersearch/internal/domain"
)

const lineTopology = `{
  "min_neighbors": 1,
  "max_neighbors": 2,
  "resources": {"a": ["x"], "b": ["y"], "c": ["z"]},
  "edges": [["a", "b"], ["b", "c"]]
}`

func quietConfig() Config {
	cfg := DefaultConfig()
	cfg.Logging.Level = "error"
	return cfg
}

func writeTopology(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestNewWithConfig(t *testing.T) {
	d, err := NewWithConfig(quietConfig(), writeTopology(t, "line.json", lineTopology))
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, 3, d.Network.Len())
	assert.NotNil(t, d.Server)
	assert.NotNil(t, d.Engine)
	assert.NotNil(t, d.Ledger)
	assert.NotNil(t, d.Health)
}

func TestNewWithConfig_InvalidTopology(t *testing.T) {
	path := writeTopology(t, "bad.json",
		`{"min_neighbors": 1, "max_neighbors": 1, "resources": {"a": ["x"]}, "edges": [["a", "a"]]}`)

	_, err := NewWithConfig(quietConfig(), path)
	assert.ErrorIs(t, err, domain.ErrSelfLoop)
}

func TestDaemon_SearchesAreRecorded(t *testing.T) {
	cfg := quietConfig()
	cfg.Search.DefaultTTL = 2
	d, err := NewWithConfig(cfg, writeTopology(t, "line.json", lineTopology))
	require.NoError(t, err)
	defer d.Close()

	req := d.Request("a", "z")
	require.Equal(t, 2, req.TTL)
	require.Equal(t, domain.Flooding, req.Strategy)

	res, err := d.Engine.Search(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, []domain.PeerID{"a", "b", "c"}, res.Path)

	n, err := d.Ledger.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
