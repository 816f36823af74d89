package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tutu-network/peersearch/internal/domain"
	"github.com/tutu-network/peersearch/internal/health"
	"github.com/tutu-network/peersearch/internal/infra/sqlite"
	"github.com/tutu-network/peersearch/internal/overlay"
	"github.com/tutu-network/peersearch/internal/search"
)

func newTestServer(t *testing.T) *Server {
	return newLoggedServer(t, nil)
}

func newLoggedServer(t *testing.T, logger *zap.Logger) *Server {
	t.Helper()

	net, err := overlay.Build(domain.TopologySpec{
		MinNeighbors: 2,
		MaxNeighbors: 2,
		Resources: map[domain.PeerID][]domain.ResourceID{
			"n1": {"r1"},
			"n2": {"r2"},
			"n3": {"r3"},
			"n4": {"r4"},
		},
		Edges: [][2]domain.PeerID{{"n1", "n2"}, {"n2", "n3"}, {"n3", "n4"}, {"n4", "n1"}},
	})
	require.NoError(t, err)

	db, err := sqlite.Open(nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	engine := search.New(net, search.WithObserver(db))
	srv := NewServer(engine, db, Defaults{TTL: 2, Strategy: domain.Flooding}, logger)
	srv.EnableMetrics()
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v), w.Body.String())
}

// ─── Health & Overlay ───────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(t).Handler(), "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

type fixedHealth struct{ statuses []health.Status }

func (f fixedHealth) Statuses() []health.Status { return f.statuses }

func (f fixedHealth) IsHealthy() bool {
	for _, s := range f.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

func TestHealth_Checks(t *testing.T) {
	srv := newTestServer(t)
	srv.SetHealth(fixedHealth{statuses: []health.Status{
		{Name: "ledger", Healthy: true},
		{Name: "overlay", Healthy: false, Error: "stale"},
	}})

	w := do(t, srv.Handler(), "GET", "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp struct {
		Status string          `json:"status"`
		Checks []health.Status `json:"checks"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "degraded", resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestOverlay(t *testing.T) {
	w := do(t, newTestServer(t).Handler(), "GET", "/api/overlay", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp overlayResponse
	decode(t, w, &resp)
	assert.Equal(t, 4, resp.Peers)
	assert.Equal(t, 4, resp.Edges)
	assert.Equal(t, 2, resp.MinNeighbors)
	assert.Equal(t, 0, resp.CacheEntries)
}

func TestGetPeer(t *testing.T) {
	h := newTestServer(t).Handler()

	w := do(t, h, "GET", "/api/peers/n1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info domain.PeerInfo
	decode(t, w, &info)
	assert.Equal(t, domain.PeerID("n1"), info.ID)
	assert.Equal(t, []domain.PeerID{"n2", "n4"}, info.Neighbors)

	w = do(t, h, "GET", "/api/peers/n9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPeers(t *testing.T) {
	w := do(t, newTestServer(t).Handler(), "GET", "/api/peers", "")
	var resp struct {
		Peers []domain.PeerInfo `json:"peers"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Peers, 4)
	assert.Equal(t, domain.PeerID("n1"), resp.Peers[0].ID)
}

func TestStrategies(t *testing.T) {
	w := do(t, newTestServer(t).Handler(), "GET", "/api/strategies", "")
	body := w.Body.String()
	for _, s := range domain.Strategies() {
		assert.Contains(t, body, string(s))
	}
}

// ─── Search ─────────────────────────────────────────────────────────────────

func TestSearch_Defaults(t *testing.T) {
	w := do(t, newTestServer(t).Handler(), "POST", "/api/search", `{"origin": "n1", "resource": "r3"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res domain.SearchResult
	decode(t, w, &res)
	assert.True(t, res.Found)
	assert.Equal(t, domain.Flooding, res.Strategy)
	assert.Equal(t, 4, res.Messages)
	assert.Equal(t, []domain.PeerID{"n1", "n2", "n3"}, res.Path)
}

func TestSearch_Errors(t *testing.T) {
	h := newTestServer(t).Handler()

	tests := []struct {
		body string
		want int
	}{
		{`{"origin": "n9", "resource": "r3"}`, http.StatusNotFound},
		{`{"origin": "n1", "resource": "r3", "strategy": "bfs"}`, http.StatusBadRequest},
		{`{"origin": "n1", "resource": "r3", "ttl": -1}`, http.StatusBadRequest},
		{`{"origin": `, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := do(t, h, "POST", "/api/search", tt.body)
		assert.Equal(t, tt.want, w.Code, tt.body)
		assert.Contains(t, w.Body.String(), `"error"`, tt.body)
	}
}

func TestSearch_InformedSecondRunIsCheaper(t *testing.T) {
	h := newTestServer(t).Handler()
	body := `{"origin": "n1", "resource": "r3", "strategy": "informed_flooding"}`

	var first, second domain.SearchResult
	decode(t, do(t, h, "POST", "/api/search", body), &first)
	decode(t, do(t, h, "POST", "/api/search", body), &second)

	assert.True(t, second.Redirected)
	assert.LessOrEqual(t, second.Messages, first.Messages)
}

// ─── Trace ──────────────────────────────────────────────────────────────────

func TestTrace_Stream(t *testing.T) {
	w := do(t, newTestServer(t).Handler(), "POST", "/api/trace", `{"origin": "n1", "resource": "r3"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

	var lines []string
	sc := bufio.NewScanner(w.Body)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 5, "4 steps + done:\n%s", strings.Join(lines, "\n"))

	var first domain.Step
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, domain.PeerID("n1"), first.Peer)
	assert.Equal(t, 0, first.Index)

	var done traceDone
	require.NoError(t, json.Unmarshal([]byte(lines[4]), &done))
	assert.True(t, done.Done)
	assert.True(t, done.Found)
	assert.Equal(t, 4, done.Steps)
	assert.Equal(t, 4, done.Messages)
	assert.Equal(t, 4, done.NodesInvolved)
}

func TestTrace_UnknownOrigin(t *testing.T) {
	w := do(t, newTestServer(t).Handler(), "POST", "/api/trace", `{"origin": "zz", "resource": "r3"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// brokenWriter accepts the first ok writes and fails the rest.
type brokenWriter struct {
	header http.Header
	ok     int
}

func (b *brokenWriter) Header() http.Header { return b.header }
func (b *brokenWriter) WriteHeader(int)     {}

func (b *brokenWriter) Write(p []byte) (int, error) {
	if b.ok == 0 {
		return 0, errors.New("connection reset")
	}
	b.ok--
	return len(p), nil
}

func TestTrace_SummaryWriteFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	srv := newLoggedServer(t, zap.New(core))
	h := srv.Handler()

	// Four step lines go through, the summary line does not.
	w := &brokenWriter{header: http.Header{}, ok: 4}
	req := httptest.NewRequest("POST", "/api/trace", strings.NewReader(`{"origin": "n1", "resource": "r3"}`))
	h.ServeHTTP(w, req)

	assert.Equal(t, 1, logs.FilterMessage("trace client gone").Len())

	// The overlay lock is released after the failed stream.
	res := do(t, h, "POST", "/api/search", `{"origin": "n2", "resource": "r4"}`)
	assert.Equal(t, http.StatusOK, res.Code)
}

// ─── Runs ───────────────────────────────────────────────────────────────────

func TestRuns(t *testing.T) {
	h := newTestServer(t).Handler()
	do(t, h, "POST", "/api/search", `{"origin": "n1", "resource": "r3"}`)
	do(t, h, "POST", "/api/search", `{"origin": "n2", "resource": "r9", "strategy": "random_walk", "seed": 5}`)

	var list struct {
		Runs []domain.Run `json:"runs"`
	}
	decode(t, do(t, h, "GET", "/api/runs?limit=1", ""), &list)
	assert.Len(t, list.Runs, 1)

	var summary struct {
		Strategies []domain.StrategySummary `json:"strategies"`
	}
	decode(t, do(t, h, "GET", "/api/runs/summary", ""), &summary)
	assert.Len(t, summary.Strategies, 2)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/runs?limit=abc", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	w := do(t, newTestServer(t).Handler(), "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// ─── CORS ───────────────────────────────────────────────────────────────────

func TestCORSPreflight(t *testing.T) {
	w := do(t, newTestServer(t).Handler(), "OPTIONS", "/api/search", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_SeveralOrigins(t *testing.T) {
	srv := newTestServer(t)
	srv.SetCORSOrigins([]string{"http://localhost:3000", "https://viz.example.org"})
	h := srv.Handler()

	withOrigin := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/health", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	for _, origin := range []string{"http://localhost:3000", "https://viz.example.org"} {
		w := withOrigin(origin)
		assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	}

	w := withOrigin("https://evil.example.com")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	assert.Empty(t, withOrigin("").Header().Get("Access-Control-Allow-Origin"))
}
