package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tutu-network/peersearch/internal/domain"
)

// ─── Overlay ────────────────────────────────────────────────────────────────

type overlayResponse struct {
	Peers        int `json:"peers"`
	Edges        int `json:"edges"`
	MinNeighbors int `json:"min_neighbors"`
	MaxNeighbors int `json:"max_neighbors"`
	CacheEntries int `json:"cache_entries"`
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	net := s.engine.Network()
	lo, hi := net.Bounds()
	resp := overlayResponse{
		Peers:        net.Len(),
		Edges:        net.EdgeCount(),
		MinNeighbors: lo,
		MaxNeighbors: hi,
		CacheEntries: net.CacheEntries(),
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPeers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	peers := s.engine.Network().Peers()
	out := make([]domain.PeerInfo, 0, len(peers))
	for _, p := range peers {
		out = append(out, p.Info())
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"peers": out})
}

func (s *Server) handleGetPeer(w http.ResponseWriter, r *http.Request) {
	id := domain.PeerID(chi.URLParam(r, "id"))

	s.mu.Lock()
	p, ok := s.engine.Network().Peer(id)
	var info domain.PeerInfo
	if ok {
		info = p.Info()
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "unknown peer: "+string(id))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"strategies": domain.Strategies(),
		"default":    s.defaults.Strategy,
	})
}

// ─── Search ─────────────────────────────────────────────────────────────────

// searchRequest is the body of /api/search and /api/trace. Omitted
// ttl, strategy and seed fall back to the server defaults.
type searchRequest struct {
	Origin   string `json:"origin"`
	Resource string `json:"resource"`
	TTL      *int   `json:"ttl,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	Seed     *int64 `json:"seed,omitempty"`
}

func (s *Server) decodeSearch(r *http.Request) (domain.SearchRequest, error) {
	var body searchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return domain.SearchRequest{}, err
	}
	req := domain.SearchRequest{
		Origin:   domain.PeerID(body.Origin),
		Resource: domain.ResourceID(body.Resource),
		TTL:      s.defaults.TTL,
		Strategy: s.defaults.Strategy,
		Seed:     s.defaults.Seed,
	}
	if body.TTL != nil {
		req.TTL = *body.TTL
	}
	if body.Strategy != "" {
		req.Strategy = domain.Strategy(body.Strategy)
	}
	if body.Seed != nil {
		req.Seed = body.Seed
	}
	return req, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeSearch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s.mu.Lock()
	res, err := s.engine.Search(r.Context(), req)
	s.mu.Unlock()

	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.logger.Debug("search",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("strategy", string(res.Strategy)),
		zap.Bool("found", res.Found),
	)
	writeJSON(w, http.StatusOK, res)
}

// traceDone is the final NDJSON line of a trace stream.
type traceDone struct {
	Done          bool            `json:"done"`
	Steps         int             `json:"steps"`
	Found         bool            `json:"found"`
	Messages      int             `json:"message_count"`
	NodesInvolved int             `json:"nodes_involved"`
	Path          []domain.PeerID `json:"path"`
}

// handleTrace streams one JSON step per line, then a summary line.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeSearch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// The lock is held while streaming: the trace reads and writes peer
	// caches as it is consumed. Slow readers are bounded by the write timeout.
	s.mu.Lock()
	defer s.mu.Unlock()

	steps, err := s.engine.Trace(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	enc := json.NewEncoder(w)
	done := traceDone{Done: true, Path: []domain.PeerID{}}
	for st := range steps {
		if err := enc.Encode(st); err != nil {
			s.logger.Debug("trace client gone", zap.Error(err))
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		done.Steps++
		done.Messages = st.Messages
		done.NodesInvolved = len(st.Visited)
		if st.Found {
			done.Found = true
			done.Path = st.Path
		}
	}

	if err := enc.Encode(done); err != nil {
		s.logger.Debug("trace client gone", zap.Error(err))
		return
	}
	if flusher != nil {
		flusher.Flush()
	}
}

// ─── Runs ───────────────────────────────────────────────────────────────────

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.runs.Summary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summary == nil {
		summary = []domain.StrategySummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"strategies": summary})
}
