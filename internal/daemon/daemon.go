package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tutu-network/peersearch/internal/api"
	"github.com/tutu-network/peersearch/internal/domain"
	"github.com/tutu-network/peersearch/internal/health"
	"github.com/tutu-network/peersearch/internal/infra/metrics"
	"github.com/tutu-network/peersearch/internal/infra/sqlite"
	"github.com/tutu-network/peersearch/internal/infra/topofile"
	"github.com/tutu-network/peersearch/internal/overlay"
	"github.com/tutu-network/peersearch/internal/search"
)

// Daemon is the peersearch runtime for one overlay. It wires together all services.
type Daemon struct {
	Config  Config
	Logger  *zap.Logger
	Network *overlay.Network
	Engine  *search.Engine
	Ledger  *sqlite.DB
	Server  *api.Server
	Health  *health.Checker
	cancel  context.CancelFunc
}

// New loads the user config and the topology at topologyPath.
func New(topologyPath string) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg, topologyPath)
}

// NewWithConfig creates a Daemon for the topology file at topologyPath.
func NewWithConfig(cfg Config, topologyPath string) (*Daemon, error) {
	spec, err := topofile.Load(topologyPath)
	if err != nil {
		return nil, fmt.Errorf("load topology: %w", err)
	}
	return NewFromSpec(cfg, spec)
}

// NewFromSpec creates a Daemon for an already decoded topology.
func NewFromSpec(cfg Config, spec domain.TopologySpec) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	net, err := overlay.Build(spec)
	if err != nil {
		return nil, fmt.Errorf("build overlay: %w", err)
	}
	lo, hi := net.Bounds()
	logger.Named("daemon").Info("overlay ready",
		zap.Int("peers", net.Len()),
		zap.Int("edges", net.EdgeCount()),
		zap.Int("min_neighbors", lo),
		zap.Int("max_neighbors", hi),
	)
	metrics.OverlayPeers.Set(float64(net.Len()))
	metrics.OverlayEdges.Set(float64(net.EdgeCount()))

	ledger, err := sqlite.Open(logger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	engine := search.New(net,
		search.WithLogger(logger),
		search.WithObserver(metrics.NewRecorder(net.CacheEntries)),
		search.WithObserver(ledger),
	)

	srv := api.NewServer(engine, ledger, api.Defaults{
		TTL:      cfg.Search.DefaultTTL,
		Strategy: domain.Strategy(cfg.Search.DefaultStrategy),
		Seed:     cfg.Search.Seed,
	}, logger)
	srv.SetCORSOrigins(cfg.API.CORSOrigins)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	checker := health.NewChecker(net, ledger, srv.Locker(), health.WithLogger(logger))
	srv.SetHealth(checker)

	return &Daemon{
		Config:  cfg,
		Logger:  logger,
		Network: net,
		Engine:  engine,
		Ledger:  ledger,
		Server:  srv,
		Health:  checker,
	}, nil
}

// Request fills unset request fields from the search defaults.
func (d *Daemon) Request(origin domain.PeerID, resource domain.ResourceID) domain.SearchRequest {
	return domain.SearchRequest{
		Origin:   origin,
		Resource: resource,
		TTL:      d.Config.Search.DefaultTTL,
		Strategy: domain.Strategy(d.Config.Search.DefaultStrategy),
		Seed:     d.Config.Search.Seed,
	}
}

// Serve starts the HTTP API and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	go d.Health.Run(ctx)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // Long for streamed traces
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log := d.Logger.Named("daemon")
	log.Info("serving", zap.String("addr", "http://"+addr))
	if d.Config.Telemetry.Prometheus {
		log.Info("metrics enabled", zap.String("url", "http://"+addr+"/metrics"))
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Ledger != nil {
		_ = d.Ledger.Close()
	}
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}
}
