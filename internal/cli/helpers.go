package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tutu-network/peersearch/internal/daemon"
	"github.com/tutu-network/peersearch/internal/domain"
)

// loadConfig reads the config named by --config (or the default location)
// and applies the --log-level override.
func loadConfig() (daemon.Config, error) {
	var (
		cfg daemon.Config
		err error
	)
	if configPath != "" {
		cfg, err = daemon.LoadConfigFile(configPath)
	} else {
		cfg, err = daemon.LoadConfig()
	}
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// openDaemon wires a daemon for the topology file at path.
func openDaemon(path string) (*daemon.Daemon, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return daemon.NewWithConfig(cfg, path)
}

// searchArgs parses "ORIGIN RESOURCE [TTL] [STRATEGY]" plus --seed into a
// request, using the daemon's defaults for what is left out.
func searchArgs(cmd *cobra.Command, d *daemon.Daemon, args []string) (domain.SearchRequest, error) {
	req := d.Request(domain.PeerID(args[0]), domain.ResourceID(args[1]))
	if len(args) > 2 {
		ttl, err := strconv.Atoi(args[2])
		if err != nil {
			return req, fmt.Errorf("invalid ttl %q: %w", args[2], err)
		}
		req.TTL = ttl
	}
	if len(args) > 3 {
		req.Strategy = domain.Strategy(args[3])
	}
	if cmd.Flags().Changed("seed") {
		seed, err := cmd.Flags().GetInt64("seed")
		if err != nil {
			return req, err
		}
		req.Seed = &seed
	}
	return req, nil
}

// formatPath renders a path as "a -> b -> c".
func formatPath(path []domain.PeerID) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = string(id)
	}
	return strings.Join(parts, " -> ")
}

func formatIDs[T ~string](ids []T) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

// printResult writes a search result as an aligned key/value block.
func printResult(out io.Writer, res domain.SearchResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Found:\t%t\n", res.Found)
	fmt.Fprintf(w, "Messages:\t%d\n", res.Messages)
	fmt.Fprintf(w, "Nodes involved:\t%d\n", res.NodesInvolved)
	if res.Found {
		fmt.Fprintf(w, "Path:\t%s\n", formatPath(res.Path))
		if res.Redirected {
			fmt.Fprintf(w, "Redirect:\tcached holder %s\n", res.Path[len(res.Path)-1])
		}
	}
	return w.Flush()
}
