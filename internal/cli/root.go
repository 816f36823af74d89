// Package cli implements the peersearch command-line interface using Cobra.
// Each subcommand loads a topology file and works on the overlay it describes.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "peersearch",
	Short: "peersearch: resource discovery in a simulated P2P overlay",
	Long: `peersearch validates a peer-to-peer overlay described in a topology file
(JSON, TOML or YAML) and searches it for resources using flooding, informed
flooding, random walk or informed random walk, counting the messages each
search costs. Peers learn resource holders from successful searches.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $PEERSEARCH_HOME/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Logging level override (debug, info, warn, error)")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
