package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	searchCmd.Flags().Int64("seed", 0, "Seed for random-walk strategies")
	searchCmd.Flags().IntVar(&searchRepeat, "repeat", 1, "Run the same search N times on one network (shows cache learning)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(searchCmd)
}

var (
	searchRepeat int
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search TOPOLOGY ORIGIN RESOURCE [TTL] [STRATEGY]",
	Short: "Search the overlay for a resource",
	Long: `Search the overlay for RESOURCE starting at peer ORIGIN.

STRATEGY is one of flooding, informed_flooding, random_walk,
informed_random_walk (case-insensitive). TTL and STRATEGY default to the
[search] section of the config.`,
	Args: cobra.RangeArgs(3, 5),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	d, err := openDaemon(args[0])
	if err != nil {
		return err
	}
	defer d.Close()

	req, err := searchArgs(cmd, d, args[1:])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i := 0; i < max(1, searchRepeat); i++ {
		res, err := d.Engine.Search(cmd.Context(), req)
		if err != nil {
			return err
		}

		if searchJSON {
			if err := json.NewEncoder(out).Encode(res); err != nil {
				return err
			}
			continue
		}
		if searchRepeat > 1 {
			fmt.Fprintf(out, "── run %d ──\n", i+1)
		}
		if err := printResult(out, res); err != nil {
			return err
		}
	}
	return nil
}
