package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tutu-network/peersearch/internal/infra/topofile"
	"github.com/tutu-network/peersearch/internal/overlay"
)

func init() {
	validateCmd.Flags().BoolVar(&validateAll, "all", false, "Report every violation instead of stopping at the first")
	rootCmd.AddCommand(validateCmd)
}

var validateAll bool

var validateCmd = &cobra.Command{
	Use:   "validate TOPOLOGY",
	Short: "Check a topology file and print its peers",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	spec, err := topofile.Load(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if validateAll {
		if err := overlay.Diagnose(spec); err != nil {
			problems := overlay.Problems(err)
			for _, p := range problems {
				fmt.Fprintf(out, "  - %v\n", p)
			}
			return fmt.Errorf("topology has %d problem(s)", len(problems))
		}
	}

	net, err := overlay.Build(spec)
	if err != nil {
		return err
	}

	lo, hi := net.Bounds()
	fmt.Fprintf(out, "OK: %d peers, %d edges, degree bounds [%d, %d]\n\n",
		net.Len(), net.EdgeCount(), lo, hi)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PEER\tDEGREE\tRESOURCES\tNEIGHBORS")
	for _, p := range net.Peers() {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			p.ID(), p.Degree(), formatIDs(p.Resources()), formatIDs(p.Neighbors()))
	}
	return w.Flush()
}
