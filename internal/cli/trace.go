package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	traceCmd.Flags().Int64("seed", 0, "Seed for random-walk strategies")
	traceCmd.Flags().BoolVar(&traceJSON, "json", false, "Print one JSON step per line")
	rootCmd.AddCommand(traceCmd)
}

var traceJSON bool

var traceCmd = &cobra.Command{
	Use:   "trace TOPOLOGY ORIGIN RESOURCE [TTL] [STRATEGY]",
	Short: "Print every step of a search in processing order",
	Args:  cobra.RangeArgs(3, 5),
	RunE:  runTrace,
}

func runTrace(cmd *cobra.Command, args []string) error {
	d, err := openDaemon(args[0])
	if err != nil {
		return err
	}
	defer d.Close()

	req, err := searchArgs(cmd, d, args[1:])
	if err != nil {
		return err
	}

	steps, err := d.Engine.Trace(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if traceJSON {
		enc := json.NewEncoder(out)
		for st := range steps {
			if err := enc.Encode(st); err != nil {
				return err
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPEER\tMESSAGES\tFOUND\tPATH\tVISITED")
	for st := range steps {
		peer := string(st.Peer)
		if st.Redirect {
			peer += " (cache)"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%t\t%s\t%s\n",
			st.Index, peer, st.Messages, st.Found, formatPath(st.Path), formatIDs(st.Visited))
	}
	return w.Flush()
}
