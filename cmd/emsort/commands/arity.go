package commands

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/lanrat/emsort"
)

func newBestArityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "best-arity INPUT OUTPUT",
		Short: "Search for the arity with the lowest total I/O",
		Long: `best-arity sorts INPUT into OUTPUT once per candidate arity, using the
configured mode, and reports the arity with the fewest block transfers.
Each trial output is deleted after it is measured.`,
		Args: cobra.ExactArgs(2),
		RunE: withRuntime(runBestArity),
	}
	addSortFlags(cmd)
	f := cmd.Flags()
	f.Int("min-arity", 2, "smallest arity tried")
	f.Int("max-arity", 0, "largest arity tried, 0 for the block capacity")
	f.Int("parallelism", 1, "trials run at once")
	f.Bool("skip-failed-trials", false, "treat a failed trial as infinitely expensive")
	f.Bool("verbose", false, "print the cost of every trial")
	return cmd
}

func runBestArity(cmd *cobra.Command, args []string, rt *runtime) error {
	total, err := totalBytes(cmd)
	if err != nil {
		return err
	}
	sc, err := rt.sorterConfig()
	if err != nil {
		return err
	}
	res, err := emsort.FindBestArity(cmd.Context(), sc, args[0], args[1], rt.cfg.SearchOptions(total))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		for _, a := range slices.Sorted(maps.Keys(res.Trials)) {
			fmt.Fprintf(out, "a=%d: %d I/Os\n", a, res.Trials[a])
		}
		for _, a := range slices.Sorted(maps.Keys(res.Failed)) {
			fmt.Fprintf(out, "a=%d: failed: %v\n", a, res.Failed[a])
		}
	}
	fmt.Fprintf(out, "Best arity: %d\n", res.Best)
	fmt.Fprintf(out, "Total I/O with best arity: %d\n", res.MinIO)
	return nil
}
