package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lanrat/emsort"
	"github.com/lanrat/emsort/internal/bytesize"
)

func newSortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort INPUT OUTPUT",
		Short: "Sort INPUT into OUTPUT and report the block I/O",
		Args:  cobra.ExactArgs(2),
		RunE:  withRuntime(runSort),
	}
	addSortFlags(cmd)
	return cmd
}

func runSort(cmd *cobra.Command, args []string, rt *runtime) error {
	total, err := totalBytes(cmd)
	if err != nil {
		return err
	}
	sc, err := rt.sorterConfig()
	if err != nil {
		return err
	}
	s, err := emsort.New(sc)
	if err != nil {
		return err
	}
	res, err := s.Sort(cmd.Context(), args[0], args[1], total)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Elements: %d\n", res.Elements)
	fmt.Fprintf(out, "Elapsed: %dms\n", res.Duration.Milliseconds())
	fmt.Fprintf(out, "Total I/O: %d (reads: %d, writes: %d)\n", res.TotalIO(), res.Stats.Reads, res.Stats.Writes)
	return nil
}

func totalBytes(cmd *cobra.Command) (int64, error) {
	raw, _ := cmd.Flags().GetString("bytes")
	size, err := bytesize.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid --bytes: %w", err)
	}
	return int64(size), nil
}
