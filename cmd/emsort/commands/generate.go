package commands

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/lanrat/emsort"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate PATH",
		Short: "Write a test input of shuffled consecutive integers",
		Args:  cobra.ExactArgs(1),
		RunE:  withRuntime(runGenerate),
	}
	f := cmd.Flags()
	f.Int64P("count", "n", 0, "number of values to write")
	f.Int("chunk", emsort.DefaultGenerateChunk, "values shuffled together")
	f.Uint64("seed", 0, "random seed, 0 seeds from the clock")
	_ = cmd.MarkFlagRequired("count")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string, rt *runtime) error {
	count, _ := cmd.Flags().GetInt64("count")
	chunk, _ := cmd.Flags().GetInt("chunk")

	var rng *rand.Rand
	if seed := rt.cfg.Sort.Seed; seed != 0 {
		rng = rand.New(rand.NewPCG(seed, seed))
	}
	if err := emsort.Generate(cmd.Context(), rt.fs, args[0], count, chunk, rng); err != nil {
		return err
	}
	rt.log.Info("input generated", "path", args[0], "count", count, "chunk", chunk)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d values to %s\n", count, args[0])
	return nil
}
