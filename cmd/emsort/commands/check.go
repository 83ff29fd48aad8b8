package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lanrat/emsort"
)

var errNotSorted = errors.New("not sorted")

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check PATH",
		Short: "Verify that PATH is in ascending order",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
			ok, err := emsort.CheckSorted(cmd.Context(), rt.fs, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: %w", args[0], errNotSorted)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: sorted\n", args[0])
			return nil
		}),
	}
}
