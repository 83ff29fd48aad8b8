// Package commands implements the emsort command line.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
)

// NewRootCmd returns the emsort command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "emsort",
		Short: "External memory sorting of int64 files",
		Long: `emsort sorts files of native-endian int64 values that do not fit in
memory, using an external mergesort or quicksort, and reports the number
of block transfers each sort performed.

Settings come from flags, EMSORT_* environment variables and an optional
YAML or TOML file given with --config.`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "configuration file (YAML or TOML)")
	pf.String("log-level", "INFO", "log level: DEBUG, INFO, WARN or ERROR")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("log-output", "stderr", "log output: stderr, stdout or a file path")
	pf.String("metrics-textfile", "", "write Prometheus metrics to this file when done")

	root.AddCommand(newSortCmd())
	root.AddCommand(newBestArityCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newGenerateCmd())
	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

// Execute runs the command line with os.Args
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
