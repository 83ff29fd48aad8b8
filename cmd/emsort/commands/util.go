package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/lanrat/emsort"
	"github.com/lanrat/emsort/internal/config"
	"github.com/lanrat/emsort/internal/logger"
	"github.com/lanrat/emsort/metrics"
)

// newFs returns the filesystem commands operate on
var newFs = afero.NewOsFs

// runtime is the state shared by every command invocation
type runtime struct {
	cfg      *config.Config
	fs       afero.Fs
	log      *slog.Logger
	logClose io.Closer
	registry *prometheus.Registry
	recorder *metrics.Recorder
}

func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, closer, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	reg := prometheus.NewRegistry()
	return &runtime{
		cfg:      cfg,
		fs:       newFs(),
		log:      log.With("command", cmd.Name()),
		logClose: closer,
		registry: reg,
		recorder: metrics.New(reg),
	}, nil
}

func (rt *runtime) sorterConfig() (*emsort.Config, error) {
	return rt.cfg.SorterConfig(rt.fs, rt.log, rt.recorder)
}

// close writes the metrics textfile if configured and releases the log output
func (rt *runtime) close() error {
	var err error
	if path := rt.cfg.Metrics.Textfile; path != "" {
		if werr := prometheus.WriteToTextfile(path, rt.registry); werr != nil {
			err = fmt.Errorf("failed to write metrics: %w", werr)
		}
	}
	if cerr := rt.logClose.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// withRuntime adapts a command body so the runtime is always closed
func withRuntime(run func(cmd *cobra.Command, args []string, rt *runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime(cmd)
		if err != nil {
			return err
		}
		err = run(cmd, args, rt)
		if cerr := rt.close(); cerr != nil && err == nil {
			err = cerr
		}
		return err
	}
}

// addSortFlags registers the flags that shape a sort
func addSortFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("block-size", config.DefaultBlockSize.String(), "block size, a multiple of 8 bytes")
	f.String("memory", config.DefaultMemory.String(), "memory budget, e.g. 50Mi")
	f.IntP("arity", "a", config.DefaultArity, "merge fan-in or partition fan-out")
	f.StringP("mode", "m", config.DefaultMode, "algorithm: merge or quick")
	f.Bool("multi-pass", false, "merge at most arity runs per pass")
	f.Bool("per-block-run-io", false, "charge run loads and stores per block instead of once per run")
	f.Int("max-resample", config.DefaultMaxResample, "pivot resamples before falling back to merge")
	f.Uint64("seed", 0, "random seed, 0 seeds from the clock")
	f.String("temp-dir", "", "directory for intermediate files")
	f.String("bytes", "0", "sort only the first N bytes of the input, 0 for all of it")
}
