package config

import (
	"github.com/spf13/viper"

	"github.com/lanrat/emsort/internal/bytesize"
)

// Default values. Every key has a default so environment variables are
// honored without a configuration file.
const (
	DefaultBlockSize   = 4 * bytesize.KiB
	DefaultMemory      = 50 * bytesize.MiB
	DefaultArity       = 2
	DefaultMode        = "merge"
	DefaultMaxResample = 3
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("sort.block_size", DefaultBlockSize.String())
	v.SetDefault("sort.memory", DefaultMemory.String())
	v.SetDefault("sort.arity", DefaultArity)
	v.SetDefault("sort.mode", DefaultMode)
	v.SetDefault("sort.multi_pass_merge", false)
	v.SetDefault("sort.per_block_run_io", false)
	v.SetDefault("sort.max_resample", DefaultMaxResample)
	v.SetDefault("sort.seed", 0)
	v.SetDefault("sort.temp_dir", "")

	v.SetDefault("search.min", 0)
	v.SetDefault("search.max", 0)
	v.SetDefault("search.parallelism", 1)
	v.SetDefault("search.skip_failed_trials", false)

	v.SetDefault("metrics.textfile", "")
}

// GetDefaultConfig returns the configuration used when nothing is set
func GetDefaultConfig() *Config {
	cfg, err := Load("", nil)
	if err != nil {
		// defaults always validate
		panic(err)
	}
	return cfg
}
