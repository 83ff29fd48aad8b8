// Package config loads the emsort command line configuration.
//
// Sources, highest precedence first:
//  1. command line flags
//  2. environment variables (EMSORT_*, e.g. EMSORT_SORT_ARITY)
//  3. a YAML or TOML configuration file
//  4. defaults
package config

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lanrat/emsort"
	"github.com/lanrat/emsort/internal/bytesize"
	"github.com/lanrat/emsort/internal/logger"
)

// Config is the complete CLI configuration
type Config struct {
	Logging logger.Config `mapstructure:"logging"`
	Sort    SortConfig    `mapstructure:"sort"`
	Search  SearchConfig  `mapstructure:"search"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SortConfig holds the parameters of a single sort
type SortConfig struct {
	// BlockSize is the transfer unit, accepts sizes like "4Ki"
	BlockSize bytesize.Size `mapstructure:"block_size" validate:"required,elemaligned"`
	// Memory is the in-memory budget, accepts sizes like "50Mi"
	Memory         bytesize.Size `mapstructure:"memory" validate:"required,min=8"`
	Arity          int           `mapstructure:"arity" validate:"min=2"`
	Mode           string        `mapstructure:"mode" validate:"oneof=merge mergesort quick quicksort"`
	MultiPassMerge bool          `mapstructure:"multi_pass_merge"`
	PerBlockRunIO  bool          `mapstructure:"per_block_run_io"`
	MaxResample    int           `mapstructure:"max_resample" validate:"min=0"`
	Seed           uint64        `mapstructure:"seed"`
	TempDir        string        `mapstructure:"temp_dir"`
}

// SearchConfig bounds the best-arity search
type SearchConfig struct {
	Min              int  `mapstructure:"min" validate:"omitempty,min=2"`
	Max              int  `mapstructure:"max" validate:"omitempty,min=2"`
	Parallelism      int  `mapstructure:"parallelism" validate:"min=1"`
	SkipFailedTrials bool `mapstructure:"skip_failed_trials"`
}

// MetricsConfig configures Prometheus output
type MetricsConfig struct {
	// Textfile, when set, receives the metrics in text exposition format
	// after each command, for node_exporter's textfile collector.
	Textfile string `mapstructure:"textfile"`
}

// flagKeys maps command line flag names to configuration keys
var flagKeys = map[string]string{
	"log-level":          "logging.level",
	"log-format":         "logging.format",
	"log-output":         "logging.output",
	"block-size":         "sort.block_size",
	"memory":             "sort.memory",
	"arity":              "sort.arity",
	"mode":               "sort.mode",
	"multi-pass":         "sort.multi_pass_merge",
	"per-block-run-io":   "sort.per_block_run_io",
	"max-resample":       "sort.max_resample",
	"seed":               "sort.seed",
	"temp-dir":           "sort.temp_dir",
	"min-arity":          "search.min",
	"max-arity":          "search.max",
	"parallelism":        "search.parallelism",
	"skip-failed-trials": "search.skip_failed_trials",
	"metrics-textfile":   "metrics.textfile",
}

// Load reads configPath (may be empty), the environment and any flags in
// flags that were set, applies defaults and validates the result.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setupViper(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", configPath)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper) {
	v.SetEnvPrefix("EMSORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		sizeDecodeHook(),
	)
}

// sizeDecodeHook converts strings like "50Mi" and plain numbers to bytesize.Size
func sizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.Size(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.Size(v), nil
		case int64:
			return bytesize.Size(v), nil
		case uint64:
			return bytesize.Size(v), nil
		case float64:
			return bytesize.Size(v), nil
		default:
			return data, nil
		}
	}
}

// SorterConfig converts the sort section into an emsort.Config
func (c *Config) SorterConfig(fs afero.Fs, log *slog.Logger, metrics emsort.Recorder) (*emsort.Config, error) {
	mode, err := emsort.ParseMode(c.Sort.Mode)
	if err != nil {
		return nil, err
	}
	return &emsort.Config{
		BlockSize:      int(c.Sort.BlockSize),
		MemoryBudget:   c.Sort.Memory.Elements(),
		Arity:          c.Sort.Arity,
		Mode:           mode,
		MultiPassMerge: c.Sort.MultiPassMerge,
		PerBlockRunIO:  c.Sort.PerBlockRunIO,
		MaxResample:    c.Sort.MaxResample,
		Seed:           c.Sort.Seed,
		TempDir:        c.Sort.TempDir,
		Fs:             fs,
		Logger:         log,
		Metrics:        metrics,
	}, nil
}

// SearchOptions converts the search section into emsort.SearchOptions
func (c *Config) SearchOptions(totalBytes int64) emsort.SearchOptions {
	return emsort.SearchOptions{
		Min:              c.Search.Min,
		Max:              c.Search.Max,
		TotalBytes:       totalBytes,
		Parallelism:      c.Search.Parallelism,
		SkipFailedTrials: c.Search.SkipFailedTrials,
	}
}
