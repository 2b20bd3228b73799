// Package config defines the ShiftGraph configuration: plain data types,
// defaults and validation, plus loading from YAML/env and saving back to YAML.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/turtacn/ShiftGraph/internal/application/split"
	"github.com/turtacn/ShiftGraph/internal/domain/molecule"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage/minio"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage/redis"
	"github.com/turtacn/ShiftGraph/pkg/errors"
	mtypes "github.com/turtacn/ShiftGraph/pkg/types/molecule"
)

// Cache backends.
const (
	BackendLocal = "local"
	BackendMinIO = "minio"
	BackendRedis = "redis"
)

// DatasetConfig selects the raw data and the per-record filters.
type DatasetConfig struct {
	// Root holds raw/<name>_dataset.sdf and, for the local backend, processed/.
	Root string `mapstructure:"root" yaml:"root"`
	// Nucleus is an isotope label (13C, 1H, 19F) or dataset name (carbon...).
	Nucleus         string   `mapstructure:"nucleus" yaml:"nucleus"`
	FilterElements  bool     `mapstructure:"filter_elements" yaml:"filter_elements"`
	AllowedElements []string `mapstructure:"allowed_elements" yaml:"allowed_elements"`
	Require3D       bool     `mapstructure:"require_3d" yaml:"require_3d"`
	ProgressEvery   int      `mapstructure:"progress_every" yaml:"progress_every"`
}

// SplitConfig holds the train/val/test partition settings.
type SplitConfig struct {
	TrainSize  split.Size `mapstructure:"train_size" yaml:"train_size"`
	ValSize    split.Size `mapstructure:"val_size" yaml:"val_size"`
	TestSize   split.Size `mapstructure:"test_size" yaml:"test_size"`
	Seed       uint64     `mapstructure:"seed" yaml:"seed"`
	SplitsFile string     `mapstructure:"splits_file" yaml:"splits_file"`
	OutputFile string     `mapstructure:"output_file" yaml:"output_file"`
}

// CacheConfig selects where processed datasets are stored.
type CacheConfig struct {
	Backend string       `mapstructure:"backend" yaml:"backend"`
	MinIO   minio.Config `mapstructure:"minio" yaml:"minio"`
	Redis   redis.Config `mapstructure:"redis" yaml:"redis"`
}

// CurateConfig names the curation input and output. An empty output means
// the raw file of the configured dataset.
type CurateConfig struct {
	Input  string `mapstructure:"input" yaml:"input"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus textfile written at the end of a run.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	// Textfile is written only when set.
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
	// GoRuntime adds the go_* runtime collectors to the textfile.
	GoRuntime bool `mapstructure:"go_runtime" yaml:"go_runtime"`
}

// Config is the root configuration.
type Config struct {
	Dataset DatasetConfig     `mapstructure:"dataset" yaml:"dataset"`
	Split   SplitConfig       `mapstructure:"split" yaml:"split"`
	Cache   CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Curate  CurateConfig      `mapstructure:"curate" yaml:"curate"`
	Log     logging.LogConfig `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
}

// Nucleus returns the parsed dataset nucleus. It is only meaningful after
// Validate has succeeded.
func (c *Config) Nucleus() mtypes.Nucleus {
	n, _ := mtypes.ParseNucleus(c.Dataset.Nucleus)
	return n
}

// ElementFilter returns the filter over the configured allowed elements.
func (c *Config) ElementFilter() *molecule.ElementFilter {
	return molecule.NewElementFilter(c.Dataset.AllowedElements...)
}

// CurateOutput returns the curation output path.
func (c *Config) CurateOutput() string {
	if c.Curate.Output != "" {
		return c.Curate.Output
	}
	return filepath.Join(c.Dataset.Root, "raw", c.Nucleus().DatasetName()+"_dataset.sdf")
}

// Validate performs semantic validation of a fully-populated Config. Every
// error it returns carries a CONFIG_* code.
func (c *Config) Validate() error {
	// Dataset
	if strings.TrimSpace(c.Dataset.Root) == "" {
		return errors.InvalidConfig("dataset.root is required")
	}
	if _, err := mtypes.ParseNucleus(c.Dataset.Nucleus); err != nil {
		return errors.Wrap(err, errors.CodeUnknownNucleus, "dataset.nucleus is invalid").WithDetail(c.Dataset.Nucleus)
	}
	for _, sym := range c.Dataset.AllowedElements {
		if molecule.AtomicNumber(strings.TrimSpace(sym)) == 0 {
			return errors.InvalidConfig(fmt.Sprintf("dataset.allowed_elements: unknown element %q", sym))
		}
	}
	if c.Dataset.ProgressEvery < 0 {
		return errors.InvalidConfig(fmt.Sprintf("dataset.progress_every must be ≥ 0, got %d", c.Dataset.ProgressEvery))
	}

	// Split
	sizes := []struct {
		name string
		size split.Size
	}{
		{"train_size", c.Split.TrainSize},
		{"val_size", c.Split.ValSize},
		{"test_size", c.Split.TestSize},
	}
	unset := 0
	for _, s := range sizes {
		if err := s.size.Validate(); err != nil {
			return errors.Wrap(err, errors.CodeInvalidSplit, "split."+s.name+" is invalid")
		}
		if s.size.IsUnset() {
			unset++
		}
	}
	if unset > 1 && c.Split.SplitsFile == "" {
		return errors.InvalidSplit("at most one of split.train_size, split.val_size, split.test_size may be unset")
	}

	// Cache
	switch c.Cache.Backend {
	case BackendLocal:
	case BackendMinIO:
		if c.Cache.MinIO.Endpoint == "" {
			return errors.InvalidConfig("cache.minio.endpoint is required for the minio backend")
		}
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.InvalidConfig("cache.redis.addr is required for the redis backend")
		}
		if c.Cache.Redis.TTL < 0 || c.Cache.Redis.LockTTL < 0 || c.Cache.Redis.LockWait < 0 {
			return errors.InvalidConfig("cache.redis ttl, lock_ttl and lock_wait must not be negative")
		}
	default:
		return errors.InvalidConfig(fmt.Sprintf("cache.backend %q is invalid; expected local|minio|redis", c.Cache.Backend))
	}

	// Log
	if !logging.ValidLevel(c.Log.Level) {
		return errors.InvalidConfig(fmt.Sprintf("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level))
	}
	if !logging.ValidFormat(c.Log.Format) {
		return errors.InvalidConfig(fmt.Sprintf("log.format %q is invalid; expected json|console", c.Log.Format))
	}

	// Metrics
	if c.Metrics.Namespace == "" {
		return errors.InvalidConfig("metrics.namespace is required")
	}
	return nil
}
