package config

import (
	"github.com/spf13/viper"

	"github.com/turtacn/ShiftGraph/internal/application/split"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage/minio"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage/redis"
)

const (
	DefaultDatasetRoot   = "data"
	DefaultNucleus       = "13C"
	DefaultProgressEvery = 1000

	DefaultTrainSize = 0.8
	DefaultValSize   = 0.1
	DefaultTestSize  = 0.1
	DefaultSeed      = 42

	DefaultCacheBackend = BackendLocal

	DefaultLogLevel  = logging.LevelInfo
	DefaultLogFormat = logging.FormatConsole

	DefaultMetricsNamespace = "shiftgraph"
)

// sizeDefaults are registered only for size keys the config file leaves out,
// so that an explicit null keeps meaning "unset".
var sizeDefaults = map[string]float64{
	"split.train_size": DefaultTrainSize,
	"split.val_size":   DefaultValSize,
	"split.test_size":  DefaultTestSize,
}

// registerDefaults declares every non-size key on v. Keys viper does not know
// about are invisible to environment overrides during Unmarshal.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("dataset.root", DefaultDatasetRoot)
	v.SetDefault("dataset.nucleus", DefaultNucleus)
	v.SetDefault("dataset.filter_elements", false)
	v.SetDefault("dataset.allowed_elements", []string{})
	v.SetDefault("dataset.require_3d", true)
	v.SetDefault("dataset.progress_every", DefaultProgressEvery)

	v.SetDefault("split.seed", DefaultSeed)
	v.SetDefault("split.splits_file", "")
	v.SetDefault("split.output_file", "")

	v.SetDefault("cache.backend", DefaultCacheBackend)
	v.SetDefault("cache.minio.endpoint", "")
	v.SetDefault("cache.minio.access_key_id", "")
	v.SetDefault("cache.minio.secret_access_key", "")
	v.SetDefault("cache.minio.use_ssl", false)
	v.SetDefault("cache.minio.region", "")
	v.SetDefault("cache.minio.bucket", minio.DefaultBucket)
	v.SetDefault("cache.minio.prefix", "")
	v.SetDefault("cache.minio.connect_timeout", "10s")
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", redis.DefaultPrefix)
	v.SetDefault("cache.redis.tls_enabled", false)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "30s")
	v.SetDefault("cache.redis.write_timeout", "30s")
	v.SetDefault("cache.redis.max_retries", 3)
	v.SetDefault("cache.redis.ttl", "0s")
	v.SetDefault("cache.redis.lock_ttl", "30s")
	v.SetDefault("cache.redis.lock_wait", "30m")

	v.SetDefault("curate.input", "")
	v.SetDefault("curate.output", "")

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.output_paths", []string{})
	v.SetDefault("log.error_output_paths", []string{})

	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("metrics.go_runtime", false)
}

// registerSizeDefaults fills the split sizes absent from the loaded file.
func registerSizeDefaults(v *viper.Viper) {
	present := make(map[string]bool)
	for _, k := range v.AllKeys() {
		present[k] = true
	}
	for key, def := range sizeDefaults {
		if !present[key] {
			v.SetDefault(key, def)
		}
	}
}

// Default returns the configuration used when no file or environment
// override is given.
func Default() *Config {
	cfg := &Config{
		Dataset: DatasetConfig{Require3D: true, ProgressEvery: DefaultProgressEvery},
		Split: SplitConfig{
			TrainSize: split.Fraction(DefaultTrainSize),
			ValSize:   split.Fraction(DefaultValSize),
			TestSize:  split.Fraction(DefaultTestSize),
			Seed:      DefaultSeed,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default. Fields
// already set are left unchanged. Booleans and split sizes are not touched:
// their zero values are meaningful.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Dataset.Root == "" {
		cfg.Dataset.Root = DefaultDatasetRoot
	}
	if cfg.Dataset.Nucleus == "" {
		cfg.Dataset.Nucleus = DefaultNucleus
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.MinIO.Bucket == "" {
		cfg.Cache.MinIO.Bucket = minio.DefaultBucket
	}
	if cfg.Cache.Redis.Prefix == "" {
		cfg.Cache.Redis.Prefix = redis.DefaultPrefix
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}
