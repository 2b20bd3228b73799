package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ShiftGraph/internal/application/split"
	"github.com/turtacn/ShiftGraph/internal/config"
	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
	mtypes "github.com/turtacn/ShiftGraph/pkg/types/molecule"
)

// validConfig returns a Config that passes Validate().
func validConfig() *config.Config {
	return config.Default()
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
		code   apperrors.ErrorCode
		field  string
	}{
		{"missing root", func(c *config.Config) { c.Dataset.Root = " " }, apperrors.CodeConfigInvalid, "dataset.root"},
		{"unknown nucleus", func(c *config.Config) { c.Dataset.Nucleus = "15N" }, apperrors.CodeUnknownNucleus, "dataset.nucleus"},
		{"unknown element", func(c *config.Config) { c.Dataset.AllowedElements = []string{"C", "Xx"} }, apperrors.CodeConfigInvalid, "Xx"},
		{"negative progress", func(c *config.Config) { c.Dataset.ProgressEvery = -1 }, apperrors.CodeConfigInvalid, "progress_every"},
		{"fraction above one", func(c *config.Config) { c.Split.ValSize = split.Fraction(1.2) }, apperrors.CodeInvalidSplit, "split.val_size"},
		{"two unset sizes", func(c *config.Config) {
			c.Split.TrainSize = split.Unset()
			c.Split.TestSize = split.Unset()
		}, apperrors.CodeInvalidSplit, "at most one"},
		{"bad backend", func(c *config.Config) { c.Cache.Backend = "s3" }, apperrors.CodeConfigInvalid, "cache.backend"},
		{"minio without endpoint", func(c *config.Config) { c.Cache.Backend = config.BackendMinIO }, apperrors.CodeConfigInvalid, "cache.minio.endpoint"},
		{"redis without addr", func(c *config.Config) { c.Cache.Backend = config.BackendRedis }, apperrors.CodeConfigInvalid, "cache.redis.addr"},
		{"negative redis ttl", func(c *config.Config) {
			c.Cache.Backend = config.BackendRedis
			c.Cache.Redis.Addr = "localhost:6379"
			c.Cache.Redis.TTL = -time.Second
		}, apperrors.CodeConfigInvalid, "must not be negative"},
		{"bad log level", func(c *config.Config) { c.Log.Level = "verbose" }, apperrors.CodeConfigInvalid, "log.level"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "text" }, apperrors.CodeConfigInvalid, "log.format"},
		{"no namespace", func(c *config.Config) { c.Metrics.Namespace = "" }, apperrors.CodeConfigInvalid, "metrics.namespace"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, tt.code), "got %v", err)
			assert.Contains(t, err.Error(), tt.field)
			assert.Equal(t, 2, apperrors.ExitCode(err))
		})
	}
}

func TestConfig_Validate_LoadedSplitsIgnoreSizes(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Split.TrainSize = split.Unset()
	cfg.Split.ValSize = split.Unset()
	cfg.Split.SplitsFile = "splits.npz"
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Nucleus(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Dataset.Nucleus = "fluorine"
	assert.Equal(t, mtypes.Fluorine19, cfg.Nucleus())
	assert.Equal(t, "data/raw/fluorine_dataset.sdf", cfg.CurateOutput())

	cfg.Curate.Output = "out.sdf"
	assert.Equal(t, "out.sdf", cfg.CurateOutput())
}

func TestConfig_ElementFilter(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	assert.Contains(t, cfg.ElementFilter().Allowed(), "Si")

	cfg.Dataset.AllowedElements = []string{"C", "H"}
	assert.Equal(t, []string{"C", "H"}, cfg.ElementFilter().Allowed())
}
