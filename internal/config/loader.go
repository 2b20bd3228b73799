package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/turtacn/ShiftGraph/internal/application/split"
	"github.com/turtacn/ShiftGraph/pkg/errors"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "SHIFTGRAPH"

// newViper builds a pre-configured Viper instance: YAML file type,
// SHIFTGRAPH_ env prefix, automatic env binding, and a key replacer that maps
// "." → "_" so that "split.train_size" resolves to "SHIFTGRAPH_SPLIT_TRAIN_SIZE".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)
	return v
}

// CheckExtension rejects paths not ending in .yaml or .yml.
func CheckExtension(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return nil
	}
	return errors.New(errors.CodeConfigBadExtension, "configuration file must end with yaml or yml").WithDetail(path)
}

// Load reads the YAML file at configPath, merges SHIFTGRAPH_* environment
// overrides, applies defaults and validates the result. An empty path loads
// from the environment only.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	if err := CheckExtension(configPath); err != nil {
		return nil, err
	}
	if _, err := os.Stat(configPath); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigLoadFailed, "failed to read config file").WithDetail(configPath)
	}

	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigLoadFailed, "failed to parse config file").WithDetail(configPath)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from defaults and SHIFTGRAPH_* variables only.
//
//	SHIFTGRAPH_<SECTION>_<FIELD>   e.g.  SHIFTGRAPH_DATASET_NUCLEUS=1H
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// decodeHook extends viper's default hooks with split size parsing.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		split.SizeDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// unmarshalAndFinalize unmarshals viper state into a Config, rejecting unknown
// keys, then applies defaults and validates.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	registerSizeDefaults(v)

	cfg := &Config{}
	if err := v.UnmarshalExact(cfg, viper.DecodeHook(decodeHook())); err != nil {
		if strings.Contains(err.Error(), "invalid keys") {
			return nil, errors.Wrap(err, errors.CodeConfigUnknownKey, "unknown argument in config file")
		}
		if errors.GetCode(err) != errors.CodeUnknown {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeConfigInvalid, "failed to decode configuration")
	}

	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
