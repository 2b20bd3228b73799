package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/ShiftGraph/pkg/errors"
)

// DefaultSaveExclude keeps credentials out of saved run configurations.
var DefaultSaveExclude = []string{"cache.minio.secret_access_key", "cache.redis.password"}

// Marshal renders cfg as YAML without the dotted keys in exclude. Excluding a
// key that does not exist is an error.
func Marshal(cfg *Config, exclude ...string) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to encode configuration")
	}
	for _, key := range exclude {
		if !removeKey(&doc, strings.Split(key, ".")) {
			return nil, errors.New(errors.CodeConfigUnknownKey, "cannot exclude unknown key").WithDetail(key)
		}
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to render configuration")
	}
	return out, nil
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(cfg *Config, path string, exclude ...string) error {
	if err := CheckExtension(path); err != nil {
		return err
	}
	data, err := Marshal(cfg, exclude...)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.CodeFileWrite, "failed to create config directory").WithDetail(dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CodeFileWrite, "failed to write config file").WithDetail(path)
	}
	return nil
}

// removeKey deletes the mapping entry at path and reports whether it existed.
func removeKey(node *yaml.Node, path []string) bool {
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != path[0] {
			continue
		}
		if len(path) == 1 {
			node.Content = append(node.Content[:i], node.Content[i+2:]...)
			return true
		}
		return removeKey(node.Content[i+1], path[1:])
	}
	return false
}
