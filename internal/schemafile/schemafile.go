// Package schemafile loads kind declarations from schema files. YAML
// (.yaml, .yml) and TOML (.toml) are supported; both map onto the same
// declaration shape.
package schemafile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// ErrUnsupportedFormat is returned for file extensions other than
// .yaml/.yml/.toml.
var ErrUnsupportedFormat = errors.New("unsupported schema file format")

// file is the on-disk declaration shape.
type file struct {
	Kinds []kindDecl `yaml:"kinds" toml:"kinds"`
}

type kindDecl struct {
	Name   string        `yaml:"name" toml:"name"`
	Fields []types.Field `yaml:"fields" toml:"fields"`
}

// Load parses one schema file into kinds, in declaration order.
func Load(path string) ([]*types.Kind, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}

	var f file
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	kinds := make([]*types.Kind, 0, len(f.Kinds))
	for _, decl := range f.Kinds {
		k, err := types.NewKind(decl.Name, decl.Fields)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// LoadDir loads every schema file in dir (non-recursive, sorted by file
// name) into the registry. A missing directory is not an error; files
// with unrecognized extensions are skipped.
func LoadDir(dir string, reg *types.Registry) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading schema dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".toml":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		kinds, err := Load(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		for _, k := range kinds {
			if err := reg.Register(k); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}
