package discover

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// manifestFile is the on-disk package-manifest format for the analyzed
// workspace (Cargo.toml-shaped: a [package] table, a [dependencies]
// table keyed by crate name, and an optional [workspace] table listing
// member paths).
type manifestFile struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
	Dependencies map[string]dependencySpec `toml:"dependencies"`
	DevDependencies map[string]dependencySpec `toml:"dev-dependencies"`
	BuildDependencies map[string]dependencySpec `toml:"build-dependencies"`
	Workspace struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

// dependencySpec accepts both the shorthand `name = "1.0"` form and the
// table form `name = { path = "../other", version = "1.0" }`.
type dependencySpec struct {
	Version string
	Path    string
}

func (d *dependencySpec) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		d.Version = v
	case map[string]interface{}:
		if p, ok := v["path"].(string); ok {
			d.Path = p
		}
		if ver, ok := v["version"].(string); ok {
			d.Version = ver
		}
	}
	return nil
}

const manifestFilename = "Cargo.toml"

func loadManifest(root string) (*manifestFile, error) {
	path := filepath.Join(root, manifestFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m manifestFile
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}
