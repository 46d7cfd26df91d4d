// Package manifest reads and rewrites the project-metadata file that records
// which entrypoints a project exposes, in the way script tables are kept in
// packaging metadata.
//
// The model is format-agnostic; concrete codecs bind it to a file format and
// are expected to leave unrelated content in the file alone when rewriting.
package manifest

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Model is the format-agnostic content of a project manifest.
type Model struct {
	// Project is the project name, informational only.
	Project string
	// Scripts maps an entrypoint name to its target locator, e.g.
	// "github.com/acme/tool/cmd.ListUsers".
	Scripts map[string]string
}

// Codec is the interface for a format-specific manifest implementation.
type Codec interface {
	// Read loads the manifest at path into the format-agnostic model.
	Read(path string) (*Model, error)
	// Update rewrites the manifest at path so its script entries match the
	// model exactly, preserving unrelated content. A missing file is
	// created.
	Update(path string, m *Model) error
}

// ForPath selects a codec from the file extension: TOML for .toml and HCL
// for .hcl.
func ForPath(path string) (Codec, error) {
	switch filepath.Ext(path) {
	case ".toml":
		return tomlCodec{}, nil
	case ".hcl":
		return hclCodec{}, nil
	default:
		return nil, fmt.Errorf("no manifest codec for %q: expected a .toml or .hcl file", path)
	}
}

// sortedNames gives rewrites a stable entry order.
func sortedNames(scripts map[string]string) []string {
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
