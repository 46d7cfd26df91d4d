// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files
// ending with the specified extension. It returns a slice of their full paths
// in walk order. Directory names listed in ignore are not descended into.
func FindFilesByExtension(rootPath, extension string, ignore ...string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	ignored := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		ignored[name] = struct{}{}
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := ignored[d.Name()]; skip && path != rootPath {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// IsSourceDir reports whether a directory name is one the Go toolchain would
// consider part of a build. Directories named "vendor" or "testdata", and
// names starting with '.' or '_', are excluded.
func IsSourceDir(name string) bool {
	if name == "vendor" || name == "testdata" {
		return false
	}
	return !strings.HasPrefix(name, ".") && !strings.HasPrefix(name, "_")
}
