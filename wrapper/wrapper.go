// Package wrapper generates pause-after-run wrapper scripts for installed
// commands, so a command launched from a desktop shortcut keeps its output
// window open until dismissed.
package wrapper

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// Generate writes a wrapper script for cmd into dir and returns its path.
// The wrapped binary is expected in the Go install directory: GOBIN when
// set, else GOPATH/bin, else ~/go/bin.
func Generate(dir, cmd string) (string, error) {
	binDir, err := installDir()
	if err != nil {
		return "", err
	}
	return generate(dir, cmd, binDir, runtime.GOOS)
}

// generate is the GOOS-parameterized core, split out for testing.
func generate(dir, cmd, binDir, goos string) (string, error) {
	var script, ext string
	if goos == "windows" {
		script = fmt.Sprintf("@%s\r\n@pause\r\n", filepath.Join(binDir, cmd+".exe"))
		ext = ".bat"
	} else {
		script = fmt.Sprintf("#!/bin/sh\n%s\necho \"Press any key to continue . . .\"\nread -rsn1\n",
			filepath.Join(binDir, cmd))
	}

	path := filepath.Join(dir, cmd+ext)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// installDir resolves where `go install` places binaries.
func installDir() (string, error) {
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		return gobin, nil
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		return filepath.Join(gopath, "bin"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate the Go install directory: %w", err)
	}
	slog.Warn("GOBIN and GOPATH are unset; assuming the default install directory.", "dir", filepath.Join(home, "go", "bin"))
	return filepath.Join(home, "go", "bin"), nil
}
