// Command epmanager maintains the project-side artifacts of an
// entrypoint-using Go module: it regenerates the manifest's script table
// from a source scan, and emits wrapper scripts for installed commands.
//
// Both of its subcommands are themselves declared as entrypoints.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zahlman/entrypoint"
	"github.com/zahlman/entrypoint/discovery"
	"github.com/zahlman/entrypoint/registry"
	"github.com/zahlman/entrypoint/signature"
	"github.com/zahlman/entrypoint/wrapper"
)

// UpdateMetadata rescans the source tree and rewrites the manifest's script
// table to match.
func UpdateMetadata(manifestPath, root string) error {
	return discovery.Update(context.Background(), manifestPath, root)
}

// MakeWrapper writes a pause-after-run wrapper script for an installed
// command into the current directory.
func MakeWrapper(cmd string) (string, error) {
	return wrapper.Generate(".", cmd)
}

var updateEntry = entrypoint.MustNew(UpdateMetadata, entrypoint.Config{
	Name:        "update-metadata",
	Description: "Discover entry points in the source tree and update the project manifest.",
	Signature: []signature.Decl{
		{Name: "manifest", Default: "entrypoints.hcl", HasDefault: true},
		{Name: "root", Default: ".", HasDefault: true},
	},
	Params: []entrypoint.Spec{
		{Name: "--manifest", Help: "path to the project manifest to rewrite (.hcl or .toml)"},
		{Name: "--root", Help: "root of the source tree to scan"},
	},
})

var wrapperEntry = entrypoint.MustNew(MakeWrapper, entrypoint.Config{
	Name:        "wrapper",
	Description: "Create a wrapper script that runs the given command and pauses.",
	Signature:   []signature.Decl{{Name: "cmd"}},
	Params: []entrypoint.Spec{
		entrypoint.Arg("cmd", "name of the installed command to wrap"),
	},
})

// commands assembles the tool's subcommand registry.
func commands() *registry.Registry {
	reg := registry.New()
	reg.Register("github.com/zahlman/entrypoint/cmd/epmanager.UpdateMetadata", updateEntry)
	reg.Register("github.com/zahlman/entrypoint/cmd/epmanager.MakeWrapper", wrapperEntry)
	return reg
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
	os.Exit(run(os.Stdout, os.Stderr, os.Args[1:]))
}

// run routes to the selected subcommand and returns the process exit code.
// It recovers configuration panics so a broken declaration reports cleanly.
func run(stdout, stderr io.Writer, args []string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "a critical configuration error occurred: %v\n", r)
			code = 1
		}
	}()

	reg := commands()
	if len(args) == 0 {
		usage(stderr, reg)
		return 2
	}
	ep, ok := reg.Lookup(args[0])
	if !ok {
		fmt.Fprintf(stderr, "epmanager: unknown command %q\n", args[0])
		usage(stderr, reg)
		return 2
	}
	return ep.Run(stdout, stderr, args[1:])
}

func usage(w io.Writer, reg *registry.Registry) {
	fmt.Fprintln(w, "usage: epmanager <command> [arguments]")
	fmt.Fprintln(w, "\ncommands:")
	for _, name := range reg.Names() {
		ep, _ := reg.Lookup(name)
		fmt.Fprintf(w, "  %-18s %s\n", name, ep.Description())
	}
}
