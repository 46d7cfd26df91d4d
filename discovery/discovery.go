// Package discovery scans a Go source tree for entrypoint declarations and
// keeps the project manifest's script table in sync with them.
//
// The scan is deliberately shallow: it looks for calls to entrypoint.New or
// entrypoint.MustNew whose configuration names the entrypoint with a string
// literal. Entrypoints constructed dynamically are invisible to it; those
// projects maintain their manifest by hand.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/zahlman/entrypoint/internal/ctxlog"
	"github.com/zahlman/entrypoint/internal/fsutil"
	"github.com/zahlman/entrypoint/manifest"
)

// libraryPath is the import path whose New/MustNew calls mark an entrypoint.
const libraryPath = "github.com/zahlman/entrypoint"

// Found is one entrypoint declaration located in the source tree.
type Found struct {
	// Name is the entrypoint's command name.
	Name string
	// Target locates the declaration, e.g. "github.com/acme/tool/cmd.ListUsers".
	Target string
	// File is the source file the declaration was found in.
	File string
}

// Scan walks the module rooted at root and returns the entrypoints declared
// in it, sorted by name. Two declarations sharing a name is an error, since
// the manifest could only record one of them.
func Scan(ctx context.Context, root string) ([]Found, error) {
	logger := ctxlog.FromContext(ctx)

	modPath, err := modulePath(root)
	if err != nil {
		return nil, err
	}
	logger.Debug("Scanning module for entrypoints.", "module", modPath, "root", root)

	paths, err := fsutil.FindFilesByExtension(root, ".go", "vendor", "testdata")
	if err != nil {
		return nil, err
	}

	var found []Found
	fset := token.NewFileSet()
	for _, path := range paths {
		if !scannable(root, path) {
			continue
		}
		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			logger.Warn("Skipping unparseable source file.", "file", path, "error", err)
			continue
		}
		alias := importAlias(file)
		if alias == "" {
			continue
		}
		pkgPath, err := packagePath(modPath, root, path)
		if err != nil {
			return nil, err
		}
		found = append(found, declarations(file, alias, pkgPath, path)...)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	for i := 1; i < len(found); i++ {
		if found[i].Name == found[i-1].Name {
			return nil, fmt.Errorf("entrypoint name %q declared in both %s and %s",
				found[i].Name, found[i-1].File, found[i].File)
		}
	}
	logger.Info("Source scan complete.", "entrypoints_found", len(found))
	return found, nil
}

// Update rewrites the manifest's script table from a fresh scan of root. The
// table is replaced wholesale; stale entries do not linger.
func Update(ctx context.Context, manifestPath, root string) error {
	logger := ctxlog.FromContext(ctx)

	codec, err := manifest.ForPath(manifestPath)
	if err != nil {
		return err
	}
	found, err := Scan(ctx, root)
	if err != nil {
		return err
	}

	m, err := codec.Read(manifestPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		m = &manifest.Model{Scripts: make(map[string]string)}
	}
	m.Scripts = make(map[string]string, len(found))
	for _, f := range found {
		m.Scripts[f.Name] = f.Target
	}

	if err := codec.Update(manifestPath, m); err != nil {
		return err
	}
	logger.Info("Manifest updated.", "manifest", manifestPath, "scripts", len(m.Scripts))
	return nil
}

// modulePath reads the module path from the go.mod at root.
func modulePath(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("cannot determine module path: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("no module path in %s", filepath.Join(root, "go.mod"))
	}
	return path, nil
}

// scannable filters out test files and files under directories the Go
// toolchain would not build.
func scannable(root, path string) bool {
	if strings.HasSuffix(path, "_test.go") {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	dirs := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	for _, dir := range dirs {
		if dir != "." && !fsutil.IsSourceDir(dir) {
			return false
		}
	}
	return true
}

// packagePath derives the import path of the package containing path.
func packagePath(modPath, root, path string) (string, error) {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil {
		return "", err
	}
	if rel == "." {
		return modPath, nil
	}
	return modPath + "/" + filepath.ToSlash(rel), nil
}

// importAlias returns the local name the file imports the library under, or
// an empty string when the file does not import it.
func importAlias(file *ast.File) string {
	for _, spec := range file.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil || path != libraryPath {
			continue
		}
		if spec.Name != nil {
			return spec.Name.Name
		}
		return "entrypoint"
	}
	return ""
}

// declarations collects the New/MustNew calls in one file.
func declarations(file *ast.File, alias, pkgPath, path string) []Found {
	var found []Found
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || (sel.Sel.Name != "New" && sel.Sel.Name != "MustNew") {
			return true
		}
		recv, ok := sel.X.(*ast.Ident)
		if !ok || recv.Name != alias || len(call.Args) < 2 {
			return true
		}
		target, ok := call.Args[0].(*ast.Ident)
		if !ok {
			return true
		}
		name := configName(call.Args[1])
		if name == "" {
			name = strings.ToLower(target.Name)
		}
		found = append(found, Found{
			Name:   name,
			Target: pkgPath + "." + target.Name,
			File:   path,
		})
		return true
	})
	return found
}

// configName extracts a literal Name field from a Config composite literal.
func configName(expr ast.Expr) string {
	lit, ok := expr.(*ast.CompositeLit)
	if !ok {
		return ""
	}
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok || key.Name != "Name" {
			continue
		}
		value, ok := kv.Value.(*ast.BasicLit)
		if !ok || value.Kind != token.STRING {
			return ""
		}
		name, err := strconv.Unquote(value.Value)
		if err != nil {
			return ""
		}
		return name
	}
	return ""
}
