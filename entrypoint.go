package entrypoint

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"runtime"
	"strings"

	"github.com/zahlman/entrypoint/signature"
)

// Config is the decoration-time input for New. Only Signature is required;
// everything else has a working default.
type Config struct {
	// Name is the program name used in usage text and error messages. It
	// defaults to the target function's own name, lower-cased.
	Name string
	// Description is the one-line summary shown in the usage text.
	Description string
	// Signature declares the target function's parameters, in order.
	Signature []signature.Decl
	// Params are the ordered command-line specifications.
	Params []Spec
	// Output receives usage text and parse diagnostics. Defaults to stderr.
	Output io.Writer
	// ParserConfig carries backend-specific settings to the Parser.
	ParserConfig map[string]any
	// NewParser substitutes a different Parser backend.
	NewParser ParserFactory
	// NewDispatcher substitutes a different dispatch strategy.
	NewDispatcher DispatcherFactory
}

// Entrypoint binds a function's declared signature to a command-line
// interface. It is built once, at decoration time, and is immutable
// afterwards: Invoke only ever produces fresh per-call state, so a single
// Entrypoint is safe for concurrent invocation.
type Entrypoint struct {
	name        string
	description string
	params      []signature.Param
	parser      Parser
	dispatcher  Dispatcher
}

// New analyzes fn's signature, resolves the command-line specifications
// against it, and assembles the parser and dispatcher. Structural problems
// with the configuration are returned as errors; a resolved configuration
// that cannot possibly satisfy the signature panics with *BindingError from
// the dispatcher's validation, as that is a programming error in the
// decoration itself.
func New(fn any, cfg Config) (*Entrypoint, error) {
	params, err := signature.Analyze(fn, cfg.Signature...)
	if err != nil {
		return nil, fmt.Errorf("entrypoint: %w", err)
	}

	name := cfg.Name
	if name == "" {
		name = functionName(fn)
	}

	resolved, err := Resolve(params, cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("entrypoint %q: %w", name, err)
	}

	newDispatcher := cfg.NewDispatcher
	if newDispatcher == nil {
		newDispatcher = NewDispatcher
	}
	dispatcher := newDispatcher(params)

	newParser := cfg.NewParser
	if newParser == nil {
		newParser = defaultParserFactory
	}
	parser, err := newParser(ParserOptions{
		Name:        name,
		Description: cfg.Description,
		Output:      cfg.Output,
		Extra:       cfg.ParserConfig,
	}, fn, dispatcher)
	if err != nil {
		return nil, fmt.Errorf("entrypoint %q: %w", name, err)
	}

	for _, spec := range resolved {
		var key string
		if spec.IsOption {
			key, err = parser.AddOption(spec)
		} else {
			key, err = parser.AddArgument(spec)
		}
		if err != nil {
			return nil, fmt.Errorf("entrypoint %q: %w", name, err)
		}
		dispatcher.Guarantee(key)
	}
	dispatcher.Validate()

	slog.Debug("Constructed entrypoint.", "name", name, "params", len(params), "specs", len(resolved))
	return &Entrypoint{
		name:        name,
		description: cfg.Description,
		params:      params,
		parser:      parser,
		dispatcher:  dispatcher,
	}, nil
}

// MustNew is New for static decoration-time configuration, where an error is
// always a programming mistake.
func MustNew(fn any, cfg Config) *Entrypoint {
	ep, err := New(fn, cfg)
	if err != nil {
		panic(err)
	}
	return ep
}

// Name returns the entrypoint's resolved program name.
func (e *Entrypoint) Name() string { return e.name }

// Description returns the entrypoint's one-line summary.
func (e *Entrypoint) Description() string { return e.description }

// Invoke parses the raw tokens and calls the target function with the
// reconstructed arguments. The error is a *UsageError for malformed input,
// ErrHelp after a help request, or whatever the target function itself
// returned; binding defects panic with *BindingError.
func (e *Entrypoint) Invoke(tokens []string) (any, error) {
	args, err := e.parser.Parse(tokens)
	if err != nil {
		return nil, err
	}
	return e.parser.CallWith(args)
}

// Run invokes the entrypoint and turns the outcome into process-style
// presentation: the result (when non-nil) on stdout with exit 0, a help
// request as exit 0, usage problems on stderr with exit 2, and target
// function failures on stderr with exit 1.
func (e *Entrypoint) Run(stdout, stderr io.Writer, tokens []string) int {
	result, err := e.Invoke(tokens)
	var usageErr *UsageError
	switch {
	case err == nil:
		if result != nil {
			fmt.Fprintln(stdout, result)
		}
		return 0
	case errors.Is(err, ErrHelp):
		return 0
	case errors.As(err, &usageErr):
		if usageErr.Usage != "" {
			fmt.Fprint(stderr, usageErr.Usage)
		}
		fmt.Fprintln(stderr, usageErr.Error())
		return 2
	default:
		fmt.Fprintf(stderr, "%s: %v\n", e.name, err)
		return 1
	}
}

// Main runs the entrypoint against the process command line and exits.
func (e *Entrypoint) Main() {
	os.Exit(e.Run(os.Stdout, os.Stderr, os.Args[1:]))
}

// functionName recovers a usable default program name from the function's
// runtime symbol, e.g. "github.com/acme/tool.ListUsers" becomes "listusers".
func functionName(fn any) string {
	name := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}
