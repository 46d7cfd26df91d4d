package entrypoint

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// Parser turns resolved specifications into a working command-line parser.
//
// Lifecycle: the parser is constructed with its setup configuration, then
// receives exactly one AddOption or AddArgument call per resolved spec, then
// serves any number of Parse calls. The returned dispatch key is the key the
// spec's value will occupy in the produced Args; the associated Dispatcher
// must be guaranteed the same key.
//
// CallWith is the invocation hook: implementations must route through the
// Invoker's RawCall primitive so that wrapping the call (setup, teardown,
// output shaping) can never bypass dispatch correctness.
type Parser interface {
	AddOption(spec Resolved) (key string, err error)
	AddArgument(spec Resolved) (key string, err error)
	// Parse converts raw tokens into a fresh Args. Malformed input yields a
	// *UsageError; a help request yields ErrHelp after the usage text has
	// been written.
	Parse(tokens []string) (Args, error)
	CallWith(args Args) (any, error)
}

// ParserOptions is the setup configuration for a Parser backend. Extra
// carries backend-specific settings; the default backend understands
// "interspersed" (bool) to control flag/positional interleaving.
type ParserOptions struct {
	Name        string
	Description string
	Output      io.Writer
	Extra       map[string]any
}

// ParserFactory builds a Parser for a target function and its dispatcher.
// Supplying one in Config substitutes a custom backend at decoration time.
type ParserFactory func(opts ParserOptions, fn any, d Dispatcher) (Parser, error)

// Invoker provides the raw invocation primitive shared by all Parser
// implementations. Embed it and delegate CallWith to RawCall; custom
// behavior wraps that delegation.
type Invoker struct {
	fn         any
	dispatcher Dispatcher
}

// NewInvoker binds a target function to its dispatcher.
func NewInvoker(fn any, d Dispatcher) Invoker {
	return Invoker{fn: fn, dispatcher: d}
}

// RawCall routes parsed arguments through the dispatcher onto the target
// function. This is the one true call path.
func (inv Invoker) RawCall(args Args) (any, error) {
	return inv.dispatcher.Invoke(inv.fn, args)
}

// DefaultParser is the stock Parser backend, implemented on pflag. Options
// become flags with their synthesized short and long forms; positionals are
// consumed from the interspersed remainder in declaration order.
//
// The pflag flag set is rebuilt for every Parse call, so a single decorated
// entrypoint is safe for concurrent invocation.
type DefaultParser struct {
	Invoker
	name         string
	description  string
	output       io.Writer
	interspersed bool
	options      []Resolved
	positionals  []Resolved
}

// NewDefaultParser constructs the default backend from its setup config.
func NewDefaultParser(opts ParserOptions, fn any, d Dispatcher) (*DefaultParser, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	interspersed := true
	if v, ok := opts.Extra["interspersed"].(bool); ok {
		interspersed = v
	}
	return &DefaultParser{
		Invoker:      NewInvoker(fn, d),
		name:         opts.Name,
		description:  opts.Description,
		output:       out,
		interspersed: interspersed,
	}, nil
}

// defaultParserFactory adapts NewDefaultParser to the ParserFactory shape.
func defaultParserFactory(opts ParserOptions, fn any, d Dispatcher) (Parser, error) {
	return NewDefaultParser(opts, fn, d)
}

// AddOption registers a flag-form spec.
func (p *DefaultParser) AddOption(spec Resolved) (string, error) {
	if spec.Long == "" {
		return "", fmt.Errorf("option %q has no long form", spec.Name)
	}
	p.options = append(p.options, spec)
	return spec.Key(), nil
}

// AddArgument registers a positional spec.
func (p *DefaultParser) AddArgument(spec Resolved) (string, error) {
	p.positionals = append(p.positionals, spec)
	return spec.Key(), nil
}

// CallWith invokes the target function with parsed arguments. Override by
// embedding DefaultParser and wrapping the RawCall delegation.
func (p *DefaultParser) CallWith(args Args) (any, error) {
	return p.RawCall(args)
}

// flagValue adapts a ConvertFunc to pflag.Value, recording whether the flag
// appeared on the command line.
type flagValue struct {
	convert ConvertFunc
	isBool  bool
	value   any
	set     bool
}

func (v *flagValue) Set(raw string) error {
	converted, err := v.convert(raw)
	if err != nil {
		return err
	}
	v.value = converted
	v.set = true
	return nil
}

func (v *flagValue) Type() string {
	if v.isBool {
		return "bool"
	}
	return "string"
}

func (v *flagValue) String() string { return "" }

type optionState struct {
	spec  Resolved
	value *flagValue
}

// buildFlagSet assembles a fresh pflag set for one Parse call.
func (p *DefaultParser) buildFlagSet() (*pflag.FlagSet, []optionState) {
	fs := pflag.NewFlagSet(p.name, pflag.ContinueOnError)
	fs.SetOutput(p.output)
	fs.SetInterspersed(p.interspersed)
	fs.SortFlags = false

	states := make([]optionState, 0, len(p.options))
	for _, spec := range p.options {
		fv := &flagValue{convert: spec.Convert, isBool: spec.IsBool}
		if fv.convert == nil {
			fv.convert = identity
		}
		flag := fs.VarPF(fv, spec.Long, spec.Short, spec.Help)
		if spec.IsBool {
			flag.NoOptDefVal = "true"
		}
		states = append(states, optionState{spec: spec, value: fv})
	}
	return fs, states
}

// Parse processes one command line into a fresh Args mapping.
func (p *DefaultParser) Parse(tokens []string) (Args, error) {
	fs, states := p.buildFlagSet()
	fs.Usage = func() { p.writeUsage(fs) }

	if err := fs.Parse(tokens); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, p.usageError(fs, err.Error())
	}

	args := make(Args, len(states)+len(p.positionals))
	rest := fs.Args()
	for _, spec := range p.positionals {
		convert := spec.Convert
		if convert == nil {
			convert = identity
		}
		if spec.Rest {
			values := make([]any, 0, len(rest))
			for _, tok := range rest {
				v, err := convert(tok)
				if err != nil {
					return nil, p.usageError(fs, fmt.Sprintf("argument %s: %v", spec.Name, err))
				}
				values = append(values, v)
			}
			args[spec.Key()] = values
			rest = nil
			continue
		}
		switch {
		case len(rest) > 0:
			v, err := convert(rest[0])
			if err != nil {
				return nil, p.usageError(fs, fmt.Sprintf("argument %s: %v", spec.Name, err))
			}
			args[spec.Key()] = v
			rest = rest[1:]
		case spec.HasDefault:
			args[spec.Key()] = spec.Default
		default:
			return nil, p.usageError(fs, fmt.Sprintf("missing required argument %q", spec.Name))
		}
	}
	if len(rest) > 0 {
		return nil, p.usageError(fs, "unrecognized extra arguments: "+strings.Join(rest, " "))
	}

	for _, st := range states {
		switch {
		case st.value.set:
			args[st.spec.Key()] = st.value.value
		case st.spec.HasDefault:
			args[st.spec.Key()] = st.spec.Default
		default:
			return nil, p.usageError(fs, fmt.Sprintf("missing required option --%s", st.spec.Long))
		}
	}
	return args, nil
}

func (p *DefaultParser) usageError(fs *pflag.FlagSet, message string) error {
	return &UsageError{Prog: p.name, Message: message, Usage: p.usageText(fs)}
}

func (p *DefaultParser) writeUsage(fs *pflag.FlagSet) {
	fmt.Fprint(p.output, p.usageText(fs))
}

// usageText renders the usage message: synopsis, description, the declared
// arguments, and the flag table.
func (p *DefaultParser) usageText(fs *pflag.FlagSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "usage: %s", p.name)
	if len(p.options) > 0 {
		b.WriteString(" [options]")
	}
	for _, spec := range p.positionals {
		switch {
		case spec.Rest:
			fmt.Fprintf(&b, " [%s...]", spec.Name)
		case spec.HasDefault:
			fmt.Fprintf(&b, " [%s]", spec.Name)
		default:
			fmt.Fprintf(&b, " %s", spec.Name)
		}
	}
	b.WriteString("\n")
	if p.description != "" {
		b.WriteString("\n" + p.description + "\n")
	}
	if len(p.positionals) > 0 {
		b.WriteString("\narguments:\n")
		for _, spec := range p.positionals {
			fmt.Fprintf(&b, "  %-20s %s\n", spec.Name, spec.Help)
		}
	}
	b.WriteString("\noptions:\n")
	if flags := fs.FlagUsages(); flags != "" {
		b.WriteString(flags)
	}
	b.WriteString("  -h, --help           show this help message and exit\n")
	return b.String()
}
