package entrypoint

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zahlman/entrypoint/signature"
)

// Spec is the caller-supplied description of one command-line facing name.
// Specs are given as an ordered slice; the order is part of the contract,
// because short-form collisions resolve in favor of the earlier entry.
//
// A Name with a leading '-' forces option form; the markers are stripped
// before the name is matched against the function's parameters. Every field
// other than Name and Help is an explicit override that wins over anything
// inferred from the signature.
type Spec struct {
	Name string
	Help string

	// Option forces flag form even when the name matches a positional
	// parameter, like the leading-marker convention does.
	Option bool

	// Type overrides the inferred value conversion.
	Type ConvertFunc

	// Default and HasDefault override the parameter's declared default.
	Default    any
	HasDefault bool

	// Short and Long override the synthesized option forms. Leading dashes
	// are accepted and ignored.
	Short string
	Long  string

	// Dest overrides the key under which the parsed value appears.
	Dest string
}

// Arg builds the plain-help form of a Spec, the analog of supplying a bare
// help string for a name.
func Arg(name, help string) Spec {
	return Spec{Name: name, Help: help}
}

// Resolved is the merge of one Spec with the matching parameter descriptor,
// normalized for consumption by a Parser. Built once per decoration.
type Resolved struct {
	// Name is the CLI-facing name, markers stripped.
	Name string
	// IsOption selects flag form over positional form.
	IsOption bool
	// Short and Long are the option forms, without dashes. Short may be
	// empty when a collision forced it to be dropped.
	Short string
	Long  string
	// Convert is the value conversion applied to each raw token.
	Convert ConvertFunc
	// Default and HasDefault are the established default, if any.
	Default    any
	HasDefault bool
	// Required means parsing must fail when no value is supplied.
	Required bool
	// IsBool marks an option whose inferred type is bool, so the backend
	// can accept the bare flag form without a value.
	IsBool bool
	// Rest marks a positional that absorbs all remaining tokens.
	Rest bool
	// Help is the per-argument help string.
	Help string
	// Dest is the parsed-args key override, empty for the default.
	Dest string
}

// Key returns the key under which this spec's value appears in ParsedArgs.
func (r Resolved) Key() string {
	if r.Dest != "" {
		return r.Dest
	}
	return r.Name
}

// Resolve merges the ordered Specs with the parameter descriptors into the
// normalized per-name configuration. It is deterministic: identical inputs
// produce an identical slice, in spec order.
//
// An entry becomes an option when its name matches no fixed or keyword-only
// parameter, when it matches the variadic-keyword parameter, or when option
// form was explicitly requested. Defaults and conversions are inferred from
// the matched descriptor unless the entry overrides them. Synthesized short
// forms collide in favor of the earlier entry: the later one keeps only its
// long form.
//
// Resolve fails only on structurally invalid configuration: duplicate names
// or destinations, malformed explicit forms, or explicit short forms that
// collide.
func Resolve(params []signature.Param, specs []Spec) ([]Resolved, error) {
	byName := make(map[string]signature.Param, len(params))
	for _, p := range params {
		byName[p.Name] = p
	}

	resolved := make([]Resolved, 0, len(specs))
	seenKeys := make(map[string]struct{}, len(specs))
	shortTaken := make(map[string]struct{})
	longTaken := make(map[string]struct{})

	for _, s := range specs {
		name := strings.TrimLeft(s.Name, "-")
		if name == "" {
			return nil, fmt.Errorf("spec name %q has no usable characters", s.Name)
		}
		forced := s.Option || name != s.Name

		r := Resolved{
			Name: name,
			Help: s.Help,
			Dest: s.Dest,
		}
		if _, dup := seenKeys[r.Key()]; dup {
			return nil, fmt.Errorf("spec %q: duplicate destination %q", s.Name, r.Key())
		}
		seenKeys[r.Key()] = struct{}{}

		param, matched := byName[name]
		r.IsOption = !matched || param.Kind == signature.VariadicKeyword || forced

		// Default inference; an explicit default always wins.
		switch {
		case s.HasDefault:
			r.Default, r.HasDefault = s.Default, true
		case matched && param.HasDefault:
			r.Default, r.HasDefault = param.Default, true
		}
		r.Required = !r.HasDefault

		// Type inference from the parameter type, unless overridden.
		if s.Type != nil {
			r.Convert = s.Type
		} else if matched {
			r.Convert = converterFor(param.Type)
			r.IsBool = param.Type.Kind() == reflect.Bool
		} else {
			r.Convert = identity
		}

		r.Rest = matched && !r.IsOption && param.Kind == signature.VariadicPositional

		if r.IsOption {
			long, short, err := optionForms(s, name, shortTaken)
			if err != nil {
				return nil, err
			}
			if _, dup := longTaken[long]; dup {
				return nil, fmt.Errorf("spec %q: long form --%s already in use", s.Name, long)
			}
			longTaken[long] = struct{}{}
			if short != "" {
				shortTaken[short] = struct{}{}
			}
			r.Long, r.Short = long, short
		}

		resolved = append(resolved, r)
	}
	return resolved, nil
}

// optionForms synthesizes or validates the short and long forms for an
// option entry. A synthesized short form that collides with an earlier one
// is dropped; an explicit one that collides is a configuration error.
func optionForms(s Spec, name string, shortTaken map[string]struct{}) (long, short string, err error) {
	long = strings.TrimLeft(s.Long, "-")
	if long == "" {
		long = strings.ReplaceAll(name, "_", "-")
	}

	explicit := s.Short != ""
	short = strings.TrimLeft(s.Short, "-")
	if explicit {
		if utf8.RuneCountInString(short) != 1 {
			return "", "", fmt.Errorf("spec %q: short form must be a single character, got %q", s.Name, s.Short)
		}
	} else {
		first, _ := utf8.DecodeRuneInString(name)
		short = string(unicode.ToLower(first))
	}

	if _, taken := shortTaken[short]; taken {
		if explicit {
			return "", "", fmt.Errorf("spec %q: short form -%s already in use", s.Name, short)
		}
		short = ""
	}
	return long, short, nil
}
