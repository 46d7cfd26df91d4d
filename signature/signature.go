// Package signature extracts an ordered parameter description from a target
// Go function.
//
// Go reflection does not retain parameter names or default values, so the
// analysis merges two sources: the function's reflect type, which fixes the
// parameter count, value types, and variadic shape, and an ordered list of
// Decl entries naming each parameter. The result is an immutable sequence of
// Param descriptors in declaration order, computed once at decoration time.
package signature

import (
	"fmt"
	"reflect"
)

// Kind classifies how a parameter receives its value in a call.
type Kind uint8

const (
	// Fixed is an ordinary parameter filled by position.
	Fixed Kind = iota
	// VariadicPositional is a trailing Go variadic parameter (`...T`). It
	// absorbs any number of extra positional values.
	VariadicPositional
	// KeywordOnly is a parameter the caller addresses by name. It occupies a
	// positional slot in the Go call but is declared keyword-only for the
	// command-line surface.
	KeywordOnly
	// VariadicKeyword is a trailing string-keyed map parameter. Parsed values
	// not claimed by any other parameter are routed into it.
	VariadicKeyword
)

// String returns a short human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case Fixed:
		return "fixed"
	case VariadicPositional:
		return "variadic-positional"
	case KeywordOnly:
		return "keyword-only"
	case VariadicKeyword:
		return "variadic-keyword"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Param describes one declared parameter of the target function.
//
// Type is the value type a single supplied argument must have. For the
// variadic kinds this is the element type: one command-line value per
// element for VariadicPositional, the map's value type for VariadicKeyword.
type Param struct {
	Name       string
	Kind       Kind
	Type       reflect.Type
	Default    any
	HasDefault bool
}

// Decl supplies the per-parameter information reflection cannot recover:
// the name, an optional default value, and the keyword-only marker.
type Decl struct {
	Name        string
	Default     any
	HasDefault  bool
	KeywordOnly bool
}

// Analyze computes the parameter descriptors for fn. It is pure and
// deterministic: the same function type and declarations always produce the
// same descriptor sequence, in declaration order.
//
// One Decl is required per parameter of fn, counting a variadic parameter as
// one. The final parameter becomes VariadicPositional when fn is variadic,
// and VariadicKeyword when it is a string-keyed map; neither may carry a
// default or a keyword-only marker. fn may return nothing, a single value,
// an error, or a value and an error.
func Analyze(fn any, decls ...Decl) ([]Param, error) {
	if fn == nil {
		return nil, fmt.Errorf("target function must not be nil")
	}
	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("target must be a function, got %s", t.Kind())
	}
	if err := checkResults(t); err != nil {
		return nil, err
	}
	if t.NumIn() != len(decls) {
		return nil, fmt.Errorf("function has %d parameters but %d were declared", t.NumIn(), len(decls))
	}

	params := make([]Param, 0, len(decls))
	seen := make(map[string]struct{}, len(decls))
	for i, d := range decls {
		if d.Name == "" {
			return nil, fmt.Errorf("parameter %d: declared name must not be empty", i)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("parameter %q declared twice", d.Name)
		}
		seen[d.Name] = struct{}{}

		pt := t.In(i)
		kind := Fixed
		if i == t.NumIn()-1 {
			switch {
			case t.IsVariadic():
				kind = VariadicPositional
				pt = pt.Elem()
			case isStringKeyedMap(pt):
				kind = VariadicKeyword
				pt = pt.Elem()
			}
		}

		switch kind {
		case VariadicPositional, VariadicKeyword:
			if d.HasDefault {
				return nil, fmt.Errorf("parameter %q: a %s parameter cannot have a default", d.Name, kind)
			}
			if d.KeywordOnly {
				return nil, fmt.Errorf("parameter %q: a %s parameter cannot be marked keyword-only", d.Name, kind)
			}
		default:
			if d.KeywordOnly {
				kind = KeywordOnly
			}
			if d.HasDefault {
				if err := checkDefault(d.Name, d.Default, pt); err != nil {
					return nil, err
				}
			}
		}

		params = append(params, Param{
			Name:       d.Name,
			Kind:       kind,
			Type:       pt,
			Default:    d.Default,
			HasDefault: d.HasDefault,
		})
	}
	return params, nil
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func checkResults(t reflect.Type) error {
	switch t.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if t.Out(1) != errType {
			return fmt.Errorf("second result must be error, got %s", t.Out(1))
		}
		return nil
	default:
		return fmt.Errorf("function may return at most two values, got %d", t.NumOut())
	}
}

func checkDefault(name string, value any, pt reflect.Type) error {
	if value == nil {
		switch pt.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
			reflect.Pointer, reflect.Slice:
			return nil
		}
		return fmt.Errorf("parameter %q: nil default is not valid for type %s", name, pt)
	}
	if !reflect.TypeOf(value).AssignableTo(pt) {
		return fmt.Errorf("parameter %q: default %v (%T) is not assignable to %s", name, value, value, pt)
	}
	return nil
}

func isStringKeyedMap(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Key().Kind() == reflect.String
}
