package entrypoint

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ConvertFunc turns one raw command-line token into a typed value. It is the
// Go rendition of a type annotation: the resolver infers one from the target
// parameter's type unless the Spec supplies its own.
type ConvertFunc func(token string) (any, error)

// identity passes the raw token through unchanged.
func identity(token string) (any, error) {
	return token, nil
}

// converterFor derives a ConvertFunc for a parameter type. Conversion rides
// on cty's conversion graph: the token becomes a cty string, is converted to
// the type implied by the parameter, and is decoded back into a freshly
// allocated value of the exact parameter type.
//
// Interface-typed and plain string parameters take the token as-is. Types
// cty cannot describe also pass through; the dispatcher's call-time checks
// cover those dynamically.
func converterFor(t reflect.Type) ConvertFunc {
	if t == nil || t.Kind() == reflect.Interface || t == reflect.TypeOf("") {
		return identity
	}
	implied, err := gocty.ImpliedType(reflect.Zero(t).Interface())
	if err != nil {
		return identity
	}
	return func(token string) (any, error) {
		val, err := convert.Convert(cty.StringVal(token), implied)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", token, err)
		}
		out := reflect.New(t)
		if err := gocty.FromCtyValue(val, out.Interface()); err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", token, err)
		}
		return out.Elem().Interface(), nil
	}
}
