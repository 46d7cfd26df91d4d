package entrypoint

import (
	"reflect"
	"sort"

	"github.com/zahlman/entrypoint/signature"
)

// Args is the flat named-value mapping a Parser produces from one command
// line. A fresh Args is built per invocation and owned by that call.
type Args map[string]any

// Dispatcher reconstructs a valid call from parsed arguments, respecting the
// positional, variadic, and keyword distinctions of the target signature.
//
// Its protocol across the parser configuration phase is linear: one
// Guarantee call per dispatch key the parser will always supply, then a
// single Validate, after which Invoke may be called any number of times.
// Protocol violations and binding mismatches panic with *BindingError; they
// are programming errors, never user input errors.
type Dispatcher interface {
	// Guarantee declares that the key will be present in every Args the
	// associated Parser produces.
	Guarantee(key string)
	// Validate checks that the guaranteed key set can satisfy a correct
	// call: every fixed or keyword-only parameter must be covered by a key
	// or a default. Only statically checkable mismatches are caught here.
	Validate()
	// Invoke partitions args onto the target signature and calls fn. An
	// error returned by fn itself propagates unchanged.
	Invoke(fn any, args Args) (any, error)
}

// DispatcherFactory builds a Dispatcher for a parameter set. It is the hook
// for substituting a custom dispatch strategy at decoration time.
type DispatcherFactory func(params []signature.Param) Dispatcher

type dispatchPhase uint8

const (
	phaseGuaranteeing dispatchPhase = iota
	phaseValidated
)

// dispatcher is the default Dispatcher. Each parameter owns a slot that is
// either bound to a dispatch key or falls back to the parameter's default;
// keys matching no parameter are routed to the variadic-keyword slot.
type dispatcher struct {
	params []signature.Param
	// bound maps a parameter index to the guaranteed key feeding it.
	bound map[int]string
	index map[string]int
	// kwKeys are guaranteed keys claimed by the variadic-keyword parameter.
	kwKeys    map[string]struct{}
	varKeyIdx int
	phase     dispatchPhase
}

// NewDispatcher returns the default Dispatcher for the given parameter set.
func NewDispatcher(params []signature.Param) Dispatcher {
	d := &dispatcher{
		params:    params,
		bound:     make(map[int]string, len(params)),
		index:     make(map[string]int, len(params)),
		kwKeys:    make(map[string]struct{}),
		varKeyIdx: -1,
	}
	for i, p := range params {
		d.index[p.Name] = i
		if p.Kind == signature.VariadicKeyword {
			d.varKeyIdx = i
		}
	}
	return d
}

func (d *dispatcher) Guarantee(key string) {
	bindAssert(d.phase == phaseGuaranteeing, "Guarantee(%q) called after Validate", key)
	i, ok := d.index[key]
	if !ok {
		bindAssert(d.varKeyIdx >= 0,
			"parser supplies %q, which is not a parameter and there is no variadic-keyword parameter to route it to", key)
		d.kwKeys[key] = struct{}{}
		return
	}
	if d.params[i].Kind == signature.VariadicKeyword {
		d.kwKeys[key] = struct{}{}
		return
	}
	d.bound[i] = key
}

func (d *dispatcher) Validate() {
	bindAssert(d.phase == phaseGuaranteeing, "Validate called twice")
	var missing []string
	for i, p := range d.params {
		switch p.Kind {
		case signature.Fixed, signature.KeywordOnly:
			if _, ok := d.bound[i]; !ok && !p.HasDefault {
				missing = append(missing, p.Name)
			}
		}
	}
	bindAssert(len(missing) == 0,
		"parameters %v have neither a default value nor a guaranteed argument", missing)
	d.phase = phaseValidated
}

func (d *dispatcher) Invoke(fn any, args Args) (any, error) {
	bindAssert(d.phase == phaseValidated, "Invoke called before Validate")

	claimed := make(map[string]struct{}, len(args))
	call := make([]reflect.Value, 0, len(d.params))
	for i, p := range d.params {
		switch p.Kind {
		case signature.Fixed, signature.KeywordOnly:
			call = append(call, d.slotValue(i, p, args, claimed))
		case signature.VariadicPositional:
			key, ok := d.bound[i]
			if !ok {
				continue
			}
			value, present := args[key]
			if !present {
				continue
			}
			claimed[key] = struct{}{}
			rv := reflect.ValueOf(value)
			bindAssert(value != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array),
				"value for variadic parameter %q is not a sequence (got %T)", p.Name, value)
			for j := 0; j < rv.Len(); j++ {
				call = append(call, coerce(p, rv.Index(j).Interface()))
			}
		case signature.VariadicKeyword:
			call = append(call, d.keywordMap(p, args, claimed))
		}
	}

	if d.varKeyIdx < 0 {
		var unclaimed []string
		for key := range args {
			if _, ok := claimed[key]; !ok {
				unclaimed = append(unclaimed, key)
			}
		}
		sort.Strings(unclaimed)
		bindAssert(len(unclaimed) == 0,
			"unusable parsed arguments %v: no matching parameter and no variadic-keyword parameter", unclaimed)
	}

	return callTarget(fn, call)
}

// slotValue produces the call value for a fixed or keyword-only parameter:
// the parsed entry when present, otherwise the parameter's own default.
func (d *dispatcher) slotValue(i int, p signature.Param, args Args, claimed map[string]struct{}) reflect.Value {
	if key, ok := d.bound[i]; ok {
		if value, present := args[key]; present {
			claimed[key] = struct{}{}
			return coerce(p, value)
		}
	}
	bindAssert(p.HasDefault, "parsed arguments are missing a value for parameter %q", p.Name)
	return coerce(p, p.Default)
}

// keywordMap routes every parsed entry not claimed by another parameter into
// the variadic-keyword map.
func (d *dispatcher) keywordMap(p signature.Param, args Args, claimed map[string]struct{}) reflect.Value {
	mt := reflect.MapOf(reflect.TypeOf(""), p.Type)
	m := reflect.MakeMap(mt)
	for key, value := range args {
		if _, ok := claimed[key]; ok {
			continue
		}
		claimed[key] = struct{}{}
		m.SetMapIndex(reflect.ValueOf(key), coerce(p, value))
	}
	return m
}

// coerce adapts a parsed value to the parameter's value type. A mismatch is
// a binding defect: the parser produced a value shape the signature cannot
// accept.
func coerce(p signature.Param, value any) reflect.Value {
	t := p.Type
	if value == nil {
		switch t.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
			reflect.Pointer, reflect.Slice:
			return reflect.Zero(t)
		}
		bindAssert(false, "nil value supplied for parameter %q of type %s", p.Name, t)
	}
	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(t):
		return rv
	case numeric(rv.Type()) && numeric(t):
		return rv.Convert(t)
	}
	bindAssert(false, "value of type %T cannot be used for parameter %q of type %s", value, p.Name, t)
	panic("unreachable")
}

// numeric reports whether t is a numeric kind. Coercion between numeric
// kinds is lossy-but-sound; anything else (notably int<->string) must not be
// silently converted.
func numeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// callTarget performs the reflective call and normalizes the result shape.
// Whatever the target function raises or returns passes through unchanged.
func callTarget(fn any, call []reflect.Value) (any, error) {
	out := reflect.ValueOf(fn).Call(call)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asError(out[1])
	}
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}
