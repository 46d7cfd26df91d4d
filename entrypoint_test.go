package entrypoint

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zahlman/entrypoint/signature"
)

func describe(foo string, bar int, baz float64) string {
	return fmt.Sprintf("foo=%s, bar=%d, baz=%v", foo, bar, baz)
}

func newDescribe(t *testing.T, out *bytes.Buffer) *Entrypoint {
	t.Helper()
	ep, err := New(describe, Config{
		Name:        "describe",
		Description: "describe the three values",
		Signature: []signature.Decl{
			{Name: "foo"},
			{Name: "bar"},
			{Name: "baz", Default: 2.5, HasDefault: true},
		},
		Params: []Spec{
			Arg("foo", "a word"),
			Arg("bar", "a count"),
			Arg("baz", "a ratio"),
		},
		Output: out,
	})
	require.NoError(t, err)
	return ep
}

func TestInvokeGoodCommandLines(t *testing.T) {
	t.Parallel()

	ep := newDescribe(t, &bytes.Buffer{})

	result, err := ep.Invoke([]string{"one", "2"})
	require.NoError(t, err)
	assert.Equal(t, "foo=one, bar=2, baz=2.5", result)

	result, err = ep.Invoke([]string{"one", "2", "3.5"})
	require.NoError(t, err)
	assert.Equal(t, "foo=one, bar=2, baz=3.5", result)
}

func TestInvokeBadCommandLines(t *testing.T) {
	t.Parallel()

	ep := newDescribe(t, &bytes.Buffer{})
	for _, tokens := range [][]string{
		{},
		{"one"},
		{"one", "2", "3.5", "surplus"},
		{"one", "notanumber"},
	} {
		_, err := ep.Invoke(tokens)
		var usageErr *UsageError
		require.ErrorAs(t, err, &usageErr, "tokens %v", tokens)
		assert.Equal(t, "describe", usageErr.Prog)
	}
}

func TestInvokeHelp(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	ep := newDescribe(t, out)
	_, err := ep.Invoke([]string{"--help"})
	require.ErrorIs(t, err, ErrHelp)
	assert.Contains(t, out.String(), "usage: describe")
	assert.Contains(t, out.String(), "describe the three values")
}

func TestInvokePositionalsByFlag(t *testing.T) {
	t.Parallel()

	add := func(first, second int) int { return first + second }
	ep, err := New(add, Config{
		Name: "add",
		Signature: []signature.Decl{
			{Name: "first"},
			{Name: "second"},
		},
		Params: []Spec{
			{Name: "first", Option: true, Help: "left addend"},
			{Name: "second", Option: true, Help: "right addend"},
		},
	})
	require.NoError(t, err)

	result, err := ep.Invoke([]string{"-f", "1", "-s", "2"})
	require.NoError(t, err)
	assert.Equal(t, 3, result)

	result, err = ep.Invoke([]string{"--second", "20", "--first", "10"})
	require.NoError(t, err)
	assert.Equal(t, 30, result)
}

func TestInvokeVariadicPositional(t *testing.T) {
	t.Parallel()

	sum := func(base int, more ...int) int {
		total := base
		for _, n := range more {
			total += n
		}
		return total
	}
	ep, err := New(sum, Config{
		Name: "sum",
		Signature: []signature.Decl{
			{Name: "base"},
			{Name: "more"},
		},
		Params: []Spec{Arg("base", ""), Arg("more", "")},
	})
	require.NoError(t, err)

	result, err := ep.Invoke([]string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Equal(t, 6, result)

	result, err = ep.Invoke([]string{"10"})
	require.NoError(t, err)
	assert.Equal(t, 10, result)
}

func TestInvokeVariadicKeyword(t *testing.T) {
	t.Parallel()

	collect := func(kwargs map[string]string) map[string]string { return kwargs }

	t.Run("unmatched spec routes by name", func(t *testing.T) {
		t.Parallel()
		ep, err := New(collect, Config{
			Name:      "collect",
			Signature: []signature.Decl{{Name: "kwargs"}},
			Params:    []Spec{{Name: "arg", Help: "an extra setting", Default: "unset", HasDefault: true}},
		})
		require.NoError(t, err)

		result, err := ep.Invoke([]string{"--arg", "v"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"arg": "v"}, result)
	})

	t.Run("dest override renames the routed key", func(t *testing.T) {
		t.Parallel()
		ep, err := New(collect, Config{
			Name:      "collect",
			Signature: []signature.Decl{{Name: "kwargs"}},
			Params:    []Spec{{Name: "arg", Dest: "renamed", Default: "unset", HasDefault: true}},
		})
		require.NoError(t, err)

		result, err := ep.Invoke([]string{"--arg", "v"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"renamed": "v"}, result)
	})

	t.Run("spec naming the map parameter is itself an option", func(t *testing.T) {
		t.Parallel()
		ep, err := New(collect, Config{
			Name:      "collect",
			Signature: []signature.Decl{{Name: "kwargs"}},
			Params:    []Spec{{Name: "kwargs", Default: "none", HasDefault: true}},
		})
		require.NoError(t, err)

		result, err := ep.Invoke([]string{"--kwargs", "val"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"kwargs": "val"}, result)
	})
}

func TestInvokeTargetErrorsPropagate(t *testing.T) {
	t.Parallel()

	boom := errors.New("target failed")
	fail := func() error { return boom }
	ep, err := New(fail, Config{Name: "fail"})
	require.NoError(t, err)

	_, err = ep.Invoke(nil)
	require.ErrorIs(t, err, boom)
}

func TestNewRejectsBrokenConfiguration(t *testing.T) {
	t.Parallel()

	t.Run("signature mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := New(func(a string) {}, Config{Name: "x"})
		require.Error(t, err)
	})

	t.Run("uncoverable parameter panics at decoration", func(t *testing.T) {
		t.Parallel()
		// The parameter has no default and no spec supplies it; no command
		// line could ever produce a correct call.
		requireBindingPanic(t, func() {
			_, _ = New(func(a string) {}, Config{
				Name:      "x",
				Signature: []signature.Decl{{Name: "a"}},
			})
		})
	})

	t.Run("mustnew panics on plain errors", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			MustNew(func(a string) {}, Config{Name: "x"})
		})
	})
}

func greetLoudly() string { return "HELLO" }

func TestNameDefaultsToFunctionName(t *testing.T) {
	t.Parallel()

	ep, err := New(greetLoudly, Config{})
	require.NoError(t, err)
	assert.Equal(t, "greetloudly", ep.Name())
}

func TestRunExitCodes(t *testing.T) {
	t.Parallel()

	t.Run("success prints the result", func(t *testing.T) {
		t.Parallel()
		var stdout, stderr bytes.Buffer
		ep := newDescribe(t, &bytes.Buffer{})
		code := ep.Run(&stdout, &stderr, []string{"one", "2"})
		assert.Equal(t, 0, code)
		assert.Equal(t, "foo=one, bar=2, baz=2.5\n", stdout.String())
		assert.Empty(t, stderr.String())
	})

	t.Run("help exits zero", func(t *testing.T) {
		t.Parallel()
		out := &bytes.Buffer{}
		ep := newDescribe(t, out)
		code := ep.Run(&bytes.Buffer{}, &bytes.Buffer{}, []string{"-h"})
		assert.Equal(t, 0, code)
		assert.Contains(t, out.String(), "usage: describe")
	})

	t.Run("usage problems exit two", func(t *testing.T) {
		t.Parallel()
		var stdout, stderr bytes.Buffer
		ep := newDescribe(t, &bytes.Buffer{})
		code := ep.Run(&stdout, &stderr, nil)
		assert.Equal(t, 2, code)
		assert.Contains(t, stderr.String(), "usage: describe")
		assert.Contains(t, stderr.String(), "describe: error:")
		assert.Empty(t, stdout.String())
	})

	t.Run("target failure exits one", func(t *testing.T) {
		t.Parallel()
		fail := func() error { return errors.New("kaput") }
		ep, err := New(fail, Config{Name: "fail"})
		require.NoError(t, err)

		var stdout, stderr bytes.Buffer
		code := ep.Run(&stdout, &stderr, nil)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), "fail: kaput")
	})
}

func TestConcurrentInvocation(t *testing.T) {
	t.Parallel()

	ep := newDescribe(t, &bytes.Buffer{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			token := fmt.Sprint(n)
			result, err := ep.Invoke([]string{"x", token})
			assert.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("foo=x, bar=%d, baz=2.5", n), result)
		}(i)
	}
	wg.Wait()
}

func TestCustomParserBackend(t *testing.T) {
	t.Parallel()

	// A backend that wraps CallWith must still route through RawCall.
	factory := func(opts ParserOptions, fn any, d Dispatcher) (Parser, error) {
		inner, err := NewDefaultParser(opts, fn, d)
		if err != nil {
			return nil, err
		}
		return &shoutingParser{DefaultParser: inner}, nil
	}

	echo := func(word string) string { return word }
	ep, err := New(echo, Config{
		Name:      "echo",
		Signature: []signature.Decl{{Name: "word"}},
		Params:    []Spec{Arg("word", "what to echo")},
		NewParser: factory,
	})
	require.NoError(t, err)

	result, err := ep.Invoke([]string{"hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi!", result)
}

type shoutingParser struct {
	*DefaultParser
}

func (p *shoutingParser) CallWith(args Args) (any, error) {
	result, err := p.RawCall(args)
	if err != nil {
		return nil, err
	}
	return fmt.Sprint(result, "!"), nil
}
