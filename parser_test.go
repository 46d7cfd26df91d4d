package entrypoint

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopDispatcher satisfies Dispatcher for parse-only tests.
type nopDispatcher struct{}

func (nopDispatcher) Guarantee(string) {}
func (nopDispatcher) Validate()        {}
func (nopDispatcher) Invoke(fn any, args Args) (any, error) {
	return args, nil
}

func newTestParser(t *testing.T, opts ParserOptions) (*DefaultParser, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	if opts.Output == nil {
		opts.Output = out
	}
	if opts.Name == "" {
		opts.Name = "prog"
	}
	p, err := NewDefaultParser(opts, func() {}, nopDispatcher{})
	require.NoError(t, err)
	return p, out
}

func TestParsePositionalConversion(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	_, err := p.AddArgument(Resolved{Name: "arg", Convert: converterFor(reflect.TypeOf(0)), Required: true})
	require.NoError(t, err)

	args, err := p.Parse([]string{"5"})
	require.NoError(t, err)
	assert.Equal(t, Args{"arg": 5}, args)
}

func TestParsePositionalDefaults(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	_, err := p.AddArgument(Resolved{Name: "first", Required: true})
	require.NoError(t, err)
	_, err = p.AddArgument(Resolved{Name: "second", Default: "fallback", HasDefault: true})
	require.NoError(t, err)

	args, err := p.Parse([]string{"one"})
	require.NoError(t, err)
	assert.Equal(t, Args{"first": "one", "second": "fallback"}, args)

	args, err = p.Parse([]string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, Args{"first": "one", "second": "two"}, args)
}

func TestParseMissingRequiredArgument(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	_, err := p.AddArgument(Resolved{Name: "needed", Required: true})
	require.NoError(t, err)

	_, err = p.Parse(nil)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Equal(t, "prog", usageErr.Prog)
	assert.Contains(t, usageErr.Message, `missing required argument "needed"`)
	assert.Contains(t, usageErr.Usage, "usage: prog")
}

func TestParseSurplusArguments(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	_, err := p.AddArgument(Resolved{Name: "only", Required: true})
	require.NoError(t, err)

	_, err = p.Parse([]string{"a", "b", "c"})
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Contains(t, usageErr.Message, "unrecognized extra arguments: b c")
}

func TestParseRestAbsorbsRemainder(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	_, err := p.AddArgument(Resolved{Name: "first", Required: true})
	require.NoError(t, err)
	_, err = p.AddArgument(Resolved{Name: "rest", Rest: true, Convert: converterFor(reflect.TypeOf(0))})
	require.NoError(t, err)

	args, err := p.Parse([]string{"go", "1", "2", "3"})
	require.NoError(t, err)
	assert.Equal(t, Args{"first": "go", "rest": []any{1, 2, 3}}, args)

	args, err = p.Parse([]string{"go"})
	require.NoError(t, err)
	assert.Equal(t, Args{"first": "go", "rest": []any{}}, args)
}

func TestParseOptions(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	_, err := p.AddOption(Resolved{Name: "mode", IsOption: true, Long: "mode", Short: "m", Default: "auto", HasDefault: true})
	require.NoError(t, err)

	t.Run("long form", func(t *testing.T) {
		t.Parallel()
		args, err := p.Parse([]string{"--mode", "fast"})
		require.NoError(t, err)
		assert.Equal(t, Args{"mode": "fast"}, args)
	})

	t.Run("short form", func(t *testing.T) {
		t.Parallel()
		args, err := p.Parse([]string{"-m", "slow"})
		require.NoError(t, err)
		assert.Equal(t, Args{"mode": "slow"}, args)
	})

	t.Run("default when absent", func(t *testing.T) {
		t.Parallel()
		args, err := p.Parse(nil)
		require.NoError(t, err)
		assert.Equal(t, Args{"mode": "auto"}, args)
	})
}

func TestParseMissingRequiredOption(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	_, err := p.AddOption(Resolved{Name: "target", IsOption: true, Long: "target", Required: true})
	require.NoError(t, err)

	_, err = p.Parse(nil)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Contains(t, usageErr.Message, "missing required option --target")
}

func TestParseBoolFlagWithoutValue(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	convert := converterFor(reflect.TypeOf(false))
	_, err := p.AddOption(Resolved{
		Name: "verbose", IsOption: true, Long: "verbose", Short: "v",
		Convert: convert, IsBool: true, Default: false, HasDefault: true,
	})
	require.NoError(t, err)

	args, err := p.Parse([]string{"--verbose"})
	require.NoError(t, err)
	assert.Equal(t, Args{"verbose": true}, args)

	args, err = p.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Args{"verbose": false}, args)
}

func TestParseUnknownFlag(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	_, err := p.Parse([]string{"--nonsense"})
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Contains(t, usageErr.Message, "nonsense")
}

func TestParseBadOptionValue(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	_, err := p.AddOption(Resolved{
		Name: "count", IsOption: true, Long: "count",
		Convert: converterFor(reflect.TypeOf(0)), Default: 0, HasDefault: true,
	})
	require.NoError(t, err)

	_, err = p.Parse([]string{"--count", "many"})
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Contains(t, usageErr.Message, `"many"`)
}

func TestParseHelp(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"-h", "--help"} {
		token := token
		t.Run(token, func(t *testing.T) {
			t.Parallel()
			p, out := newTestParser(t, ParserOptions{Name: "helper", Description: "does helpful things"})
			_, err := p.AddArgument(Resolved{Name: "thing", Help: "the thing to help with", Required: true})
			require.NoError(t, err)

			_, err = p.Parse([]string{token})
			require.ErrorIs(t, err, ErrHelp)
			assert.Contains(t, out.String(), "usage: helper")
			assert.Contains(t, out.String(), "does helpful things")
			assert.Contains(t, out.String(), "the thing to help with")
		})
	}
}

func TestParseInterspersedFlags(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	_, err := p.AddArgument(Resolved{Name: "pos", Required: true})
	require.NoError(t, err)
	_, err = p.AddOption(Resolved{Name: "flag", IsOption: true, Long: "flag", Default: "", HasDefault: true})
	require.NoError(t, err)

	args, err := p.Parse([]string{"value", "--flag", "x"})
	require.NoError(t, err)
	assert.Equal(t, Args{"pos": "value", "flag": "x"}, args)
}

func TestParseNonInterspersedMode(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{Extra: map[string]any{"interspersed": false}})
	_, err := p.AddArgument(Resolved{Name: "pos", Required: true})
	require.NoError(t, err)
	_, err = p.AddOption(Resolved{Name: "flag", IsOption: true, Long: "flag", Default: "", HasDefault: true})
	require.NoError(t, err)

	// Once parsing stops at the first positional, later flag-looking tokens
	// are plain arguments, and here they are surplus.
	_, err = p.Parse([]string{"value", "--flag", "x"})
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.Contains(t, usageErr.Message, "unrecognized extra arguments")
}

func TestParseDestKey(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	key, err := p.AddOption(Resolved{Name: "source", IsOption: true, Long: "source", Dest: "origin", Default: "here", HasDefault: true})
	require.NoError(t, err)
	assert.Equal(t, "origin", key)

	args, err := p.Parse([]string{"--source", "there"})
	require.NoError(t, err)
	assert.Equal(t, Args{"origin": "there"}, args)
}

func TestParseIsReentrant(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	_, err := p.AddOption(Resolved{Name: "n", IsOption: true, Long: "n", Convert: converterFor(reflect.TypeOf(0)), Default: 0, HasDefault: true})
	require.NoError(t, err)

	first, err := p.Parse([]string{"--n", "1"})
	require.NoError(t, err)
	second, err := p.Parse([]string{"--n", "2"})
	require.NoError(t, err)

	// Each call owns a fresh Args; earlier results are not mutated.
	assert.Equal(t, Args{"n": 1}, first)
	assert.Equal(t, Args{"n": 2}, second)
}

func TestAddOptionRequiresLongForm(t *testing.T) {
	t.Parallel()

	p, _ := newTestParser(t, ParserOptions{})
	_, err := p.AddOption(Resolved{Name: "broken", IsOption: true})
	require.Error(t, err)
}
