package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmdware/cmdware/pkg/errs"
	"github.com/cmdware/cmdware/pkg/sig"
)

func TestFuncDerivesSignature(t *testing.T) {
	c, err := Func(func(name string, count int) string { return "" }, "name", "count")
	require.NoError(t, err)

	s, ok := c.SignatureOf()
	require.True(t, ok)
	require.Equal(t, []string{"name", "count"}, s.Names())

	name, _ := s.Lookup("name")
	assert.Equal(t, sig.PositionalOrKeyword, name.Kind)
	assert.False(t, name.HasDefault())
	base, ok := sig.ViewOf(name.Annotation).BaseType()
	require.True(t, ok)
	assert.Equal(t, "string", base.String())

	ret, ok := sig.ViewOf(s.Return()).BaseType()
	require.True(t, ok)
	assert.Equal(t, "string", ret.String())
}

func TestFuncSynthesizesMissingNames(t *testing.T) {
	c, err := Func(func(a, b, c int) {}, "first")
	require.NoError(t, err)

	s, _ := c.SignatureOf()
	assert.Equal(t, []string{"first", "arg1", "arg2"}, s.Names())
}

func TestFuncVariadic(t *testing.T) {
	c, err := Func(func(prefix string, rest ...int) int { return 0 }, "prefix", "rest")
	require.NoError(t, err)

	s, _ := c.SignatureOf()
	rest, ok := s.Lookup("rest")
	require.True(t, ok)
	assert.Equal(t, sig.VarPositional, rest.Kind)
	base, _ := sig.ViewOf(rest.Annotation).BaseType()
	assert.Equal(t, "int", base.String())
}

func TestFuncErrorOnlyReturnHasNoAnnotation(t *testing.T) {
	c, err := Func(func() error { return nil })
	require.NoError(t, err)

	s, _ := c.SignatureOf()
	assert.Nil(t, s.Return())
}

func TestFuncRejectsInvalidShapes(t *testing.T) {
	_, err := Func("not a function")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrConfig))

	_, err = Func(func() (int, int, int) { return 0, 0, 0 })
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrConfig))

	_, err = Func(func() (int, string) { return 0, "" })
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrConfig))
}

func TestFuncCallPositionalAndKeyword(t *testing.T) {
	c, err := Func(func(name string, count int) string {
		out := ""
		for i := 0; i < count; i++ {
			out += name
		}
		return out
	}, "name", "count")
	require.NoError(t, err)

	result, err := c.Call([]any{"ab", 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, "abab", result)

	// Keyword matches win over positional order.
	result, err = c.Call([]any{3}, map[string]any{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, "xxx", result)
}

func TestFuncCallVariadic(t *testing.T) {
	c, err := Func(func(base int, more ...int) int {
		for _, m := range more {
			base += m
		}
		return base
	}, "base", "more")
	require.NoError(t, err)

	result, err := c.Call([]any{1, 2, 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, result)

	result, err = c.Call([]any{1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result)
}

func TestFuncCallReturnsFunctionError(t *testing.T) {
	boom := errors.New("boom")
	c, err := Func(func() (string, error) { return "partial", boom })
	require.NoError(t, err)

	result, err := c.Call(nil, nil)
	assert.Equal(t, "partial", result)
	assert.Equal(t, boom, err)
}

func TestFuncCallMissingArgument(t *testing.T) {
	c, err := Func(func(name string) {}, "name")
	require.NoError(t, err)

	_, err = c.Call(nil, nil)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrBind))
	assert.Contains(t, err.Error(), "name")
}

func TestFuncCallUnexpectedKeyword(t *testing.T) {
	c, err := Func(func(name string) {}, "name")
	require.NoError(t, err)

	_, err = c.Call([]any{"x"}, map[string]any{"stray": 1})
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrBind))
	assert.Contains(t, err.Error(), "stray")
}

func TestFuncCallCoercion(t *testing.T) {
	c, err := Func(func(logger *struct{ N int }, n int64) int64 {
		if logger == nil {
			return n
		}
		return n + int64(logger.N)
	}, "logger", "n")
	require.NoError(t, err)

	// nil is accepted for nilable parameter types.
	result, err := c.Call([]any{nil, int(7)}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result)

	// Incompatible values fail with a binding error.
	_, err = c.Call([]any{nil, "seven"}, nil)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrBind))
}

func TestMustFuncPanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustFunc(42) })
	assert.NotPanics(t, func() { MustFunc(func() {}) })
}
