package pipeline

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmdware/cmdware/pkg/errs"
)

func TestConfigWithMethodsDoNotMutateReceiver(t *testing.T) {
	base := Config{}

	withMw := base.WithMiddleware(func(next Handler) Handler { return next })
	withDec := withMw.WithDecorator(func(c *Callable) *Callable { return c })
	withVirt := withDec.WithVirtualOption(VirtualOption{Name: "dry_run"})
	withHook := withVirt.WithParamType(reflect.TypeOf((*widget)(nil)).Elem(), nil, nil)

	assert.Empty(t, base.Middlewares)
	assert.Empty(t, base.Decorators)
	assert.Empty(t, withMw.Decorators)
	assert.Empty(t, withDec.VirtualOptions)
	assert.Empty(t, withVirt.ParamTypeHooks)

	assert.Len(t, withHook.Middlewares, 1)
	assert.Len(t, withHook.Decorators, 1)
	assert.Len(t, withHook.VirtualOptions, 1)
	assert.Len(t, withHook.ParamTypeHooks, 1)
}

func TestConfigSharedBaseIsSafe(t *testing.T) {
	base := Config{}.WithMiddleware(func(next Handler) Handler { return next })

	a := base.WithVirtualOption(VirtualOption{Name: "a"})
	b := base.WithVirtualOption(VirtualOption{Name: "b"})

	require.Len(t, a.VirtualOptions, 1)
	require.Len(t, b.VirtualOptions, 1)
	assert.Equal(t, "a", a.VirtualOptions[0].Name)
	assert.Equal(t, "b", b.VirtualOptions[0].Name)
}

func TestConfigPipelineMaterializes(t *testing.T) {
	var order []string
	cfg := Config{}.
		WithMiddleware(func(next Handler) Handler {
			return func(inv *Invocation) (any, error) {
				order = append(order, "mw")
				return next(inv)
			}
		}).
		WithVirtualOption(VirtualOption{Name: "dry_run"})

	p, err := cfg.Pipeline()
	require.NoError(t, err)

	adapter, err := p.BuildFunc(func() { order = append(order, "call") }, nil, "cmd")
	require.NoError(t, err)
	assert.Equal(t, []string{"dry_run"}, adapter.Signature().Names())

	_, err = adapter.Call(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mw", "call"}, order)
}

func TestConfigPipelineRejectsDuplicateVirtuals(t *testing.T) {
	cfg := Config{}.
		WithVirtualOption(VirtualOption{Name: "dry_run"}).
		WithVirtualOption(VirtualOption{Name: "dry_run"})

	_, err := cfg.Pipeline()
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.ErrConfig))
}

func TestConfigMerge(t *testing.T) {
	factoryA := InvocationFactory(NewInvocation)
	factoryB := func(original, target *Callable, env Environment, call Call, state map[string]any) *Invocation {
		inv := NewInvocation(original, target, env, call, state)
		inv.State["b"] = true
		return inv
	}

	a := Config{}.
		WithMiddleware(func(next Handler) Handler { return next }).
		WithVirtualOption(VirtualOption{Name: "a"}).
		WithInvocationFactory(factoryA)
	b := Config{}.
		WithMiddleware(func(next Handler) Handler { return next }).
		WithVirtualOption(VirtualOption{Name: "b"}).
		WithInvocationFactory(factoryB)

	merged := a.Merge(b)
	assert.Len(t, merged.Middlewares, 2)
	require.Len(t, merged.VirtualOptions, 2)
	assert.Equal(t, "a", merged.VirtualOptions[0].Name)
	assert.Equal(t, "b", merged.VirtualOptions[1].Name)

	// The other config's factory wins.
	var state map[string]any
	p, err := merged.WithMiddleware(func(next Handler) Handler {
		return func(inv *Invocation) (any, error) {
			state = inv.State
			return next(inv)
		}
	}).Pipeline()
	require.NoError(t, err)
	adapter, err := p.BuildFunc(func() {}, nil, "cmd")
	require.NoError(t, err)

	_, err = adapter.Call(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, true, state["b"])
}

func TestConfigMergeKeepsFactoryWhenOtherUnset(t *testing.T) {
	called := false
	a := Config{}.WithInvocationFactory(func(original, target *Callable, env Environment, call Call, state map[string]any) *Invocation {
		called = true
		return NewInvocation(original, target, env, call, state)
	})

	merged := a.Merge(Config{})
	p, err := merged.Pipeline()
	require.NoError(t, err)
	adapter, err := p.BuildFunc(func() {}, nil, "cmd")
	require.NoError(t, err)

	_, err = adapter.Call(nil, nil)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestConfigInjectExternalContext(t *testing.T) {
	p, err := Config{}.InjectExternalContext().Pipeline()
	require.NoError(t, err)

	adapter, err := p.BuildFunc(func(name string) {}, nil, "cmd", "name")
	require.NoError(t, err)

	names := adapter.Signature().Names()
	require.Equal(t, []string{"ctx", "name"}, names)
	ctxParam, _ := adapter.Signature().Lookup("ctx")
	assert.True(t, IsExternalContextParam(ctxParam))
}
