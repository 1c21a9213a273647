package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmdware/cmdware/pkg/sig"
)

// recordingCallable captures the exact arguments the body receives.
type recording struct {
	args   []any
	kwargs map[string]any
}

func recordingCallable(s sig.Signature, rec *recording) *Callable {
	return NewCallable(s, func(args []any, kwargs map[string]any) (any, error) {
		rec.args = args
		rec.kwargs = kwargs
		return "done", nil
	})
}

func TestCallCloneIsDeep(t *testing.T) {
	call := Call{Args: []any{1, 2}, Kwargs: map[string]any{"a": 1}}
	dup := call.Clone()

	dup.Args[0] = 99
	dup.Kwargs["a"] = 99

	assert.Equal(t, []any{1, 2}, call.Args)
	assert.Equal(t, map[string]any{"a": 1}, call.Kwargs)
}

func TestCallWithArgsAndKwargs(t *testing.T) {
	call := Call{Args: []any{1}, Kwargs: map[string]any{"a": 1}}

	rebound := call.WithArgs(7, 8)
	assert.Equal(t, []any{7, 8}, rebound.Args)
	assert.Equal(t, map[string]any{"a": 1}, rebound.Kwargs)
	assert.Equal(t, []any{1}, call.Args)

	rekeyed := call.WithKwargs(map[string]any{"b": 2})
	assert.Equal(t, map[string]any{"b": 2}, rekeyed.Kwargs)
	assert.Equal(t, map[string]any{"a": 1}, call.Kwargs)
}

func TestEnvironmentWithExternal(t *testing.T) {
	env := Environment{App: "app", Name: "greet"}
	updated := env.WithExternal("cmd")

	assert.Nil(t, env.External)
	assert.Equal(t, "cmd", updated.External)
	assert.Equal(t, "app", updated.App)
}

func TestInvocationAccessors(t *testing.T) {
	c := Opaque(noopBody)
	env := Environment{App: "app", Name: "greet", External: "cmd"}
	call := Call{Args: []any{1}, Kwargs: map[string]any{"a": 2}}

	inv := NewInvocation(c, c, env, call, nil)

	assert.Equal(t, "app", inv.App())
	assert.Equal(t, "greet", inv.Name())
	assert.Equal(t, "cmd", inv.External())
	assert.Equal(t, []any{1}, inv.Args())
	assert.Equal(t, map[string]any{"a": 2}, inv.Kwargs())
	assert.NotNil(t, inv.State, "nil state map is replaced")
}

func TestInvocationContextIdentity(t *testing.T) {
	c := Opaque(noopBody)
	inv := NewInvocation(c, c, Environment{}, Call{}, nil)

	first := inv.Context()
	second := inv.Context()
	assert.Same(t, first, second)
}

func TestContextFacade(t *testing.T) {
	c := Opaque(noopBody)
	env := Environment{App: "app", Name: "greet", External: "cmd"}
	call := Call{Args: []any{1}, Kwargs: map[string]any{"a": 2}}
	state := map[string]any{"k": "v"}

	ctx := NewInvocation(c, c, env, call, state).Context()

	assert.Equal(t, "app", ctx.App())
	assert.Equal(t, "greet", ctx.Name())
	assert.Equal(t, "cmd", ctx.External())
	assert.Equal(t, []any{1}, ctx.Args())
	assert.Equal(t, map[string]any{"a": 2}, ctx.Kwargs())
	assert.Equal(t, "v", ctx.GetState("k", nil))
	assert.Equal(t, "fallback", ctx.GetState("missing", "fallback"))

	ctx.State()["k2"] = "v2"
	assert.Equal(t, "v2", state["k2"], "state map is shared, not copied")
}

func TestInvokeTargetMixedKinds(t *testing.T) {
	// A signature exercising every parameter kind at once, with a hidden
	// context parameter and a virtual option layered on top.
	s := sig.New(
		sig.PosOrKw("ctx", sig.Named("Context"), sig.Empty),
		sig.PosOnly("a", sig.TypeOf[int](), sig.Empty),
		sig.PosOrKw("b", sig.TypeOf[int](), sig.Empty),
		sig.VarPos("args", sig.TypeOf[int]()),
		sig.KwOnly("kwonly", sig.TypeOf[int](), sig.Empty),
		sig.KwOnly("virt", sig.TypeOf[bool](), false),
		sig.VarKw("kwargs", nil),
	)

	var rec recording
	target := recordingCallable(s, &rec)
	target.ApplyRuntimeView(s, s.Remove("ctx").Remove("virt"), []string{"ctx"}, []string{"virt"})

	call := Call{
		Args:   []any{10, 20, 30},
		Kwargs: map[string]any{"kwonly": 40, "virt": true, "xtra": 50},
	}
	inv := NewInvocation(target, target, Environment{}, call, nil)

	result, err := inv.InvokeTarget()
	require.NoError(t, err)
	assert.Equal(t, "done", result)

	require.Len(t, rec.args, 4)
	assert.Same(t, inv.Context(), rec.args[0], "context is re-injected positionally")
	assert.Equal(t, []any{10, 20, 30}, rec.args[1:])
	assert.Equal(t, map[string]any{"kwonly": 40, "xtra": 50}, rec.kwargs,
		"virtual keyword is never forwarded")
}

func TestInvokeTargetKeywordContext(t *testing.T) {
	s := sig.New(
		sig.PosOrKw("name", sig.TypeOf[string](), sig.Empty),
		sig.KwOnly("ctx", sig.Named("Context"), sig.Empty),
	)

	var rec recording
	target := recordingCallable(s, &rec)
	target.ApplyRuntimeView(s, s.Remove("ctx"), []string{"ctx"}, nil)

	inv := NewInvocation(target, target, Environment{}, Call{Args: []any{"alice"}}, nil)
	_, err := inv.InvokeTarget()
	require.NoError(t, err)

	assert.Equal(t, []any{"alice"}, rec.args)
	assert.Same(t, inv.Context(), rec.kwargs["ctx"], "keyword-only context arrives by name")
}

func TestInvokeTargetKeywordWinsOverPositional(t *testing.T) {
	s := sig.New(
		sig.PosOrKw("a", sig.TypeOf[int](), sig.Empty),
		sig.PosOrKw("b", sig.TypeOf[int](), sig.Empty),
	)

	var rec recording
	target := recordingCallable(s, &rec)

	call := Call{Args: []any{1}, Kwargs: map[string]any{"a": 99}}
	_, err := NewInvocation(target, target, Environment{}, call, nil).InvokeTarget()
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"a": 99}, rec.kwargs)
	assert.Equal(t, []any{1}, rec.args, "positional cursor still feeds the next parameter")
}

func TestInvokeTargetForwardsLeftoverKwargs(t *testing.T) {
	s := sig.New(sig.PosOrKw("a", nil, sig.Empty))

	var rec recording
	target := recordingCallable(s, &rec)

	call := Call{Args: []any{1}, Kwargs: map[string]any{"stray": 2}}
	_, err := NewInvocation(target, target, Environment{}, call, nil).InvokeTarget()
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"stray": 2}, rec.kwargs,
		"unconsumed keywords are forwarded for the callee to reject")
}
