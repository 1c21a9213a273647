package pipeline

import (
	"github.com/cmdware/cmdware/pkg/sig"
)

// Environment describes where an invocation runs: the owning application,
// the command name when known, and the external framework's execution
// context when one was available. Immutable; derive copies instead of
// mutating.
type Environment struct {
	App      any
	Name     string
	External any
}

// WithExternal returns a copy updated with a different external context.
func (e Environment) WithExternal(external any) Environment {
	e.External = external
	return e
}

// Call holds the arguments the parser resolved for the current invocation.
// Treat it as immutable; Clone before modifying.
type Call struct {
	Args   []any
	Kwargs map[string]any
}

// Clone returns a deep copy of the call.
func (c Call) Clone() Call {
	dup := Call{
		Args:   append([]any(nil), c.Args...),
		Kwargs: make(map[string]any, len(c.Kwargs)),
	}
	for k, v := range c.Kwargs {
		dup.Kwargs[k] = v
	}
	return dup
}

// WithArgs returns a copy of the call with the positional arguments
// replaced.
func (c Call) WithArgs(args ...any) Call {
	dup := c.Clone()
	dup.Args = append([]any(nil), args...)
	return dup
}

// WithKwargs returns a copy of the call with the keyword arguments
// replaced.
func (c Call) WithKwargs(kwargs map[string]any) Call {
	dup := c.Clone()
	dup.Kwargs = make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		dup.Kwargs[k] = v
	}
	return dup
}

// Invocation is the per-call value threaded through the middleware chain.
//
//   - Original: the command function as the developer supplied it
//   - Target: the decorated callable whose signature the parser inspected
//   - Environment: app, command name, external context
//   - Call: arguments the parser resolved against the runtime signature
//   - State: scratch space shared across middleware for this call
type Invocation struct {
	Original    *Callable
	Target      *Callable
	Environment Environment
	Call        Call
	State       map[string]any

	ctx *Context
}

// NewInvocation builds an invocation. A nil state map is replaced with a
// fresh one.
func NewInvocation(original, target *Callable, env Environment, call Call, state map[string]any) *Invocation {
	if state == nil {
		state = make(map[string]any)
	}
	return &Invocation{
		Original:    original,
		Target:      target,
		Environment: env,
		Call:        call,
		State:       state,
	}
}

// App returns the owning application handle.
func (inv *Invocation) App() any { return inv.Environment.App }

// Name returns the command name, empty when unknown.
func (inv *Invocation) Name() string { return inv.Environment.Name }

// External returns the framework execution context, nil when none was
// available.
func (inv *Invocation) External() any { return inv.Environment.External }

// Args returns the positional arguments the parser resolved.
func (inv *Invocation) Args() []any { return inv.Call.Args }

// Kwargs returns the keyword arguments the parser resolved.
func (inv *Invocation) Kwargs() map[string]any { return inv.Call.Kwargs }

// Context returns the read-only facade handed to commands that declare a
// context parameter. The facade is created lazily and exactly once per
// invocation; repeated calls return the identical instance.
func (inv *Invocation) Context() *Context {
	if inv.ctx == nil {
		inv.ctx = &Context{inv: inv}
	}
	return inv.ctx
}

// InvokeTarget reconstructs the original call shape from the parser's
// arguments and invokes the target. Resolution itself never fails; a
// missing required parameter surfaces as the ordinary binding failure the
// underlying function produces.
func (inv *Invocation) InvokeTarget() (any, error) {
	args, kwargs := inv.resolveArguments()
	return inv.Target.Call(args, kwargs)
}

// resolveArguments walks the target's original signature in declaration
// order, reconciling three parameter categories: normal user parameters,
// hidden context parameters (re-injected here), and hidden virtual
// parameters (never forwarded). The incoming arguments were bound against
// the reduced runtime signature, so positional slots are consumed through a
// cursor while keyword matches are taken by name.
func (inv *Invocation) resolveArguments() ([]any, map[string]any) {
	execSig := inv.Target.ExecSignature()
	contextNames := nameSet(inv.Target.ContextParamNames())
	virtualNames := nameSet(inv.Target.VirtualParamNames())

	// Virtual parameters must never reach the function as keywords.
	pending := make(map[string]any, len(inv.Call.Kwargs))
	for k, v := range inv.Call.Kwargs {
		if virtualNames[k] {
			continue
		}
		pending[k] = v
	}

	incoming := inv.Call.Args
	cursor := 0
	var outArgs []any
	outKwargs := make(map[string]any)

	for _, p := range execSig.Params() {
		switch {
		case contextNames[p.Name]:
			if p.Kind.Positional() {
				outArgs = append(outArgs, inv.Context())
			} else {
				outKwargs[p.Name] = inv.Context()
			}

		case virtualNames[p.Name]:
			// Placeholder slot only; skip a pending positional if one
			// lines up with it.
			if cursor < len(incoming) {
				cursor++
			}

		case p.Kind == sig.VarPositional:
			outArgs = append(outArgs, incoming[cursor:]...)
			cursor = len(incoming)

		case p.Kind == sig.VarKeyword:
			for k, v := range pending {
				outKwargs[k] = v
			}
			pending = make(map[string]any)

		case p.Kind == sig.KeywordOnly:
			if v, ok := pending[p.Name]; ok {
				outKwargs[p.Name] = v
				delete(pending, p.Name)
			}

		default:
			// Positional-only or positional-or-keyword: a keyword match by
			// name wins, then the next positional, else the function's own
			// default applies.
			if v, ok := pending[p.Name]; ok {
				outKwargs[p.Name] = v
				delete(pending, p.Name)
			} else if cursor < len(incoming) {
				outArgs = append(outArgs, incoming[cursor])
				cursor++
			}
		}
	}

	// Unconsumed keywords are forwarded rather than silently dropped.
	for k, v := range pending {
		outKwargs[k] = v
	}

	return outArgs, outKwargs
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// Context is the read-only view of an invocation handed to command
// functions. It exposes the environment, the resolved arguments, and the
// shared state map without allowing the environment or call to be swapped.
type Context struct {
	inv *Invocation
}

// CommandContext is an alias kept for callers that prefer the longer name
// in their signatures; annotation detection treats both identically.
type CommandContext = Context

// App returns the owning application handle.
func (c *Context) App() any { return c.inv.App() }

// Name returns the command name, empty when unknown.
func (c *Context) Name() string { return c.inv.Name() }

// External returns the framework execution context, nil when unavailable.
func (c *Context) External() any { return c.inv.External() }

// State returns the invocation's shared mutable state map.
func (c *Context) State() map[string]any { return c.inv.State }

// Args returns the positional arguments the parser resolved.
func (c *Context) Args() []any { return c.inv.Args() }

// Kwargs returns the keyword arguments the parser resolved.
func (c *Context) Kwargs() map[string]any { return c.inv.Kwargs() }

// GetState reads a state key, returning fallback when the key is absent.
func (c *Context) GetState(key string, fallback any) any {
	if v, ok := c.inv.State[key]; ok {
		return v
	}
	return fallback
}

// Handler consumes an invocation and produces the command's result.
type Handler func(*Invocation) (any, error)

// Middleware transforms a next handler into a new handler, composing
// pre/post behavior around the command call.
type Middleware func(next Handler) Handler

// InvocationFactory creates the Invocation dispatched through the
// middleware chain; replaceable for callers that subclass the invocation
// with extra state.
type InvocationFactory func(original, target *Callable, env Environment, call Call, state map[string]any) *Invocation
