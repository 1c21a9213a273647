package pipeline

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cmdware/cmdware/pkg/errs"
	"github.com/cmdware/cmdware/pkg/logging"
	"github.com/cmdware/cmdware/pkg/sig"
	"github.com/cmdware/cmdware/pkg/verbosity"
)

// VirtualOption configures an option exposed to the external parser but
// never forwarded to the command function; its resolved value is recorded
// into invocation state instead. Virtual options are keyword-only by
// construction, so a positional virtual cannot be registered.
type VirtualOption struct {
	// Name is the parameter name, unique within a pipeline.
	Name string

	// Option is the descriptor shown to the parser. Nil synthesizes a
	// boolean flag named after the option.
	Option *sig.Option

	// Type annotates the synthesized parameter. Nil means bool.
	Type sig.Expr

	// Default backs the synthesized option when Option is nil.
	Default any

	// StateKey names the state entry recording the resolved value. Empty
	// defaults to "virtual:<name>".
	StateKey string

	// Transient suppresses state recording entirely.
	Transient bool
}

// virtualParam is the registered form of a VirtualOption.
type virtualParam struct {
	name         string
	param        sig.Param
	stateKey     string // empty when transient
	defaultValue any
}

func defaultVirtualOption(name string, defaultValue any) *sig.Option {
	if defaultValue == nil {
		defaultValue = false
	}
	flag := "--" + strings.ReplaceAll(name, "_", "-")
	opt := sig.NewOption(defaultValue, flag)
	opt.Help = fmt.Sprintf("Enable %s.", strings.ReplaceAll(name, "_", " "))
	opt.ShowDefault = true
	return opt
}

// Pipeline is the command middleware composition engine.
//
//   - Decorators reshape the signature the external parser inspects.
//   - Middleware wraps invoke-time behavior (pre/post).
//   - Param-type hooks enrich or backfill option metadata.
//   - Virtual options add parser-only flags recorded into state.
//
// Configuration is append-only; Build snapshots the current configuration,
// so an adapter is unaffected by registrations made after it was built.
type Pipeline struct {
	decorators  []Decorator
	middlewares []Middleware
	paramHooks  []paramTypeHook
	virtuals    []virtualParam
	factory     InvocationFactory
	lookup      ExternalLookup
}

// New creates an empty pipeline with the default invocation factory.
func New() *Pipeline {
	return &Pipeline{factory: NewInvocation}
}

// Use appends invoke-time middleware. The first middleware registered runs
// outermost: its pre logic first, its post logic last.
func (p *Pipeline) Use(mw Middleware) *Pipeline {
	p.middlewares = append(p.middlewares, mw)
	return p
}

// AddMiddleware is an alias for Use.
func (p *Pipeline) AddMiddleware(mw Middleware) *Pipeline {
	return p.Use(mw)
}

// UseDecorator appends a registration-time signature decorator. Decorators
// apply in registration order, each receiving the previous result.
func (p *Pipeline) UseDecorator(d Decorator) *Pipeline {
	p.decorators = append(p.decorators, d)
	return p
}

// AddSignatureTransform is an alias for UseDecorator.
func (p *Pipeline) AddSignatureTransform(d Decorator) *Pipeline {
	return p.UseDecorator(d)
}

// SetInvocationFactory swaps the factory constructing invocations. A nil
// factory restores the default.
func (p *Pipeline) SetInvocationFactory(f InvocationFactory) *Pipeline {
	if f == nil {
		f = NewInvocation
	}
	p.factory = f
	return p
}

// SetExternalLookup overrides the ambient external-context lookup for
// adapters built from this pipeline. A nil lookup restores the
// process-wide default.
func (p *Pipeline) SetExternalLookup(lookup ExternalLookup) *Pipeline {
	p.lookup = lookup
	return p
}

// RegisterParamType installs a hook that amends every parameter of the
// target type with option metadata and, when missing, a fallback parser.
// Matching covers type identity, assignability, and interface
// implementation.
func (p *Pipeline) RegisterParamType(target reflect.Type, optionFactory OptionFactory, parserFactory ParserFactory) *Pipeline {
	p.paramHooks = append(p.paramHooks, paramTypeHook{
		target:        target,
		optionFactory: optionFactory,
		parserFactory: parserFactory,
	})
	return p
}

// AddVirtualOption registers a parser-only option. Registering a duplicate
// name fails immediately.
func (p *Pipeline) AddVirtualOption(v VirtualOption) error {
	for _, existing := range p.virtuals {
		if existing.name == v.Name {
			return errs.New(errs.ErrConfig,
				fmt.Sprintf("Virtual option '%s' is already registered", v.Name),
				"Pick a unique name per pipeline.")
		}
	}

	option := v.Option
	if option == nil {
		option = defaultVirtualOption(v.Name, v.Default)
	}

	annotation := v.Type
	if annotation == nil {
		annotation = sig.TypeOf[bool]()
	}

	stateKey := ""
	if !v.Transient {
		stateKey = v.StateKey
		if stateKey == "" {
			stateKey = "virtual:" + v.Name
		}
	}

	p.virtuals = append(p.virtuals, virtualParam{
		name:         v.Name,
		param:        sig.KwOnly(v.Name, sig.Annotated(annotation, option), option.Default),
		stateKey:     stateKey,
		defaultValue: option.Default,
	})
	return nil
}

// EnableLogger registers the logger param-type hook: parameters typed as
// logging.Logger gain a --verbose/-v counting option backed by the
// verbosity parser.
func (p *Pipeline) EnableLogger() *Pipeline {
	return p.EnableLoggerWith(nil, nil)
}

// EnableLoggerWith is EnableLogger with the option and parser factories
// replaced. Nil factories fall back to the defaults.
func (p *Pipeline) EnableLoggerWith(optionFactory OptionFactory, parserFactory ParserFactory) *Pipeline {
	if optionFactory == nil {
		optionFactory = defaultLoggerOption
	}
	if parserFactory == nil {
		parserFactory = func() sig.Parser { return verbosity.NewLoggerParser() }
	}
	return p.RegisterParamType(loggerParamType(), optionFactory, parserFactory)
}

func loggerParamType() reflect.Type {
	return reflect.TypeOf((*logging.Logger)(nil)).Elem()
}

func defaultLoggerOption(sig.Param) *sig.Option {
	opt := sig.NewOption(sig.Required, "--verbose", "-v")
	opt.Count = true
	opt.Help = "Increase log verbosity (repeat for more detail)."
	return opt
}

// InjectExternalContext registers a decorator ensuring commands expose a
// parameter bound to the framework's execution context.
func (p *Pipeline) InjectExternalContext() *Pipeline {
	return p.UseDecorator(EnsureExternalContextParam)
}

// BeforeInvoke registers a callback that runs before each command
// invocation.
func (p *Pipeline) BeforeInvoke(fn func(*Invocation)) *Pipeline {
	return p.Use(func(next Handler) Handler {
		return func(inv *Invocation) (any, error) {
			fn(inv)
			return next(inv)
		}
	})
}

// AfterInvoke registers a callback that runs after each successful command
// invocation with the command's result.
func (p *Pipeline) AfterInvoke(fn func(*Invocation, any)) *Pipeline {
	return p.Use(func(next Handler) Handler {
		return func(inv *Invocation) (any, error) {
			result, err := next(inv)
			if err != nil {
				return result, err
			}
			fn(inv, result)
			return result, nil
		}
	})
}

// contextSentinels are the forward-reference names recognized as the
// invocation-context type.
var contextSentinels = map[string]bool{
	"Context":           true,
	"InvocationContext": true,
	"CommandContext":    true,
}

var contextType = reflect.TypeOf((*Context)(nil)).Elem()

func isContextAnnotation(annotation sig.Expr) bool {
	view := sig.ViewOf(annotation)
	if base, ok := view.BaseType(); ok {
		return base == contextType || base == reflect.PointerTo(contextType)
	}
	if name, ok := view.BaseName(); ok {
		return contextSentinels[name]
	}
	return false
}

// applyVirtualParams appends each virtual's synthetic parameter to the
// published signature, skipping names that already exist.
func applyVirtualParams(c *Callable, virtuals []virtualParam) *Callable {
	if len(virtuals) == 0 {
		return c
	}
	s, ok := c.SignatureOf()
	if !ok {
		s = sig.Signature{}
	}

	var added []string
	for _, v := range virtuals {
		if s.Has(v.name) {
			continue
		}
		s = s.Append(v.param)
		added = append(added, v.name)
	}
	if len(added) == 0 {
		return c
	}

	c.SetSignature(s)
	c.AddVirtualParamNames(added...)
	return c
}

// hideContextParams removes context-annotated parameters from the published
// signature while recording their names and the pre-removal signature.
// Idempotent: a callable that already recorded context names is left
// untouched.
func hideContextParams(c *Callable) *Callable {
	if len(c.ContextParamNames()) > 0 {
		return c
	}
	s, ok := c.SignatureOf()
	if !ok {
		return c
	}

	var hidden []string
	runtime := s
	for _, p := range s.Params() {
		if isContextAnnotation(p.Annotation) {
			hidden = append(hidden, p.Name)
			runtime = runtime.Remove(p.Name)
		}
	}
	if len(hidden) == 0 {
		return c
	}

	c.ApplyRuntimeView(s, runtime, hidden, nil)
	return c
}

// Adapter is the callable produced by Build: its published signature is
// the fully-transformed runtime signature, and calling it constructs an
// Invocation and dispatches it through the middleware chain.
type Adapter struct {
	original *Callable
	target   *Callable
	handler  Handler
	virtuals []virtualParam
	factory  InvocationFactory
	lookup   ExternalLookup
	app      any
	name     string
}

// Build composes the pipeline around a command callable and returns the
// adapter to register with the external framework. The stages run in a
// fixed order: decorators, param-type hooks, virtual-option injection,
// context-parameter hiding, then the middleware chain composition.
func (p *Pipeline) Build(c *Callable, app any, name string) (*Adapter, error) {
	original := c

	decorated := c.Clone()
	for _, d := range p.decorators {
		decorated = d(decorated)
	}

	for _, hook := range p.paramHooks {
		next, err := hook.apply(decorated)
		if err != nil {
			return nil, err
		}
		decorated = next
	}

	virtuals := append([]virtualParam(nil), p.virtuals...)
	decorated = applyVirtualParams(decorated, virtuals)
	decorated = hideContextParams(decorated)
	decorated.EnsureSignature()

	// Base handler performs argument resolution and the actual call.
	handler := Handler(func(inv *Invocation) (any, error) {
		return inv.InvokeTarget()
	})
	// Compose so the first-registered middleware ends up outermost.
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		handler = p.middlewares[i](handler)
	}

	return &Adapter{
		original: original,
		target:   decorated,
		handler:  handler,
		virtuals: virtuals,
		factory:  p.factory,
		lookup:   p.lookup,
		app:      app,
		name:     name,
	}, nil
}

// BuildFunc lifts a plain Go function and builds it in one step. The names
// list supplies parameter names in order.
func (p *Pipeline) BuildFunc(fn any, app any, name string, names ...string) (*Adapter, error) {
	c, err := Func(fn, names...)
	if err != nil {
		return nil, err
	}
	return p.Build(c, app, name)
}

// Signature returns the runtime signature the external parser should bind
// against.
func (a *Adapter) Signature() sig.Signature {
	return a.target.RuntimeSignature()
}

// Target returns the decorated callable backing the adapter.
func (a *Adapter) Target() *Callable { return a.target }

// Original returns the command callable as the developer supplied it.
func (a *Adapter) Original() *Callable { return a.original }

// Name returns the command name the adapter was built for.
func (a *Adapter) Name() string { return a.name }

// Call invokes the adapter with arguments bound against its runtime
// signature, exactly as the external framework would.
func (a *Adapter) Call(args []any, kwargs map[string]any) (any, error) {
	external := lookupExternal(a.lookup)
	env := Environment{App: a.app, Name: a.name, External: external}
	call := Call{Args: args, Kwargs: kwargs}.Clone()

	inv := a.factory(a.original, a.target, env, call, nil)

	for _, v := range a.virtuals {
		if v.stateKey == "" {
			continue
		}
		value, ok := inv.Call.Kwargs[v.name]
		if !ok {
			value = v.defaultValue
		}
		if sig.IsSentinel(value) {
			value = nil
		}
		inv.State[v.stateKey] = value
	}

	return a.handler(inv)
}

// EnsureExternalContextParam is the decorator InjectExternalContext
// registers: when no parameter already carries the external-context
// annotation, one is prepended to the published signature and stripped
// again before the inner body runs.
func EnsureExternalContextParam(c *Callable) *Callable {
	s, ok := c.SignatureOf()
	if ok {
		for _, p := range s.Params() {
			if IsExternalContextParam(p) {
				return c
			}
		}
	}

	inner := c
	wrapped := c.WithBody(func(args []any, kwargs map[string]any) (any, error) {
		if _, ok := kwargs["ctx"]; ok {
			trimmed := make(map[string]any, len(kwargs))
			for k, v := range kwargs {
				if k == "ctx" {
					continue
				}
				trimmed[k] = v
			}
			kwargs = trimmed
		} else if len(args) > 0 {
			args = args[1:]
		}
		return inner.Call(args, kwargs)
	})

	params := append([]sig.Param{sig.PosOrKw("ctx", externalContextAnnotation, sig.Empty)}, s.Params()...)
	wrapped.SetSignature(sig.New(params...).WithReturn(s.Return()))
	return wrapped
}

// externalContextAnnotation marks a parameter bound to the framework's own
// execution context (for cobra, the *cobra.Command). The pipeline stays
// framework-agnostic, so the annotation is a forward reference by name.
var externalContextAnnotation = sig.Named("ExternalContext")

// IsExternalContextParam reports whether a parameter should receive the
// framework execution context. Binders consult this when mapping the
// runtime signature onto framework arguments.
func IsExternalContextParam(p sig.Param) bool {
	view := sig.ViewOf(p.Annotation)
	if name, ok := view.BaseName(); ok && name == "ExternalContext" {
		return true
	}
	return p.Name == "ctx" && p.Annotation == nil
}
