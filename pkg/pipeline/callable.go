// Package pipeline composes cross-cutting behavior around plain command
// functions: signature-transforming decorators, parameter-type hooks that
// synthesize option metadata, virtual options that never reach the command,
// injected invocation contexts, and an invoke-time middleware chain. The
// result of Build is a single adapter an external CLI framework can bind
// arguments against.
package pipeline

import (
	"github.com/cmdware/cmdware/pkg/sig"
)

// Body is the invokable form every callable reduces to: positional
// arguments plus keyword arguments, exactly the shape the external parser
// hands back after binding argv against a published signature.
type Body func(args []any, kwargs map[string]any) (any, error)

// Callable pairs an invokable body with the signature data the framework
// and the pipeline read. Two independent signature views are tracked: the
// original signature (every parameter as the developer wrote it) and the
// runtime signature (what the external parser should see, with context
// parameters removed and virtual ones added).
type Callable struct {
	body      Body
	published *sig.Signature // signature explicitly published for the parser
	derived   *sig.Signature // signature derived at construction, if any

	original     *sig.Signature // pre-hiding signature recorded by ApplyRuntimeView
	runtime      *sig.Signature // parser-facing signature recorded by ApplyRuntimeView
	contextNames []string
	virtualNames []string
}

// NewCallable builds a callable whose derivable signature is known.
func NewCallable(s sig.Signature, body Body) *Callable {
	derived := s
	return &Callable{body: body, derived: &derived}
}

// Opaque builds a callable with no derivable signature, the analogue of a
// non-introspectable object.
func Opaque(body Body) *Callable {
	return &Callable{body: body}
}

// Call invokes the body directly with the given arguments. No signature
// checking happens here; binding failures belong to the body itself.
func (c *Callable) Call(args []any, kwargs map[string]any) (any, error) {
	return c.body(args, kwargs)
}

// Clone returns an independent copy. Signature values are immutable, so
// only the name slices need duplication.
func (c *Callable) Clone() *Callable {
	dup := *c
	dup.contextNames = append([]string(nil), c.contextNames...)
	dup.virtualNames = append([]string(nil), c.virtualNames...)
	return &dup
}

// WithBody returns a copy of the callable whose body is replaced. All
// signature views carry over; decorators use this to wrap forwarding logic
// without touching what the parser sees.
func (c *Callable) WithBody(body Body) *Callable {
	dup := c.Clone()
	dup.body = body
	return dup
}

// SignatureOf returns the callable's introspectable signature: the
// published one when set, else the derived one. ok is false when neither
// exists.
func (c *Callable) SignatureOf() (sig.Signature, bool) {
	if c.published != nil {
		return *c.published, true
	}
	if c.derived != nil {
		return *c.derived, true
	}
	return sig.Signature{}, false
}

// SetSignature publishes a signature as the one external tools see.
func (c *Callable) SetSignature(s sig.Signature) {
	c.published = &s
}

// EnsureSignature publishes the derived signature when nothing is published
// yet. Idempotent; a callable with no derivable signature is left alone.
func (c *Callable) EnsureSignature() {
	if c.published != nil {
		return
	}
	if c.derived != nil {
		s := *c.derived
		c.published = &s
	}
}

// ExecSignature returns the signature used when resolving real call
// arguments: the recorded original when present, else whatever SignatureOf
// finds, else the empty signature.
func (c *Callable) ExecSignature() sig.Signature {
	if c.original != nil {
		return *c.original
	}
	if s, ok := c.SignatureOf(); ok {
		return s
	}
	return sig.Signature{}
}

// RuntimeSignature returns the signature the external parser should bind
// against: the recorded runtime view when present, else whatever
// SignatureOf finds, else the empty signature.
func (c *Callable) RuntimeSignature() sig.Signature {
	if c.runtime != nil {
		return *c.runtime
	}
	if s, ok := c.SignatureOf(); ok {
		return s
	}
	return sig.Signature{}
}

// ApplyRuntimeView records the original and runtime signatures along with
// the hidden context-parameter names and added virtual-parameter names,
// then publishes the runtime signature. The four writes happen together so
// argument resolution never observes a half-updated view.
func (c *Callable) ApplyRuntimeView(original, runtime sig.Signature, contextNames, virtualNames []string) {
	c.original = &original
	c.runtime = &runtime
	if len(contextNames) > 0 {
		c.contextNames = append([]string(nil), contextNames...)
	}
	if len(virtualNames) > 0 {
		c.virtualNames = append([]string(nil), virtualNames...)
	}
	c.SetSignature(runtime)
}

// ContextParamNames returns the names of parameters hidden as contexts.
func (c *Callable) ContextParamNames() []string {
	return append([]string(nil), c.contextNames...)
}

// VirtualParamNames returns the names of parameters added as virtuals.
func (c *Callable) VirtualParamNames() []string {
	return append([]string(nil), c.virtualNames...)
}

// AddVirtualParamNames appends to the recorded virtual-parameter names.
func (c *Callable) AddVirtualParamNames(names ...string) {
	c.virtualNames = append(c.virtualNames, names...)
}

// Decorator transforms a callable at registration time: it may publish a
// different signature, wrap the body with forwarding logic, or both. It
// must not change what the original call does beyond what it explicitly
// adds.
type Decorator func(*Callable) *Callable
