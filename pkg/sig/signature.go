package sig

import (
	"fmt"
	"strings"
)

// Kind classifies how a parameter accepts its argument. The set mirrors the
// calling conventions an external argument parser distinguishes between;
// plain Go functions only produce PositionalOrKeyword and VarPositional
// parameters, the others arise from hand-built signatures.
type Kind int

const (
	// PositionalOnly parameters accept arguments by position only.
	PositionalOnly Kind = iota
	// PositionalOrKeyword parameters accept arguments by position or name.
	PositionalOrKeyword
	// VarPositional collects all remaining positional arguments.
	VarPositional
	// KeywordOnly parameters accept arguments by name only.
	KeywordOnly
	// VarKeyword collects all remaining keyword arguments.
	VarKeyword
)

func (k Kind) String() string {
	switch k {
	case PositionalOnly:
		return "positional-only"
	case PositionalOrKeyword:
		return "positional-or-keyword"
	case VarPositional:
		return "var-positional"
	case KeywordOnly:
		return "keyword-only"
	case VarKeyword:
		return "var-keyword"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Positional reports whether arguments for this kind may be supplied by
// position.
func (k Kind) Positional() bool {
	return k == PositionalOnly || k == PositionalOrKeyword
}

// Param describes one parameter of a signature.
type Param struct {
	Name       string
	Kind       Kind
	Default    any  // Empty when no default was declared
	Annotation Expr // nil when unannotated
}

// HasDefault reports whether the parameter declared a default value.
func (p Param) HasDefault() bool { return !IsEmpty(p.Default) }

// WithDefault returns a copy of the parameter with the default replaced.
func (p Param) WithDefault(value any) Param {
	p.Default = value
	return p
}

// WithAnnotation returns a copy of the parameter with the annotation
// replaced.
func (p Param) WithAnnotation(annotation Expr) Param {
	p.Annotation = annotation
	return p
}

// PosOnly builds a positional-only parameter.
func PosOnly(name string, annotation Expr, defaultValue any) Param {
	return Param{Name: name, Kind: PositionalOnly, Annotation: annotation, Default: defaultValue}
}

// PosOrKw builds a positional-or-keyword parameter.
func PosOrKw(name string, annotation Expr, defaultValue any) Param {
	return Param{Name: name, Kind: PositionalOrKeyword, Annotation: annotation, Default: defaultValue}
}

// VarPos builds a var-positional parameter.
func VarPos(name string, annotation Expr) Param {
	return Param{Name: name, Kind: VarPositional, Annotation: annotation, Default: Empty}
}

// KwOnly builds a keyword-only parameter.
func KwOnly(name string, annotation Expr, defaultValue any) Param {
	return Param{Name: name, Kind: KeywordOnly, Annotation: annotation, Default: defaultValue}
}

// VarKw builds a var-keyword parameter.
func VarKw(name string, annotation Expr) Param {
	return Param{Name: name, Kind: VarKeyword, Annotation: annotation, Default: Empty}
}

// Signature is the ordered parameter list and return annotation an external
// framework binds arguments against. Signatures are immutable: every
// transform returns a new value, so two views of the same callable can never
// alias each other's parameter lists.
type Signature struct {
	params []Param
	ret    Expr
}

// New builds a signature from parameters in declaration order.
func New(params ...Param) Signature {
	return Signature{params: append([]Param(nil), params...)}
}

// Params returns a copy of the parameter list.
func (s Signature) Params() []Param {
	return append([]Param(nil), s.params...)
}

// Len returns the number of parameters.
func (s Signature) Len() int { return len(s.params) }

// Names returns the parameter names in declaration order.
func (s Signature) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// Lookup returns the parameter with the given name.
func (s Signature) Lookup(name string) (Param, bool) {
	for _, p := range s.params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Has reports whether a parameter with the given name exists.
func (s Signature) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Append returns a new signature with the parameter added at the end.
func (s Signature) Append(p Param) Signature {
	params := make([]Param, 0, len(s.params)+1)
	params = append(params, s.params...)
	params = append(params, p)
	return Signature{params: params, ret: s.ret}
}

// Remove returns a new signature without the named parameter. Removing an
// absent name returns the signature unchanged.
func (s Signature) Remove(name string) Signature {
	params := make([]Param, 0, len(s.params))
	for _, p := range s.params {
		if p.Name == name {
			continue
		}
		params = append(params, p)
	}
	return Signature{params: params, ret: s.ret}
}

// Replace returns a new signature with the named parameter substituted in
// place. Replacing an absent name returns the signature unchanged.
func (s Signature) Replace(name string, p Param) Signature {
	params := s.Params()
	for i := range params {
		if params[i].Name == name {
			params[i] = p
		}
	}
	return Signature{params: params, ret: s.ret}
}

// Return returns the return annotation, nil when absent.
func (s Signature) Return() Expr { return s.ret }

// WithReturn returns a new signature with the return annotation replaced.
func (s Signature) WithReturn(ret Expr) Signature {
	return Signature{params: s.Params(), ret: ret}
}

// Equal reports whether two signatures have the same parameters (names,
// kinds, defaults, semantically-equal annotations) and return annotation.
func (s Signature) Equal(other Signature) bool {
	if len(s.params) != len(other.params) {
		return false
	}
	for i := range s.params {
		a, b := s.params[i], other.params[i]
		if a.Name != b.Name || a.Kind != b.Kind {
			return false
		}
		if !defaultEqual(a.Default, b.Default) {
			return false
		}
		if !EqualExpr(a.Annotation, b.Annotation) {
			return false
		}
	}
	return EqualExpr(s.ret, other.ret)
}

func defaultEqual(a, b any) bool {
	if IsSentinel(a) || IsSentinel(b) {
		return a == b
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// String renders the signature the way the original declaration reads,
// marking positional-only parameters with a trailing "/", keyword-only
// parameters after a bare "*", and the variadic collectors with "*" and
// "**" prefixes.
func (s Signature) String() string {
	var b strings.Builder
	b.WriteString("(")

	lastPosOnly := -1
	for i, p := range s.params {
		if p.Kind == PositionalOnly {
			lastPosOnly = i
		}
	}

	sawStar := false
	for i, p := range s.params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Kind == KeywordOnly && !sawStar {
			b.WriteString("*, ")
			sawStar = true
		}
		switch p.Kind {
		case VarPositional:
			b.WriteString("*")
			sawStar = true
		case VarKeyword:
			b.WriteString("**")
		}
		b.WriteString(p.Name)
		if p.Annotation != nil {
			b.WriteString(" ")
			b.WriteString(p.Annotation.String())
		}
		if p.HasDefault() {
			b.WriteString(fmt.Sprintf(" = %v", p.Default))
		}
		if i == lastPosOnly {
			b.WriteString(", /")
		}
	}

	b.WriteString(")")
	if s.ret != nil {
		b.WriteString(" -> ")
		b.WriteString(s.ret.String())
	}
	return b.String()
}
