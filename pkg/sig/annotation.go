// Package sig models function signatures as first-class data: parameters
// with names, kinds, defaults, and annotations, plus the annotation
// expressions an external CLI framework reads to synthesize options. Go
// functions carry none of this at runtime, so the signature a framework
// binds against is an explicit immutable value rather than reflected
// metadata.
package sig

import (
	"fmt"
	"reflect"
	"strings"
)

// Expr is a parameter annotation expression: a concrete type, a union of
// alternatives, an optional wrapper, a metadata envelope, or a forward
// reference by name. A nil Expr means the parameter is unannotated.
type Expr interface {
	isExpr()
	String() string
}

// TypeExpr annotates a parameter with a concrete Go type. Pointer types are
// read as "optional element type" when decomposed.
type TypeExpr struct {
	Type reflect.Type
}

// UnionExpr annotates a parameter with a set of alternative types, order
// preserved. A None member makes the union optional.
type UnionExpr struct {
	Members []Expr
}

// OptionalExpr marks its element as optional.
type OptionalExpr struct {
	Elem Expr
}

// MetaExpr wraps an annotation with auxiliary metadata items. The first
// *Option item is the parameter's option descriptor; all other items are
// opaque.
type MetaExpr struct {
	Elem  Expr
	Items []any
}

// NamedExpr is a forward reference to a type by name, used when the type
// itself cannot be imported at the declaration site.
type NamedExpr struct {
	Name string
}

type noneExpr struct{}

// None is the "no value" member of a union annotation.
var None Expr = noneExpr{}

func (TypeExpr) isExpr()     {}
func (UnionExpr) isExpr()    {}
func (OptionalExpr) isExpr() {}
func (MetaExpr) isExpr()     {}
func (NamedExpr) isExpr()    {}
func (noneExpr) isExpr()     {}

func (e TypeExpr) String() string {
	if e.Type == nil {
		return "<nil>"
	}
	return e.Type.String()
}

func (e UnionExpr) String() string {
	parts := make([]string, len(e.Members))
	for i, m := range e.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}

func (e OptionalExpr) String() string { return "?" + e.Elem.String() }

func (e MetaExpr) String() string {
	return fmt.Sprintf("%s+%d", e.Elem.String(), len(e.Items))
}

func (e NamedExpr) String() string { return e.Name }

func (noneExpr) String() string { return "none" }

// TypeOf builds a TypeExpr for T.
func TypeOf[T any]() Expr {
	return TypeExpr{Type: reflect.TypeOf((*T)(nil)).Elem()}
}

// TypeExprOf builds a TypeExpr for an already-reflected type.
func TypeExprOf(t reflect.Type) Expr {
	return TypeExpr{Type: t}
}

// Union builds a union annotation from its members, order preserved.
func Union(members ...Expr) Expr {
	return UnionExpr{Members: members}
}

// Optional wraps an annotation as optional.
func Optional(elem Expr) Expr {
	return OptionalExpr{Elem: elem}
}

// Annotated wraps an annotation with metadata items.
func Annotated(elem Expr, items ...any) Expr {
	return MetaExpr{Elem: elem, Items: items}
}

// Named builds a forward reference annotation.
func Named(name string) Expr {
	return NamedExpr{Name: name}
}

// View is the decomposition of an annotation expression: the unwrapped base
// expression, whether the annotation admits absence, and the metadata items
// attached to it. Views are value types; mutating one never affects the
// annotation it was read from.
type View struct {
	// Base is the unwrapped annotation, nil when the parameter is
	// unannotated.
	Base Expr

	// Optional reports whether any of the optional encodings was present:
	// an Optional wrapper, a union containing None, or a pointer type.
	Optional bool

	// Metadata holds the envelope's items in declaration order.
	Metadata []any

	// Annotated reports whether a metadata envelope was present, even an
	// empty one.
	Annotated bool
}

// ViewOf decomposes an annotation expression. The three spellings of "T or
// absent" (Optional wrapper, union with None, pointer type) all collapse to
// (T, optional=true). Multi-member unions without None keep their members,
// folded into a single union in declaration order.
func ViewOf(annotation Expr) View {
	v := View{}
	if annotation == nil {
		return v
	}

	base := annotation
	if m, ok := base.(MetaExpr); ok {
		v.Annotated = true
		v.Metadata = append([]any(nil), m.Items...)
		base = m.Elem
	}

	unwrapped, optional := stripOptional(base)
	v.Base = unwrapped
	v.Optional = optional
	return v
}

func stripOptional(e Expr) (Expr, bool) {
	switch t := e.(type) {
	case OptionalExpr:
		return t.Elem, true
	case UnionExpr:
		nonNone := make([]Expr, 0, len(t.Members))
		for _, m := range t.Members {
			if m == None {
				continue
			}
			nonNone = append(nonNone, m)
		}
		optional := len(nonNone) < len(t.Members)
		switch len(nonNone) {
		case 0:
			return e, optional
		case 1:
			return nonNone[0], optional
		default:
			return UnionExpr{Members: nonNone}, optional
		}
	case TypeExpr:
		if t.Type != nil && t.Type.Kind() == reflect.Pointer {
			return TypeExpr{Type: t.Type.Elem()}, true
		}
		return e, false
	}
	return e, false
}

// BaseType returns the view's base as a reflect.Type when the base is a
// concrete type expression.
func (v View) BaseType() (reflect.Type, bool) {
	t, ok := v.Base.(TypeExpr)
	if !ok || t.Type == nil {
		return nil, false
	}
	return t.Type, true
}

// BaseName returns the forward-reference name when the base is a NamedExpr.
func (v View) BaseName() (string, bool) {
	n, ok := v.Base.(NamedExpr)
	if !ok {
		return "", false
	}
	return n.Name, true
}

// OptionDescriptor returns the first *Option among the metadata items, or
// nil when none is attached.
func (v View) OptionDescriptor() *Option {
	for _, item := range v.Metadata {
		if opt, ok := item.(*Option); ok {
			return opt
		}
	}
	return nil
}

// ExtraMetadata returns the metadata items that are not option descriptors,
// order preserved.
func (v View) ExtraMetadata() []any {
	var extra []any
	for _, item := range v.Metadata {
		if _, ok := item.(*Option); ok {
			continue
		}
		extra = append(extra, item)
	}
	return extra
}

// WithMetadata returns a copy of the view carrying the given metadata items.
func (v View) WithMetadata(items []any) View {
	v.Metadata = append([]any(nil), items...)
	v.Annotated = true
	return v
}

// WithBase returns a copy of the view with a different base expression.
func (v View) WithBase(base Expr) View {
	v.Base = base
	return v
}

// WithOptional returns a copy of the view with the optional flag replaced.
func (v View) WithOptional(optional bool) View {
	v.Optional = optional
	return v
}

// Rebuild assembles an annotation expression equivalent to the view: the
// base, wrapped Optional when the view is optional, wrapped in a metadata
// envelope when metadata is present. Rebuilding a view and decomposing the
// result yields the same view.
func (v View) Rebuild() Expr {
	base := v.Base
	if base == nil {
		return nil
	}
	if v.Optional {
		base = OptionalExpr{Elem: base}
	}
	if len(v.Metadata) > 0 {
		return MetaExpr{Elem: base, Items: append([]any(nil), v.Metadata...)}
	}
	return base
}

// EqualExpr reports whether two annotations are semantically equivalent:
// their decompositions agree on base, optional-ness, and metadata. The
// different spellings of an optional annotation compare equal.
func EqualExpr(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := ViewOf(a), ViewOf(b)
	if va.Optional != vb.Optional {
		return false
	}
	if !reflect.DeepEqual(va.Metadata, vb.Metadata) {
		return false
	}
	return equalBase(va.Base, vb.Base)
}

func equalBase(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch ta := a.(type) {
	case TypeExpr:
		tb, ok := b.(TypeExpr)
		return ok && ta.Type == tb.Type
	case NamedExpr:
		nb, ok := b.(NamedExpr)
		return ok && ta.Name == nb.Name
	case UnionExpr:
		ub, ok := b.(UnionExpr)
		if !ok || len(ta.Members) != len(ub.Members) {
			return false
		}
		for i := range ta.Members {
			if !EqualExpr(ta.Members[i], ub.Members[i]) {
				return false
			}
		}
		return true
	case noneExpr:
		return b == None
	default:
		return reflect.DeepEqual(a, b)
	}
}
