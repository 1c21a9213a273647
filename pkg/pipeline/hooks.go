package pipeline

import (
	"fmt"
	"reflect"

	"github.com/cmdware/cmdware/pkg/errs"
	"github.com/cmdware/cmdware/pkg/sig"
)

// OptionFactory produces a default option descriptor for a parameter that
// matched a registered type but carries no option metadata of its own.
type OptionFactory func(p sig.Param) *sig.Option

// ParserFactory supplies the fallback value parser for a matched parameter:
// nil for none, a func() sig.Parser constructor, or a ready sig.Parser
// value.
type ParserFactory any

// paramTypeHook amends every parameter matching a target type with option
// metadata and a fallback parser. Hooks run during Build, so a matched
// parameter with no resolvable option metadata fails the build.
type paramTypeHook struct {
	target        reflect.Type
	optionFactory OptionFactory
	parserFactory ParserFactory
}

func (h paramTypeHook) apply(c *Callable) (*Callable, error) {
	s, ok := c.SignatureOf()
	if !ok {
		return c, nil
	}

	params := s.Params()
	touched := false
	for i, p := range params {
		view := sig.ViewOf(p.Annotation)
		base, ok := view.BaseType()
		if !ok || !typeMatches(base, h.target) {
			continue
		}

		option := view.OptionDescriptor()
		metadata := view.ExtraMetadata()
		if option == nil {
			if h.optionFactory == nil {
				return nil, errs.New(errs.ErrConfig,
					fmt.Sprintf("Parameter '%s' is missing option metadata for %s", p.Name, h.target),
					"Attach an option to the parameter or register the type with an option factory.")
			}
			option = h.optionFactory(p)
		}
		metadata = append(metadata, option)

		// An existing parser always wins over the fallback.
		if option.Parser == nil && h.parserFactory != nil {
			option.Parser = instantiateParser(h.parserFactory)
		}

		view = view.WithMetadata(metadata)
		p.Annotation = view.Rebuild()
		// Keep the option's required marker out of the signature default.
		if sig.IsEmpty(p.Default) {
			p.Default = nil
		}
		params[i] = p
		touched = true
	}

	if !touched {
		return c, nil
	}
	c.SetSignature(sig.New(params...).WithReturn(s.Return()))
	return c, nil
}

// typeMatches reports whether a parameter's base type satisfies the hook's
// target: identical types, assignability, or implementing a target
// interface (directly or through a pointer receiver).
func typeMatches(base, target reflect.Type) bool {
	if base == nil || target == nil {
		return false
	}
	if base == target {
		return true
	}
	if target.Kind() == reflect.Interface {
		if base.Implements(target) {
			return true
		}
		return reflect.PointerTo(base).Implements(target)
	}
	return base.AssignableTo(target)
}

// instantiateParser normalizes the parser-factory forms: nil stays nil,
// constructors are invoked, ready parsers pass through.
func instantiateParser(factory ParserFactory) sig.Parser {
	switch f := factory.(type) {
	case nil:
		return nil
	case func() sig.Parser:
		return f()
	case sig.Parser:
		return f
	case func() any:
		if p, ok := f().(sig.Parser); ok {
			return p
		}
		return nil
	default:
		return nil
	}
}
