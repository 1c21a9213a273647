package pipeline

import (
	"fmt"
	"reflect"

	"github.com/cmdware/cmdware/pkg/errs"
	"github.com/cmdware/cmdware/pkg/sig"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Func lifts a plain Go function into a Callable. The signature is derived
// from the function type: every parameter is positional-or-keyword, a
// variadic tail becomes the var-positional collector, and parameter
// annotations record the reflected types. Parameter names are taken from
// names in order; missing names are synthesized as arg0, arg1, ...
//
// The function may return nothing, a single value, an error, or a value and
// an error.
func Func(fn any, names ...string) (*Callable, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, errs.New(errs.ErrConfig,
			fmt.Sprintf("Cannot build a command from %T", fn),
			"Pass a function value.")
	}

	t := v.Type()
	if t.NumOut() > 2 {
		return nil, errs.New(errs.ErrConfig,
			fmt.Sprintf("Function returns %d values; at most (result, error) is supported", t.NumOut()),
			"Return a single value, an error, or both.")
	}
	if t.NumOut() == 2 && t.Out(1) != errorType {
		return nil, errs.New(errs.ErrConfig,
			"Function's second return value must be error",
			"Return (result, error) or drop the second value.")
	}

	params := make([]sig.Param, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		name := fmt.Sprintf("arg%d", i)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		in := t.In(i)
		if t.IsVariadic() && i == t.NumIn()-1 {
			params[i] = sig.VarPos(name, sig.TypeExprOf(in.Elem()))
			continue
		}
		params[i] = sig.PosOrKw(name, sig.TypeExprOf(in), sig.Empty)
	}

	signature := sig.New(params...)
	if t.NumOut() >= 1 && t.Out(0) != errorType {
		signature = signature.WithReturn(sig.TypeExprOf(t.Out(0)))
	}

	body := func(args []any, kwargs map[string]any) (any, error) {
		in, err := bindReflectArgs(t, signature, args, kwargs)
		if err != nil {
			return nil, err
		}
		out := v.Call(in)
		return unpackResults(t, out)
	}

	return NewCallable(signature, body), nil
}

// MustFunc is Func for static function values known to be valid.
func MustFunc(fn any, names ...string) *Callable {
	c, err := Func(fn, names...)
	if err != nil {
		panic(err)
	}
	return c
}

// bindReflectArgs maps resolved (args, kwargs) back onto the function's
// positional slots following the derived signature. Keyword matches win
// over positional ones; a slot with neither and no nilable zero value is a
// missing-argument failure, the same failure a direct caller would see.
func bindReflectArgs(t reflect.Type, signature sig.Signature, args []any, kwargs map[string]any) ([]reflect.Value, error) {
	pending := make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		pending[k] = v
	}

	in := make([]reflect.Value, 0, t.NumIn())
	cursor := 0
	for i, p := range signature.Params() {
		if p.Kind == sig.VarPositional {
			elem := t.In(i).Elem()
			for ; cursor < len(args); cursor++ {
				rv, err := coerceValue(args[cursor], elem, p.Name)
				if err != nil {
					return nil, err
				}
				in = append(in, rv)
			}
			continue
		}

		value, ok := pending[p.Name]
		if ok {
			delete(pending, p.Name)
		} else if cursor < len(args) {
			value = args[cursor]
			cursor++
			ok = true
		}

		if !ok {
			return nil, errs.New(errs.ErrBind,
				fmt.Sprintf("Missing argument '%s'", p.Name),
				"The parser did not supply a value and the parameter has no default.")
		}

		rv, err := coerceValue(value, t.In(i), p.Name)
		if err != nil {
			return nil, err
		}
		in = append(in, rv)
	}

	if len(pending) > 0 {
		for name := range pending {
			return nil, errs.New(errs.ErrBind,
				fmt.Sprintf("Unexpected keyword argument '%s'", name),
				"The command function declares no such parameter.")
		}
	}
	return in, nil
}

func coerceValue(value any, target reflect.Type, name string) (reflect.Value, error) {
	if value == nil {
		switch target.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(target), nil
		default:
			return reflect.Value{}, errs.New(errs.ErrBind,
				fmt.Sprintf("Cannot pass nil for parameter '%s' (%s)", name, target),
				"Supply a concrete value.")
		}
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, errs.New(errs.ErrBind,
		fmt.Sprintf("Cannot use %T as %s for parameter '%s'", value, target, name),
		"Check the option's parser produces the declared parameter type.")
}

func unpackResults(t reflect.Type, out []reflect.Value) (any, error) {
	switch t.NumOut() {
	case 0:
		return nil, nil
	case 1:
		if t.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asError(out[1])
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}
