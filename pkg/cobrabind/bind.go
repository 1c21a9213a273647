// Package cobrabind registers pipeline adapters as cobra commands. It is
// the narrow shim to the external CLI-dispatch framework: the adapter's
// runtime signature drives which pflag flags and positional arguments the
// command accepts, and at run time the collected values are assembled back
// into the (args, kwargs) shape the adapter expects.
package cobrabind

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cmdware/cmdware/pkg/errs"
	"github.com/cmdware/cmdware/pkg/pipeline"
	"github.com/cmdware/cmdware/pkg/sig"
)

// current tracks the command executing through a bound adapter, serving as
// the ambient external context adapters look up best-effort.
var current *cobra.Command

// Current returns the cobra command currently executing through a bound
// adapter, or nil when none is.
func Current() any {
	if current == nil {
		return nil
	}
	return current
}

func init() {
	pipeline.SetDefaultExternalLookup(Current)
}

// flagBinding records how one runtime parameter maps onto a pflag flag.
type flagBinding struct {
	param  sig.Param
	option *sig.Option
	flag   string
	count  bool
	kind   reflect.Kind
}

// argBinding records how one runtime parameter maps onto a cobra
// positional argument.
type argBinding struct {
	param    sig.Param
	variadic bool
	elem     reflect.Type
}

// Bind wires an adapter into a cobra command: flags and positional
// argument validation are derived from the adapter's runtime signature,
// and RunE reassembles the adapter call from the parsed values.
func Bind(cmd *cobra.Command, adapter *pipeline.Adapter) error {
	var flags []flagBinding
	var positionals []argBinding
	externalParams := []string{}

	for _, p := range adapter.Signature().Params() {
		if pipeline.IsExternalContextParam(p) {
			externalParams = append(externalParams, p.Name)
			continue
		}

		view := sig.ViewOf(p.Annotation)
		option := view.OptionDescriptor()

		if option == nil && (p.Kind.Positional() || p.Kind == sig.VarPositional) {
			base, _ := view.BaseType()
			binding := argBinding{param: p, variadic: p.Kind == sig.VarPositional, elem: base}
			positionals = append(positionals, binding)
			continue
		}

		binding, err := registerFlag(cmd.Flags(), p, option, view)
		if err != nil {
			return err
		}
		flags = append(flags, binding)
	}

	cmd.Args = positionalArgsCheck(positionals)

	cmd.RunE = func(cmd *cobra.Command, argv []string) error {
		current = cmd
		defer func() { current = nil }()

		args, err := collectPositionals(positionals, argv, cmd.CommandPath())
		if err != nil {
			return err
		}
		kwargs, err := collectFlags(cmd.Flags(), flags, cmd.CommandPath())
		if err != nil {
			return err
		}
		for _, name := range externalParams {
			kwargs[name] = cmd
		}

		_, err = adapter.Call(args, kwargs)
		return err
	}
	return nil
}

// NewCommand builds a cobra command bound to the adapter.
func NewCommand(adapter *pipeline.Adapter, use, short string) (*cobra.Command, error) {
	cmd := &cobra.Command{Use: use, Short: short}
	if err := Bind(cmd, adapter); err != nil {
		return nil, err
	}
	return cmd, nil
}

func registerFlag(fs *pflag.FlagSet, p sig.Param, option *sig.Option, view sig.View) (flagBinding, error) {
	if option == nil {
		option = sig.NewOption(p.Default, "--"+flagName(p.Name))
	}

	name := option.LongName()
	if name == "" {
		name = flagName(p.Name)
	}
	shorthand := option.Shorthand()
	help := option.Help

	binding := flagBinding{param: p, option: option, flag: name, count: option.Count}

	if option.Count {
		fs.CountP(name, shorthand, help)
		return binding, nil
	}

	kind := reflect.String
	if base, ok := view.BaseType(); ok {
		kind = base.Kind()
	}
	binding.kind = kind

	defaultValue := sig.DefaultOr(p.Default, nil)
	if defaultValue == nil {
		defaultValue = sig.DefaultOr(option.Default, nil)
	}

	switch kind {
	case reflect.Bool:
		def, _ := defaultValue.(bool)
		fs.BoolP(name, shorthand, def, help)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		def := 0
		if n, ok := defaultValue.(int); ok {
			def = n
		}
		fs.IntP(name, shorthand, def, help)
	case reflect.String:
		def, _ := defaultValue.(string)
		fs.StringP(name, shorthand, def, help)
	default:
		// Values of richer types arrive as strings and go through the
		// option's parser.
		def, _ := defaultValue.(string)
		fs.StringP(name, shorthand, def, help)
		binding.kind = reflect.String
	}

	if sig.IsRequired(option.Default) && !p.HasDefault() && !option.Count {
		if err := cobra.MarkFlagRequired(fs, name); err != nil {
			return binding, errs.Wrap(err, errs.ErrConfig,
				fmt.Sprintf("Cannot mark flag --%s required", name), "")
		}
	}
	return binding, nil
}

func collectFlags(fs *pflag.FlagSet, flags []flagBinding, path string) (map[string]any, error) {
	kwargs := make(map[string]any, len(flags))
	for _, b := range flags {
		var raw any
		var err error
		switch {
		case b.count:
			raw, err = fs.GetCount(b.flag)
		case b.kind == reflect.Bool:
			raw, err = fs.GetBool(b.flag)
		case b.kind >= reflect.Int && b.kind <= reflect.Int64:
			raw, err = fs.GetInt(b.flag)
		default:
			raw, err = fs.GetString(b.flag)
		}
		if err != nil {
			return nil, errs.Wrap(err, errs.ErrBind,
				fmt.Sprintf("Cannot read flag --%s", b.flag), "")
		}

		if b.option.Parser != nil {
			converted, err := b.option.Parser.Convert(raw, path)
			if err != nil {
				return nil, err
			}
			raw = converted
		}
		kwargs[b.param.Name] = raw
	}
	return kwargs, nil
}

func collectPositionals(positionals []argBinding, argv []string, path string) ([]any, error) {
	args := make([]any, 0, len(argv))
	cursor := 0
	for _, b := range positionals {
		if b.variadic {
			for ; cursor < len(argv); cursor++ {
				v, err := convertArg(argv[cursor], b.elem, b.param.Name)
				if err != nil {
					return nil, err
				}
				args = append(args, v)
			}
			continue
		}
		if cursor >= len(argv) {
			break
		}
		v, err := convertArg(argv[cursor], b.elem, b.param.Name)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		cursor++
	}
	return args, nil
}

func convertArg(raw string, target reflect.Type, name string) (any, error) {
	if target == nil {
		return raw, nil
	}
	switch target.Kind() {
	case reflect.String:
		return raw, nil
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errs.Wrap(err, errs.ErrConvert,
				fmt.Sprintf("'%s' is not a valid boolean for %s", raw, name),
				"Use true or false.")
		}
		return v, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errs.Wrap(err, errs.ErrConvert,
				fmt.Sprintf("'%s' is not a valid integer for %s", raw, name),
				"Pass a whole number.")
		}
		return v, nil
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errs.Wrap(err, errs.ErrConvert,
				fmt.Sprintf("'%s' is not a valid number for %s", raw, name),
				"Pass a number.")
		}
		return v, nil
	default:
		return raw, nil
	}
}

func positionalArgsCheck(positionals []argBinding) cobra.PositionalArgs {
	min := 0
	variadic := false
	for _, b := range positionals {
		if b.variadic {
			variadic = true
			continue
		}
		if !b.param.HasDefault() {
			min++
		}
	}
	if variadic {
		return cobra.MinimumNArgs(min)
	}
	return cobra.RangeArgs(min, len(positionals))
}

func flagName(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}
