package pipeline

import "reflect"

// ParamTypeHookConfig describes a RegisterParamType call.
type ParamTypeHookConfig struct {
	Target        reflect.Type
	OptionFactory OptionFactory
	ParserFactory ParserFactory
}

// Config is an immutable bundle of pipeline customizations. Every With*
// method returns a new value; the receiver is never modified, so configs
// can be shared, layered, and merged freely.
type Config struct {
	Decorators        []Decorator
	Middlewares       []Middleware
	InvocationFactory InvocationFactory
	ParamTypeHooks    []ParamTypeHookConfig
	VirtualOptions    []VirtualOption
}

// Pipeline materializes a Pipeline instance from the configuration.
// Invalid virtual-option registrations surface here.
func (c Config) Pipeline() (*Pipeline, error) {
	p := New()
	for _, d := range c.Decorators {
		p.UseDecorator(d)
	}
	for _, mw := range c.Middlewares {
		p.Use(mw)
	}
	if c.InvocationFactory != nil {
		p.SetInvocationFactory(c.InvocationFactory)
	}
	for _, hook := range c.ParamTypeHooks {
		p.RegisterParamType(hook.Target, hook.OptionFactory, hook.ParserFactory)
	}
	for _, v := range c.VirtualOptions {
		if err := p.AddVirtualOption(v); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (c Config) clone() Config {
	c.Decorators = append([]Decorator(nil), c.Decorators...)
	c.Middlewares = append([]Middleware(nil), c.Middlewares...)
	c.ParamTypeHooks = append([]ParamTypeHookConfig(nil), c.ParamTypeHooks...)
	c.VirtualOptions = append([]VirtualOption(nil), c.VirtualOptions...)
	return c
}

// WithDecorator returns a new config with the decorator appended.
func (c Config) WithDecorator(d Decorator) Config {
	dup := c.clone()
	dup.Decorators = append(dup.Decorators, d)
	return dup
}

// WithDecorators returns a new config with the decorators appended.
func (c Config) WithDecorators(decorators ...Decorator) Config {
	dup := c.clone()
	dup.Decorators = append(dup.Decorators, decorators...)
	return dup
}

// WithMiddleware returns a new config with the middleware appended.
func (c Config) WithMiddleware(mw Middleware) Config {
	dup := c.clone()
	dup.Middlewares = append(dup.Middlewares, mw)
	return dup
}

// WithMiddlewares returns a new config with the middlewares appended.
func (c Config) WithMiddlewares(middlewares ...Middleware) Config {
	dup := c.clone()
	dup.Middlewares = append(dup.Middlewares, middlewares...)
	return dup
}

// WithInvocationFactory returns a new config with the factory replaced.
func (c Config) WithInvocationFactory(f InvocationFactory) Config {
	dup := c.clone()
	dup.InvocationFactory = f
	return dup
}

// WithParamType returns a new config with an additional param-type hook.
func (c Config) WithParamType(target reflect.Type, optionFactory OptionFactory, parserFactory ParserFactory) Config {
	dup := c.clone()
	dup.ParamTypeHooks = append(dup.ParamTypeHooks, ParamTypeHookConfig{
		Target:        target,
		OptionFactory: optionFactory,
		ParserFactory: parserFactory,
	})
	return dup
}

// WithVirtualOption returns a new config with an additional virtual-option
// registration. Duplicate names surface when the config is materialized.
func (c Config) WithVirtualOption(v VirtualOption) Config {
	dup := c.clone()
	dup.VirtualOptions = append(dup.VirtualOptions, v)
	return dup
}

// InjectExternalContext returns a new config that ensures framework-context
// injection.
func (c Config) InjectExternalContext() Config {
	return c.WithDecorator(EnsureExternalContextParam)
}

// Merge concatenates two configs. The other config's invocation factory
// wins when set.
func (c Config) Merge(other Config) Config {
	merged := c.clone()
	merged.Decorators = append(merged.Decorators, other.Decorators...)
	merged.Middlewares = append(merged.Middlewares, other.Middlewares...)
	merged.ParamTypeHooks = append(merged.ParamTypeHooks, other.ParamTypeHooks...)
	merged.VirtualOptions = append(merged.VirtualOptions, other.VirtualOptions...)
	if other.InvocationFactory != nil {
		merged.InvocationFactory = other.InvocationFactory
	}
	return merged
}
