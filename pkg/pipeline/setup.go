package pipeline

import (
	"reflect"

	"github.com/cmdware/cmdware/pkg/sig"
	"github.com/cmdware/cmdware/pkg/verbosity"
)

// Process-wide default pipeline. The default is mutated only during
// setup/configuration time; callers must finish configuring before any
// command runs. No synchronization is provided.
var (
	globalConfig   Config
	globalPipeline *Pipeline
)

// Setup installs a configuration as the process-wide default and
// materializes the default pipeline from it.
func Setup(cfg Config) (*Pipeline, error) {
	p, err := cfg.Pipeline()
	if err != nil {
		return nil, err
	}
	globalConfig = cfg
	globalPipeline = p
	return p, nil
}

// Default returns the process-wide default pipeline, materializing an
// empty one when nothing was configured.
func Default() *Pipeline {
	if globalPipeline == nil {
		p, err := globalConfig.Pipeline()
		if err != nil {
			// The stored config was validated when it was installed; an
			// error here means the process mutated it concurrently, which
			// the lifecycle forbids.
			panic(err)
		}
		globalPipeline = p
	}
	return globalPipeline
}

// CurrentConfig returns the current process-wide configuration.
func CurrentConfig() Config {
	return globalConfig
}

// Reset clears the process-wide configuration and pipeline. Intended for
// startup and between test runs.
func Reset() {
	globalConfig = Config{}
	globalPipeline = nil
}

// mutate applies a configuration update and rebuilds the default pipeline.
func mutate(update func(Config) Config) (*Pipeline, error) {
	return Setup(update(globalConfig))
}

// UseMiddleware appends middleware to the default pipeline.
func UseMiddleware(mw Middleware) *Pipeline {
	p, _ := mutate(func(cfg Config) Config { return cfg.WithMiddleware(mw) })
	return p
}

// UseDecorator appends a signature decorator to the default pipeline.
func UseDecorator(d Decorator) *Pipeline {
	p, _ := mutate(func(cfg Config) Config { return cfg.WithDecorator(d) })
	return p
}

// UseInvocationFactory replaces the invocation factory on the default
// pipeline.
func UseInvocationFactory(f InvocationFactory) *Pipeline {
	p, _ := mutate(func(cfg Config) Config { return cfg.WithInvocationFactory(f) })
	return p
}

// InjectExternalContext ensures the default pipeline injects the framework
// execution context into commands.
func InjectExternalContext() *Pipeline {
	p, _ := mutate(func(cfg Config) Config { return cfg.InjectExternalContext() })
	return p
}

// RegisterParamType registers a param-type hook on the default pipeline.
func RegisterParamType(target reflect.Type, optionFactory OptionFactory, parserFactory ParserFactory) *Pipeline {
	p, _ := mutate(func(cfg Config) Config {
		return cfg.WithParamType(target, optionFactory, parserFactory)
	})
	return p
}

// AddVirtualOption registers a virtual option on the default pipeline.
// Duplicate names fail without changing the installed configuration.
func AddVirtualOption(v VirtualOption) (*Pipeline, error) {
	return mutate(func(cfg Config) Config { return cfg.WithVirtualOption(v) })
}

// EnableLogger enables logger injection on the default pipeline.
func EnableLogger() *Pipeline {
	p, _ := mutate(func(cfg Config) Config {
		return cfg.WithParamType(loggerParamType(), OptionFactory(defaultLoggerOption),
			ParserFactory(func() sig.Parser { return verbosity.NewLoggerParser() }))
	})
	return p
}
