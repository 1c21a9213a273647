// Package demo wires the pipeline into a small runnable CLI: a greet
// command with an injected logger, a --what-if virtual option, and timing
// middleware.
package demo

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cmdware/cmdware/pkg/cobrabind"
	"github.com/cmdware/cmdware/pkg/logging"
	"github.com/cmdware/cmdware/pkg/pipeline"
	"github.com/cmdware/cmdware/pkg/sig"
	"github.com/cmdware/cmdware/pkg/verbosity"
)

var timingStyle = lipgloss.NewStyle().Faint(true)

// stateKeyStarted records the invocation start time for the timing
// middleware.
const stateKeyStarted = "demo:started"

// NewRootCommand builds the demo root command from the given config.
func NewRootCommand(cfg *Config) (*cobra.Command, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	p := pipeline.New().EnableLoggerWith(nil, func() sig.Parser {
		return verbosityParser{fallback: cfg.Verbosity}
	})
	if err := p.AddVirtualOption(pipeline.VirtualOption{Name: "what_if"}); err != nil {
		return nil, err
	}

	if cfg.Timing {
		p.Use(timingMiddleware)
	}

	root := &cobra.Command{
		Use:          "cmdware-demo",
		Short:        "Demonstrates the cmdware command pipeline",
		SilenceUsage: true,
	}

	greeting := cfg.Greeting
	greet := func(ctx *pipeline.Context, logger logging.Logger, name string) error {
		logger.Debug("greeting %s", name)
		out := commandOutput(ctx)
		if ctx.GetState("virtual:what_if", false) == true {
			fmt.Fprintf(out, "[what-if] would greet %s\n", name)
			return nil
		}
		fmt.Fprintf(out, "%s, %s!\n", greeting, name)
		return nil
	}

	adapter, err := p.BuildFunc(greet, root, "greet", "ctx", "logger", "name")
	if err != nil {
		return nil, err
	}

	greetCmd, err := cobrabind.NewCommand(adapter, "greet <name>", "Greet someone")
	if err != nil {
		return nil, err
	}
	root.AddCommand(greetCmd)

	return root, nil
}

// timingMiddleware reports elapsed wall time on the command's error
// stream after the call completes.
func timingMiddleware(next pipeline.Handler) pipeline.Handler {
	return func(inv *pipeline.Invocation) (any, error) {
		inv.State[stateKeyStarted] = time.Now()
		result, err := next(inv)
		if started, ok := inv.State[stateKeyStarted].(time.Time); ok {
			if cmd, ok := inv.External().(*cobra.Command); ok {
				elapsed := time.Since(started).Round(time.Millisecond)
				fmt.Fprintln(cmd.ErrOrStderr(), timingStyle.Render(fmt.Sprintf("took %s", elapsed)))
			}
		}
		return result, err
	}
}

// verbosityParser resolves -v counts like the standard verbosity parser,
// but a count of zero falls back to the configured default level.
type verbosityParser struct {
	fallback string
}

func (p verbosityParser) Name() string { return "verbosity" }

func (p verbosityParser) Convert(value any, path string) (any, error) {
	if n, ok := value.(int); ok && n == 0 && p.fallback != "" {
		value = p.fallback
	}
	return verbosity.NewLoggerParser().Convert(value, path)
}

func commandOutput(ctx *pipeline.Context) io.Writer {
	if cmd, ok := ctx.External().(*cobra.Command); ok {
		return cmd.OutOrStdout()
	}
	return os.Stdout
}
