// Package verbosity converts raw CLI verbosity input — a repeat count, a
// numeric string, a level name, or an already-built logger — into a
// configured logger. It is the fallback parser the logger param-type hook
// installs behind a --verbose/-v counting flag.
package verbosity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cmdware/cmdware/pkg/errs"
	"github.com/cmdware/cmdware/pkg/logging"
	"github.com/cmdware/cmdware/pkg/sig"
)

// DefaultLoggerName is used when no command path is available.
const DefaultLoggerName = "cmdware"

// maxCountInput is the largest numeric string still read as a repeat count.
const maxCountInput = 4

// LevelFromCount maps a -v repeat count onto a log level: 0 stays quiet at
// ERROR, each repetition reveals one more tier, and three or more means full
// DEBUG detail.
func LevelFromCount(count int) logging.Level {
	switch {
	case count <= 0:
		return logging.LevelError
	case count == 1:
		return logging.LevelWarn
	case count == 2:
		return logging.LevelInfo
	default:
		return logging.LevelDebug
	}
}

// CoerceLevel derives a log level from any of the supported input shapes.
// Unsupported types, empty strings, and unknown level names fail.
func CoerceLevel(value any) (logging.Level, error) {
	switch v := value.(type) {
	case logging.Logger:
		return v.Level(), nil
	case string:
		stripped := strings.TrimSpace(v)
		if stripped == "" {
			return 0, fmt.Errorf("log level cannot be empty")
		}
		if n, err := strconv.Atoi(stripped); err == nil {
			if n <= maxCountInput {
				return LevelFromCount(n), nil
			}
			return 0, fmt.Errorf("numeric log level %d out of range", n)
		}
		return logging.ParseLevel(stripped)
	case int:
		return LevelFromCount(v), nil
	case int64:
		return LevelFromCount(int(v)), nil
	case float64:
		return LevelFromCount(int(v)), nil
	case logging.Level:
		return v, nil
	default:
		return 0, fmt.Errorf("unsupported log level value %v (%T)", value, value)
	}
}

// LoggerParser implements sig.Parser: it coerces the raw flag value into a
// level and returns the logger named after the invoking command path, with
// that level applied.
type LoggerParser struct{}

var _ sig.Parser = (*LoggerParser)(nil)

// NewLoggerParser returns the verbosity parser.
func NewLoggerParser() *LoggerParser {
	return &LoggerParser{}
}

// Name identifies the parser.
func (p *LoggerParser) Name() string { return "logger" }

// Convert builds the configured logger for the given raw verbosity value.
func (p *LoggerParser) Convert(value any, path string) (any, error) {
	name := path
	if name == "" {
		name = DefaultLoggerName
	}

	level, err := CoerceLevel(value)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrConvert,
			fmt.Sprintf("Cannot read %v as a log verbosity", value),
			"Pass a repeat count (-vvv), a numeric count, or a level name like DEBUG.")
	}

	logger := logging.Get(name)
	logger.SetLevel(level)
	return logger, nil
}
