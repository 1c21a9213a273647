package sig

import "strings"

// Parser converts a raw command-line value (a count, a string, or an
// already-built object) into the value a parameter should receive. It is the
// pluggable conversion hook carried on an Option descriptor; the CLI binding
// invokes it before the command runs.
type Parser interface {
	// Name identifies the parser in help text and error messages.
	Name() string
	// Convert turns the raw value into the final parameter value. The path
	// argument carries the invoking command's path when known, and may be
	// empty.
	Convert(value any, path string) (any, error)
}

// marker is the sentinel type backing Empty and Required.
type marker struct{ name string }

func (m marker) String() string { return m.name }

var (
	// Empty marks a parameter default that was never declared.
	Empty any = marker{"<empty>"}

	// Required marks an option whose value must be supplied by the user.
	Required any = marker{"<required>"}
)

// IsEmpty reports whether a default value is the "never declared" sentinel.
func IsEmpty(v any) bool {
	m, ok := v.(marker)
	return ok && m.name == "<empty>"
}

// IsRequired reports whether a default value is the Required sentinel.
func IsRequired(v any) bool {
	m, ok := v.(marker)
	return ok && m.name == "<required>"
}

// IsSentinel reports whether a value is either the Empty or Required marker.
func IsSentinel(v any) bool {
	_, ok := v.(marker)
	return ok
}

// DefaultOr returns fallback when value is one of the sentinel markers.
func DefaultOr(value, fallback any) any {
	if IsSentinel(value) {
		return fallback
	}
	return value
}

// Option describes how a parameter is exposed as a command-line option:
// flag spellings, counting behavior, help text, default, and an optional
// value-conversion hook. It is the option-descriptor variant of annotation
// metadata; everything else attached to an annotation is opaque.
type Option struct {
	// Flags holds the option spellings, e.g. {"--verbose", "-v"}. The first
	// long flag names the option.
	Flags []string

	// Help is the one-line flag description.
	Help string

	// Count makes the flag a repeatable counter (-vvv).
	Count bool

	// Default is the value used when the flag is absent. Required marks the
	// option as mandatory.
	Default any

	// ShowDefault controls whether help output includes the default.
	ShowDefault bool

	// Parser converts the raw flag value before the command sees it. Nil
	// leaves conversion to the CLI framework.
	Parser Parser
}

// NewOption builds an option descriptor with the given default and flag
// spellings.
func NewOption(defaultValue any, flags ...string) *Option {
	return &Option{Flags: flags, Default: defaultValue}
}

// LongName returns the option's long flag without the leading dashes, or the
// empty string when no long flag is present.
func (o *Option) LongName() string {
	for _, f := range o.Flags {
		if strings.HasPrefix(f, "--") {
			return strings.TrimPrefix(f, "--")
		}
	}
	return ""
}

// Shorthand returns the option's single-letter flag without the leading
// dash, or the empty string when none is present.
func (o *Option) Shorthand() string {
	for _, f := range o.Flags {
		if strings.HasPrefix(f, "-") && !strings.HasPrefix(f, "--") && len(f) == 2 {
			return strings.TrimPrefix(f, "-")
		}
	}
	return ""
}
