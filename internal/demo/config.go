package demo

import (
	"os"

	"github.com/spf13/viper"

	"github.com/cmdware/cmdware/pkg/errs"
)

// ConfigFileName is the default demo config file name.
const ConfigFileName = ".cmdware.yaml"

// Config holds the demo application's settings.
type Config struct {
	// Greeting is the phrase the greet command opens with.
	Greeting string `mapstructure:"greeting"`
	// Verbosity is the default log verbosity when no -v flags are passed:
	// a level name or a count.
	Verbosity string `mapstructure:"verbosity"`
	// Timing enables the timing middleware.
	Timing bool `mapstructure:"timing"`
}

// DefaultConfig returns the demo defaults.
func DefaultConfig() *Config {
	return &Config{
		Greeting:  "Hello",
		Verbosity: "ERROR",
		Timing:    true,
	}
}

// LoadConfig reads config from the specified path. A missing file yields
// the defaults; a malformed one is a configuration error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = ConfigFileName
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, errs.Wrap(err, errs.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.Wrap(err, errs.ErrConfig,
			"Config file has unexpected structure",
			"Compare your file against the documented keys: greeting, verbosity, timing")
	}
	return cfg, nil
}
