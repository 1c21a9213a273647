package demo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmdware/cmdware/pkg/clitest"
	"github.com/cmdware/cmdware/pkg/logging"
)

func TestGreetCommand(t *testing.T) {
	logging.ResetRegistry()
	t.Cleanup(logging.ResetRegistry)

	root, err := NewRootCommand(DefaultConfig())
	require.NoError(t, err)

	result := clitest.Run(root, "greet", "alice")
	require.NoError(t, result.Err)
	assert.Contains(t, result.Stdout, "Hello, alice!")
	assert.Contains(t, result.Stderr, "took", "timing middleware reports on stderr")
}

func TestGreetCustomGreeting(t *testing.T) {
	logging.ResetRegistry()
	t.Cleanup(logging.ResetRegistry)

	cfg := DefaultConfig()
	cfg.Greeting = "Howdy"
	cfg.Timing = false

	root, err := NewRootCommand(cfg)
	require.NoError(t, err)

	result := clitest.Run(root, "greet", "bob")
	require.NoError(t, result.Err)
	assert.Contains(t, result.Stdout, "Howdy, bob!")
	assert.NotContains(t, result.Stderr, "took")
}

func TestGreetWhatIf(t *testing.T) {
	logging.ResetRegistry()
	t.Cleanup(logging.ResetRegistry)

	root, err := NewRootCommand(DefaultConfig())
	require.NoError(t, err)

	result := clitest.Run(root, "greet", "alice", "--what-if")
	require.NoError(t, result.Err)
	assert.Contains(t, result.Stdout, "[what-if] would greet alice")
	assert.NotContains(t, result.Stdout, "Hello, alice!")
}

func TestGreetVerbosityFlag(t *testing.T) {
	logging.ResetRegistry()
	t.Cleanup(logging.ResetRegistry)

	root, err := NewRootCommand(DefaultConfig())
	require.NoError(t, err)

	result := clitest.Run(root, "greet", "alice", "-vv")
	require.NoError(t, result.Err)
	assert.Equal(t, logging.LevelInfo, logging.Get("cmdware-demo greet").Level())
}

func TestGreetVerbosityFromConfig(t *testing.T) {
	logging.ResetRegistry()
	t.Cleanup(logging.ResetRegistry)

	cfg := DefaultConfig()
	cfg.Verbosity = "DEBUG"

	root, err := NewRootCommand(cfg)
	require.NoError(t, err)

	result := clitest.Run(root, "greet", "alice")
	require.NoError(t, result.Err)
	assert.Equal(t, logging.LevelDebug, logging.Get("cmdware-demo greet").Level())
}
