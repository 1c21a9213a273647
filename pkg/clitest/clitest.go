// Package clitest runs cobra commands in-process for tests, capturing
// output and the resulting error.
package clitest

import (
	"bytes"

	"github.com/spf13/cobra"
)

// Result holds everything a CLI execution produced.
type Result struct {
	Stdout string
	Stderr string
	Err    error
}

// Failed reports whether the execution returned an error.
func (r Result) Failed() bool { return r.Err != nil }

// Run executes the command with the given argv, capturing stdout and
// stderr.
func Run(cmd *cobra.Command, argv ...string) Result {
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(argv)
	err := cmd.Execute()
	return Result{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}
