// Package shell executes tool-invoked shell commands through an embedded
// POSIX interpreter, with per-run timeouts and captured combined output.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

const maxOutputBytes = 50000

// Result is the outcome of one command run.
type Result struct {
	Output   string
	ExitCode int
	TimedOut bool
}

// dangerousFragments blocks obviously destructive commands before execution.
var dangerousFragments = []string{"rm -rf /", "sudo", "shutdown", "reboot", "> /dev/"}

// Dangerous reports whether the command matches the block list.
func Dangerous(command string) bool {
	for _, frag := range dangerousFragments {
		if strings.Contains(command, frag) {
			return true
		}
	}
	return false
}

// Run parses and executes command in dir, bounded by timeout. A non-zero
// exit is reported in the Result, not as an error; errors are reserved for
// parse failures and runner setup.
func Run(ctx context.Context, command, dir string, timeout time.Duration) (*Result, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}

	var buf bytes.Buffer
	runner, err := interp.New(
		interp.Dir(dir),
		interp.StdIO(nil, &buf, &buf),
	)
	if err != nil {
		return nil, fmt.Errorf("init interpreter: %w", err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res := &Result{}
	runErr := runner.Run(ctx, file)
	res.Output = truncate(strings.TrimSpace(buf.String()))

	if ctx.Err() != nil {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if runErr != nil {
		if status, ok := interp.IsExitStatus(runErr); ok {
			res.ExitCode = int(status)
			return res, nil
		}
		return nil, fmt.Errorf("run command: %w", runErr)
	}
	return res, nil
}

func truncate(s string) string {
	if len(s) > maxOutputBytes {
		return s[:maxOutputBytes]
	}
	return s
}
