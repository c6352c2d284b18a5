// Package hooks runs user-configured shell commands in response to
// monitoring reports.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	DefaultTimeout = 30 * time.Second
	MaxTimeout     = 300 * time.Second

	// maxOutput caps how much combined output is kept for logging.
	maxOutput = 4 << 10
)

// ErrTimeout is wrapped by Result.Err when a command outlives its timeout.
var ErrTimeout = errors.New("hook timed out")

// Result describes one finished command.
type Result struct {
	Output   string // combined stdout and stderr, trimmed and capped
	ExitCode int    // -1 when the command did not exit normally
	Err      error
}

// cappedBuffer keeps the first maxOutput bytes written to it.
type cappedBuffer struct {
	b         strings.Builder
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := maxOutput - c.b.Len(); room < len(p) {
		c.truncated = true
		p = p[:max(room, 0)]
	}
	c.b.Write(p)
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	s := strings.TrimSpace(c.b.String())
	if c.truncated {
		s += " [truncated]"
	}
	return s
}

// clampTimeout applies DefaultTimeout to non-positive values and caps the
// rest at MaxTimeout.
func clampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultTimeout
	case d > MaxTimeout:
		return MaxTimeout
	}
	return d
}

// Execute runs command via "sh -c", inheriting the process environment
// overlaid with env.
func Execute(ctx context.Context, command string, timeout time.Duration, env map[string]string) Result {
	ctx, cancel := context.WithTimeout(ctx, clampTimeout(timeout))
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command) //nolint:gosec // command comes from operator config
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var out cappedBuffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	res := Result{Output: out.String(), ExitCode: cmd.ProcessState.ExitCode()}
	switch {
	case err == nil:
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Err = fmt.Errorf("%w after %s", ErrTimeout, clampTimeout(timeout))
	default:
		res.Err = err
	}
	return res
}
