// Package restart reloads the site's web server so exported dashboards
// become visible.
package restart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const defaultTimeout = 2 * time.Minute

// Result holds the outcome of one restart command.
type Result struct {
	Command  []string
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// OK reports whether the command ran and exited zero.
func (r *Result) OK() bool {
	return r.Err == nil
}

// Restarter runs the configured restart command.
type Restarter struct {
	command []string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Restarter.
type Option func(*Restarter)

// WithTimeout bounds the command run time.
func WithTimeout(d time.Duration) Option {
	return func(r *Restarter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger failures are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Restarter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Restarter for command (program followed by arguments).
func New(command []string, opts ...Option) *Restarter {
	r := &Restarter{
		command: append([]string(nil), command...),
		timeout: defaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the restart command. A failure is logged as a warning and
// recorded in the result; it is never returned as an error.
func (r *Restarter) Run(ctx context.Context) *Result {
	res := &Result{Command: r.command}
	if len(r.command) == 0 {
		res.Err = errors.New("no restart command configured")
		res.ExitCode = -1
		r.logger.Warn("restart skipped", "error", res.Err)
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...)
	cmd.WaitDelay = time.Second // Allow I/O to drain after context cancellation

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Info("restarting web server", "command", strings.Join(r.command, " "))
	err := cmd.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if err == nil {
		r.logger.Debug("restart finished", "stdout", strings.TrimSpace(res.Stdout))
		return res
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.ExitCode = -1
		res.Err = fmt.Errorf("restart timed out after %s", r.timeout)
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		res.Err = fmt.Errorf("restart exited with code %d", res.ExitCode)
	default:
		res.ExitCode = -1
		res.Err = fmt.Errorf("run restart command: %w", err)
	}

	r.logger.Warn("restart failed; restart the web server manually",
		"command", strings.Join(r.command, " "),
		"error", res.Err,
		"stderr", strings.TrimSpace(res.Stderr))
	return res
}
