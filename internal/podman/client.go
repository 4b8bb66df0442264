package podman

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"
)

// TermGracePeriod is how long a cancelled subprocess gets to exit after
// SIGTERM before it is killed.
const TermGracePeriod = 10 * time.Second

// ExitError reports a tool invocation that exited nonzero, carrying the
// fully materialized argument vector and the captured output.
type ExitError struct {
	Args     []string
	ExitCode int
	Output   []byte
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("podman %s: exit status %d", strings.Join(e.Args, " "), e.ExitCode)
	if out := bytes.TrimSpace(e.Output); len(out) > 0 {
		msg += ": " + string(out)
	}
	return msg
}

// Client runs the podman binary. Every invocation passes through a counting
// permit pool sized by the configured parallelism limit (unbounded by
// default), which is the only cross-task shared resource the executor has.
type Client struct {
	path    string
	dryRun  bool
	verbose bool
	sem     *semaphore.Weighted
}

// NewClient returns a Client for the binary at path. parallel <= 0 means
// unlimited concurrent invocations.
func NewClient(path string, parallel int64, dryRun, verbose bool) *Client {
	if path == "" {
		path = "podman"
	}
	if parallel <= 0 {
		parallel = math.MaxInt64
	}
	return &Client{
		path:    path,
		dryRun:  dryRun,
		verbose: verbose,
		sem:     semaphore.NewWeighted(parallel),
	}
}

// Output runs podman with args and returns captured stdout.
func (c *Client) Output(ctx context.Context, args ...string) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	c.trace(args)
	cmd := exec.CommandContext(ctx, c.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{
				Args:     args,
				ExitCode: exitErr.ExitCode(),
				Output:   append(stdout.Bytes(), stderr.Bytes()...),
			}
		}
		return nil, fmt.Errorf("podman %s: %w", strings.Join(args, " "), err)
	}
	return stdout.Bytes(), nil
}

// Run invokes podman attached to the current stdio and returns its exit
// code. When ctx is cancelled the child receives SIGTERM and, if it has not
// exited within TermGracePeriod, is killed; the returned code is whatever
// the process ultimately reported.
func (c *Client) Run(ctx context.Context, args ...string) (int, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	defer c.sem.Release(1)

	c.trace(args)
	if c.dryRun {
		return 0, nil
	}

	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = TermGracePeriod

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		return exitErr.ExitCode(), nil
	case ctx.Err() != nil:
		return 0, ctx.Err()
	default:
		return -1, fmt.Errorf("podman %s: %w", strings.Join(args, " "), err)
	}
}

func (c *Client) trace(args []string) {
	if c.verbose {
		fmt.Fprintln(os.Stderr, "podman "+strings.Join(args, " "))
	}
}
