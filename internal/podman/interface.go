// Package podman invokes the external container tool as a subprocess with a
// fixed verb/argument grammar, behind a bounded concurrency gate.
package podman

import "context"

// Runner is the surface the orchestration executor needs from the external
// tool. It exists so the executor can be exercised against a fake without a
// container engine installed.
type Runner interface {
	// Output invokes the tool and returns its captured stdout. A nonzero
	// exit surfaces as an *ExitError carrying the argument vector and the
	// combined output.
	Output(ctx context.Context, args ...string) ([]byte, error)

	// Run invokes the tool attached to the current stdio and returns the
	// observed exit code. Cancellation requests graceful termination first
	// and force-kills after the grace period.
	Run(ctx context.Context, args ...string) (int, error)
}
