package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/stevedore/internal/compose"
)

// fakeRunner records every invocation and answers from optional hooks;
// without hooks everything succeeds with empty output.
type fakeRunner struct {
	mu    sync.Mutex
	calls []string

	onOutput func(args []string) ([]byte, error)
	onRun    func(args []string) (int, error)
}

func (f *fakeRunner) Output(ctx context.Context, args ...string) ([]byte, error) {
	f.record(args)
	if f.onOutput != nil {
		return f.onOutput(args)
	}
	return nil, nil
}

func (f *fakeRunner) Run(ctx context.Context, args ...string) (int, error) {
	f.record(args)
	if f.onRun != nil {
		return f.onRun(args)
	}
	return 0, nil
}

func (f *fakeRunner) record(args []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, strings.Join(args, " "))
}

// recorded returns a snapshot of all invocations so far.
func (f *fakeRunner) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// callIndex returns the position of the first invocation containing every
// fragment, or -1.
func (f *fakeRunner) callIndex(fragments ...string) int {
	for i, call := range f.recorded() {
		ok := true
		for _, fragment := range fragments {
			if !strings.Contains(call, fragment) {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}

// callsWith returns every invocation containing the fragment.
func (f *fakeRunner) callsWith(fragment string) []string {
	var out []string
	for _, call := range f.recorded() {
		if strings.Contains(call, fragment) {
			out = append(out, call)
		}
	}
	return out
}

// loadProject resolves an inline specification from a temp directory.
func loadProject(t *testing.T, yaml string, opts compose.LoadOptions) *compose.Project {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "compose.yaml")
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o644))
	opts.Files = []string{file}
	if opts.ProjectName == "" {
		opts.ProjectName = "proj"
	}
	p, err := compose.Load(opts)
	require.NoError(t, err)
	return p
}

// newTestExecutor wires a loaded project to a fakeRunner.
func newTestExecutor(t *testing.T, yaml string, opts compose.LoadOptions) (*Executor, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{}
	return New(loadProject(t, yaml, opts), runner, false), runner
}
