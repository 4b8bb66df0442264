package orchestrate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/stevedore/internal/compose"
)

func TestUp_DetachedCreatesInDependencyOrder(t *testing.T) {
	e, runner := newTestExecutor(t, threeTierSpec, compose.LoadOptions{})

	code, err := e.Up(context.Background(), UpOptions{Detach: true})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	dbRun := runner.callIndex("run ", "--name=proj_db_1")
	webRun := runner.callIndex("run ", "--name=proj_web_1")
	require.NotEqual(t, -1, dbRun)
	require.NotEqual(t, -1, webRun)
	assert.Less(t, dbRun, webRun, "dependency containers are created first")

	// detached containers still gate their start on dependency conditions
	webWait := runner.callIndex("wait --condition=running proj_cache_1 proj_db_1")
	webStart := runner.callIndex("start proj_web_1")
	require.NotEqual(t, -1, webWait)
	require.NotEqual(t, -1, webStart)
	assert.Less(t, webRun, webWait)
	assert.Less(t, webWait, webStart)
}

func TestUp_NoStartNeverStarts(t *testing.T) {
	e, runner := newTestExecutor(t, threeTierSpec, compose.LoadOptions{})

	code, err := e.Up(context.Background(), UpOptions{NoStart: true})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	assert.NotEqual(t, -1, runner.callIndex("create ", "--name=proj_web_1"))
	assert.Empty(t, runner.callsWith("start"))
}

func TestUp_ForegroundStartsAfterDependenciesRun(t *testing.T) {
	e, runner := newTestExecutor(t, `
services:
  db:
    image: postgres:16
  web:
    image: app:v1
    depends_on: [db]
`, compose.LoadOptions{})

	// the dependency condition holds only once the db container was started
	runner.onOutput = func(args []string) ([]byte, error) {
		if args[0] == "wait" && runner.callIndex("start -a proj_db_1") == -1 {
			return nil, errors.New("not running yet")
		}
		return nil, nil
	}

	code, err := e.Up(context.Background(), UpOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	dbStart := runner.callIndex("start -a proj_db_1")
	webStart := runner.callIndex("start -a proj_web_1")
	require.NotEqual(t, -1, dbStart)
	require.NotEqual(t, -1, webStart)
	assert.Less(t, dbStart, webStart)
}

func TestUp_ExitCodeFrom(t *testing.T) {
	e, runner := newTestExecutor(t, `
services:
  helper:
    image: helper:v1
  task:
    image: task:v1
`, compose.LoadOptions{})

	runner.onRun = func(args []string) (int, error) {
		if strings.Join(args, " ") == "start -a proj_task_1" {
			return 3, nil
		}
		return 0, nil
	}

	code, err := e.Up(context.Background(), UpOptions{ExitCodeFrom: "task"})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestUp_ServiceFilterSkipsUnrelated(t *testing.T) {
	e, runner := newTestExecutor(t, threeTierSpec, compose.LoadOptions{})

	_, err := e.Up(context.Background(), UpOptions{Detach: true, Services: []string{"db"}})
	require.NoError(t, err)

	assert.NotEqual(t, -1, runner.callIndex("--name=proj_db_1"))
	assert.Equal(t, -1, runner.callIndex("--name=proj_web_1"))
	assert.Equal(t, -1, runner.callIndex("--name=proj_cache_1"))
}

func TestUp_RecreatesOnConfigDrift(t *testing.T) {
	e, runner := newTestExecutor(t, `
services:
  web:
    image: app:v1
`, compose.LoadOptions{})

	runner.onOutput = func(args []string) ([]byte, error) {
		if args[0] == "ps" {
			return []byte("somestalehash\n"), nil
		}
		return nil, nil
	}

	_, err := e.Up(context.Background(), UpOptions{Detach: true})
	require.NoError(t, err)

	stop := runner.callIndex("stop ", "proj_web_1")
	create := runner.callIndex("run ", "--name=proj_web_1")
	require.NotEqual(t, -1, stop, "drift triggers a teardown")
	require.NotEqual(t, -1, create)
	assert.Less(t, stop, create)
}

func TestUp_RecreateHonorsStopGracePeriod(t *testing.T) {
	e, runner := newTestExecutor(t, `
services:
  web:
    image: app:v1
    stop_grace_period: 42s
`, compose.LoadOptions{})

	runner.onOutput = func(args []string) ([]byte, error) {
		if args[0] == "ps" {
			return []byte("somestalehash\n"), nil
		}
		return nil, nil
	}

	_, err := e.Up(context.Background(), UpOptions{Detach: true})
	require.NoError(t, err)

	// the drift teardown keeps each container's configured grace period
	assert.NotEqual(t, -1, runner.callIndex("stop -t 42 proj_web_1"))
	assert.Equal(t, -1, runner.callIndex("stop -t 0 "))
}

func TestUp_MatchingHashDoesNotRecreate(t *testing.T) {
	e, runner := newTestExecutor(t, `
services:
  web:
    image: app:v1
`, compose.LoadOptions{})

	runner.onOutput = func(args []string) ([]byte, error) {
		if args[0] == "ps" {
			return []byte(e.Project.Hash + "\n"), nil
		}
		return nil, nil
	}

	_, err := e.Up(context.Background(), UpOptions{Detach: true})
	require.NoError(t, err)
	assert.Empty(t, runner.callsWith("stop"))
}

func TestUp_CreatesMissingPods(t *testing.T) {
	e, runner := newTestExecutor(t, `
services:
  web:
    image: app:v1
`, compose.LoadOptions{InPod: true})

	runner.onRun = func(args []string) (int, error) {
		if args[0] == "pod" && args[1] == "exists" {
			return 1, nil
		}
		return 0, nil
	}

	_, err := e.Up(context.Background(), UpOptions{Detach: true})
	require.NoError(t, err)

	podCreate := runner.callIndex("pod create --name=pod_proj")
	webRun := runner.callIndex("--name=proj_web_1")
	require.NotEqual(t, -1, podCreate)
	assert.Less(t, podCreate, webRun)
	assert.NotEqual(t, -1, runner.callIndex("--pod=pod_proj"))
}
