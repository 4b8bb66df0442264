package orchestrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/stevedore/internal/compose"
)

func TestStart_FollowsCreationOrder(t *testing.T) {
	e, runner := newTestExecutor(t, threeTierSpec, compose.LoadOptions{})

	require.NoError(t, e.Start(context.Background(), nil))

	db := runner.callIndex("start proj_db_1")
	web := runner.callIndex("start proj_web_1")
	require.NotEqual(t, -1, db)
	require.NotEqual(t, -1, web)
	assert.Less(t, db, web)
	// start never carries a timeout
	assert.Empty(t, runner.callsWith("-t "))
}

func TestStop_ReversesOrderAndAppliesGracePeriod(t *testing.T) {
	e, runner := newTestExecutor(t, threeTierSpec, compose.LoadOptions{})

	require.NoError(t, e.Stop(context.Background(), nil, -1))

	web := runner.callIndex("stop -t 10 proj_web_1")
	db := runner.callIndex("stop -t 10 proj_db_1")
	require.NotEqual(t, -1, web)
	require.NotEqual(t, -1, db)
	assert.Less(t, web, db, "dependents stop before their dependencies")
}

func TestStop_ServiceFilter(t *testing.T) {
	e, runner := newTestExecutor(t, threeTierSpec, compose.LoadOptions{})

	require.NoError(t, e.Stop(context.Background(), []string{"cache"}, 5))

	assert.NotEqual(t, -1, runner.callIndex("stop -t 5 proj_cache_1"))
	assert.Equal(t, -1, runner.callIndex("proj_web_1"))
	assert.Equal(t, -1, runner.callIndex("proj_db_1"))
}

func TestStop_UnknownServiceFails(t *testing.T) {
	e, runner := newTestExecutor(t, threeTierSpec, compose.LoadOptions{})

	assert.Error(t, e.Stop(context.Background(), []string{"ghost"}, -1))
	assert.Empty(t, runner.recorded())
}

func TestRestart_CarriesTimeout(t *testing.T) {
	e, runner := newTestExecutor(t, threeTierSpec, compose.LoadOptions{})

	require.NoError(t, e.Restart(context.Background(), []string{"db"}, 7))
	assert.NotEqual(t, -1, runner.callIndex("restart -t 7 proj_db_1"))
}

func TestPs(t *testing.T) {
	e, runner := newTestExecutor(t, threeTierSpec, compose.LoadOptions{})

	require.NoError(t, e.Ps(context.Background(), false, ""))
	assert.NotEqual(t, -1, runner.callIndex("ps -a --filter label="+compose.LabelProject+"=proj"))

	t.Run("quiet", func(t *testing.T) {
		require.NoError(t, e.Ps(context.Background(), true, ""))
		assert.NotEqual(t, -1, runner.callIndex("--format {{.ID}}"))
	})

	t.Run("custom format", func(t *testing.T) {
		require.NoError(t, e.Ps(context.Background(), false, "{{.Names}}"))
		assert.NotEqual(t, -1, runner.callIndex("--format {{.Names}}"))
	})
}
