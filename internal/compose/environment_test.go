package compose

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentCloneAndMerge(t *testing.T) {
	base := Environment{"A": "1", "B": "2"}

	clone := base.Clone()
	clone["A"] = "changed"
	assert.Equal(t, "1", base["A"])

	base.Merge(Environment{"B": "override", "C": "3"})
	assert.Equal(t, Environment{"A": "1", "B": "override", "C": "3"}, base)
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is empty", func(t *testing.T) {
		env, err := loadDotenv(filepath.Join(dir, "absent.env"))
		require.NoError(t, err)
		assert.Empty(t, env)
	})

	t.Run("parses entries", func(t *testing.T) {
		file := writeFile(t, dir, ".env", "TAG=v3\nEMPTY=\n# comment\n")
		env, err := loadDotenv(file)
		require.NoError(t, err)
		assert.Equal(t, "v3", env["TAG"])
		assert.Equal(t, "", env["EMPTY"])
		_, hasComment := env["# comment"]
		assert.False(t, hasComment)
	})
}

func TestOSEnvironment(t *testing.T) {
	t.Setenv("STEVEDORE_TEST_VAR", "present")
	env := OSEnvironment()
	assert.Equal(t, "present", env["STEVEDORE_TEST_VAR"])
}
