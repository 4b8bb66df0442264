package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// executeCmd executes the root command with the given args and returns the output.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Execute(t *testing.T) {
	t.Run("root command shows help", func(t *testing.T) {
		_, err := executeCmd(t)
		assert.NoError(t, err)
	})

	t.Run("help flag", func(t *testing.T) {
		output, err := executeCmd(t, "--help")
		assert.NoError(t, err)
		assert.Contains(t, output, "stevedore")
		assert.Contains(t, output, "multi-container")
	})
}

func TestRootCmd_Structure(t *testing.T) {
	commands := rootCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "up")
	assert.Contains(t, commandNames, "down")
	assert.Contains(t, commandNames, "ps")
	assert.Contains(t, commandNames, "config")
	assert.Contains(t, commandNames, "run")
	assert.Contains(t, commandNames, "start")
	assert.Contains(t, commandNames, "stop")
	assert.Contains(t, commandNames, "restart")
	assert.Contains(t, commandNames, "version")
}

func TestVersionCmd(t *testing.T) {
	output, err := executeCmd(t, "version")
	assert.NoError(t, err)
	assert.Contains(t, output, "stevedore version")
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	pf := rootCmd.PersistentFlags()
	for _, name := range []string{
		"file", "project-name", "env-file", "profile", "env",
		"podman-path", "parallel", "in-pod", "dry-run", "verbose",
	} {
		assert.NotNil(t, pf.Lookup(name), "missing persistent flag %s", name)
	}
}
