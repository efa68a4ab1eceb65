package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLICommands(t *testing.T) {
	app := newCLI()
	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"chat", "ingest", "search"}, names)
}

func TestCLIRequiresCollection(t *testing.T) {
	app := newCLI()
	app.Writer, app.ErrWriter = &bytes.Buffer{}, &bytes.Buffer{}

	err := app.Run([]string{"kernelctl", "search", "what"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection")

	err = app.Run([]string{"kernelctl", "ingest"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection")
}

func TestCLIRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, "events: carrier-pigeon\n")
	app := newCLI()
	app.Writer, app.ErrWriter = &bytes.Buffer{}, &bytes.Buffer{}

	err := app.Run([]string{"kernelctl", "--config", path, "search", "-c", "docs", "what"})
	assert.ErrorIs(t, err, errInvalidConfig)
}

func TestCLILoadsEnvFile(t *testing.T) {
	env := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(env, []byte("KERNELCTL_EVENTS=smoke-signals\n"), 0o600))
	t.Setenv("KERNELCTL_EVENTS", "")
	require.NoError(t, os.Unsetenv("KERNELCTL_EVENTS"))

	app := newCLI()
	app.Writer, app.ErrWriter = &bytes.Buffer{}, &bytes.Buffer{}
	err := app.Run([]string{"kernelctl", "--env-file", env, "search", "-c", "docs", "what"})
	assert.ErrorIs(t, err, errInvalidConfig)
	assert.Contains(t, err.Error(), "smoke-signals")
}
