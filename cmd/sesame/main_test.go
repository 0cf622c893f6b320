package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sesame"
)

const experiment = `set title "CLI test"

define sequence experiment
	run greet always

define logger greet
	log title

define logger orphan
	log title
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml")))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeExperiment(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.opensesame")
	require.NoError(t, os.WriteFile(path, []byte(experiment), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sesame version "+sesame.Version+" ("+sesame.Codename+")\n", out)
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", writeExperiment(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Unused item: orphan")
	assert.Contains(t, out, "Experiment is valid!")

	_, err = execute(t, "validate", "define sequence experiment\n\trun nowhere\n")
	assert.ErrorContains(t, err, "validation failed")
}

func TestGraphCommand(t *testing.T) {
	out, err := execute(t, "graph", writeExperiment(t))
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "greet")
}

func TestItemsAndVarsCommands(t *testing.T) {
	path := writeExperiment(t)

	out, err := execute(t, "items", path)
	require.NoError(t, err)
	assert.Contains(t, out, "| greet | logger |")

	out, err = execute(t, "vars", path, "--filter", "CLI test")
	require.NoError(t, err)
	assert.Contains(t, out, "title")
}

func TestSaveCommand(t *testing.T) {
	src := writeExperiment(t)
	dest := filepath.Join(t.TempDir(), "bundle")

	out, err := execute(t, "save", src, dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved ")
	assert.FileExists(t, dest+".opensesame.tar.gz")

	_, err = execute(t, "save", src, dest)
	assert.Error(t, err, "existing destinations need --force")
}

func TestRunCommand(t *testing.T) {
	path := writeExperiment(t)
	_, err := execute(t, "run", path, "--quiet", "--logfile", "out.csv", "--subject", "4")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(filepath.Dir(path), "out.csv"))
	require.NoError(t, err)
	assert.Equal(t, "title\nCLI test\n", string(data))
}
