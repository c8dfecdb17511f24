package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/hdf"
)

const tableYAML = `
name: piv
version: v1.0.0
standard_names:
  x_velocity:
    units: m/s
    description: Velocity component in x direction.
  time:
    units: s
    description: Time since start of recording.
`

const conventionYAML = `
name: piv-convention
attributes:
  units:
    target_kinds: [dataset]
    required: true
    validator: units
  long_name:
    target_kinds: [dataset]
    validator: non-empty
`

// runCLI executes the binary's command tree with a temp config.
func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--config", configPath, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "semcat.yaml")
	content := fmt.Sprintf(`
catalog:
  work_dir: %s
stores:
  registry_path: %s
`, filepath.Join(dir, "work"), filepath.Join(dir, "registry.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, writeTestConfig(t), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "semcat version")
}

func TestSntCheckCommand(t *testing.T) {
	cfg := writeTestConfig(t)
	tablePath := filepath.Join(t.TempDir(), "piv.yaml")
	require.NoError(t, os.WriteFile(tablePath, []byte(tableYAML), 0o644))

	out, err := runCLI(t, cfg, "snt", "check", tablePath, "x_velocity")
	require.NoError(t, err)
	assert.Contains(t, out, "x_velocity: ok")

	out, err = runCLI(t, cfg, "snt", "check", tablePath, "x_velocity", "--units", "mm/s")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	_, err = runCLI(t, cfg, "snt", "check", tablePath, "x_velocity", "--units", "kg")
	assert.Error(t, err)

	_, err = runCLI(t, cfg, "snt", "check", tablePath, "not_a_name")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	cfg := writeTestConfig(t)
	dir := t.TempDir()

	convPath := filepath.Join(dir, "convention.yaml")
	require.NoError(t, os.WriteFile(convPath, []byte(conventionYAML), 0o644))

	good := filepath.Join(dir, "good.h5")
	b, err := hdf.Create(good, nil, nil)
	require.NoError(t, err)
	_, err = b.CreateDataset("/u", []float64{1}, map[string]any{
		"units": "m/s", "long_name": "velocity",
	})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	out, err := runCLI(t, cfg, "validate", good, "--convention-file", convPath)
	require.NoError(t, err)
	assert.Contains(t, out, "0 errors")

	bad := filepath.Join(dir, "bad.h5")
	b, err = hdf.Create(bad, nil, nil)
	require.NoError(t, err)
	_, err = b.CreateDataset("/u", []float64{1}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	out, err = runCLI(t, cfg, "validate", bad, "--convention-file", convPath)
	require.Error(t, err)
	assert.Contains(t, out, "units")
}

func TestRegistryScanAndFind(t *testing.T) {
	cfg := writeTestConfig(t)
	dataDir := t.TempDir()

	path := filepath.Join(dataDir, "run1.h5")
	b, err := hdf.Create(path, nil, nil)
	require.NoError(t, err)
	_, err = b.CreateDataset("/u", []float64{1, 2}, map[string]any{
		"standard_name": "x_velocity", "units": "m/s",
	})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	out, err := runCLI(t, cfg, "registry", "scan", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "registered 1 datasets from 1 files")

	out, err = runCLI(t, cfg, "registry", "find", "x_velocity")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "/u"))
	assert.Contains(t, out, "m/s")

	out, err = runCLI(t, cfg, "registry", "find", "z_vorticity")
	require.NoError(t, err)
	assert.Contains(t, out, "no matches")
}
