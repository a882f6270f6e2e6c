package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/db"
	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/rangestore"
	"github.com/banshee-data/gait.report/internal/testutil"
)

type testEnv struct {
	dir    string
	config string
	steps  string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()

	table := testutil.UniformTable(t, gait.ModeKinematic, -1, 1, "walk")
	rangesPath := filepath.Join(dir, "kinematic.yaml")
	require.NoError(t, rangestore.Save(fsutil.OSFileSystem{}, rangesPath, table))

	configPath := filepath.Join(dir, "engine.json")
	cfg := fmt.Sprintf(`{"kinematic_ranges_path": %q, "db_path": %q, "num_points": 40}`,
		rangesPath, filepath.Join(dir, "runs.db"))
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0644))

	return testEnv{dir: dir, config: configPath, steps: filepath.Join(dir, "steps.json")}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestSynthValidateRecordRuns(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, "synth", "--config", env.config, "--task", "walk", "--steps", "4", "-o", env.steps)
	require.NoError(t, err, out)
	assert.Contains(t, out, "wrote 4 kinematic steps (40 points)")

	out, err = execute(t, "validate", "--config", env.config, "--task", "walk", "--data", env.steps, "--json", "--record")
	require.NoError(t, err, out)

	var result validateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 4*4*6, result.Checks)
	assert.Empty(t, result.Violations)
	require.NotEmpty(t, result.RunID)

	out, err = execute(t, "runs", "--config", env.config)
	require.NoError(t, err, out)
	assert.Contains(t, out, result.RunID)

	out, err = execute(t, "runs", "--config", env.config, result.RunID)
	require.NoError(t, err, out)
	assert.Contains(t, out, `"num_steps": 4`)
}

func TestValidateUnknownTaskAndMode(t *testing.T) {
	env := newTestEnv(t)
	_, err := execute(t, "synth", "--config", env.config, "--task", "walk", "--steps", "2", "-o", env.steps)
	require.NoError(t, err)

	_, err = execute(t, "validate", "--config", env.config, "--task", "jog", "--data", env.steps, "--record=false")
	require.Error(t, err)
	assert.ErrorIs(t, err, gait.ErrUnknownTask)

	_, err = execute(t, "validate", "--config", env.config, "--mode", "dynamic", "--task", "walk", "--data", env.steps)
	assert.ErrorIs(t, err, gait.ErrUnknownMode)
	// Reset for later tests.
	validateFlags.mode = "kinematic"
}

func TestTuneSuggestsWiderRanges(t *testing.T) {
	env := newTestEnv(t)
	_, err := execute(t, "synth", "--config", env.config, "--task", "walk", "--steps", "3", "-o", env.steps)
	require.NoError(t, err)

	data, mapping, err := readStepFile(env.steps)
	require.NoError(t, err)
	data.Set(1, gait.PhaseIndex(25, data.Points), 0, 10)
	require.NoError(t, writeStepFile(env.steps, stepFile{Mode: gait.ModeKinematic, Tasks: tasksOf(mapping), Data: data}))

	out, err := execute(t, "validate", "--config", env.config, "--task", "walk", "--data", env.steps, "--json=false", "--record=false")
	require.NoError(t, err, out)
	assert.Contains(t, out, "violations=1 failed_steps=1")
	assert.Contains(t, out, "above maximum")

	suggested := filepath.Join(env.dir, "suggested.yaml")
	out, err = execute(t, "tune", "--config", env.config, "--task", "walk", "--data", env.steps, "--suggest-out", suggested)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Total failures:")

	tuned, err := rangestore.Load(fsutil.OSFileSystem{}, suggested)
	require.NoError(t, err)
	r, ok := tuned.Lookup("walk", 25, gait.ModeKinematic.MustFeatures()[0])
	require.True(t, ok)
	assert.InDelta(t, 12.0, r.Max, 1e-9)
	assert.Equal(t, -1.0, r.Min)
}

func TestValidateRecordStoresTargets(t *testing.T) {
	env := newTestEnv(t)
	_, err := execute(t, "synth", "--config", env.config, "--task", "walk", "--steps", "2", "-o", env.steps)
	require.NoError(t, err)

	data, mapping, err := readStepFile(env.steps)
	require.NoError(t, err)
	data.Set(0, gait.PhaseIndex(75, data.Points), 0, 10)
	require.NoError(t, writeStepFile(env.steps, stepFile{Mode: gait.ModeKinematic, Tasks: tasksOf(mapping), Data: data}))

	out, err := execute(t, "validate", "--config", env.config, "--task", "walk", "--data", env.steps, "--json", "--record")
	require.NoError(t, err, out)
	var result validateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.NotEmpty(t, result.RunID)

	database, err := db.Open(filepath.Join(env.dir, "runs.db"))
	require.NoError(t, err)
	defer database.Close()
	run, err := database.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Len(t, run.Targets, 1)
	assert.Equal(t, gait.ModeKinematic.MustFeatures()[0], run.Targets[0].Variable)
	assert.Equal(t, 75.0, run.Targets[0].Phase)
	assert.InDelta(t, 12.0, run.Targets[0].SuggestedRange.Max, 1e-9)
}

func TestPlotWritesCharts(t *testing.T) {
	env := newTestEnv(t)
	_, err := execute(t, "synth", "--config", env.config, "--task", "walk", "--steps", "2", "-o", env.steps)
	require.NoError(t, err)

	outDir := filepath.Join(env.dir, "plots")
	out, err := execute(t, "plot", "--config", env.config, "--data", env.steps, "--out", outDir)
	require.NoError(t, err, out)

	for _, name := range []string{"matrix.png", "matrix.html", "knee_flexion_angle_ipsi.png"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
}

func TestReadStepFileErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"tasks": ["walk"], "data": [[[0,0,0,0,0,0]],[[0,0,0,0,0,0]]]}`), 0644))
	_, _, err := readStepFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 tasks for 2 steps")

	_, _, err = readStepFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"tasks": []}`), 0644))
	_, _, err = readStepFile(empty)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "gaitcheck dev"), out)
}

func tasksOf(m gait.StepTaskMapping) []string {
	tasks := make([]string, len(m))
	for _, s := range m.Steps() {
		tasks[s] = m[s]
	}
	return tasks
}
