package rangestore

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
)

const sampleYAML = `
tasks:
  level_walking:
    phases:
      "0":
        hip_flexion_angle_ipsi_rad: {min: 0.2, max: 0.6}
        knee_flexion_angle_ipsi_rad: {min: -0.1, max: 0.3}
      25:
        hip_flexion_angle_ipsi_rad: {min: 0.0, max: 0.4}
  incline_walking:
    phases:
      '50':
        hip_flexion_moment_ipsi_Nm_kg: {min: -1.2, max: 0.8}
`

func TestDecode(t *testing.T) {
	table, err := Decode(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"incline_walking", "level_walking"}, table.Tasks())
	r, ok := table.Lookup("level_walking", 0, "hip_flexion_angle_ipsi")
	require.True(t, ok)
	assert.Equal(t, gait.Range{Min: 0.2, Max: 0.6}, r)

	_, ok = table.Lookup("level_walking", 25, "hip_flexion_angle_ipsi")
	assert.True(t, ok, "unquoted integer phase keys are accepted")

	r, ok = table.Lookup("incline_walking", 50, "hip_flexion_moment_ipsi")
	require.True(t, ok)
	assert.Equal(t, -1.2, r.Min)
}

func TestDecodeErrors(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{"non_integer_phase", "tasks: {walk: {phases: {early: {x: {min: 0, max: 1}}}}}"},
		{"min_above_max", "tasks: {walk: {phases: {'0': {x: {min: 2, max: 1}}}}}"},
		{"duplicate_after_strip", "tasks: {walk: {phases: {'0': {x_rad: {min: 0, max: 1}, x_deg: {min: 0, max: 1}}}}}"},
		{"malformed", "tasks: [unclosed"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.yaml))
			assert.Error(t, err)
		})
	}

	empty, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Tasks())
}

func TestStripUnits(t *testing.T) {
	assert.Equal(t, "hip_flexion_angle_ipsi", StripUnits("hip_flexion_angle_ipsi_rad"))
	assert.Equal(t, "hip_flexion_moment_ipsi", StripUnits("hip_flexion_moment_ipsi_Nm_kg"))
	assert.Equal(t, "hip_flexion_moment_ipsi", StripUnits("hip_flexion_moment_ipsi_Nm"))
	assert.Equal(t, "hip_flexion_angle_ipsi", StripUnits("hip_flexion_angle_ipsi"))
}

func TestLoadAndSave(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/ranges/kinematic.yaml", []byte(sampleYAML), 0644))

	table, err := Load(mfs, "/ranges/kinematic.yaml")
	require.NoError(t, err)

	require.NoError(t, Save(mfs, "/out/tuned.yaml", table))
	back, err := Load(mfs, "/out/tuned.yaml")
	require.NoError(t, err)
	if diff := cmp.Diff(table.Map(), back.Map()); diff != "" {
		t.Errorf("save/load mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, table))
	assert.Contains(t, buf.String(), "phases:")
	assert.Contains(t, buf.String(), "hip_flexion_angle_ipsi:")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(fsutil.NewMemoryFileSystem(), "/nope.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, gait.ErrConfiguration)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.True(t, IsMissing(err))

	var cfgErr *gait.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "/nope.yaml", cfgErr.Path)
}

func TestCache(t *testing.T) {
	var loads int
	var mu sync.Mutex
	table, err := Decode(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	c := NewCache(func(mode gait.Mode) (*gait.RangeTable, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		return table, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Get(gait.ModeKinematic)
			assert.NoError(t, err)
			assert.Same(t, table, got)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, loads, "concurrent first access loads once")
	assert.True(t, c.Loaded(gait.ModeKinematic))
	assert.False(t, c.Loaded(gait.ModeKinetic))

	c.Invalidate(gait.ModeKinematic)
	_, err = c.Get(gait.ModeKinematic)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)

	_, err = c.Get("bogus")
	assert.ErrorIs(t, err, gait.ErrUnknownMode)
	assert.ErrorIs(t, c.Put("bogus", table), gait.ErrUnknownMode)
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	calls := 0
	c := NewCache(func(gait.Mode) (*gait.RangeTable, error) {
		calls++
		return nil, &gait.ConfigurationError{Path: "x", Err: fs.ErrNotExist}
	})
	_, err := c.Get(gait.ModeKinetic)
	assert.ErrorIs(t, err, gait.ErrConfiguration)
	_, _ = c.Get(gait.ModeKinetic)
	assert.Equal(t, 2, calls)
}

func TestFileCacheAndLoadTask(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/kinematic.yaml", []byte(sampleYAML), 0644))
	c := NewFileCache(mfs, map[gait.Mode]string{gait.ModeKinematic: "/kinematic.yaml"})

	tr, err := LoadTask(c, gait.ModeKinematic, "level_walking")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 25}, tr.Phases())

	_, err = LoadTask(c, gait.ModeKinematic, "stairs")
	var taskErr *gait.UnknownTaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, []string{"incline_walking", "level_walking"}, taskErr.Available)

	_, err = LoadTask(c, gait.ModeKinetic, "level_walking")
	assert.ErrorIs(t, err, gait.ErrConfiguration)

	require.NoError(t, c.Put(gait.ModeKinetic, gait.EmptyRangeTable()))
	_, err = LoadTask(c, gait.ModeKinetic, "level_walking")
	assert.ErrorIs(t, err, gait.ErrUnknownTask)
}
