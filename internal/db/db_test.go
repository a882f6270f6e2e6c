package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/tuning"
	"github.com/banshee-data/gait.report/internal/gait/validate"
	"github.com/banshee-data/gait.report/internal/timeutil"
)

func openTestDB(t *testing.T) (*DB, *timeutil.MockClock) {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	clock := timeutil.NewMockClock(time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC))
	clock.SetStep(time.Second)
	database.SetClock(clock)
	return database, clock
}

func intPtr(v int) *int { return &v }

func sampleRun() RunRecord {
	return RunRecord{
		Mode:     gait.ModeKinematic,
		Task:     "level_walking",
		NumSteps: 2,
		Checks:   48,
		Mapping:  gait.StepTaskMapping{0: "level_walking", 1: "level_walking"},
		Violations: []validate.Violation{{
			Task:        "level_walking",
			Step:        intPtr(1),
			Variable:    "knee_flexion_angle_ipsi",
			Phase:       50,
			Value:       1.5,
			ExpectedMin: 0,
			ExpectedMax: 1,
			Reason:      "value 1.5000 above maximum 1.0000",
		}},
		Targets: []tuning.OptimizationTarget{{
			Task:           "level_walking",
			Variable:       "knee_flexion_angle_ipsi",
			Phase:          50,
			FailureCount:   1,
			CurrentRange:   gait.Range{Min: 0, Max: 1},
			SuggestedRange: gait.Range{Min: 0, Max: 1.8},
		}},
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	database, _ := openTestDB(t)

	version, dirty, err := database.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Reopening an already migrated file is a no-op.
	require.NoError(t, database.MigrateUp())
}

func TestMigrateDownDropsRuns(t *testing.T) {
	database, _ := openTestDB(t)
	require.NoError(t, database.MigrateDown())

	_, err := database.ListRuns(context.Background(), 10)
	assert.Error(t, err)

	require.NoError(t, database.MigrateUp())
	runs, err := database.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRecordAndGetRun(t *testing.T) {
	database, _ := openTestDB(t)
	ctx := context.Background()

	in := sampleRun()
	id, err := database.RecordRun(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := database.GetRun(ctx, id)
	require.NoError(t, err)

	want := in
	want.ID = id
	want.CreatedAt = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("GetRun mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, got.ViolationCount())
}

func TestRecordRunEmptyCollections(t *testing.T) {
	database, _ := openTestDB(t)
	ctx := context.Background()

	id, err := database.RecordRun(ctx, RunRecord{Mode: gait.ModeKinetic, NumSteps: 0})
	require.NoError(t, err)

	got, err := database.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.Violations)
	assert.Empty(t, got.Targets)
	assert.Empty(t, got.Task)
	assert.Equal(t, gait.ModeKinetic, got.Mode)
}

func TestRecordRunRejectsUnknownMode(t *testing.T) {
	database, _ := openTestDB(t)
	_, err := database.RecordRun(context.Background(), RunRecord{Mode: "dynamic"})
	assert.True(t, errors.Is(err, gait.ErrUnknownMode))
}

func TestGetRunNotFound(t *testing.T) {
	database, _ := openTestDB(t)
	_, err := database.GetRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestListRunsNewestFirst(t *testing.T) {
	database, _ := openTestDB(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		rec := sampleRun()
		rec.NumSteps = i + 1
		id, err := database.RecordRun(ctx, rec)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := database.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	limited, err := database.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
	assert.Equal(t, ids[2], limited[0].ID)
}

func TestListRunsOrdersSubSecondTimestamps(t *testing.T) {
	database, clock := openTestDB(t)
	clock.SetStep(0)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	times := []time.Time{
		base.Add(100 * time.Millisecond),
		base.Add(120 * time.Millisecond),
		base.Add(time.Second),
		base.Add(time.Second + 5*time.Nanosecond),
	}
	// Record out of order so rowid does not decide the result.
	order := []int{1, 0, 3, 2}
	ids := make([]string, len(times))
	for _, i := range order {
		clock.Set(times[i])
		id, err := database.RecordRun(ctx, sampleRun())
		require.NoError(t, err)
		ids[i] = id
	}

	runs, err := database.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, len(times))
	for i, run := range runs {
		want := len(times) - 1 - i
		assert.Equal(t, ids[want], run.ID, "position %d", i)
		assert.True(t, times[want].Equal(run.CreatedAt), "position %d: got %v", i, run.CreatedAt)
	}
}
