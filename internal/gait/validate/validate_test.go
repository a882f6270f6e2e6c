package validate

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/gait"
)

const hipIpsi = "hip_flexion_angle_ipsi"

func levelWalkingTable(t *testing.T) *gait.RangeTable {
	t.Helper()
	rt, err := gait.NewRangeTable(map[string]gait.TaskRanges{
		"level_walking": {0: {hipIpsi: {Min: 0.2, Max: 0.6}}},
	})
	require.NoError(t, err)
	return rt
}

// filledArray returns an array with every sample set to v.
func filledArray(t *testing.T, steps, points int, v float64) *gait.StepArray {
	t.Helper()
	arr, err := gait.NewStepArray(steps, points, 6)
	require.NoError(t, err)
	for s := 0; s < steps; s++ {
		for p := 0; p < points; p++ {
			for f := 0; f < 6; f++ {
				arr.Set(s, p, f, v)
			}
		}
	}
	return arr
}

func newKinematic(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(gait.ModeKinematic)
	require.NoError(t, err)
	return v
}

func TestValidateConcreteScenario(t *testing.T) {
	v := newKinematic(t)
	rt := levelWalkingTable(t)
	hip := gait.ModeKinematic.FeatureIndex(hipIpsi)

	arr := filledArray(t, 2, 150, 0.4)
	arr.Set(0, 0, hip, 0.8)
	mapping := gait.UniformMapping("level_walking", 2)

	res, err := v.Validate(arr, rt, "level_walking", mapping)
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, 2, res.Checks)

	got := res.Violations[0]
	step, ok := got.StepIndex()
	require.True(t, ok)
	assert.Equal(t, 0, step)
	want := Violation{
		Task:        "level_walking",
		Step:        got.Step,
		Variable:    hipIpsi,
		Phase:       0.0,
		Value:       0.8,
		ExpectedMin: 0.2,
		ExpectedMax: 0.6,
		Reason:      got.Reason,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("violation mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, got.Reason, "above maximum")
}

func TestValidateBoundaryInclusion(t *testing.T) {
	v := newKinematic(t)
	rt := levelWalkingTable(t)
	hip := gait.ModeKinematic.FeatureIndex(hipIpsi)
	const eps = 1e-9

	testCases := []struct {
		name  string
		value float64
		want  int
	}{
		{"at_min", 0.2, 0},
		{"at_max", 0.6, 0},
		{"below_min", 0.2 - eps, 1},
		{"above_max", 0.6 + eps, 1},
		{"inside", 0.4, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			arr := filledArray(t, 1, 150, 0.4)
			arr.Set(0, 0, hip, tc.value)
			res, err := v.Validate(arr, rt, "level_walking", gait.UniformMapping("level_walking", 1))
			require.NoError(t, err)
			assert.Len(t, res.Violations, tc.want)
		})
	}
}

func TestValidateOnlyRepresentativeSamples(t *testing.T) {
	v := newKinematic(t)
	rt := levelWalkingTable(t)
	hip := gait.ModeKinematic.FeatureIndex(hipIpsi)

	arr := filledArray(t, 1, 150, 0.4)
	// Off-phase samples are never inspected.
	arr.Set(0, 1, hip, 99)
	arr.Set(0, 149, hip, -99)
	res, err := v.Validate(arr, rt, "level_walking", gait.UniformMapping("level_walking", 1))
	require.NoError(t, err)
	assert.Empty(t, res.Violations)
}

func TestValidateCheckCountInvariance(t *testing.T) {
	v := newKinematic(t)
	ranges := gait.TaskRanges{}
	for _, p := range gait.RepresentativePhases {
		ranges[p] = gait.PhaseRanges{}
		for _, name := range gait.ModeKinematic.MustFeatures() {
			ranges[p][name] = gait.Range{Min: 0, Max: 1}
		}
	}
	rt, err := gait.NewRangeTable(map[string]gait.TaskRanges{"walk": ranges})
	require.NoError(t, err)

	const steps = 5
	var wantViolations int
	for i, points := range []int{100, 150, 1000} {
		arr := filledArray(t, steps, points, 2) // every sample out of range
		res, err := v.Validate(arr, rt, "walk", gait.UniformMapping("walk", steps))
		require.NoError(t, err)
		assert.Equal(t, steps*4*6, res.Checks, "points=%d", points)
		if i == 0 {
			wantViolations = len(res.Violations)
		}
		assert.Len(t, res.Violations, wantViolations, "points=%d", points)
	}
	assert.Equal(t, steps*4*6, wantViolations)
}

func TestValidateSoftSkip(t *testing.T) {
	v := newKinematic(t)
	rt, err := gait.NewRangeTable(map[string]gait.TaskRanges{
		"walk": {
			25:  {hipIpsi: {Min: 0, Max: 1}, "pelvis_tilt_angle": {Min: 0, Max: 1}},
			100: {hipIpsi: {Min: 0, Max: 1}},
		},
	})
	require.NoError(t, err)
	arr := filledArray(t, 1, 150, 5)
	mapping := gait.UniformMapping("walk", 1)

	t.Run("unknown task", func(t *testing.T) {
		res, err := v.Validate(arr, rt, "stairs", mapping)
		require.NoError(t, err)
		assert.Empty(t, res.Violations)
		assert.Zero(t, res.Checks)
	})

	t.Run("missing phases and unknown variables", func(t *testing.T) {
		res, err := v.Validate(arr, rt, "walk", mapping)
		require.NoError(t, err)
		// Only phase 25 / hip ipsi is checkable; 100% and non-feature names are skipped.
		assert.Equal(t, 1, res.Checks)
		require.Len(t, res.Violations, 1)
		assert.Equal(t, 25.0, res.Violations[0].Phase)
	})
}

func TestValidateStepSelection(t *testing.T) {
	v := newKinematic(t)
	rt := levelWalkingTable(t)
	arr := filledArray(t, 3, 150, 0.9)
	mapping := gait.MappingFromTasks([]string{"level_walking", "incline", "level_walking"})

	res, err := v.Validate(arr, rt, "level_walking", mapping)
	require.NoError(t, err)
	require.Len(t, res.Violations, 2)
	var steps []int
	for _, viol := range res.Violations {
		s, _ := viol.StepIndex()
		steps = append(steps, s)
	}
	assert.Equal(t, []int{0, 2}, steps)
}

func TestValidateShapeErrors(t *testing.T) {
	v := newKinematic(t)
	rt := levelWalkingTable(t)

	narrow, err := gait.NewStepArray(1, 150, 3)
	require.NoError(t, err)
	_, err = v.Validate(narrow, rt, "level_walking", gait.UniformMapping("level_walking", 1))
	assert.Error(t, err)

	short := filledArray(t, 1, 3, 0)
	_, err = v.Validate(short, rt, "level_walking", gait.UniformMapping("level_walking", 1))
	assert.Error(t, err)

	arr := filledArray(t, 1, 150, 0)
	_, err = v.Validate(arr, rt, "level_walking", gait.UniformMapping("level_walking", 2))
	assert.Error(t, err)

	_, err = NewValidator("bogus")
	assert.ErrorIs(t, err, gait.ErrUnknownMode)
}

func TestValidateAll(t *testing.T) {
	v := newKinematic(t)
	rt, err := gait.NewRangeTable(map[string]gait.TaskRanges{
		"walk": {0: {hipIpsi: {Min: 0, Max: 1}}},
		"run":  {50: {hipIpsi: {Min: 0, Max: 1}, "knee_flexion_angle_contra": {Min: 0, Max: 1}}},
	})
	require.NoError(t, err)

	arr := filledArray(t, 4, 150, 3)
	mapping := gait.MappingFromTasks([]string{"run", "walk", "run", "stairs"})

	res, err := v.ValidateAll(context.Background(), arr, rt, mapping)
	require.NoError(t, err)
	assert.Equal(t, 2*2+1, res.Checks)

	type key struct {
		step     int
		variable string
	}
	var got []key
	for _, viol := range res.Violations {
		s, _ := viol.StepIndex()
		got = append(got, key{s, viol.Variable})
	}
	want := []key{
		{0, "knee_flexion_angle_contra"},
		{0, hipIpsi},
		{1, hipIpsi},
		{2, "knee_flexion_angle_contra"},
		{2, hipIpsi},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(key{})); diff != "" {
		t.Errorf("ordering mismatch (-want +got):\n%s", diff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = v.ValidateAll(ctx, arr, rt, mapping)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestViolationTaskLevel(t *testing.T) {
	orig := Violation{Task: "walk", Variable: hipIpsi}.AtStep(3)
	tl := orig.TaskLevel()
	_, ok := tl.StepIndex()
	assert.False(t, ok)
	s, ok := orig.StepIndex()
	assert.True(t, ok)
	assert.Equal(t, 3, s)
}
