package sim_test

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bpowers/sdsim/internal/build"
	"github.com/bpowers/sdsim/internal/errs"
	"github.com/bpowers/sdsim/internal/loader"
	"github.com/bpowers/sdsim/internal/model"
	"github.com/bpowers/sdsim/internal/sim"
	"github.com/bpowers/sdsim/internal/vm"
)

// readScenario decodes one of the end-to-end fixtures under testdata/ into
// a model.Project, without linking it — used by loadScenario and directly
// by S5, which is expected to fail compilation.
func readScenario(t *testing.T, name string) model.Project {
	t.Helper()
	raw, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	proj, err := loader.Decode(raw, name)
	require.NoError(t, err)
	return proj
}

// loadScenario decodes and links one of the fixtures into a runnable VM
// program, the way cmd/sdsim's "run" command does for a real project file.
func loadScenario(t *testing.T, name string) (model.Project, *build.Linked, sim.Executor) {
	t.Helper()
	proj := readScenario(t, name)

	linked, diags := build.Compile(proj)
	require.True(t, diags.Empty(), "unexpected diagnostics for %s: %v", name, diags.Items())
	require.NotNil(t, linked)

	curr := make([]float64, linked.SlotCount)
	next := make([]float64, linked.SlotCount)
	curr[1] = proj.SimSpecs.Dt.Dt()
	exec := vm.New(linked.VM, curr, next)
	return proj, linked, exec
}

// TestScenarioTeacupCoolsTowardRoomTemp is S1 from spec.md §8: a cooling
// stock converges on room temperature, with a known value at t=10.
func TestScenarioTeacupCoolsTowardRoomTemp(t *testing.T) {
	proj, linked, exec := loadScenario(t, "s1_teacup.yaml")

	results := sim.Run(exec, proj.SimSpecs, 0, linked.SlotCount, linked.Offsets)
	temp, ok := results.At("temp")
	require.True(t, ok)

	for i := 1; i < len(temp); i++ {
		require.LessOrEqual(t, temp[i], temp[i-1]+1e-9, "temp must monotonically decrease")
		require.GreaterOrEqual(t, temp[i], 70-1e-9, "temp must not overshoot room_temp")
	}

	idx := int(math.Round(10 / proj.SimSpecs.Dt.Dt()))
	want := 70 + 110*math.Exp(-1)
	require.InDelta(t, want, temp[idx], 2.0)
}

// TestScenarioSIRConservesPopulation is S2: S+I+R is constant at every save
// point, and the infected compartment peaks mid-run.
func TestScenarioSIRConservesPopulation(t *testing.T) {
	proj, linked, exec := loadScenario(t, "s2_sir.yaml")

	results := sim.Run(exec, proj.SimSpecs, 0, linked.SlotCount, linked.Offsets)
	s, _ := results.At("S")
	i, _ := results.At("I")
	r, _ := results.At("R")

	for k := range results.Times {
		require.InDelta(t, 1000, s[k]+i[k]+r[k], 1e-6)
	}

	peakAt := -1.0
	peakVal := -1.0
	for k, tVal := range results.Times {
		if i[k] > peakVal {
			peakVal = i[k]
			peakAt = tVal
		}
	}
	require.GreaterOrEqual(t, peakAt, 15.0)
	require.LessOrEqual(t, peakAt, 25.0)
}

// TestScenarioIfEquality is S3: `if a = b then 1 else 0` is identically 1
// when a and b are equal constants.
func TestScenarioIfEquality(t *testing.T) {
	proj, linked, exec := loadScenario(t, "s3_if.yaml")

	results := sim.Run(exec, proj.SimSpecs, 0, linked.SlotCount, linked.Offsets)
	result, ok := results.At("result")
	require.True(t, ok)
	for _, v := range result {
		require.Equal(t, 1.0, v)
	}
}

// TestScenarioSafeDivFallback is S4: SAFEDIV(1, 0, 42) is 42 everywhere.
func TestScenarioSafeDivFallback(t *testing.T) {
	proj, linked, exec := loadScenario(t, "s4_safediv.yaml")

	results := sim.Run(exec, proj.SimSpecs, 0, linked.SlotCount, linked.Offsets)
	a, ok := results.At("a")
	require.True(t, ok)
	for _, v := range a {
		require.Equal(t, 42.0, v)
	}
}

// TestScenarioMutualReferenceIsCircular is S5: two auxes each defined in
// terms of the other fail to compile with CircularDependency rather than
// looping or panicking.
func TestScenarioMutualReferenceIsCircular(t *testing.T) {
	proj := readScenario(t, "s5_circular.yaml")

	linked, diags := build.Compile(proj)
	require.Nil(t, linked)
	require.False(t, diags.Empty())

	found := false
	for _, d := range diags.Items() {
		if d.Code == errs.CircularDependency {
			found = true
		}
	}
	require.True(t, found, "expected a CircularDependency diagnostic, got %v", diags.Items())
}

// TestScenarioSmoothedStepTracksExponentialSmoothing is S6: `y = smth1(x, 3)`
// lowers into a smth1 sub-model instance. y must track a first-order
// exponential smoothing of x = step(1, 5) with time constant 3: the
// smoothed level obeys level' = (x - level) / 3, Euler-integrated at the
// scenario's own dt, and y is that level directly (smth1's output port is
// its level stock).
func TestScenarioSmoothedStepTracksExponentialSmoothing(t *testing.T) {
	proj, linked, exec := loadScenario(t, "s6_smth1.yaml")

	results := sim.Run(exec, proj.SimSpecs, 0, linked.SlotCount, linked.Offsets)
	x, ok := results.At("x")
	require.True(t, ok)
	y, ok := results.At("y")
	require.True(t, ok)

	dt := proj.SimSpecs.Dt.Dt()
	level := 0.0
	for i := range results.Times {
		require.InDelta(t, level, y[i], 1e-9, "step %d", i)
		level += dt * (x[i] - level) / 3
	}
}
