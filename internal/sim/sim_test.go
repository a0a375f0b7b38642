package sim

import (
	"testing"

	"github.com/bpowers/sdsim/internal/model"
)

func TestNSavePointsTruncatesNotRounds(t *testing.T) {
	// (10 - 0) / 3 = 3.33 -> floor 3, +1 = 4 save points, not 4.33 rounded up.
	if got := NSavePoints(0, 10, 1, 3); got != 4 {
		t.Errorf("expected 4 save points, got %d", got)
	}
}

func TestNSavePointsEvenlyDivisible(t *testing.T) {
	if got := NSavePoints(0, 10, 1, 1); got != 11 {
		t.Errorf("expected 11 save points for a unit step over 10 units, got %d", got)
	}
}

// fakeExecutor is a minimal Executor double that increments slot 1 (a
// stand-in stock) by 1 every Stocks phase, letting the driver loop be
// tested without a compiled Program.
type fakeExecutor struct {
	curr []float64
	next []float64
}

func (f *fakeExecutor) Curr() []float64 { return f.curr }
func (f *fakeExecutor) Swap()           { f.curr, f.next = f.next, f.curr }
func (f *fakeExecutor) Run(base, phase int) {
	if phase == PhaseStocks {
		f.next[1] = f.curr[1] + 1
	} else if phase == PhaseInitials {
		f.curr[1] = 0
	}
}

func TestRunRecordsSaveRowsAtCadence(t *testing.T) {
	exec := &fakeExecutor{curr: make([]float64, 2), next: make([]float64, 2)}
	specs := model.SimSpecs{Start: 0, Stop: 4, Dt: model.DtSpec{Value: 1}}
	results := Run(exec, specs, 0, 2, nil)
	if len(results.Times) != 5 {
		t.Fatalf("expected 5 save rows (t=0..4 step 1), got %d: %v", len(results.Times), results.Times)
	}
	if results.Rows[4][1] != 4 {
		t.Errorf("expected stock to have accumulated to 4, got %v", results.Rows[4][1])
	}
}

func TestRunHonorsWideSaveStep(t *testing.T) {
	exec := &fakeExecutor{curr: make([]float64, 2), next: make([]float64, 2)}
	saveStep := model.DtSpec{Value: 2}
	specs := model.SimSpecs{Start: 0, Stop: 4, Dt: model.DtSpec{Value: 1}, SaveStep: &saveStep}
	results := Run(exec, specs, 0, 2, nil)
	if len(results.Times) != 3 {
		t.Fatalf("expected 3 save rows at save_step=2 over [0,4], got %d: %v", len(results.Times), results.Times)
	}
}
