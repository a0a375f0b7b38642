// Package sim drives a compiled project to completion, per spec.md §4.11.
// The loop itself is executor-agnostic: it is written against the Executor
// interface so the same driver logic runs internal/vm and internal/interp,
// which is how tests cross-validate the two (spec.md §4.10).
package sim

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/bpowers/sdsim/internal/ident"
	"github.com/bpowers/sdsim/internal/model"
)

// Executor is the shared surface internal/vm.VM and internal/interp.Interp
// both implement: run one module's runlist, read the live curr buffer, and
// swap buffers at a dt boundary.
type Executor interface {
	Run(base int, phase int)
	Curr() []float64
	Swap()
}

// Results holds one run's saved time series, addressed by the same ident ->
// slot offset map the compiler used (spec.md §3.6).
type Results struct {
	Offsets map[string]int
	Times   []float64
	Rows    [][]float64 // Rows[i][offset] is that variable's value at Times[i]
}

// At returns the saved series for one variable, or (nil, false) if it was
// never tracked. name is canonicalized before the lookup, so source-form
// names ("S", "Room Temp") find their canonical entries.
func (r *Results) At(name string) ([]float64, bool) {
	off, ok := r.Offsets[ident.Canonicalize(name)]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row[off]
	}
	return out, true
}

// Phases mirror compiler.RunlistPhase without importing that package, so
// this driver stays usable from both executors without creating a cycle
// through internal/vm/internal/interp -> internal/compiler -> internal/sim.
const (
	PhaseInitials = 0
	PhaseFlows    = 1
	PhaseStocks   = 2
)

// NSavePoints computes spec.md §4.11's save-point count from the
// *original* (non-narrowed) timing parameters: truncation, not rounding,
// so a cadence that doesn't evenly divide the run never overruns the
// allocated result rows.
func NSavePoints(start, stop, dt, saveStep float64) int {
	denom := math.Max(saveStep, dt)
	if denom <= 0 {
		return 1
	}
	return int(math.Floor((stop-start)/denom)) + 1
}

// Run executes specs.Start..specs.Stop against exec, recording one row
// every save_every steps, per spec.md §4.11's algorithm. timeSlot is the
// absolute slot index of the root "time" global. offsets, if non-nil, is
// copied onto the returned Results so callers can look series up by ident
// via Results.At; it may be nil when a caller only wants raw rows.
func Run(exec Executor, specs model.SimSpecs, timeSlot int, slotCount int, offsets map[string]int) *Results {
	if specs.Method != model.Euler {
		logrus.WithField("requested_method", specs.Method.String()).
			Warn("integration method is not supported; falling back to Euler")
	}
	dt := specs.Dt.Dt()
	saveStep := specs.SaveStepDt()
	start, stop := specs.Start, specs.Stop

	nSave := NSavePoints(start, stop, dt, saveStep)

	results := &Results{Offsets: offsets, Times: make([]float64, 0, nSave), Rows: make([][]float64, 0, nSave)}

	saveEvery := int(math.Round(saveStep / dt))
	if saveEvery < 1 {
		saveEvery = 1
	}

	t := start
	exec.Curr()[timeSlot] = t
	exec.Run(0, PhaseInitials)

	saveCount := 0
	record := func() {
		row := make([]float64, slotCount)
		copy(row, exec.Curr())
		results.Times = append(results.Times, t)
		results.Rows = append(results.Rows, row)
		saveCount++
	}
	record()

	nSteps := int(math.Round((stop - start) / dt))
	const eps = 1e-9
	for step := 1; step <= nSteps && t <= stop+eps; step++ {
		exec.Curr()[timeSlot] = t
		exec.Run(0, PhaseFlows)
		exec.Run(0, PhaseStocks)
		exec.Swap()
		t = start + float64(step)*dt

		if step%saveEvery == 0 && saveCount < nSave {
			exec.Curr()[timeSlot] = t
			// Swap carried only stocks and dt into this buffer; recompute
			// auxes and flows at t so the saved row is consistent.
			exec.Run(0, PhaseFlows)
			record()
		}
	}
	return results
}
