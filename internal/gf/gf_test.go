package gf

import "testing"

func approxEq(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestContinuousInterpolatesAndClamps(t *testing.T) {
	tbl, err := New(Continuous, []float64{0, 1, 2}, []float64{0, 10, 10}, Scale{}, Scale{})
	if err != nil {
		t.Fatal(err)
	}
	cases := map[float64]float64{-1: 0, 0: 0, 0.5: 5, 1: 10, 1.5: 10, 3: 10}
	for x, want := range cases {
		if got := tbl.Lookup(x); !approxEq(got, want) {
			t.Errorf("Lookup(%v) = %v, want %v", x, got, want)
		}
	}
}

func TestExtrapolateExtendsSlope(t *testing.T) {
	tbl, err := New(Extrapolate, []float64{0, 1}, []float64{0, 2}, Scale{}, Scale{})
	if err != nil {
		t.Fatal(err)
	}
	if got := tbl.Lookup(2); !approxEq(got, 4) {
		t.Errorf("Lookup(2) = %v, want 4", got)
	}
	if got := tbl.Lookup(-1); !approxEq(got, -2) {
		t.Errorf("Lookup(-1) = %v, want -2", got)
	}
}

func TestDiscreteStepsDown(t *testing.T) {
	tbl, err := New(Discrete, []float64{0, 1, 2}, []float64{10, 20, 30}, Scale{}, Scale{})
	if err != nil {
		t.Fatal(err)
	}
	cases := map[float64]float64{-1: 10, 0: 10, 0.9: 10, 1: 20, 1.9: 20, 2: 30, 5: 30}
	for x, want := range cases {
		if got := tbl.Lookup(x); !approxEq(got, want) {
			t.Errorf("Lookup(%v) = %v, want %v", x, got, want)
		}
	}
}

func TestSynthesizedXsFromScale(t *testing.T) {
	tbl, err := New(Continuous, nil, []float64{0, 5, 10}, Scale{Min: 0, Max: 2}, Scale{})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1, 2}
	for i, x := range want {
		if !approxEq(tbl.Xs[i], x) {
			t.Errorf("Xs[%d] = %v, want %v", i, tbl.Xs[i], x)
		}
	}
}

func TestUnsortedXsIsBadTable(t *testing.T) {
	_, err := New(Continuous, []float64{1, 0}, []float64{1, 2}, Scale{}, Scale{})
	if err == nil {
		t.Fatal("expected BadTable error")
	}
}
