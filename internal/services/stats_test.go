package services

import (
	"math"
	"testing"
)

func TestWelfordMeanAndStdDev(t *testing.T) {
	var acc welford
	for _, v := range []float64{70, 74, 68, 76, 72, 73, 71} {
		acc.Add(v)
	}
	if acc.Count() != 7 {
		t.Fatalf("count: want=7 got=%d", acc.Count())
	}
	if math.Abs(acc.Mean()-72) > 1e-9 {
		t.Fatalf("mean: want=72 got=%f", acc.Mean())
	}
	// Sample stddev of the series above.
	want := math.Sqrt(7) // sum of squared deviations 42 over n-1
	if math.Abs(acc.StdDev()-want) > 1e-4 {
		t.Fatalf("stddev: want=%f got=%f", want, acc.StdDev())
	}
	if acc.Min() != 68 || acc.Max() != 76 {
		t.Fatalf("min/max: want=68/76 got=%f/%f", acc.Min(), acc.Max())
	}
}

func TestWelfordSingleSampleHasZeroStdDev(t *testing.T) {
	var acc welford
	acc.Add(42)
	if acc.StdDev() != 0 {
		t.Fatalf("stddev with one sample: want=0 got=%f", acc.StdDev())
	}
	if acc.Mean() != 42 {
		t.Fatalf("mean: want=42 got=%f", acc.Mean())
	}
}

func TestWelfordConstantSeries(t *testing.T) {
	var acc welford
	for i := 0; i < 10; i++ {
		acc.Add(98.6)
	}
	if acc.StdDev() != 0 {
		t.Fatalf("stddev of constant series: want=0 got=%f", acc.StdDev())
	}
}

func TestClamp(t *testing.T) {
	if got := clamp(1.5, 0, 1); got != 1 {
		t.Fatalf("clamp above: want=1 got=%f", got)
	}
	if got := clamp(-0.2, 0, 1); got != 0 {
		t.Fatalf("clamp below: want=0 got=%f", got)
	}
	if got := clamp(0.4, 0, 1); got != 0.4 {
		t.Fatalf("clamp inside: want=0.4 got=%f", got)
	}
}

func TestRound6(t *testing.T) {
	if got := round6(0.1234567891); got != 0.123457 {
		t.Fatalf("round6: want=0.123457 got=%f", got)
	}
	if got := round6(2.0); got != 2.0 {
		t.Fatalf("round6 integer: want=2 got=%f", got)
	}
}
