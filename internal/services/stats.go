package services

import "math"

// welford accumulates mean and variance in a single pass (Welford's online
// algorithm), so a window update never needs the raw series twice.
type welford struct {
	n    int
	mean float64
	m2   float64
	min  float64
	max  float64
}

func (w *welford) Add(x float64) {
	w.n++
	if w.n == 1 {
		w.min, w.max = x, x
	} else {
		if x < w.min {
			w.min = x
		}
		if x > w.max {
			w.max = x
		}
	}
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (x - w.mean)
}

func (w *welford) Count() int     { return w.n }
func (w *welford) Mean() float64  { return w.mean }
func (w *welford) Min() float64   { return w.min }
func (w *welford) Max() float64   { return w.max }

// StdDev is the sample standard deviation; zero for fewer than two samples.
func (w *welford) StdDev() float64 {
	if w.n < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.n-1))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round6 keeps stored floats stable across recomputation; six decimals is
// far below any clinically meaningful resolution.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
