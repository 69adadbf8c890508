package model

// Series holds one value per horizon step.
type Series []float64

// Constant returns a series of length n filled with v.
func Constant(v float64, n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// Clone returns a copy of the series.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Scale returns a new series multiplied by f.
func (s Series) Scale(f float64) Series {
	out := make(Series, len(s))
	for i, v := range s {
		out[i] = v * f
	}
	return out
}

// Head returns the first n values (or all of them when the series is shorter).
func (s Series) Head(n int) Series {
	if n >= len(s) {
		return s
	}
	return s[:n]
}

// Sum returns the sum of all values.
func (s Series) Sum() float64 {
	var total float64
	for _, v := range s {
		total += v
	}
	return total
}

// At returns the value at step t. An empty series behaves as zero and a
// single-value series as a constant.
func (s Series) At(t int) float64 {
	switch len(s) {
	case 0:
		return 0
	case 1:
		return s[0]
	}
	return s[t]
}
