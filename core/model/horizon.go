package model

import (
	"errors"
	"fmt"
	"time"
)

// DefaultStep is the native dispatch resolution.
const DefaultStep = 15 * time.Minute

// ErrHorizon is returned for horizons that cannot be dispatched.
var ErrHorizon = errors.New("invalid horizon")

// Horizon is the ordered sequence of equal-length timesteps jointly optimised.
type Horizon struct {
	Start time.Time
	Step  time.Duration
	Len   int
}

// NewHorizon returns a horizon of n steps of the given length starting at start.
func NewHorizon(start time.Time, step time.Duration, n int) (Horizon, error) {
	h := Horizon{Start: start, Step: step, Len: n}
	return h, h.Validate()
}

// Validate checks that the step is positive, divides one hour and that the
// horizon has at least one step.
func (h Horizon) Validate() error {
	if h.Len <= 0 {
		return fmt.Errorf("%w: %d steps", ErrHorizon, h.Len)
	}
	if h.Step <= 0 {
		return fmt.Errorf("%w: step %s", ErrHorizon, h.Step)
	}
	if time.Hour%h.Step != 0 {
		return fmt.Errorf("%w: step %s does not divide one hour", ErrHorizon, h.Step)
	}
	return nil
}

// StepHours returns the step length in hours, used to turn power into energy.
func (h Horizon) StepHours() float64 { return h.Step.Hours() }

// StepsPerHour returns how many steps make up one hour.
func (h Horizon) StepsPerHour() int {
	if h.Step <= 0 {
		return 0
	}
	return int(time.Hour / h.Step)
}

// Time returns the start time of step t.
func (h Horizon) Time(t int) time.Time {
	return h.Start.Add(time.Duration(t) * h.Step)
}

// Times returns the start time of every step.
func (h Horizon) Times() []time.Time {
	ts := make([]time.Time, h.Len)
	for i := range ts {
		ts[i] = h.Time(i)
	}
	return ts
}

// Truncate returns a copy limited to n steps. n larger than the horizon is ignored.
func (h Horizon) Truncate(n int) Horizon {
	if n < h.Len {
		h.Len = n
	}
	return h
}
