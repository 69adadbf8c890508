package program

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/core/network"
)

// ErrNotOptimal is returned when a solve did not reach an optimal solution.
// No partial result is ever used.
var ErrNotOptimal = errors.New("solver did not report an optimal solution")

// Status is the outcome of a solve.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Solution maps every flow and storage of the problem to solved values.
type Solution struct {
	Status    Status
	Objective float64

	p *Problem
	x []float64
}

// NewSolution wraps a solver result. Values within Eps of zero are cleaned to
// zero and x is copied. A non-optimal status carries no values.
func NewSolution(p *Problem, status Status, x []float64) (*Solution, error) {
	if status != StatusOptimal {
		return &Solution{Status: status, p: p}, nil
	}
	if len(x) < len(p.Vars) {
		return nil, fmt.Errorf("solution has %d values for %d variables", len(x), len(p.Vars))
	}
	clean := make([]float64, len(p.Vars))
	for i := range clean {
		v := x[i]
		if math.Abs(v) < Eps {
			v = 0
		}
		clean[i] = v
	}
	return &Solution{Status: status, Objective: p.Objective(clean), p: p, x: clean}, nil
}

// Infeasible returns the solution of a problem rejected before solving.
func Infeasible(p *Problem) *Solution {
	return &Solution{Status: StatusInfeasible, p: p}
}

// Err returns nil for optimal solutions and a wrapped ErrNotOptimal otherwise.
func (s *Solution) Err() error {
	if s.Status == StatusOptimal {
		return nil
	}
	return fmt.Errorf("%w: status %s", ErrNotOptimal, s.Status)
}

// Network returns the solved network.
func (s *Solution) Network() *network.Network { return s.p.net }

// Value returns the value of variable i.
func (s *Solution) Value(i int) float64 { return s.x[i] }

// Flow returns the value of flow id at every step.
func (s *Solution) Flow(id network.FlowID) model.Series {
	h := s.p.Horizon()
	f := s.p.net.Flow(id)
	if f.Fixed() {
		out := make(model.Series, h.Len)
		for t := range out {
			out[t] = f.Fix.At(t)
		}
		return out
	}
	out := make(model.Series, h.Len)
	if s.x == nil {
		return out
	}
	for t := range out {
		out[t] = s.x[s.p.flows[id][t]]
	}
	return out
}

// Level returns the storage level at the start of every step plus the final
// level: Level(s)[0] is the initial level and has length horizon+1.
func (s *Solution) Level(id network.StorageID) model.Series {
	st := s.p.net.Storages[id]
	h := s.p.Horizon()
	out := make(model.Series, h.Len+1)
	out[0] = st.Params.InitialLevelKWh
	if s.x == nil {
		return out
	}
	for t := 0; t < h.Len; t++ {
		out[t+1] = s.x[s.p.level[id][t]]
	}
	return out
}
