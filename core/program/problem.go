package program

import (
	"math"

	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/core/network"
)

// Sense is the relation of a row to its right-hand side.
type Sense int

const (
	EQ Sense = iota
	LE
)

// Variable is a continuous decision variable with bounds and objective cost.
type Variable struct {
	Name  string
	Lower float64
	// Upper is +Inf when the variable has no upper bound.
	Upper float64
	Cost  float64
}

// Bounded reports whether the variable has a finite upper bound.
func (v Variable) Bounded() bool { return !math.IsInf(v.Upper, 1) }

// Row is a sparse linear constraint.
type Row struct {
	Name  string
	Cols  []int
	Coefs []float64
	Sense Sense
	RHS   float64
}

// Problem is a minimisation linear program over non-negative variables.
type Problem struct {
	Vars []Variable
	Rows []Row
	// Offset is the constant part of the objective contributed by fixed flows.
	Offset float64
	// Conflicts lists rows without variables whose constants do not balance.
	// A problem with conflicts is infeasible before any solver runs.
	Conflicts []string

	net   *network.Network
	flows [][]int
	level [][]int
}

// Network returns the network the problem was built from.
func (p *Problem) Network() *network.Network { return p.net }

// Horizon returns the horizon of the problem.
func (p *Problem) Horizon() model.Horizon { return p.net.Horizon }

// FlowVar returns the variable index of flow id at step t. ok is false for
// fixed flows.
func (p *Problem) FlowVar(id network.FlowID, t int) (int, bool) {
	idx := p.flows[id]
	if idx == nil {
		return 0, false
	}
	return idx[t], true
}

// LevelVar returns the variable index of the level of storage s after step t.
func (p *Problem) LevelVar(s network.StorageID, t int) int {
	return p.level[s][t]
}

// NumBounded returns how many variables carry a finite upper bound.
func (p *Problem) NumBounded() int {
	var n int
	for _, v := range p.Vars {
		if v.Bounded() {
			n++
		}
	}
	return n
}

// Objective evaluates the objective, including Offset, at x.
func (p *Problem) Objective(x []float64) float64 {
	obj := p.Offset
	for i, v := range p.Vars {
		obj += v.Cost * x[i]
	}
	return obj
}
