package program

import (
	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/core/network"
)

// Term is coef * flow[step].
type Term struct {
	Flow network.FlowID
	Step int
	Coef float64
}

// Constraint is a linear equality over flow values: Σ terms == RHS.
type Constraint struct {
	Name  string
	Terms []Term
	RHS   float64
}

// Equal returns the constraint a[ta] - b[tb] == 0.
func Equal(name string, a network.FlowID, ta int, b network.FlowID, tb int) Constraint {
	return Constraint{Name: name, Terms: []Term{{Flow: a, Step: ta, Coef: 1}, {Flow: b, Step: tb, Coef: -1}}}
}

// Zero returns the constraint f[t] == 0.
func Zero(name string, f network.FlowID, t int) Constraint {
	return Constraint{Name: name, Terms: []Term{{Flow: f, Step: t, Coef: 1}}}
}

// Overlay is what is layered over a compiled network before solving: extra
// equality constraints and per-flow cost series replacing the compiled cost.
type Overlay struct {
	Constraints []Constraint
	Costs       map[network.FlowID]model.Series
}
