package program

import (
	"context"

	"github.com/kilianp07/districtopt/core/factory"
)

// Solver solves a linear program. A returned error means the solver could not
// run at all; an infeasible or unbounded program is reported through the
// solution status.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, p *Problem) (*Solution, error)

// Solve calls f.
func (f SolverFunc) Solve(ctx context.Context, p *Problem) (*Solution, error) { return f(ctx, p) }

var solvers = factory.NewRegistry[Solver]()

// RegisterSolver adds a solver backend under name.
func RegisterSolver(name string, f factory.Factory[Solver]) error {
	return solvers.Register(name, f)
}

// NewSolver instantiates the configured solver backend.
func NewSolver(cfg factory.ModuleConfig) (Solver, error) {
	return solvers.Create(cfg)
}

// Solvers returns the registered backend names.
func Solvers() []string { return solvers.Names() }
