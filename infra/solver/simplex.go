package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/districtopt/core/factory"
	"github.com/kilianp07/districtopt/core/program"
	"github.com/kilianp07/districtopt/infra/logger"
)

// DefaultMaxCells caps the dense constraint matrix handed to the simplex.
// Week-long horizons exceed it and belong on the cbc backend.
const DefaultMaxCells = 40_000_000

// ErrTooLarge is returned when the dense standard form would exceed MaxCells.
var ErrTooLarge = errors.New("problem too large for the dense simplex backend")

// SimplexConfig configures the in-process gonum simplex.
type SimplexConfig struct {
	Tolerance float64 `json:"tolerance"`
	MaxCells  int     `json:"max_cells"`
}

// SetDefaults fills unset fields.
func (c *SimplexConfig) SetDefaults() {
	if c.Tolerance <= 0 {
		c.Tolerance = 1e-9
	}
	if c.MaxCells <= 0 {
		c.MaxCells = DefaultMaxCells
	}
}

// Simplex solves programs with gonum's dense simplex implementation.
type Simplex struct {
	cfg SimplexConfig
	log logger.Logger
}

// NewSimplex returns a simplex backend.
func NewSimplex(cfg SimplexConfig) *Simplex {
	cfg.SetDefaults()
	return &Simplex{cfg: cfg, log: logger.New("simplex")}
}

// lpSimplex points to the gonum routine. Tests override it to simulate
// numerical failures.
var lpSimplex = lp.Simplex

func init() {
	_ = program.RegisterSolver("simplex", func(conf map[string]any) (program.Solver, error) {
		var cfg SimplexConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, fmt.Errorf("simplex config: %w", err)
		}
		return NewSimplex(cfg), nil
	})
}

// Solve implements program.Solver.
func (s *Simplex) Solve(ctx context.Context, p *program.Problem) (*program.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.Conflicts) > 0 {
		s.log.Warnf("infeasible before solving: %v", p.Conflicts)
		return program.Infeasible(p), nil
	}
	sf, status, err := standardForm(p)
	if err != nil {
		return nil, err
	}
	if status != program.StatusOptimal {
		return program.NewSolution(p, status, nil)
	}
	if sf.rows() == 0 {
		return program.NewSolution(p, program.StatusOptimal, sf.recover(nil))
	}
	if cells := sf.rows() * sf.cols(); cells > s.cfg.MaxCells {
		return nil, fmt.Errorf("%w: %d x %d", ErrTooLarge, sf.rows(), sf.cols())
	}
	start := time.Now()
	A := mat.NewDense(sf.rows(), sf.cols(), nil)
	for i, r := range sf.a {
		for j, c := range r.cols {
			A.Set(i, c, r.coefs[j])
		}
	}
	_, x, err := lpSimplex(sf.c, A, sf.b, s.cfg.Tolerance, nil)
	s.log.Debugw("simplex finished", map[string]any{
		"rows":     sf.rows(),
		"cols":     sf.cols(),
		"duration": time.Since(start).String(),
	})
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return program.NewSolution(p, program.StatusInfeasible, nil)
	case errors.Is(err, lp.ErrUnbounded):
		return program.NewSolution(p, program.StatusUnbounded, nil)
	case err != nil:
		s.log.Errorf("simplex failed: %v", err)
		return program.NewSolution(p, program.StatusFailed, nil)
	}
	return program.NewSolution(p, program.StatusOptimal, sf.recover(x))
}

type stdRow struct {
	cols  []int
	coefs []float64
}

// stdForm is min cᵀx s.t. Ax = b, x >= 0 with b >= 0. The first structural
// columns map back to problem variables; the rest are slacks.
type stdForm struct {
	c     []float64
	a     []stdRow
	b     []float64
	colOf []int // problem variable -> column, -1 when eliminated
	nVars int
	ncols int
}

func (s *stdForm) rows() int { return len(s.a) }
func (s *stdForm) cols() int { return s.ncols }

func (s *stdForm) recover(x []float64) []float64 {
	out := make([]float64, s.nVars)
	for i, c := range s.colOf {
		if c >= 0 && x != nil {
			out[i] = x[c]
		}
	}
	return out
}

func (s *stdForm) add(cols []int, coefs []float64, rhs float64) {
	if rhs < 0 {
		neg := make([]float64, len(coefs))
		for i, v := range coefs {
			neg[i] = -v
		}
		coefs, rhs = neg, -rhs
	}
	s.a = append(s.a, stdRow{cols: cols, coefs: coefs})
	s.b = append(s.b, rhs)
}

// standardForm rewrites p for gonum. Dependent equality rows are removed;
// variables that appear in no row take their cheapest bound.
func standardForm(p *program.Problem) (*stdForm, program.Status, error) {
	var eq, le []program.Row
	for _, r := range p.Rows {
		if r.Sense == program.LE {
			le = append(le, r)
		} else {
			eq = append(eq, r)
		}
	}
	eq, ok := independentRows(eq)
	if !ok {
		return nil, program.StatusInfeasible, nil
	}

	used := make([]bool, len(p.Vars))
	for _, rows := range [][]program.Row{eq, le} {
		for _, r := range rows {
			for _, c := range r.Cols {
				used[c] = true
			}
		}
	}
	sf := &stdForm{colOf: make([]int, len(p.Vars)), nVars: len(p.Vars)}
	for i, v := range p.Vars {
		if v.Lower != 0 {
			return nil, program.StatusFailed, fmt.Errorf("variable %s: non-zero lower bound unsupported", v.Name)
		}
		if v.Upper < 0 {
			return nil, program.StatusInfeasible, nil
		}
		sf.colOf[i] = -1
		if !used[i] {
			if v.Cost < 0 && !v.Bounded() {
				return nil, program.StatusUnbounded, nil
			}
			if v.Cost >= 0 || v.Upper == 0 {
				continue
			}
		}
		sf.colOf[i] = sf.ncols
		sf.c = append(sf.c, v.Cost)
		sf.ncols++
	}

	mapCols := func(r program.Row) []int {
		cols := make([]int, len(r.Cols))
		for i, c := range r.Cols {
			cols[i] = sf.colOf[c]
		}
		return cols
	}
	for _, r := range eq {
		sf.add(mapCols(r), append([]float64(nil), r.Coefs...), r.RHS)
	}
	for _, r := range le {
		slack := sf.slack()
		sf.add(append(mapCols(r), slack), append(append([]float64(nil), r.Coefs...), 1), r.RHS)
	}
	for i, v := range p.Vars {
		if sf.colOf[i] < 0 || !v.Bounded() {
			continue
		}
		slack := sf.slack()
		sf.add([]int{sf.colOf[i], slack}, []float64{1, 1}, v.Upper)
	}
	return sf, program.StatusOptimal, nil
}

func (s *stdForm) slack() int {
	s.c = append(s.c, 0)
	s.ncols++
	return s.ncols - 1
}
