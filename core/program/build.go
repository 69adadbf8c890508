package program

import (
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/districtopt/core/network"
)

// Eps is the absolute tolerance below which a constant is treated as zero.
const Eps = 1e-9

// Build assembles the linear program of net with the overlay constraints and
// costs. Build fails only on malformed overlays; an infeasible combination of
// fixed profiles is reported through Problem.Conflicts.
func Build(net *network.Network, ov Overlay) (*Problem, error) {
	h := net.Horizon
	dt := h.StepHours()
	p := &Problem{
		net:   net,
		flows: make([][]int, len(net.Flows)),
		level: make([][]int, len(net.Storages)),
	}

	for _, f := range net.Flows {
		cost := f.Cost
		if c, ok := ov.Costs[f.ID]; ok {
			if len(c) != 1 && len(c) != h.Len {
				return nil, fmt.Errorf("cost of flow %s has %d values, horizon %d", f.Label, len(c), h.Len)
			}
			cost = c
		}
		if f.Fixed() {
			for t := 0; t < h.Len; t++ {
				p.Offset += cost.At(t) * dt * f.Fix.At(t)
			}
			continue
		}
		idx := make([]int, h.Len)
		for t := range idx {
			idx[t] = len(p.Vars)
			p.Vars = append(p.Vars, Variable{
				Name:  fmt.Sprintf("f%d_t%d", f.ID, t),
				Upper: math.Max(f.Upper(t), 0),
				Cost:  cost.At(t) * dt,
			})
		}
		p.flows[f.ID] = idx
	}

	for _, s := range net.Storages {
		idx := make([]int, h.Len)
		for t := range idx {
			idx[t] = len(p.Vars)
			p.Vars = append(p.Vars, Variable{
				Name:  fmt.Sprintf("s%d_t%d", s.ID, t+1),
				Upper: s.Params.CapacityKWh,
			})
		}
		p.level[s.ID] = idx
	}

	for _, j := range net.Junctions() {
		for t := 0; t < h.Len; t++ {
			r := p.newRow(fmt.Sprintf("balance_%s_%d", j.Name, t))
			for _, id := range net.Inflows(j.ID) {
				r.addFlow(id, t, 1)
			}
			for _, id := range net.Outflows(j.ID) {
				r.addFlow(id, t, -1)
			}
			p.commit(r, EQ)
		}
	}

	for _, c := range net.Converters {
		name := net.Node(c.Node).Name
		for k, out := range c.Outputs {
			for t := 0; t < h.Len; t++ {
				r := p.newRow(fmt.Sprintf("convert_%s_%d_%d", name, k, t))
				r.addFlow(out.Flow, t, 1)
				r.addFlow(c.Input, t, -out.Factor.At(t))
				p.commit(r, EQ)
			}
		}
	}

	for _, s := range net.Storages {
		p.storageRows(s, dt)
	}

	for _, c := range ov.Constraints {
		r := p.newRow(c.Name)
		r.rhs = c.RHS
		for _, term := range c.Terms {
			if int(term.Flow) < 0 || int(term.Flow) >= len(net.Flows) {
				return nil, fmt.Errorf("constraint %s: unknown flow %d", c.Name, term.Flow)
			}
			if term.Step < 0 || term.Step >= h.Len {
				return nil, fmt.Errorf("constraint %s: step %d outside horizon", c.Name, term.Step)
			}
			r.addFlow(term.Flow, term.Step, term.Coef)
		}
		p.commit(r, EQ)
	}
	return p, nil
}

// storageRows adds level[t+1] = level[t]*(1-loss) + charge*dt*eff_c - discharge*dt/eff_d.
func (p *Problem) storageRows(s network.Storage, dt float64) {
	par := s.Params
	keep := 1 - par.LossRate
	name := p.net.Node(s.Node).Name
	n := p.net.Horizon.Len
	for t := 0; t < n; t++ {
		r := p.newRow(fmt.Sprintf("level_%s_%d", name, t))
		r.addVar(p.level[s.ID][t], 1)
		if t == 0 {
			r.rhs += keep * par.InitialLevelKWh
		} else {
			r.addVar(p.level[s.ID][t-1], -keep)
		}
		r.addFlow(s.Charge, t, -dt*par.ChargeEfficiency)
		r.addFlow(s.Discharge, t, dt/par.DischargeEfficiency)
		p.commit(r, EQ)
	}
	if par.Balanced {
		r := p.newRow(fmt.Sprintf("balanced_%s", name))
		r.addVar(p.level[s.ID][n-1], 1)
		r.rhs = par.InitialLevelKWh
		p.commit(r, EQ)
	}
}

type rowBuilder struct {
	p     *Problem
	name  string
	coefs map[int]float64
	rhs   float64
}

func (p *Problem) newRow(name string) *rowBuilder {
	return &rowBuilder{p: p, name: name, coefs: make(map[int]float64)}
}

func (r *rowBuilder) addVar(col int, coef float64) {
	r.coefs[col] += coef
}

// addFlow adds coef*flow[t]; fixed flows move to the right-hand side.
func (r *rowBuilder) addFlow(id network.FlowID, t int, coef float64) {
	if col, ok := r.p.FlowVar(id, t); ok {
		r.addVar(col, coef)
		return
	}
	r.rhs -= coef * r.p.net.Flow(id).Fix.At(t)
}

func (p *Problem) commit(r *rowBuilder, sense Sense) {
	cols := make([]int, 0, len(r.coefs))
	for c, v := range r.coefs {
		if v != 0 {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		if math.Abs(r.rhs) > Eps && (sense == EQ || r.rhs < 0) {
			p.Conflicts = append(p.Conflicts, r.name)
		}
		return
	}
	sort.Ints(cols)
	coefs := make([]float64, len(cols))
	for i, c := range cols {
		coefs[i] = r.coefs[c]
	}
	p.Rows = append(p.Rows, Row{Name: r.name, Cols: cols, Coefs: coefs, Sense: sense, RHS: r.rhs})
}
