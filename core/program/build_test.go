package program

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/core/network"
)

func compile(t *testing.T, n int, techs model.Technologies) *network.Network {
	t.Helper()
	h, err := model.NewHorizon(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), model.DefaultStep, n)
	require.NoError(t, err)
	cfg := model.DistrictConfig{
		Name:           "test",
		ElectricDemand: model.Constant(10, n),
		HeatDemand:     model.Constant(0, n),
		Tariffs:        model.Tariffs{GridImport: 1},
		Technologies:   techs,
	}
	net, err := network.Compile(cfg, h)
	require.NoError(t, err)
	return net
}

func TestBuildGridOnly(t *testing.T) {
	net := compile(t, 4, model.Technologies{})
	p, err := Build(net, Overlay{})
	require.NoError(t, err)

	var fixed, free int
	for _, f := range net.Flows {
		if f.Fixed() {
			fixed++
		} else {
			free++
		}
	}
	assert.Equal(t, 2, fixed)
	assert.Len(t, p.Vars, free*4)
	assert.Empty(t, p.Conflicts)

	col, ok := p.FlowVar(net.GridImport, 2)
	require.True(t, ok)
	assert.InDelta(t, 0.25, p.Vars[col].Cost, 1e-12)
	assert.True(t, math.IsInf(p.Vars[col].Upper, 1))

	// the demand bus row carries the fixed demand on its right-hand side
	var found bool
	for _, r := range p.Rows {
		if r.Name == "balance_"+network.ElDemandBus+"_0" {
			found = true
			assert.Equal(t, 10.0, r.RHS)
		}
	}
	assert.True(t, found)
}

func TestBuildRowsOnFixedFlowsOnly(t *testing.T) {
	net := compile(t, 2, model.Technologies{})
	demand, ok := net.Lookup(network.ElDemand)
	require.True(t, ok)
	fixed := net.Inflows(demand.ID)[0]

	p, err := Build(net, Overlay{Constraints: []Constraint{
		{Name: "pin_ok", Terms: []Term{{Flow: fixed, Step: 0, Coef: 1}}, RHS: 10},
	}})
	require.NoError(t, err)
	assert.Empty(t, p.Conflicts)
	for _, r := range p.Rows {
		assert.NotEqual(t, "pin_ok", r.Name)
	}

	p, err = Build(net, Overlay{Constraints: []Constraint{Zero("pin_zero", fixed, 1)}})
	require.NoError(t, err)
	assert.Equal(t, []string{"pin_zero"}, p.Conflicts)
}

func TestBuildOverlayCostsAndConstraints(t *testing.T) {
	net := compile(t, 4, model.Technologies{})
	da := net.Markets[model.DayAhead]
	ov := Overlay{
		Constraints: []Constraint{Equal("da_1=0", da, 1, da, 0), Zero("fp_null_3", net.Markets[model.FuturePeak], 3)},
		Costs:       map[network.FlowID]model.Series{da: {-4, -4, -4, -4}},
	}
	p, err := Build(net, ov)
	require.NoError(t, err)

	col, _ := p.FlowVar(da, 3)
	assert.Equal(t, -1.0, p.Vars[col].Cost)

	last := p.Rows[len(p.Rows)-1]
	assert.Equal(t, "fp_null_3", last.Name)
	assert.Len(t, last.Cols, 1)

	_, err = Build(net, Overlay{Constraints: []Constraint{Zero("bad", da, 9)}})
	assert.Error(t, err)
	_, err = Build(net, Overlay{Costs: map[network.FlowID]model.Series{da: {1, 2}}})
	assert.Error(t, err)
}

func TestBuildStorageRows(t *testing.T) {
	n := 3
	net := compile(t, n, model.Technologies{
		model.KeyBattery: model.Storage{
			CapacityKWh: 100, ChargeKW: 40, DischargeKW: 20,
			ChargeEfficiency: 0.9, DischargeEfficiency: 0.8, LossRate: 0.1,
			InitialLevelKWh: 50, Balanced: true,
		},
	})
	p, err := Build(net, Overlay{})
	require.NoError(t, err)
	s := net.Storages[0]

	rows := map[string]Row{}
	for _, r := range p.Rows {
		rows[r.Name] = r
	}
	first := rows["level_"+network.BatteryNode+"_0"]
	assert.InDelta(t, 45.0, first.RHS, 1e-12)
	coef := func(r Row, col int) float64 {
		for i, c := range r.Cols {
			if c == col {
				return r.Coefs[i]
			}
		}
		return 0
	}
	charge, _ := p.FlowVar(s.Charge, 0)
	discharge, _ := p.FlowVar(s.Discharge, 0)
	assert.InDelta(t, -0.25*0.9, coef(first, charge), 1e-12)
	assert.InDelta(t, 0.25/0.8, coef(first, discharge), 1e-12)
	assert.Equal(t, 1.0, coef(first, p.LevelVar(s.ID, 0)))

	second := rows["level_"+network.BatteryNode+"_1"]
	assert.InDelta(t, -0.9, coef(second, p.LevelVar(s.ID, 0)), 1e-12)

	bal, ok := rows["balanced_"+network.BatteryNode]
	require.True(t, ok)
	assert.Equal(t, 50.0, bal.RHS)

	assert.Equal(t, 100.0, p.Vars[p.LevelVar(s.ID, 2)].Upper)
	assert.Equal(t, 40.0, p.Vars[charge].Upper)
}

func TestSolutionAccessors(t *testing.T) {
	net := compile(t, 2, model.Technologies{})
	p, err := Build(net, Overlay{})
	require.NoError(t, err)

	x := make([]float64, len(p.Vars))
	for i := range x {
		x[i] = 1e-12
	}
	col, _ := p.FlowVar(net.GridImport, 1)
	x[col] = 10
	sol, err := NewSolution(p, StatusOptimal, x)
	require.NoError(t, err)
	assert.NoError(t, sol.Err())
	assert.Equal(t, model.Series{0, 10}, sol.Flow(net.GridImport))
	assert.InDelta(t, 2.5, sol.Objective, 1e-9)

	bad, err := NewSolution(p, StatusInfeasible, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, bad.Err(), ErrNotOptimal)
	assert.Equal(t, model.Series{0, 0}, bad.Flow(net.GridImport))

	_, err = NewSolution(p, StatusOptimal, x[:1])
	assert.Error(t, err)
}
