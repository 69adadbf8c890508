package network

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/districtopt/core/model"
)

func testHorizon(t *testing.T, n int) model.Horizon {
	t.Helper()
	h, err := model.NewHorizon(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), model.DefaultStep, n)
	require.NoError(t, err)
	return h
}

func baseConfig(n int) model.DistrictConfig {
	return model.DistrictConfig{
		Name:           "ENaQ",
		ElectricDemand: model.Constant(10, n),
		HeatDemand:     model.Constant(0, n),
		Tariffs:        model.DefaultTariffs(),
		Technologies:   model.Technologies{},
	}
}

func fullConfig(n int) model.DistrictConfig {
	cfg := baseConfig(n)
	cfg.Technologies = model.Technologies{
		model.KeyGas:          model.Gas{},
		model.KeyExtHeat:      model.ExtHeat{},
		model.KeyPV:           model.Renewable{CapacityKW: 100, Profile: model.Constant(0.5, n)},
		model.KeyWind:         model.Renewable{CapacityKW: 50, Profile: model.Constant(0.2, n)},
		model.KeySolarThermal: model.Renewable{CapacityKW: 20, Profile: model.Constant(1, n)},
		model.KeyBoiler:       model.Boiler{CapacityKW: 500, Efficiency: 0.9},
		model.KeyCHP:          model.CHP{ElectricCapacityKW: 100, ThermalCapacityKW: 150, ElectricEfficiency: 0.35, ThermalEfficiency: 0.5},
		model.KeyHeatPump:     model.HeatPump{ThermalCapacityKW: 80, COP: model.Constant(3, n)},
		model.KeyBattery:      model.Storage{CapacityKWh: 100, ChargeKW: 50, DischargeKW: 50, ChargeEfficiency: 0.95, DischargeEfficiency: 0.95},
		model.KeyHeatStorage:  model.Storage{CapacityKWh: 400, ChargeKW: 100, DischargeKW: 100, ChargeEfficiency: 1, DischargeEfficiency: 1, LossRate: 0.01},
	}
	return cfg
}

func TestCompileCoreTopology(t *testing.T) {
	net, err := Compile(baseConfig(4), testHorizon(t, 4))
	require.NoError(t, err)

	for _, name := range []string{ElDistribution, ElDemandBus, ElMarket, ElGrid, ThDistribution, ThDemandBus} {
		nd, ok := net.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, KindJunction, nd.Kind)
	}
	assert.Len(t, net.Markets, 4)
	for _, p := range model.Products {
		f := net.Flow(net.Markets[p])
		assert.Equal(t, "b_el_market_enaq, s_"+p.String()+"_enaq", f.Label)
	}
	grid := net.Flow(net.GridImport)
	assert.Equal(t, float64(model.DefaultGridImport), grid.CostAt(3))
	assert.False(t, grid.Bounded())

	for _, name := range []string{ElProduction, ElRenewable, ThProduction, ThRenewable, GasBus} {
		_, ok := net.Lookup(name)
		assert.False(t, ok, "%s should not exist without technologies", name)
	}
}

func TestCompileAbsentTechnologyOmission(t *testing.T) {
	n := 4
	for _, tech := range Catalog {
		key := tech.Key()
		t.Run(string(key), func(t *testing.T) {
			cfg := fullConfig(n)
			delete(cfg.Technologies, key)
			if key == model.KeyGas {
				delete(cfg.Technologies, model.KeyBoiler)
				delete(cfg.Technologies, model.KeyCHP)
			}
			net, err := Compile(cfg, testHorizon(t, n))
			require.NoError(t, err)
			assert.False(t, net.References(key))
			_, ok := net.Primary[key]
			assert.False(t, ok)
		})
	}
}

func TestCompileFullConfiguration(t *testing.T) {
	n := 4
	net, err := Compile(fullConfig(n), testHorizon(t, n))
	require.NoError(t, err)

	for _, tech := range Catalog {
		assert.True(t, net.References(tech.Key()), tech.Key())
	}
	assert.Len(t, net.Converters, 3)
	assert.Len(t, net.Storages, 2)

	pv := net.Flow(net.Primary[model.KeyPV])
	assert.Equal(t, 50.0, pv.Upper(0))
	assert.False(t, pv.Fixed())
	renew, _ := net.Lookup(ElRenewable)
	assert.Equal(t, renew.ID, pv.To)

	// renewable -> production -> distribution
	prod, _ := net.Lookup(ElProduction)
	distr, _ := net.Lookup(ElDistribution)
	require.Len(t, net.Outflows(renew.ID), 1)
	assert.Equal(t, prod.ID, net.Flow(net.Outflows(renew.ID)[0]).To)
	var toDistr bool
	for _, id := range net.Outflows(prod.ID) {
		if net.Flow(id).To == distr.ID {
			toDistr = true
		}
	}
	assert.True(t, toDistr)

	for _, c := range net.Converters {
		if c.Tech == model.KeyCHP {
			require.Len(t, c.Outputs, 2)
			assert.Equal(t, 0.35, c.Outputs[0].Factor.At(2))
			assert.Equal(t, 100.0, net.Flow(c.Outputs[0].Flow).Capacity)
		}
	}
}

func TestCompileMissingUpstream(t *testing.T) {
	n := 4
	cfg := baseConfig(n)
	cfg.Technologies[model.KeyBoiler] = model.Boiler{CapacityKW: 10, Efficiency: 0.9}
	_, err := Compile(cfg, testHorizon(t, n))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingUpstream))
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "ENaQ", cerr.District)
	assert.Equal(t, model.KeyBoiler, cerr.Technology)
}

func TestCompileErrors(t *testing.T) {
	n := 4
	h := testHorizon(t, n)
	cases := map[string]struct {
		mutate func(*model.DistrictConfig)
		want   error
	}{
		"unknown key":  {func(c *model.DistrictConfig) { c.Technologies["electrolyser"] = model.Gas{} }, ErrUnknownTechnology},
		"short demand": {func(c *model.DistrictConfig) { c.ElectricDemand = model.Constant(1, n-1) }, ErrSeriesLength},
		"short profile": {func(c *model.DistrictConfig) {
			c.Technologies[model.KeyPV] = model.Renewable{CapacityKW: 1, Profile: model.Constant(1, 2)}
		}, ErrSeriesLength},
		"wrong params": {func(c *model.DistrictConfig) { c.Technologies[model.KeyPV] = model.Gas{} }, ErrInvalidParameter},
		"bad efficiency": {func(c *model.DistrictConfig) {
			c.Technologies[model.KeyBattery] = model.Storage{CapacityKWh: 1, ChargeEfficiency: 1.2, DischargeEfficiency: 1}
		}, ErrInvalidParameter},
		"initial above capacity": {func(c *model.DistrictConfig) {
			c.Technologies[model.KeyBattery] = model.Storage{CapacityKWh: 1, ChargeEfficiency: 1, DischargeEfficiency: 1, InitialLevelKWh: 2}
		}, ErrInvalidParameter},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig(n)
			tc.mutate(&cfg)
			_, err := Compile(cfg, h)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCompileDoesNotAliasProfiles(t *testing.T) {
	n := 2
	cfg := baseConfig(n)
	net, err := Compile(cfg, testHorizon(t, n))
	require.NoError(t, err)
	cfg.ElectricDemand[0] = 999
	demand, _ := net.Lookup(ElDemand)
	f := net.Flow(net.Inflows(demand.ID)[0])
	assert.Equal(t, 10.0, f.Fix[0])
}

func TestFlowHandlesStartAtZero(t *testing.T) {
	net, err := Compile(baseConfig(2), testHorizon(t, 2))
	require.NoError(t, err)
	assert.Equal(t, FlowID(0), net.Flow(0).ID)
	assert.NotEqual(t, NoFlow, net.GridImport)
	assert.NotEqual(t, NoFlow, net.MarketFeed)
}
