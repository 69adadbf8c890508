package network

import (
	"fmt"

	"github.com/kilianp07/districtopt/core/model"
)

// Technology is one variant of the catalog. Build adds the fixed node and
// flow bundle of the technology to the network under construction.
type Technology interface {
	Key() model.Key
	build(b *builder, p model.Params) error
}

// Catalog lists the variants in build order: supplies come before the
// converters that depend on them.
var Catalog = []Technology{
	gasSupply{},
	extHeatSupply{},
	renewable{key: model.KeyPV, node: PVSource, thermal: false},
	renewable{key: model.KeyWind, node: WindSource, thermal: false},
	renewable{key: model.KeySolarThermal, node: STSource, thermal: true},
	boiler{},
	chp{},
	heatPump{},
	storage{key: model.KeyBattery, node: BatteryNode, thermal: false},
	storage{key: model.KeyHeatStorage, node: HeatStoNode, thermal: true},
}

// Lookup returns the catalog variant for key.
func Lookup(key model.Key) (Technology, bool) {
	for _, t := range Catalog {
		if t.Key() == key {
			return t, true
		}
	}
	return nil, false
}

func wrongParams(key model.Key, p model.Params) error {
	return invalid("%s expects different parameters, got %T", key, p)
}

type gasSupply struct{}

func (gasSupply) Key() model.Key { return model.KeyGas }

func (gasSupply) build(b *builder, p model.Params) error {
	if _, ok := p.(model.Gas); !ok {
		return wrongParams(model.KeyGas, p)
	}
	bus := b.junction(GasBus, model.KeyGas)
	src := b.node(KindSource, GasSource, model.KeyGas)
	b.net.Primary[model.KeyGas] = b.flow(src, bus, model.KeyGas, withCost(model.Series{b.net.Tariffs.Gas}))
	return nil
}

type extHeatSupply struct{}

func (extHeatSupply) Key() model.Key { return model.KeyExtHeat }

func (extHeatSupply) build(b *builder, p model.Params) error {
	if _, ok := p.(model.ExtHeat); !ok {
		return wrongParams(model.KeyExtHeat, p)
	}
	bus := b.junction(ExtHeatBus, model.KeyExtHeat)
	src := b.node(KindSource, ExtHeatSrc, model.KeyExtHeat)
	b.net.Primary[model.KeyExtHeat] = b.flow(src, bus, model.KeyExtHeat, withCost(model.Series{b.net.Tariffs.ExtHeat}))
	b.flow(bus, b.names[ThDistribution], model.KeyExtHeat)
	return nil
}

type renewable struct {
	key     model.Key
	node    string
	thermal bool
}

func (r renewable) Key() model.Key { return r.key }

func (r renewable) build(b *builder, p model.Params) error {
	par, ok := p.(model.Renewable)
	if !ok {
		return wrongParams(r.key, p)
	}
	if par.CapacityKW < 0 || par.Scale < 0 {
		return invalid("capacity %v and scale %v must not be negative", par.CapacityKW, par.Scale)
	}
	if len(par.Profile) != b.net.Horizon.Len {
		return fmt.Errorf("%w: profile has %d values, horizon %d", ErrSeriesLength, len(par.Profile), b.net.Horizon.Len)
	}
	var bus NodeID
	if r.thermal {
		bus = b.thermalRenewable()
	} else {
		bus = b.electricRenewable()
	}
	src := b.node(KindSource, r.node, r.key)
	b.net.Primary[r.key] = b.flow(src, bus, r.key, withMax(par.Availability()))
	return nil
}

type boiler struct{}

func (boiler) Key() model.Key { return model.KeyBoiler }

func (boiler) build(b *builder, p model.Params) error {
	par, ok := p.(model.Boiler)
	if !ok {
		return wrongParams(model.KeyBoiler, p)
	}
	if par.CapacityKW < 0 || par.Efficiency <= 0 {
		return invalid("capacity %v must not be negative and efficiency %v must be positive", par.CapacityKW, par.Efficiency)
	}
	gas, ok := b.lookup(GasBus)
	if !ok {
		return fmt.Errorf("%w: %s needs %s", ErrMissingUpstream, BoilerNode, GasBus)
	}
	node := b.node(KindConverter, BoilerNode, model.KeyBoiler)
	in := b.flow(gas, node, model.KeyBoiler)
	out := b.flow(node, b.thermalProduction(), model.KeyBoiler, withCapacity(par.CapacityKW))
	b.net.Converters = append(b.net.Converters, Converter{
		Node:    node,
		Tech:    model.KeyBoiler,
		Input:   in,
		Outputs: []Conversion{{Flow: out, Factor: model.Series{par.Efficiency}}},
	})
	b.net.Primary[model.KeyBoiler] = out
	return nil
}

type chp struct{}

func (chp) Key() model.Key { return model.KeyCHP }

func (chp) build(b *builder, p model.Params) error {
	par, ok := p.(model.CHP)
	if !ok {
		return wrongParams(model.KeyCHP, p)
	}
	if par.ElectricCapacityKW < 0 || par.ThermalCapacityKW < 0 {
		return invalid("capacities must not be negative")
	}
	if par.ElectricEfficiency <= 0 || par.ThermalEfficiency <= 0 {
		return invalid("efficiencies must be positive")
	}
	gas, ok := b.lookup(GasBus)
	if !ok {
		return fmt.Errorf("%w: %s needs %s", ErrMissingUpstream, CHPNode, GasBus)
	}
	node := b.node(KindConverter, CHPNode, model.KeyCHP)
	in := b.flow(gas, node, model.KeyCHP)
	el := b.flow(node, b.electricProduction(), model.KeyCHP, withCapacity(par.ElectricCapacityKW))
	th := b.flow(node, b.thermalProduction(), model.KeyCHP, withCapacity(par.ThermalCapacityKW))
	b.net.Converters = append(b.net.Converters, Converter{
		Node:  node,
		Tech:  model.KeyCHP,
		Input: in,
		Outputs: []Conversion{
			{Flow: el, Factor: model.Series{par.ElectricEfficiency}},
			{Flow: th, Factor: model.Series{par.ThermalEfficiency}},
		},
	})
	b.net.Primary[model.KeyCHP] = el
	return nil
}

type heatPump struct{}

func (heatPump) Key() model.Key { return model.KeyHeatPump }

func (heatPump) build(b *builder, p model.Params) error {
	par, ok := p.(model.HeatPump)
	if !ok {
		return wrongParams(model.KeyHeatPump, p)
	}
	if par.ThermalCapacityKW < 0 {
		return invalid("capacity %v must not be negative", par.ThermalCapacityKW)
	}
	if len(par.COP) != b.net.Horizon.Len {
		return fmt.Errorf("%w: cop has %d values, horizon %d", ErrSeriesLength, len(par.COP), b.net.Horizon.Len)
	}
	for t, c := range par.COP {
		if c < 0 {
			return invalid("cop %v at step %d is negative", c, t)
		}
	}
	node := b.node(KindConverter, HeatPumpNode, model.KeyHeatPump)
	in := b.flow(b.electricProduction(), node, model.KeyHeatPump)
	out := b.flow(node, b.thermalProduction(), model.KeyHeatPump, withCapacity(par.ThermalCapacityKW))
	b.net.Converters = append(b.net.Converters, Converter{
		Node:    node,
		Tech:    model.KeyHeatPump,
		Input:   in,
		Outputs: []Conversion{{Flow: out, Factor: par.COP.Clone()}},
	})
	b.net.Primary[model.KeyHeatPump] = out
	return nil
}

type storage struct {
	key     model.Key
	node    string
	thermal bool
}

func (s storage) Key() model.Key { return s.key }

func (s storage) build(b *builder, p model.Params) error {
	par, ok := p.(model.Storage)
	if !ok {
		return wrongParams(s.key, p)
	}
	if err := validateStorage(par); err != nil {
		return err
	}
	var bus NodeID
	if s.thermal {
		bus = b.names[ThDistribution]
	} else {
		bus = b.electricProduction()
	}
	node := b.node(KindStorage, s.node, s.key)
	charge := b.flow(bus, node, s.key, withCapacity(par.ChargeKW))
	discharge := b.flow(node, bus, s.key, withCapacity(par.DischargeKW))
	b.net.Storages = append(b.net.Storages, Storage{
		ID:        StorageID(len(b.net.Storages)),
		Node:      node,
		Tech:      s.key,
		Charge:    charge,
		Discharge: discharge,
		Params:    par,
	})
	return nil
}

func validateStorage(p model.Storage) error {
	switch {
	case p.CapacityKWh < 0 || p.ChargeKW < 0 || p.DischargeKW < 0:
		return invalid("capacities must not be negative")
	case p.ChargeEfficiency <= 0 || p.ChargeEfficiency > 1:
		return invalid("charge efficiency %v outside (0,1]", p.ChargeEfficiency)
	case p.DischargeEfficiency <= 0 || p.DischargeEfficiency > 1:
		return invalid("discharge efficiency %v outside (0,1]", p.DischargeEfficiency)
	case p.LossRate < 0 || p.LossRate >= 1:
		return invalid("loss rate %v outside [0,1)", p.LossRate)
	case p.InitialLevelKWh < 0 || p.InitialLevelKWh > p.CapacityKWh:
		return invalid("initial level %v outside [0,%v]", p.InitialLevelKWh, p.CapacityKWh)
	}
	return nil
}
