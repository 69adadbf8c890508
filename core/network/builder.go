package network

import (
	"strings"

	"github.com/kilianp07/districtopt/core/model"
)

// Node names of the district topology.
const (
	ElDistribution = "b_el_distr"
	ElDemandBus    = "b_d_el"
	ElMarket       = "b_el_market"
	ElGrid         = "b_el_grid"
	ElProduction   = "b_el_prod"
	ElRenewable    = "b_el_renew"
	GasBus         = "b_gas"
	ExtHeatBus     = "b_ext_th"
	ThRenewable    = "b_th_renew"
	ThProduction   = "b_th_prod"
	ThDistribution = "b_th_distr"
	ThDemandBus    = "b_d_th"

	ElDemand     = "d_el"
	ThDemand     = "s_th"
	GridSource   = "s_el_grid"
	GasSource    = "m_gas"
	ExtHeatSrc   = "s_ext_th"
	PVSource     = "s_pv"
	WindSource   = "s_wind"
	STSource     = "s_st"
	BoilerNode   = "t_boiler"
	CHPNode      = "t_chp"
	HeatPumpNode = "t_hp"
	BatteryNode  = "sto_batt"
	HeatStoNode  = "sto_heat"
)

// MarketSink returns the sink name of a market product.
func MarketSink(p model.Product) string { return "s_" + p.String() }

type flowOpt func(*Flow)

func withCapacity(c float64) flowOpt { return func(f *Flow) { f.Capacity = c } }

func withMax(s model.Series) flowOpt { return func(f *Flow) { f.Max = s } }

func withFix(s model.Series) flowOpt { return func(f *Flow) { f.Fix = s } }

func withCost(s model.Series) flowOpt { return func(f *Flow) { f.Cost = s } }

// builder accumulates nodes and flows for one district.
type builder struct {
	net    *Network
	suffix string
	names  map[string]NodeID
}

func newBuilder(cfg model.DistrictConfig, h model.Horizon) *builder {
	net := &Network{
		District:   cfg.Name,
		Horizon:    h,
		Tariffs:    cfg.Tariffs,
		Markets:    make(map[model.Product]FlowID, len(model.Products)),
		Primary:    make(map[model.Key]FlowID),
		MarketFeed: NoFlow,
		GridImport: NoFlow,
		in:         make(map[NodeID][]FlowID),
		out:        make(map[NodeID][]FlowID),
	}
	return &builder{
		net:    net,
		suffix: strings.ToLower(strings.ReplaceAll(cfg.Name, " ", "")),
		names:  make(map[string]NodeID),
	}
}

func (b *builder) node(kind NodeKind, name string, tech model.Key) NodeID {
	id := NodeID(len(b.net.Nodes))
	label := name
	if b.suffix != "" {
		label = name + "_" + b.suffix
	}
	b.net.Nodes = append(b.net.Nodes, Node{ID: id, Kind: kind, Name: name, Label: label, Tech: tech})
	b.names[name] = id
	return id
}

func (b *builder) junction(name string, tech model.Key) NodeID {
	return b.node(KindJunction, name, tech)
}

func (b *builder) lookup(name string) (NodeID, bool) {
	id, ok := b.names[name]
	return id, ok
}

// ensure returns the junction called name, creating it and calling link the
// first time it is requested.
func (b *builder) ensure(name string, link func(NodeID)) NodeID {
	if id, ok := b.names[name]; ok {
		return id
	}
	id := b.junction(name, "")
	if link != nil {
		link(id)
	}
	return id
}

func (b *builder) flow(from, to NodeID, tech model.Key, opts ...flowOpt) FlowID {
	id := FlowID(len(b.net.Flows))
	f := Flow{
		ID:       id,
		From:     from,
		To:       to,
		Tech:     tech,
		Capacity: Unbounded,
		Label:    b.net.Nodes[from].Label + ", " + b.net.Nodes[to].Label,
	}
	for _, o := range opts {
		o(&f)
	}
	b.net.Flows = append(b.net.Flows, f)
	b.net.out[from] = append(b.net.out[from], id)
	b.net.in[to] = append(b.net.in[to], id)
	return id
}

func (b *builder) electricProduction() NodeID {
	return b.ensure(ElProduction, func(id NodeID) {
		b.flow(id, b.names[ElDistribution], "")
	})
}

func (b *builder) electricRenewable() NodeID {
	prod := b.electricProduction()
	return b.ensure(ElRenewable, func(id NodeID) {
		b.flow(id, prod, "")
	})
}

func (b *builder) thermalProduction() NodeID {
	return b.ensure(ThProduction, func(id NodeID) {
		b.flow(id, b.names[ThDistribution], "")
	})
}

func (b *builder) thermalRenewable() NodeID {
	prod := b.thermalProduction()
	return b.ensure(ThRenewable, func(id NodeID) {
		b.flow(id, prod, "")
	})
}
