package network

import (
	"fmt"
	"sort"

	"github.com/kilianp07/districtopt/core/model"
)

// Compile builds the flow graph of one district over horizon h. Only the
// technologies present in cfg.Technologies add nodes and flows.
func Compile(cfg model.DistrictConfig, h model.Horizon) (*Network, error) {
	if err := h.Validate(); err != nil {
		return nil, &ConfigError{District: cfg.Name, Err: err}
	}
	if err := checkKeys(cfg.Technologies); err != nil {
		return nil, &ConfigError{District: cfg.Name, Err: err}
	}
	if err := checkDemand(cfg, h); err != nil {
		return nil, &ConfigError{District: cfg.Name, Err: err}
	}

	b := newBuilder(cfg, h)
	b.core(cfg)
	for _, tech := range Catalog {
		p, ok := cfg.Technologies[tech.Key()]
		if !ok {
			continue
		}
		if err := tech.build(b, p); err != nil {
			return nil, &ConfigError{District: cfg.Name, Technology: tech.Key(), Err: err}
		}
	}
	return b.net, nil
}

// core adds the topology every district has: demand, grid import and markets.
func (b *builder) core(cfg model.DistrictConfig) {
	distr := b.junction(ElDistribution, "")

	demandBus := b.junction(ElDemandBus, "")
	b.flow(distr, demandBus, "")
	demand := b.node(KindSink, ElDemand, "")
	b.flow(demandBus, demand, "", withFix(cfg.ElectricDemand.Clone()))

	thDistr := b.junction(ThDistribution, "")
	thDemandBus := b.junction(ThDemandBus, "")
	b.flow(thDistr, thDemandBus, "")
	thDemand := b.node(KindSink, ThDemand, "")
	b.flow(thDemandBus, thDemand, "", withFix(cfg.HeatDemand.Clone()))

	grid := b.junction(ElGrid, "")
	src := b.node(KindSource, GridSource, "")
	b.net.GridImport = b.flow(src, grid, "", withCost(model.Series{b.net.Tariffs.GridImport}))
	b.flow(grid, distr, "")

	market := b.junction(ElMarket, "")
	b.net.MarketFeed = b.flow(distr, market, "")
	for _, p := range model.Products {
		sink := b.node(KindSink, MarketSink(p), "")
		b.net.Markets[p] = b.flow(market, sink, "")
	}
}

func checkKeys(techs model.Technologies) error {
	var unknown []string
	for k := range techs {
		if _, ok := Lookup(k); !ok {
			unknown = append(unknown, string(k))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %v", ErrUnknownTechnology, unknown)
	}
	return nil
}

func checkDemand(cfg model.DistrictConfig, h model.Horizon) error {
	if len(cfg.ElectricDemand) != h.Len {
		return fmt.Errorf("%w: electric demand has %d values, horizon %d", ErrSeriesLength, len(cfg.ElectricDemand), h.Len)
	}
	if len(cfg.HeatDemand) != h.Len {
		return fmt.Errorf("%w: heat demand has %d values, horizon %d", ErrSeriesLength, len(cfg.HeatDemand), h.Len)
	}
	return nil
}
