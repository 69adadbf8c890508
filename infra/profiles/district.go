package profiles

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/kilianp07/districtopt/core/factory"
	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/core/network"
	"github.com/kilianp07/districtopt/infra/logger"
)

// Demand selects a demand column. When TotalKWh is positive the profile is
// rescaled so that its energy over the file equals the annual total.
type Demand struct {
	Column   string  `json:"column"`
	TotalKWh float64 `json:"total_kwh"`
}

// District describes one district in the configuration file.
type District struct {
	Name           string         `json:"name"`
	Profiles       string         `json:"profiles"`
	Delimiter      string         `json:"delimiter"`
	ElectricDemand Demand         `json:"electric_demand"`
	HeatDemand     Demand         `json:"heat_demand"`
	Tariffs        map[string]any `json:"tariffs"`
	// Technologies maps a technology key to its raw parameters.
	Technologies map[string]map[string]any `json:"technologies"`
}

// Validate checks the fields that do not need the profile file.
func (d District) Validate() error {
	if d.Name == "" {
		return errors.New("district name required")
	}
	if d.Profiles == "" {
		return fmt.Errorf("district %s: profiles file required", d.Name)
	}
	if d.ElectricDemand.Column == "" || d.HeatDemand.Column == "" {
		return fmt.Errorf("district %s: demand columns required", d.Name)
	}
	if len(d.Delimiter) > 1 {
		return fmt.Errorf("district %s: delimiter must be a single character", d.Name)
	}
	return nil
}

// Keys returns the configured technology keys in sorted order.
func (d District) Keys() []model.Key {
	keys := make([]model.Key, 0, len(d.Technologies))
	for k := range d.Technologies {
		keys = append(keys, model.Key(k))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type renewableConf struct {
	CapacityKW float64 `json:"capacity_kw"`
	Scale      float64 `json:"scale"`
	Column     string  `json:"column"`
}

type solarThermalConf struct {
	AreaM2 float64 `json:"area_m2"`
	// YieldKWhM2 is the specific yield of the collectors over the file.
	YieldKWhM2 float64 `json:"yield_kwh_m2"`
	Column     string  `json:"column"`
}

type heatPumpConf struct {
	ThermalCapacityKW float64 `json:"thermal_capacity_kw"`
	COP               float64 `json:"cop"`
	COPColumn         string  `json:"cop_column"`
}

// Provider turns district descriptions into aligned compiler input. Tables
// are cached by path so districts sharing a file read it once. A Provider is
// not safe for concurrent use.
type Provider struct {
	Dir     string
	Horizon model.Horizon
	Tariffs model.Tariffs

	log    logger.Logger
	tables map[string]*Table
}

// NewProvider returns a provider resolving relative profile paths against dir.
func NewProvider(dir string, h model.Horizon, tariffs model.Tariffs, log logger.Logger) *Provider {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Provider{Dir: dir, Horizon: h, Tariffs: tariffs, log: log, tables: make(map[string]*Table)}
}

func (p *Provider) table(file, delim string) (*Table, error) {
	path := file
	if !filepath.IsAbs(path) && p.Dir != "" {
		path = filepath.Join(p.Dir, path)
	}
	if t, ok := p.tables[path]; ok {
		return t, nil
	}
	var r rune
	if delim != "" {
		r = rune(delim[0])
	}
	t, err := LoadCSV(path, r)
	if err != nil {
		return nil, err
	}
	p.tables[path] = t
	return t, nil
}

// District loads the profiles of d and returns its compiler configuration
// together with the horizon it is aligned to. The horizon is the provider's
// horizon truncated to the shortest profile; a horizon without a length
// covers the whole file.
func (p *Provider) District(d District) (model.DistrictConfig, model.Horizon, error) {
	if err := d.Validate(); err != nil {
		return model.DistrictConfig{}, model.Horizon{}, err
	}
	t, err := p.table(d.Profiles, d.Delimiter)
	if err != nil {
		return model.DistrictConfig{}, model.Horizon{}, fmt.Errorf("district %s: %w", d.Name, err)
	}
	dt := p.Horizon.StepHours()
	tariffs := p.Tariffs
	if len(d.Tariffs) > 0 {
		if err := factory.Decode(d.Tariffs, &tariffs); err != nil {
			return model.DistrictConfig{}, model.Horizon{}, fmt.Errorf("district %s tariffs: %w", d.Name, err)
		}
	}
	cfg := model.DistrictConfig{Name: d.Name, Tariffs: tariffs, Technologies: model.Technologies{}}
	if cfg.ElectricDemand, err = demand(t, d.ElectricDemand, dt); err != nil {
		return model.DistrictConfig{}, model.Horizon{}, fmt.Errorf("district %s electric demand: %w", d.Name, err)
	}
	if cfg.HeatDemand, err = demand(t, d.HeatDemand, dt); err != nil {
		return model.DistrictConfig{}, model.Horizon{}, fmt.Errorf("district %s heat demand: %w", d.Name, err)
	}

	// Every profile goes through Align, including the ones owned by params.
	series := map[string]model.Series{
		"electric_demand": cfg.ElectricDemand,
		"heat_demand":     cfg.HeatDemand,
	}
	for _, k := range d.Keys() {
		params, profile, err := technology(t, k, d.Technologies[string(k)], dt)
		if err != nil {
			return model.DistrictConfig{}, model.Horizon{}, &network.ConfigError{District: d.Name, Technology: k, Err: err}
		}
		cfg.Technologies[k] = params
		if profile != nil {
			series[string(k)] = profile
		}
	}
	n := Align(logger.With(p.log, map[string]any{"district": d.Name}), p.Horizon.Len, series)
	cfg.ElectricDemand = series["electric_demand"]
	cfg.HeatDemand = series["heat_demand"]
	for k, params := range cfg.Technologies {
		s, ok := series[string(k)]
		if !ok {
			continue
		}
		switch v := params.(type) {
		case model.Renewable:
			v.Profile = s
			cfg.Technologies[k] = v
		case model.HeatPump:
			v.COP = s
			cfg.Technologies[k] = v
		}
	}
	return cfg, fit(p.Horizon, n), nil
}

// fit limits h to n steps. A horizon without a length takes n.
func fit(h model.Horizon, n int) model.Horizon {
	if h.Len <= 0 {
		h.Len = n
		return h
	}
	return h.Truncate(n)
}

func demand(t *Table, d Demand, dt float64) (model.Series, error) {
	s, err := t.Column(d.Column)
	if err != nil {
		return nil, err
	}
	if d.TotalKWh > 0 {
		return Normalise(s, d.TotalKWh, dt)
	}
	return s, nil
}

// technology decodes the raw parameters of key k. The returned series is the
// profile the params depend on, or nil.
func technology(t *Table, k model.Key, raw map[string]any, dt float64) (model.Params, model.Series, error) {
	switch k {
	case model.KeyGas:
		var v model.Gas
		return v, nil, factory.Decode(raw, &v)
	case model.KeyExtHeat:
		var v model.ExtHeat
		return v, nil, factory.Decode(raw, &v)
	case model.KeyBoiler:
		var v model.Boiler
		return v, nil, factory.Decode(raw, &v)
	case model.KeyCHP:
		var v model.CHP
		return v, nil, factory.Decode(raw, &v)
	case model.KeyBattery, model.KeyHeatStorage:
		var v model.Storage
		return v, nil, factory.Decode(raw, &v)
	case model.KeyPV, model.KeyWind:
		var conf renewableConf
		if err := factory.Decode(raw, &conf); err != nil {
			return nil, nil, err
		}
		s, err := t.Column(conf.Column)
		if err != nil {
			return nil, nil, err
		}
		return model.Renewable{CapacityKW: conf.CapacityKW, Scale: conf.Scale, Profile: s}, s, nil
	case model.KeySolarThermal:
		var conf solarThermalConf
		if err := factory.Decode(raw, &conf); err != nil {
			return nil, nil, err
		}
		s, err := t.Column(conf.Column)
		if err != nil {
			return nil, nil, err
		}
		if s, err = SolarThermal(s, conf.AreaM2, conf.YieldKWhM2, dt); err != nil {
			return nil, nil, err
		}
		// The profile already carries the field output.
		return model.Renewable{CapacityKW: 1, Profile: s}, s, nil
	case model.KeyHeatPump:
		var conf heatPumpConf
		if err := factory.Decode(raw, &conf); err != nil {
			return nil, nil, err
		}
		var cop model.Series
		if conf.COPColumn != "" {
			s, err := t.Column(conf.COPColumn)
			if err != nil {
				return nil, nil, err
			}
			cop = s
		} else {
			if conf.COP <= 0 {
				return nil, nil, fmt.Errorf("%w: cop or cop_column required", network.ErrInvalidParameter)
			}
			cop = model.Constant(conf.COP, t.Len())
		}
		return model.HeatPump{ThermalCapacityKW: conf.ThermalCapacityKW, COP: cop}, cop, nil
	default:
		return nil, nil, network.ErrUnknownTechnology
	}
}
