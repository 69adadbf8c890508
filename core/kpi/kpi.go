// Package kpi condenses a solved district into energy, income, expense and
// operating hour figures.
package kpi

import (
	"encoding/json"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/core/network"
	"github.com/kilianp07/districtopt/core/program"
)

// HourTechnologies lists the technologies whose operating hours are reported,
// in report order.
var HourTechnologies = []model.Key{
	model.KeyPV, model.KeyWind, model.KeySolarThermal,
	model.KeyCHP, model.KeyHeatPump, model.KeyBoiler,
}

// FlowEnergy is the energy carried by one flow over the horizon.
type FlowEnergy struct {
	Flow   network.FlowID `json:"flow"`
	Label  string         `json:"label"`
	Energy float64        `json:"energy_kwh"`
}

// Expenses are the supply side costs of a district.
type Expenses struct {
	Gas        float64 `json:"gas"`
	GridImport float64 `json:"grid_import"`
	ExtHeat    float64 `json:"ext_heat"`
}

// Total sums all expenses.
func (e Expenses) Total() float64 { return e.Gas + e.GridImport + e.ExtHeat }

// Summary holds the KPIs of one solved district. SoldEnergy is the energy
// delivered into the market junction and AveragePrice is TotalIncome over
// SoldEnergy, zero when nothing was sold.
type Summary struct {
	District       string                `json:"district"`
	Start          time.Time             `json:"start"`
	Steps          int                   `json:"steps"`
	Objective      float64               `json:"objective"`
	Energy         []FlowEnergy          `json:"energy"`
	Income         ProductValues         `json:"income"`
	TotalIncome    float64               `json:"total_income"`
	SoldEnergy     float64               `json:"sold_energy_kwh"`
	AveragePrice   float64               `json:"average_price"`
	Expenses       Expenses              `json:"expenses"`
	OperatingHours map[model.Key]float64 `json:"operating_hours"`
}

// ProductValues holds one value per market product.
type ProductValues map[model.Product]float64

// MarshalJSON keys the values by product short name.
func (v ProductValues) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, len(model.Products))
	for _, p := range model.Products {
		out[p.String()] = v[p]
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads values keyed by product short name.
func (v *ProductValues) UnmarshalJSON(b []byte) error {
	var in map[string]float64
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := make(ProductValues, len(in))
	for _, p := range model.Products {
		if val, ok := in[p.String()]; ok {
			out[p] = val
		}
	}
	*v = out
	return nil
}

// Aggregate computes the KPIs of sol. sol must be optimal.
func Aggregate(sol *program.Solution, prices model.Prices) (Summary, error) {
	if err := sol.Err(); err != nil {
		return Summary{}, err
	}
	net := sol.Network()
	h := net.Horizon
	if prices.Len() < h.Len {
		return Summary{}, fmt.Errorf("prices cover %d steps, horizon %d", prices.Len(), h.Len)
	}
	dt := h.StepHours()
	s := Summary{
		District:       net.District,
		Start:          h.Start,
		Steps:          h.Len,
		Objective:      sol.Objective,
		Income:         make(ProductValues, len(model.Products)),
		OperatingHours: make(map[model.Key]float64),
	}

	for _, f := range net.Flows {
		s.Energy = append(s.Energy, FlowEnergy{Flow: f.ID, Label: f.Label, Energy: floats.Sum(sol.Flow(f.ID)) * dt})
	}

	for _, p := range model.Products {
		id, ok := net.Markets[p]
		if !ok {
			continue
		}
		inc := floats.Dot(prices.Series(p).Head(h.Len), sol.Flow(id)) * dt
		s.Income[p] = inc
		s.TotalIncome += inc
	}
	s.SoldEnergy = floats.Sum(sol.Flow(net.MarketFeed)) * dt
	if s.SoldEnergy > program.Eps {
		s.AveragePrice = s.TotalIncome / s.SoldEnergy
	}

	s.Expenses.GridImport = floats.Sum(sol.Flow(net.GridImport)) * dt * net.Tariffs.GridImport
	if id, ok := net.Primary[model.KeyGas]; ok {
		s.Expenses.Gas = floats.Sum(sol.Flow(id)) * dt * net.Tariffs.Gas
	}
	if id, ok := net.Primary[model.KeyExtHeat]; ok {
		s.Expenses.ExtHeat = floats.Sum(sol.Flow(id)) * dt * net.Tariffs.ExtHeat
	}

	for _, k := range HourTechnologies {
		id, ok := net.Primary[k]
		if !ok {
			continue
		}
		var n int
		for _, v := range sol.Flow(id) {
			if v > program.Eps {
				n++
			}
		}
		s.OperatingHours[k] = float64(n) * dt
	}
	return s, nil
}

// Row is one line of the flattened KPI table.
type Row struct {
	Key   string
	Value float64
}

// Rows flattens the summary in a stable order: flow energies by flow,
// incomes, sold energy, expenses then operating hours.
func (s Summary) Rows() []Row {
	rows := make([]Row, 0, len(s.Energy)+16)
	for _, e := range s.Energy {
		rows = append(rows, Row{Key: e.Label, Value: e.Energy})
	}
	for _, p := range model.Products {
		rows = append(rows, Row{Key: "income_" + p.String(), Value: s.Income[p]})
	}
	rows = append(rows,
		Row{Key: "income_total", Value: s.TotalIncome},
		Row{Key: "sold_energy", Value: s.SoldEnergy},
		Row{Key: "average_price", Value: s.AveragePrice},
		Row{Key: "expense_gas", Value: s.Expenses.Gas},
		Row{Key: "expense_grid_import", Value: s.Expenses.GridImport},
		Row{Key: "expense_ext_heat", Value: s.Expenses.ExtHeat},
		Row{Key: "expense_total", Value: s.Expenses.Total()},
		Row{Key: "objective", Value: s.Objective},
	)
	for _, k := range HourTechnologies {
		if v, ok := s.OperatingHours[k]; ok {
			rows = append(rows, Row{Key: "hours_" + string(k), Value: v})
		}
	}
	return rows
}

// FlowTable is the per-step value of every flow.
type FlowTable struct {
	Times  []time.Time
	Labels []string
	// Values[t][i] is flow i at step t.
	Values [][]float64
}

// Flows builds the per-step flow table of sol.
func Flows(sol *program.Solution) FlowTable {
	net := sol.Network()
	h := net.Horizon
	tab := FlowTable{Times: h.Times(), Values: make([][]float64, h.Len)}
	cols := make([]model.Series, len(net.Flows))
	for i, f := range net.Flows {
		tab.Labels = append(tab.Labels, f.Label)
		cols[i] = sol.Flow(f.ID)
	}
	for t := range tab.Values {
		row := make([]float64, len(cols))
		for i, c := range cols {
			row[i] = c[t]
		}
		tab.Values[t] = row
	}
	return tab
}
