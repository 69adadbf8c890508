// Package market reconciles the settlement granularity of the four
// electricity market products with the fine dispatch horizon. Each product is
// represented at every step; the equality constraints built here make the
// coarser products piecewise constant where the real market fixes them.
package market

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/core/network"
	"github.com/kilianp07/districtopt/core/program"
)

// DefaultTolerance separates active from inactive future-peak steps. Prices
// whose absolute value is at most the tolerance are treated as exactly zero.
const DefaultTolerance = 1e-3

// ErrMissingMarket is returned when the network lacks a market flow.
var ErrMissingMarket = errors.New("network has no market flow")

type options struct {
	tolerance float64
}

// Option configures the synthesizer.
type Option func(*options)

// WithTolerance overrides DefaultTolerance.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tolerance = tol }
}

// ActiveWindow returns the steps whose price exceeds tol in absolute value.
func ActiveWindow(prices model.Series, tol float64) []int {
	var steps []int
	for t, p := range prices {
		if math.Abs(p) > tol {
			steps = append(steps, t)
		}
	}
	return steps
}

// Constraints returns the ordered equality constraints tying each market
// flow to its settlement granularity.
func Constraints(net *network.Network, prices model.Prices, h model.Horizon, opts ...Option) ([]program.Constraint, error) {
	o := options{tolerance: DefaultTolerance}
	for _, fn := range opts {
		fn(&o)
	}
	if err := check(net, prices, h); err != nil {
		return nil, err
	}

	var cons []program.Constraint
	cons = append(cons, dayAhead(net.Markets[model.DayAhead], h)...)
	cons = append(cons, futureBase(net.Markets[model.FutureBase], h)...)
	cons = append(cons, futurePeak(net.Markets[model.FuturePeak], prices.Series(model.FuturePeak).Head(h.Len), h, o.tolerance)...)
	return cons, nil
}

// Costs returns the market flow costs: selling earns the product price, so
// the cost per kWh is its negation.
func Costs(net *network.Network, prices model.Prices, h model.Horizon) (map[network.FlowID]model.Series, error) {
	if err := check(net, prices, h); err != nil {
		return nil, err
	}
	costs := make(map[network.FlowID]model.Series, len(model.Products))
	for _, p := range model.Products {
		costs[net.Markets[p]] = prices.Series(p).Head(h.Len).Scale(-1)
	}
	return costs, nil
}

// Overlay bundles Constraints and Costs for program.Build.
func Overlay(net *network.Network, prices model.Prices, h model.Horizon, opts ...Option) (program.Overlay, error) {
	cons, err := Constraints(net, prices, h, opts...)
	if err != nil {
		return program.Overlay{}, err
	}
	costs, err := Costs(net, prices, h)
	if err != nil {
		return program.Overlay{}, err
	}
	return program.Overlay{Constraints: cons, Costs: costs}, nil
}

func check(net *network.Network, prices model.Prices, h model.Horizon) error {
	for _, p := range model.Products {
		if _, ok := net.Markets[p]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingMarket, p)
		}
	}
	if prices.Len() < h.Len {
		return fmt.Errorf("prices cover %d steps, horizon needs %d", prices.Len(), h.Len)
	}
	if h.StepsPerHour() < 1 {
		return fmt.Errorf("%w: step %s", model.ErrHorizon, h.Step)
	}
	return nil
}

// dayAhead settles hourly: flow[t] == flow[t - t mod steps_per_hour].
func dayAhead(f network.FlowID, h model.Horizon) []program.Constraint {
	sph := h.StepsPerHour()
	var cons []program.Constraint
	for t := 0; t < h.Len; t++ {
		if t%sph == 0 {
			continue
		}
		start := t - t%sph
		cons = append(cons, program.Equal(fmt.Sprintf("day_ahead_%d=%d", t, start), f, t, f, start))
	}
	return cons
}

// futureBase is one commitment for the whole horizon: flow[t] == flow[0].
func futureBase(f network.FlowID, h model.Horizon) []program.Constraint {
	var cons []program.Constraint
	for t := 1; t < h.Len; t++ {
		cons = append(cons, program.Equal(fmt.Sprintf("future_base_%d=0", t), f, t, f, 0))
	}
	return cons
}

// futurePeak commits a constant volume on the steps where the peak product
// is priced and nothing elsewhere.
func futurePeak(f network.FlowID, prices model.Series, h model.Horizon, tol float64) []program.Constraint {
	active := ActiveWindow(prices, tol)
	var cons []program.Constraint
	if len(active) > 0 {
		t0 := active[0]
		for _, t := range active[1:] {
			cons = append(cons, program.Equal(fmt.Sprintf("future_peak_%d=%d", t, t0), f, t0, f, t))
		}
	}
	in := make(map[int]bool, len(active))
	for _, t := range active {
		in[t] = true
	}
	for t := 0; t < h.Len; t++ {
		if !in[t] {
			cons = append(cons, program.Zero(fmt.Sprintf("future_peak_null_%d", t), f, t))
		}
	}
	return cons
}
