package profiles

import (
	"errors"
	"fmt"

	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/infra/logger"
)

// DefaultPriceScale converts EUR/MWh files into EUR/kWh.
const DefaultPriceScale = 0.001

// Market describes the price file shared by all districts.
type Market struct {
	File       string `json:"file"`
	Delimiter  string `json:"delimiter"`
	DayAhead   string `json:"day_ahead"`
	Intraday   string `json:"intraday"`
	FutureBase string `json:"future_base"`
	FuturePeak string `json:"future_peak"`
	// PriceScale multiplies every price. Zero means DefaultPriceScale.
	PriceScale float64 `json:"price_scale"`
	// Tolerance bounds the peak-window detection.
	Tolerance float64 `json:"tolerance"`
}

// SetDefaults fills column names and scale.
func (m *Market) SetDefaults() {
	if m.DayAhead == "" {
		m.DayAhead = "day_ahead"
	}
	if m.Intraday == "" {
		m.Intraday = "intraday"
	}
	if m.FutureBase == "" {
		m.FutureBase = "future_base"
	}
	if m.FuturePeak == "" {
		m.FuturePeak = "future_peak"
	}
	if m.PriceScale == 0 {
		m.PriceScale = DefaultPriceScale
	}
}

// Validate checks the market section.
func (m Market) Validate() error {
	if m.File == "" {
		return errors.New("market file required")
	}
	if m.Tolerance < 0 {
		return fmt.Errorf("market tolerance must be >= 0, got %g", m.Tolerance)
	}
	if len(m.Delimiter) > 1 {
		return errors.New("market delimiter must be a single character")
	}
	return nil
}

// Prices loads the four price series of m and aligns them to the provider
// horizon. The provider horizon is truncated when the file is shorter so
// that every district is aligned to the prices.
func (p *Provider) Prices(m Market) (model.Prices, error) {
	m.SetDefaults()
	if err := m.Validate(); err != nil {
		return model.Prices{}, err
	}
	t, err := p.table(m.File, m.Delimiter)
	if err != nil {
		return model.Prices{}, err
	}
	series := make(map[string]model.Series, 4)
	for _, col := range []string{m.DayAhead, m.Intraday, m.FutureBase, m.FuturePeak} {
		s, err := t.Column(col)
		if err != nil {
			return model.Prices{}, err
		}
		series[col] = s.Scale(m.PriceScale)
	}
	n := Align(logger.With(p.log, map[string]any{"file": m.File}), p.Horizon.Len, series)
	p.Horizon = fit(p.Horizon, n)
	return model.NewPrices(series[m.DayAhead], series[m.Intraday], series[m.FutureBase], series[m.FuturePeak])
}
