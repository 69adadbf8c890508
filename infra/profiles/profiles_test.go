package profiles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/core/network"
)

type recLogger struct{ warnings []string }

func (*recLogger) Debugf(string, ...any)         {}
func (*recLogger) Debugw(string, map[string]any) {}
func (*recLogger) Infof(string, ...any)          {}
func (*recLogger) Errorf(string, ...any)         {}
func (l *recLogger) Warnf(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

const districtCSV = `time,el,heat,pv,cop,solar
0,1,2,0.5,3,1
1,1,2,1,3.5,3
2,2,4,0,3,0
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func quarterHours(n int) model.Horizon {
	return model.Horizon{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Step: 15 * time.Minute, Len: n}
}

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("a;b\n1;2.5\n3;4\n"), ';')
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"a", "b"}, tbl.Columns())
	b, err := tbl.Column("b")
	require.NoError(t, err)
	assert.Equal(t, model.Series{2.5, 4}, b)

	_, err = tbl.Column("c")
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestColumnRejectsText(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("a,b\n1,x\n2,3\n"), 0)
	require.NoError(t, err)
	_, err = tbl.Column("b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}

func TestNormalise(t *testing.T) {
	s, err := Normalise(model.Series{1, 1, 2}, 10, 0.25)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 10, 20}, s, 1e-9)

	_, err = Normalise(model.Series{0, 0}, 10, 0.25)
	assert.Error(t, err)
}

func TestSolarThermalDefaultYield(t *testing.T) {
	s, err := SolarThermal(model.Series{1, 3}, 2, 0, 0.25)
	require.NoError(t, err)
	// 2 m² at 150 kWh/m² over one kWh of profile energy.
	assert.InDeltaSlice(t, []float64{300, 900}, s, 1e-9)
}

func TestAlignTruncatesAndWarns(t *testing.T) {
	log := &recLogger{}
	series := map[string]model.Series{"a": {1, 2, 3}, "b": {1, 2, 3, 4, 5}}
	n := Align(log, 4, series)
	assert.Equal(t, 3, n)
	assert.Len(t, series["b"], 3)
	assert.Len(t, log.warnings, 1)

	log = &recLogger{}
	series = map[string]model.Series{"a": {1, 2}, "b": {3, 4}}
	assert.Equal(t, 2, Align(log, 2, series))
	assert.Empty(t, log.warnings)

	assert.Equal(t, 2, Align(log, 0, series))
}

func TestAlignEmptySeriesShrinksToZero(t *testing.T) {
	// Map order varies between runs; repeat so the empty column is seen first
	// and last.
	for i := 0; i < 20; i++ {
		log := &recLogger{}
		series := map[string]model.Series{"a": {1, 2, 3}, "empty": {}, "b": {1, 2}}
		require.Equal(t, 0, Align(log, 0, series))
		assert.Empty(t, series["a"])
		assert.Empty(t, series["b"])
		assert.Len(t, log.warnings, 1)
	}
}

func TestProviderDistrict(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nord.csv", districtCSV)
	p := NewProvider(dir, quarterHours(4), model.DefaultTariffs(), &recLogger{})

	cfg, h, err := p.District(District{
		Name:           "nord",
		Profiles:       "nord.csv",
		ElectricDemand: Demand{Column: "el"},
		HeatDemand:     Demand{Column: "heat", TotalKWh: 20},
		Tariffs:        map[string]any{"gas": 0.05},
		Technologies: map[string]map[string]any{
			"gas":           {},
			"boiler":        {"capacity_kw": 100, "efficiency": 0.9},
			"pv":            {"capacity_kw": "10", "column": "pv"},
			"heat_pump":     {"thermal_capacity_kw": 5, "cop_column": "cop"},
			"solar_thermal": {"area_m2": 1, "column": "solar"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, h.Len)
	assert.Equal(t, model.Series{1, 1, 2}, cfg.ElectricDemand)
	assert.InDeltaSlice(t, []float64{20, 20, 40}, cfg.HeatDemand, 1e-9)
	assert.Equal(t, 0.05, cfg.Tariffs.Gas)
	assert.Equal(t, float64(model.DefaultGridImport), cfg.Tariffs.GridImport)

	assert.Equal(t, model.Boiler{CapacityKW: 100, Efficiency: 0.9}, cfg.Technologies[model.KeyBoiler])
	pv := cfg.Technologies[model.KeyPV].(model.Renewable)
	assert.Equal(t, 10.0, pv.CapacityKW)
	assert.Equal(t, model.Series{5, 10, 0}, pv.Availability())
	hp := cfg.Technologies[model.KeyHeatPump].(model.HeatPump)
	assert.Equal(t, model.Series{3, 3.5, 3}, hp.COP)
	st := cfg.Technologies[model.KeySolarThermal].(model.Renewable)
	assert.InDeltaSlice(t, []float64{150, 450, 0}, st.Availability(), 1e-9)

	_, err = network.Compile(cfg, h)
	require.NoError(t, err)
}

func TestProviderDistrictErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nord.csv", districtCSV)
	p := NewProvider(dir, quarterHours(3), model.DefaultTariffs(), nil)
	base := District{
		Name:           "nord",
		Profiles:       "nord.csv",
		ElectricDemand: Demand{Column: "el"},
		HeatDemand:     Demand{Column: "heat"},
	}

	d := base
	d.Technologies = map[string]map[string]any{"electrolyser": {}}
	_, _, err := p.District(d)
	var cerr *network.ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, model.Key("electrolyser"), cerr.Technology)
	assert.True(t, errors.Is(err, network.ErrUnknownTechnology))

	d = base
	d.Technologies = map[string]map[string]any{"wind": {"capacity_kw": 1, "column": "wind"}}
	_, _, err = p.District(d)
	assert.True(t, errors.Is(err, ErrMissingColumn))

	d = base
	d.Technologies = map[string]map[string]any{"heat_pump": {"thermal_capacity_kw": 5}}
	_, _, err = p.District(d)
	assert.True(t, errors.Is(err, network.ErrInvalidParameter))

	d = base
	d.Profiles = "missing.csv"
	_, _, err = p.District(d)
	assert.Error(t, err)

	d = base
	d.ElectricDemand.Column = ""
	assert.Error(t, d.Validate())
}

func TestProviderPrices(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "prices.csv", "da,id,fb,fp\n50,60,40,0\n100,60,40,80\n")
	p := NewProvider(dir, model.Horizon{Start: time.Now(), Step: time.Hour}, model.Tariffs{}, nil)

	prices, err := p.Prices(Market{File: "prices.csv", DayAhead: "da", Intraday: "id", FutureBase: "fb", FuturePeak: "fp"})
	require.NoError(t, err)
	assert.Equal(t, 2, prices.Len())
	assert.Equal(t, 2, p.Horizon.Len)
	assert.InDelta(t, 0.1, prices.At(model.DayAhead, 1), 1e-12)
	assert.InDelta(t, 0.08, prices.At(model.FuturePeak, 1), 1e-12)

	_, err = p.Prices(Market{File: "prices.csv"})
	assert.True(t, errors.Is(err, ErrMissingColumn))
}
