package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/districtopt/config"
	"github.com/kilianp07/districtopt/core/factory"
	"github.com/kilianp07/districtopt/infra/profiles"

	_ "github.com/kilianp07/districtopt/infra/solver"
	_ "github.com/kilianp07/districtopt/pkg/export"
)

func writeProfiles(t *testing.T, dir string) {
	t.Helper()
	var district, prices strings.Builder
	district.WriteString("el,heat,pv\n")
	prices.WriteString("day_ahead,intraday,future_base,future_peak\n")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&district, "%d,%d,%.1f\n", 10+i, 5, float64(i%4)*10)
		fmt.Fprintf(&prices, "%d,%d,%d,%d\n", 40+10*(i/4), 45, 30, 0)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nord.csv"), []byte(district.String()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prices.csv"), []byte(prices.String()), 0o644))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeProfiles(t, dir)
	cfg := &config.Config{
		Dir:     dir,
		Horizon: config.HorizonConfig{Start: "2024-01-01", Steps: 8},
		Market:  profiles.Market{File: "prices.csv"},
		Results: config.ResultsConfig{Sinks: []factory.ModuleConfig{
			{Type: "csv", Conf: map[string]any{"dir": filepath.Join(dir, "out")}},
		}},
		Districts: []profiles.District{
			{
				Name:           "nord",
				Profiles:       "nord.csv",
				ElectricDemand: profiles.Demand{Column: "el"},
				HeatDemand:     profiles.Demand{Column: "heat"},
				Technologies: map[string]map[string]any{
					"gas":    {},
					"boiler": {"capacity_kw": 50, "efficiency": 0.9},
					"pv":     {"capacity_kw": 1, "column": "pv"},
				},
			},
			{
				Name:           "broken",
				Profiles:       "nord.csv",
				ElectricDemand: profiles.Demand{Column: "missing"},
				HeatDemand:     profiles.Demand{Column: "heat"},
			},
		},
	}
	cfg.Tariffs.GridImport = 1
	cfg.Tariffs.Gas = 0.02
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestServiceRun(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg)
	require.NoError(t, err)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	require.Len(t, report.Results, 2)
	nord := report.Results[0]
	require.NoError(t, nord.Err)
	assert.Equal(t, "optimal", nord.Status)
	assert.Greater(t, nord.Summary.Expenses.Gas, 0.0)
	assert.True(t, errors.Is(report.Results[1].Err, profiles.ErrMissingColumn))
	assert.Equal(t, 1, report.Failed())

	for _, name := range []string{"nord_kpi.csv", "nord_flows.csv"} {
		_, err := os.Stat(filepath.Join(cfg.Dir, "out", name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(cfg.Dir, "out", "broken_kpi.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestProblem(t *testing.T) {
	cfg := testConfig(t)
	p, err := Problem(cfg, "nord")
	require.NoError(t, err)
	assert.NotEmpty(t, p.Vars)
	assert.Equal(t, 8, p.Horizon().Len)

	_, err = Problem(cfg, "sud")
	assert.Error(t, err)
}

func TestNewUnknownSolver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Solver.Type = "glpk"
	_, err := New(cfg)
	assert.Error(t, err)
}
