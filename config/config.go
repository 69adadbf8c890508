package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/districtopt/core/metrics"
	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/infra/logger"
	"github.com/kilianp07/districtopt/infra/profiles"
	"github.com/kilianp07/districtopt/infra/rte"
)

// EnvPrefix marks environment overrides. DO_SOLVER__TYPE=cbc sets solver.type.
const EnvPrefix = "DO_"

type Config struct {
	Horizon   HorizonConfig       `json:"horizon"`
	Tariffs   model.Tariffs       `json:"tariffs"`
	Market    profiles.Market     `json:"market"`
	Solver    SolverConfig        `json:"solver"`
	Pipeline  PipelineConfig      `json:"pipeline"`
	Logging   logger.Config       `json:"logging"`
	Metrics   metrics.Config      `json:"metrics"`
	Results   ResultsConfig       `json:"results"`
	Districts []profiles.District `json:"districts"`
	RTE       rte.Config          `json:"rte"`

	// Dir is the directory of the loaded file. Relative profile paths are
	// resolved against it.
	Dir string `json:"-"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Config{Tariffs: model.DefaultTariffs(), Dir: filepath.Dir(path)}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Horizon.SetDefaults()
	c.Market.SetDefaults()
	c.Solver.SetDefaults()
	c.Pipeline.SetDefaults()
	c.Logging.SetDefaults()
	c.RTE.SetDefaults()
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.Horizon.Validate(); err != nil {
		return fmt.Errorf("horizon: %w", err)
	}
	if c.Tariffs.GridImport < 0 || c.Tariffs.Gas < 0 || c.Tariffs.ExtHeat < 0 {
		return errors.New("tariffs must not be negative")
	}
	if err := c.Market.Validate(); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if err := validateLogging(c.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Results.Validate(); err != nil {
		return err
	}
	if len(c.Districts) == 0 {
		return errors.New("at least one district required")
	}
	seen := make(map[string]bool, len(c.Districts))
	for _, d := range c.Districts {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate district %s", d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

// District returns the district with the given name.
func (c *Config) District(name string) (profiles.District, bool) {
	for _, d := range c.Districts {
		if d.Name == name {
			return d, true
		}
	}
	return profiles.District{}, false
}
