package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/districtopt/core/model"
)

// HorizonConfig selects the dispatch window. Steps of zero cover the whole
// profile files.
type HorizonConfig struct {
	Start       string `json:"start"`
	StepMinutes int    `json:"step_minutes"`
	Steps       int    `json:"steps"`
}

func (c *HorizonConfig) SetDefaults() {
	if c.StepMinutes == 0 {
		c.StepMinutes = int(model.DefaultStep / time.Minute)
	}
}

func (c HorizonConfig) Validate() error {
	if c.Steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", c.Steps)
	}
	_, err := c.Horizon()
	return err
}

// StartTime parses Start as RFC3339 or a plain date. An empty start is the
// zero time.
func (c HorizonConfig) StartTime() (time.Time, error) {
	if c.Start == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, c.Start); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, c.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("start %q: expected RFC3339 or YYYY-MM-DD", c.Start)
	}
	return t, nil
}

// Horizon returns the configured horizon. Its length may still be zero; the
// profile provider sets it from the files.
func (c HorizonConfig) Horizon() (model.Horizon, error) {
	start, err := c.StartTime()
	if err != nil {
		return model.Horizon{}, err
	}
	h := model.Horizon{Start: start, Step: time.Duration(c.StepMinutes) * time.Minute, Len: c.Steps}
	probe := h
	probe.Len = 1
	if err := probe.Validate(); err != nil {
		return model.Horizon{}, err
	}
	return h, nil
}
