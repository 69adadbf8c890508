package network

import (
	"errors"
	"fmt"

	"github.com/kilianp07/districtopt/core/model"
)

var (
	// ErrMissingUpstream is returned when a converter needs a junction no
	// configured technology created, e.g. a boiler without gas supply.
	ErrMissingUpstream = errors.New("missing upstream junction")
	// ErrInvalidParameter reports a parameter outside its admissible range.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrSeriesLength reports a profile not aligned with the horizon.
	ErrSeriesLength = errors.New("series length does not match horizon")
	// ErrUnknownTechnology reports a configuration key not in the catalog.
	ErrUnknownTechnology = errors.New("unknown technology")
)

// ConfigError is a configuration inconsistency detected while compiling one
// district. It is fatal for that district only.
type ConfigError struct {
	District   string
	Technology model.Key
	Err        error
}

func (e *ConfigError) Error() string {
	if e.Technology == "" {
		return fmt.Sprintf("district %s: %v", e.District, e.Err)
	}
	return fmt.Sprintf("district %s: technology %s: %v", e.District, e.Technology, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
