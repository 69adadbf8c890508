package profiles

import (
	"fmt"

	"github.com/kilianp07/districtopt/core/model"
	"github.com/kilianp07/districtopt/infra/logger"
)

// DefaultSolarYield is the annual solar thermal yield in kWh per m².
const DefaultSolarYield = 150.0

// Normalise scales a power profile so that its energy over the series,
// sum(s)·stepHours, equals totalKWh.
func Normalise(s model.Series, totalKWh, stepHours float64) (model.Series, error) {
	energy := s.Sum() * stepHours
	if energy <= 0 {
		return nil, fmt.Errorf("cannot normalise a profile without energy to %g kWh", totalKWh)
	}
	return s.Scale(totalKWh / energy), nil
}

// SolarThermal returns the thermal output profile of a collector field of
// areaM2 m² producing yield kWh per m² over the profile.
func SolarThermal(s model.Series, areaM2, yield, stepHours float64) (model.Series, error) {
	if yield <= 0 {
		yield = DefaultSolarYield
	}
	return Normalise(s, areaM2*yield, stepHours)
}

// Align truncates every series to the shortest length among them and limit.
// A non-positive limit is ignored. A warning lists the original lengths
// whenever something was cut.
func Align(log logger.Logger, limit int, series map[string]model.Series) int {
	n, bounded := limit, limit > 0
	for _, s := range series {
		if !bounded || len(s) < n {
			n, bounded = len(s), true
		}
	}
	cut := false
	lengths := make(map[string]any, len(series))
	for name, s := range series {
		lengths[name] = len(s)
		if len(s) > n {
			series[name] = s.Head(n)
			cut = true
		}
	}
	if cut || (limit > 0 && n < limit) {
		lengths["horizon"] = limit
		lengths["aligned"] = n
		log.Warnf("profiles truncated to %d steps", n)
		log.Debugw("profile lengths", lengths)
	}
	return n
}
