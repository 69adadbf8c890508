package model

// Key names an optional technology of a district.
type Key string

const (
	KeyGas          Key = "gas"
	KeyExtHeat      Key = "ext_heat"
	KeyPV           Key = "pv"
	KeyWind         Key = "wind"
	KeySolarThermal Key = "solar_thermal"
	KeyBoiler       Key = "boiler"
	KeyCHP          Key = "chp"
	KeyHeatPump     Key = "heat_pump"
	KeyBattery      Key = "battery"
	KeyHeatStorage  Key = "heat_storage"
)

// Params is a technology parameter record. The set of implementations is closed.
type Params interface {
	params()
}

// Technologies maps each enabled technology to its parameters. A missing key
// means the technology is absent from the district.
type Technologies map[Key]Params

// Has reports whether the technology is enabled.
func (t Technologies) Has(k Key) bool {
	_, ok := t[k]
	return ok
}

// Gas enables the shared natural gas supply.
type Gas struct {
	// EmissionFactor in kgCO2 per kWh of gas.
	EmissionFactor float64 `json:"emission_factor"`
}

// ExtHeat enables a connection to an external heat grid.
type ExtHeat struct {
	EmissionFactor float64 `json:"emission_factor"`
}

// Boiler converts gas into heat.
type Boiler struct {
	CapacityKW float64 `json:"capacity_kw"`
	Efficiency float64 `json:"efficiency"`
}

// CHP converts gas into electricity and heat.
type CHP struct {
	ElectricCapacityKW float64 `json:"electric_capacity_kw"`
	ThermalCapacityKW  float64 `json:"thermal_capacity_kw"`
	ElectricEfficiency float64 `json:"electric_efficiency"`
	ThermalEfficiency  float64 `json:"thermal_efficiency"`
}

// HeatPump converts electricity into heat with a time-varying COP.
type HeatPump struct {
	ThermalCapacityKW float64 `json:"thermal_capacity_kw"`
	COP               Series  `json:"-"`
}

// Renewable is a curtailable source capped by an availability profile given
// per unit of installed capacity. Used for PV, wind and solar thermal.
type Renewable struct {
	CapacityKW float64 `json:"capacity_kw"`
	// Scale multiplies the availability cap. Zero means 1.
	Scale   float64 `json:"scale"`
	Profile Series  `json:"-"`
}

// Availability returns the per-step upper bound of the source output.
func (r Renewable) Availability() Series {
	scale := r.Scale
	if scale == 0 {
		scale = 1
	}
	return r.Profile.Scale(r.CapacityKW * scale)
}

// Storage describes an electrical or thermal store.
type Storage struct {
	CapacityKWh         float64 `json:"capacity_kwh"`
	ChargeKW            float64 `json:"charge_kw"`
	DischargeKW         float64 `json:"discharge_kw"`
	ChargeEfficiency    float64 `json:"charge_efficiency"`
	DischargeEfficiency float64 `json:"discharge_efficiency"`
	LossRate            float64 `json:"loss_rate"`
	InitialLevelKWh     float64 `json:"initial_level_kwh"`
	// Balanced forces the final level back to the initial level.
	Balanced bool `json:"balanced"`
}

func (Gas) params()       {}
func (ExtHeat) params()   {}
func (Boiler) params()    {}
func (CHP) params()       {}
func (HeatPump) params()  {}
func (Renewable) params() {}
func (Storage) params()   {}

// Tariffs are the variable costs of the supply side, in currency per kWh.
type Tariffs struct {
	GridImport float64 `json:"grid_import"`
	Gas        float64 `json:"gas"`
	ExtHeat    float64 `json:"ext_heat"`
}

const (
	// DefaultGridImport makes grid import a last resort slack.
	DefaultGridImport = 10000
	// DefaultGas is 3.66 EUR/mmBTU at 293.07 kWh/mmBTU.
	DefaultGas = 3.66 / 293.07
)

// DefaultTariffs returns the tariffs used when none are configured.
func DefaultTariffs() Tariffs {
	return Tariffs{GridImport: DefaultGridImport, Gas: DefaultGas}
}

// DistrictConfig is everything needed to compile one district.
type DistrictConfig struct {
	Name           string
	ElectricDemand Series
	HeatDemand     Series
	Tariffs        Tariffs
	Technologies   Technologies
}
