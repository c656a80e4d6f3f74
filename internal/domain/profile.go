// Package domain defines the core interfaces and types for Kestrel.
package domain

// RiskTolerance is the buyer's self-declared appetite for market risk.
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "Low"
	RiskMedium RiskTolerance = "Medium"
	RiskHigh   RiskTolerance = "High"
)

// Valid reports whether the value is one of the known tolerances.
func (r RiskTolerance) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Known vehicle types. The catalog may restrict motor policies to a subset.
const (
	VehicleCar        = "Car"
	VehicleBike       = "Bike"
	VehicleCommercial = "Commercial"
	VehicleEV         = "EV"
)

// Profile is the buyer profile a quote is computed from.
// It is immutable for the duration of a recommendation.
type Profile struct {
	// Age in years, expected range [0, 120].
	Age int `json:"age" validate:"min=0,max=120"`

	// Dependents is the number of financial dependents.
	Dependents int `json:"dependentsCount" validate:"min=0"`

	// AnnualIncome is the yearly income band (currency-agnostic unit).
	AnnualIncome float64 `json:"annualIncomeBand" validate:"min=0"`

	// RiskTolerance is Low, Medium, or High.
	RiskTolerance RiskTolerance `json:"riskTolerance" validate:"required"`

	// PreferredPremium is the target yearly premium ceiling.
	PreferredPremium float64 `json:"preferredPremiumBand" validate:"min=0"`

	// VehicleType is optional; empty means no vehicle.
	VehicleType string `json:"vehicleType,omitempty"`

	// HealthFlags are declared conditions, e.g. "Smoker", "Diabetic".
	HealthFlags []string `json:"healthFlags,omitempty"`
}

// HasFlag reports whether the profile declares the given health flag.
// Comparison is exact; the catalog uses the same tag vocabulary.
func (p *Profile) HasFlag(flag string) bool {
	for _, f := range p.HealthFlags {
		if f == flag {
			return true
		}
	}
	return false
}
