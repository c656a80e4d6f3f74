package domain

import "strings"

// PolicyType is the catalog product line.
type PolicyType string

const (
	PolicyHealth PolicyType = "health"
	PolicyLife   PolicyType = "life"
	PolicyTerm   PolicyType = "term"
	PolicyMotor  PolicyType = "motor"
)

// PolicyRecord is a single catalog entry. Records are read-only at
// request time; the catalog store validates their invariants at load.
type PolicyRecord struct {
	ID          string     `json:"policy_id"`
	Name        string     `json:"name"`
	Type        PolicyType `json:"type"`
	Description string     `json:"description"`

	// SumInsured holds the coverage options in catalog order.
	// May be empty for products without a traditional cover amount (motor).
	SumInsured []float64 `json:"sum_insured"`

	// PremiumYearly maps a sum-insured option (stringified, as authored
	// in the catalog source) to its yearly premium.
	PremiumYearly map[string]float64 `json:"premium_yearly"`

	Eligibility Eligibility `json:"eligibility"`
	Exclusions  []string    `json:"exclusions,omitempty"`
	Riders      []Rider     `json:"riders,omitempty"`
}

// Eligibility holds the structured constraints a profile must clear.
// Absent fields mean "no restriction".
type Eligibility struct {
	MinAge *int `json:"min_age,omitempty"`
	MaxAge *int `json:"max_age,omitempty"`

	// VehicleTypes restricts motor policies to the listed vehicle types.
	VehicleTypes []string `json:"vehicle_types,omitempty"`

	// BarredHealthFlags disqualify a profile declaring any of them.
	BarredHealthFlags []string `json:"barred_health_flags,omitempty"`

	MinIncome *float64 `json:"min_income,omitempty"`
	MaxIncome *float64 `json:"max_income,omitempty"`

	// Constraint is an optional CEL expression evaluated against the
	// profile. It must return bool and is compiled at catalog load.
	Constraint string `json:"constraint,omitempty"`
}

// Rider is an optional add-on attached to a policy.
type Rider struct {
	Name string `json:"name"`

	// Covers lists the health flags this rider is relevant for.
	Covers []string `json:"covers,omitempty"`
}

// MarketLinked reports whether the product's returns are market-linked.
// The catalog follows the Indian retail convention of naming unit-linked
// plans "ULIP".
func (p *PolicyRecord) MarketLinked() bool {
	return strings.Contains(strings.ToUpper(p.Name), "ULIP")
}

// CheapestPremium returns the lowest yearly premium option and true,
// or 0 and false when the policy has no premium options at all.
func (p *PolicyRecord) CheapestPremium() (float64, bool) {
	found := false
	min := 0.0
	for _, premium := range p.PremiumYearly {
		if !found || premium < min {
			min = premium
			found = true
		}
	}
	return min, found
}

// MaxSumInsured returns the largest coverage option and true, or 0 and
// false when the policy has no sum-insured options.
func (p *PolicyRecord) MaxSumInsured() (float64, bool) {
	if len(p.SumInsured) == 0 {
		return 0, false
	}
	max := p.SumInsured[0]
	for _, s := range p.SumInsured[1:] {
		if s > max {
			max = s
		}
	}
	return max, true
}

// CoversFlag reports whether any rider on the policy targets the flag.
func (p *PolicyRecord) CoversFlag(flag string) bool {
	for _, r := range p.Riders {
		for _, c := range r.Covers {
			if c == flag {
				return true
			}
		}
	}
	return false
}
