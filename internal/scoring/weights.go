package scoring

import "github.com/opensource-finance/kestrel/internal/domain"

// Weights holds the factor weights applied to the normalized sub-scores.
// They are configuration data, not logic: tune them here, not in the
// scorer. The tie-break chain keeps results deterministic regardless.
type Weights struct {
	PremiumFit    float64 `json:"premiumFit"`
	Coverage      float64 `json:"coverage"`
	RiskAlignment float64 `json:"riskAlignment"`
	Bonus         float64 `json:"bonus"`
}

// DefaultWeights returns the reference weighting. Weights sum to 1 so
// the total score stays in [0,1].
func DefaultWeights() Weights {
	return Weights{
		PremiumFit:    0.35,
		Coverage:      0.30,
		RiskAlignment: 0.20,
		Bonus:         0.15,
	}
}

// AffinityTable maps (risk tolerance, policy type) to an affinity value
// in [0,1]. Pairs absent from the table score a neutral 0.5.
type AffinityTable map[domain.RiskTolerance]map[domain.PolicyType]float64

// DefaultAffinity returns the reference risk-affinity table. Low
// tolerance favors guaranteed health/life products; High discounts them
// slightly and relies on the market-linked modifier to surface ULIPs.
func DefaultAffinity() AffinityTable {
	return AffinityTable{
		domain.RiskLow: {
			domain.PolicyHealth: 0.9,
			domain.PolicyLife:   0.9,
			domain.PolicyTerm:   0.8,
			domain.PolicyMotor:  0.6,
		},
		domain.RiskMedium: {
			domain.PolicyHealth: 0.7,
			domain.PolicyLife:   0.7,
			domain.PolicyTerm:   0.7,
			domain.PolicyMotor:  0.7,
		},
		domain.RiskHigh: {
			domain.PolicyHealth: 0.5,
			domain.PolicyLife:   0.6,
			domain.PolicyTerm:   0.5,
			domain.PolicyMotor:  0.6,
		},
	}
}

// Modifiers applied on top of the affinity table for market-linked
// products, clamped back into [0,1].
const (
	marketLinkedHighBoost   = 0.3
	marketLinkedMediumBoost = 0.1
	marketLinkedLowPenalty  = 0.4
)

// Coverage need proxy: need = income * (base + perDependent * dependents).
const (
	coverageBaseMultiple = 10.0
	coveragePerDependent = 2.0
)

// Premium fit decays linearly from 1 at the preferred band to 0 at
// 1.5x the band. Anything above 1.5x scores the factor minimum but is
// never excluded here; exclusion is the eligibility engine's job.
const premiumDecaySpan = 0.5

// Coverage sub-score for policies with no sum-insured options (motor):
// neither rewarded nor penalized on a dimension they do not have.
const noCoverageNeutral = 0.5

// Fixed size of each profile-specific bonus; the bonus sub-score is the
// capped sum of the bonuses that fired.
const bonusStep = 0.5
