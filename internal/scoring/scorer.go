// Package scoring computes suitability scores for eligible policies and
// ranks them. A score is a weighted sum of independent sub-scores, each
// normalized to [0,1] before weighting so no factor dominates by raw
// magnitude. Scoring never excludes a policy; that is eligibility's job.
package scoring

import (
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Scorer computes suitability scores. Construction is cheap and the
// scorer is stateless after it; Score is safe for concurrent use.
type Scorer struct {
	weights  Weights
	affinity AffinityTable
}

// NewScorer creates a scorer with the given weights and affinity table.
func NewScorer(weights Weights, affinity AffinityTable) *Scorer {
	return &Scorer{weights: weights, affinity: affinity}
}

// Score computes the suitability breakdown for an eligible policy.
// Breakdown fields hold the normalized sub-scores; Total is their
// weighted sum.
func (s *Scorer) Score(profile *domain.Profile, policy *domain.PolicyRecord) domain.ScoreBreakdown {
	b := domain.ScoreBreakdown{
		PremiumFit:    premiumFit(profile, policy),
		Coverage:      coverage(profile, policy),
		RiskAlignment: s.riskAlignment(profile, policy),
		Bonus:         bonus(profile, policy),
	}
	b.Total = s.weights.PremiumFit*b.PremiumFit +
		s.weights.Coverage*b.Coverage +
		s.weights.RiskAlignment*b.RiskAlignment +
		s.weights.Bonus*b.Bonus
	return b
}

// premiumFit scores how close the cheapest premium option sits to the
// preferred band. At or below the band scores 1; the score decays
// linearly to 0 at 1.5x the band.
func premiumFit(profile *domain.Profile, policy *domain.PolicyRecord) float64 {
	cheapest, ok := policy.CheapestPremium()
	if !ok {
		return 0
	}
	if cheapest <= profile.PreferredPremium {
		return 1
	}
	if profile.PreferredPremium <= 0 {
		return 0
	}
	over := (cheapest - profile.PreferredPremium) / profile.PreferredPremium
	score := 1 - over/premiumDecaySpan
	if score < 0 {
		return 0
	}
	return score
}

// coverage scores the maximum sum-insured option against a need proxy
// derived from income and dependents, saturating at 1 so over-insurance
// is not rewarded without bound.
func coverage(profile *domain.Profile, policy *domain.PolicyRecord) float64 {
	maxCover, ok := policy.MaxSumInsured()
	if !ok {
		return noCoverageNeutral
	}
	need := profile.AnnualIncome * (coverageBaseMultiple + coveragePerDependent*float64(profile.Dependents))
	if need <= 0 {
		// No income to protect; any cover saturates the factor.
		return 1
	}
	ratio := maxCover / need
	if ratio > 1 {
		return 1
	}
	return ratio
}

// riskAlignment looks up the (tolerance, type) affinity and applies the
// market-linked modifier for ULIP-style products.
func (s *Scorer) riskAlignment(profile *domain.Profile, policy *domain.PolicyRecord) float64 {
	affinity := 0.5
	if byType, ok := s.affinity[profile.RiskTolerance]; ok {
		if v, ok := byType[policy.Type]; ok {
			affinity = v
		}
	}

	if policy.MarketLinked() {
		switch profile.RiskTolerance {
		case domain.RiskHigh:
			affinity += marketLinkedHighBoost
		case domain.RiskMedium:
			affinity += marketLinkedMediumBoost
		case domain.RiskLow:
			affinity -= marketLinkedLowPenalty
		}
	}

	return clamp01(affinity)
}

// bonus adds small fixed rewards for structurally relevant matches.
func bonus(profile *domain.Profile, policy *domain.PolicyRecord) float64 {
	total := 0.0

	if profile.Dependents > 0 && (policy.Type == domain.PolicyLife || policy.Type == domain.PolicyTerm) {
		total += bonusStep
	}

	if policy.Type == domain.PolicyMotor && profile.VehicleType != "" {
		for _, vt := range policy.Eligibility.VehicleTypes {
			if vt == profile.VehicleType {
				total += bonusStep
				break
			}
		}
	}

	if policy.Type == domain.PolicyHealth {
		for _, flag := range profile.HealthFlags {
			if policy.CoversFlag(flag) {
				total += bonusStep
				break
			}
		}
	}

	return clamp01(total)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
