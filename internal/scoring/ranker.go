package scoring

import (
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Ranked pairs an eligible policy with its score breakdown.
type Ranked struct {
	Policy    domain.PolicyRecord
	Breakdown domain.ScoreBreakdown
}

// SelectTop orders eligible policies by score descending and truncates
// to the first n. Ties are broken by the profile's apparent need (type
// priority) and then by ascending policy id, which yields a total order:
// identical input always produces identical output, and catalog order
// never leaks into the result.
//
// Fewer than n eligible policies returns all of them; no padding.
func SelectTop(profile *domain.Profile, scored []Ranked, n int) []Ranked {
	out := make([]Ranked, len(scored))
	copy(out, scored)

	sort.SliceStable(out, func(i, j int) bool {
		return less(profile, &out[i], &out[j])
	})

	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func less(profile *domain.Profile, a, b *Ranked) bool {
	if a.Breakdown.Total != b.Breakdown.Total {
		return a.Breakdown.Total > b.Breakdown.Total
	}
	pa, pb := typePriority(profile, a.Policy.Type), typePriority(profile, b.Policy.Type)
	if pa != pb {
		return pa < pb
	}
	return a.Policy.ID < b.Policy.ID
}

// typePriority ranks policy types by the profile's apparent need:
// life/term first for profiles with dependents, then health for
// profiles with health flags, then motor for profiles with a vehicle.
// Everything else shares the lowest priority and falls through to the
// policy-id tie-break.
func typePriority(profile *domain.Profile, t domain.PolicyType) int {
	if profile.Dependents > 0 && (t == domain.PolicyLife || t == domain.PolicyTerm) {
		return 0
	}
	if len(profile.HealthFlags) > 0 && t == domain.PolicyHealth {
		return 1
	}
	if profile.VehicleType != "" && t == domain.PolicyMotor {
		return 2
	}
	return 3
}
