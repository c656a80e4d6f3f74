// Package recommend orchestrates the recommendation pipeline:
// validate profile, filter the catalog through the eligibility engine,
// score the survivors, rank, and truncate to the top N.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/opensource-finance/kestrel/internal/catalog"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

// EngineVersion is stamped into quote metadata.
const EngineVersion = "kestrel-1.0"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Recommender produces policy recommendations for buyer profiles.
// All state is read-only after construction; Recommend is safe for any
// number of concurrent callers.
type Recommender struct {
	store  *catalog.Store
	engine *rules.Engine
	scorer *scoring.Scorer
	topN   int
}

// NewRecommender wires the pipeline. The store must be fully loaded;
// a nil store is allowed (the process can start degraded) but every
// Recommend call then fails with ErrCatalogUnavailable.
func NewRecommender(store *catalog.Store, engine *rules.Engine, scorer *scoring.Scorer, topN int) *Recommender {
	if topN <= 0 {
		topN = 3
	}
	return &Recommender{
		store:  store,
		engine: engine,
		scorer: scorer,
		topN:   topN,
	}
}

// TopN returns the configured result size.
func (r *Recommender) TopN() int {
	return r.topN
}

// CatalogSize returns the number of loaded catalog records.
func (r *Recommender) CatalogSize() int {
	if r.store == nil {
		return 0
	}
	return r.store.Len()
}

// Recommend validates the profile and returns the ranked top-N quote.
// An empty eligible set is a valid outcome and returns a quote with no
// recommendations, not an error. Neither the catalog nor the profile is
// mutated; identical input yields identical ordered output.
func (r *Recommender) Recommend(ctx context.Context, profile *domain.Profile) (*domain.Quote, error) {
	start := time.Now()

	if r.store == nil {
		return nil, domain.ErrCatalogUnavailable
	}
	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}

	records := r.store.All()
	eligible := make([]scoring.Ranked, 0, len(records))
	for i := range records {
		ok, err := r.engine.Eligible(profile, &records[i])
		if err != nil {
			// A constraint that compiled but fails at eval time gates
			// the policy out rather than failing the whole quote.
			slog.Warn("eligibility evaluation failed",
				"policy_id", records[i].ID,
				"error", err,
			)
			continue
		}
		if !ok {
			continue
		}
		eligible = append(eligible, scoring.Ranked{
			Policy:    records[i],
			Breakdown: r.scorer.Score(profile, &records[i]),
		})
	}

	top := scoring.SelectTop(profile, eligible, r.topN)

	recommendations := make([]domain.Recommendation, 0, len(top))
	for _, t := range top {
		recommendations = append(recommendations, domain.Recommendation{
			Policy:    t.Policy,
			Score:     t.Breakdown.Total,
			Breakdown: t.Breakdown,
		})
	}

	return &domain.Quote{
		ID:              uuid.New().String(),
		Profile:         *profile,
		Timestamp:       time.Now().UTC(),
		Recommendations: recommendations,
		Metadata: domain.QuoteMetadata{
			PoliciesEvaluated: len(records),
			PoliciesEligible:  len(eligible),
			EngineMs:          time.Since(start).Milliseconds(),
			EngineVersion:     EngineVersion,
		},
	}, nil
}

// ValidateProfile checks ranges and enumerations. Violations return
// ErrInvalidProfile wrapped with the offending field; required fields
// are never silently defaulted.
func ValidateProfile(p *domain.Profile) error {
	if p == nil {
		return fmt.Errorf("%w: profile is required", domain.ErrInvalidProfile)
	}
	if !p.RiskTolerance.Valid() {
		return fmt.Errorf("%w: unknown risk_tolerance %q", domain.ErrInvalidProfile, p.RiskTolerance)
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s fails %s", domain.ErrInvalidProfile, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidProfile, err)
	}
	return nil
}
