package domain

import (
	"errors"
	"time"
)

// Sentinel errors surfaced by the recommendation service. The API layer
// maps these to status codes; everything else is a 500.
var (
	// ErrInvalidProfile marks a profile that failed validation.
	// Always wrapped with the offending field.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrCatalogUnavailable means the catalog was never populated.
	// Distinct from an empty recommendation set, which is a valid outcome.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// Quote is the persisted result of one recommendation request.
type Quote struct {
	ID        string    `json:"id"`
	Profile   Profile   `json:"profile"`
	Timestamp time.Time `json:"timestamp"`

	// Recommendations are ordered best-first, at most topN entries.
	Recommendations []Recommendation `json:"recommendations"`

	Metadata QuoteMetadata `json:"metadata"`
}

// Recommendation pairs a catalog entry with its suitability score.
type Recommendation struct {
	Policy    PolicyRecord   `json:"policy"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// ScoreBreakdown exposes the weighted sub-scores behind a total, so a
// caller can explain why a policy ranked where it did.
type ScoreBreakdown struct {
	PremiumFit    float64 `json:"premiumFit"`
	Coverage      float64 `json:"coverage"`
	RiskAlignment float64 `json:"riskAlignment"`
	Bonus         float64 `json:"bonus"`
	Total         float64 `json:"total"`
}

// QuoteMetadata contains processing information.
type QuoteMetadata struct {
	RequestID         string `json:"requestId,omitempty"`
	PoliciesEvaluated int    `json:"policiesEvaluated"`
	PoliciesEligible  int    `json:"policiesEligible"`
	EngineMs          int64  `json:"engineMs"`
	EngineVersion     string `json:"engineVersion"`
}
