// Package catalog provides the immutable in-memory policy catalog.
package catalog

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrEmptyCatalog    = errors.New("catalog has no records")
	ErrInvalidRecord   = errors.New("invalid catalog record")
	ErrDuplicatePolicy = errors.New("duplicate policy id")
)

// Store holds the fixed set of policy records in memory. It is built
// once at startup and never mutated afterwards; any number of requests
// may read it concurrently without coordination.
type Store struct {
	policies []domain.PolicyRecord
	byID     map[string]int
}

// New validates the records and builds a Store. Validation enforces the
// catalog invariants: unique policy ids, premium options keyed by known
// sum-insured options, and coherent age bounds.
func New(records []domain.PolicyRecord) (*Store, error) {
	if len(records) == 0 {
		return nil, ErrEmptyCatalog
	}

	byID := make(map[string]int, len(records))
	for i, p := range records {
		if err := validate(&p); err != nil {
			return nil, err
		}
		if _, exists := byID[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePolicy, p.ID)
		}
		byID[p.ID] = i
	}

	policies := make([]domain.PolicyRecord, len(records))
	copy(policies, records)

	return &Store{policies: policies, byID: byID}, nil
}

// All returns the records in catalog order. The slice and its contents
// must not be modified by the caller.
func (s *Store) All() []domain.PolicyRecord {
	return s.policies
}

// Get returns the record with the given policy id.
func (s *Store) Get(id string) (domain.PolicyRecord, bool) {
	i, ok := s.byID[id]
	if !ok {
		return domain.PolicyRecord{}, false
	}
	return s.policies[i], true
}

// Len returns the number of records in the catalog.
func (s *Store) Len() int {
	return len(s.policies)
}

func validate(p *domain.PolicyRecord) error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing policy_id", ErrInvalidRecord)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: %s has no name", ErrInvalidRecord, p.ID)
	}

	e := p.Eligibility
	if e.MinAge != nil && e.MaxAge != nil && *e.MinAge > *e.MaxAge {
		return fmt.Errorf("%w: %s min_age %d exceeds max_age %d", ErrInvalidRecord, p.ID, *e.MinAge, *e.MaxAge)
	}
	if e.MinIncome != nil && e.MaxIncome != nil && *e.MinIncome > *e.MaxIncome {
		return fmt.Errorf("%w: %s min_income exceeds max_income", ErrInvalidRecord, p.ID)
	}

	// Premium options must reference declared sum-insured options.
	options := make(map[string]bool, len(p.SumInsured))
	for _, s := range p.SumInsured {
		options[OptionKey(s)] = true
	}
	for key := range p.PremiumYearly {
		if !options[key] {
			return fmt.Errorf("%w: %s premium option %q has no matching sum_insured", ErrInvalidRecord, p.ID, key)
		}
	}

	return nil
}

// OptionKey renders a sum-insured option the way the catalog source
// keys its premium table.
func OptionKey(sumInsured float64) string {
	return strconv.FormatFloat(sumInsured, 'f', -1, 64)
}
