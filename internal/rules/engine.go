// Package rules provides the eligibility engine that gates which catalog
// policies may be scored for a profile. Structured constraints (age,
// vehicle, health flags, income) are evaluated directly; a policy may
// additionally carry a CEL constraint expression compiled at catalog load.
package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Engine evaluates policy eligibility. Eligibility is a hard gate: a
// policy that fails here is never scored, regardless of how well it
// would have matched otherwise.
type Engine struct {
	mu          sync.RWMutex
	env         *cel.Env
	constraints map[string]cel.Program // policy id -> compiled constraint
}

// NewEngine creates an eligibility engine with the profile variables
// catalog constraints may reference.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("age", cel.IntType),
		cel.Variable("dependents", cel.IntType),
		cel.Variable("income", cel.DoubleType),
		cel.Variable("risk", cel.StringType),
		cel.Variable("preferred_premium", cel.DoubleType),
		cel.Variable("vehicle", cel.StringType),
		cel.Variable("flags", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:         env,
		constraints: make(map[string]cel.Program),
	}, nil
}

// LoadCatalog compiles the CEL constraints carried by catalog records.
// A compile failure aborts the load; a catalog with a broken constraint
// never serves traffic.
func (e *Engine) LoadCatalog(policies []domain.PolicyRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled := make(map[string]cel.Program)
	for _, p := range policies {
		if p.Eligibility.Constraint == "" {
			continue
		}
		program, err := e.compile(p.ID, p.Eligibility.Constraint)
		if err != nil {
			return err
		}
		compiled[p.ID] = program
	}

	e.constraints = compiled
	return nil
}

// ValidateConstraint compiles a constraint without loading it.
func (e *Engine) ValidateConstraint(policyID, expr string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compile(policyID, expr)
	return err
}

// ConstraintCount returns the number of compiled constraints.
func (e *Engine) ConstraintCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.constraints)
}

// Eligible reports whether the profile clears every constraint on the
// policy. Pure function of its inputs; no side effects.
func (e *Engine) Eligible(profile *domain.Profile, policy *domain.PolicyRecord) (bool, error) {
	if !meetsStructured(profile, policy) {
		return false, nil
	}

	e.mu.RLock()
	program, hasConstraint := e.constraints[policy.ID]
	e.mu.RUnlock()

	if !hasConstraint {
		return true, nil
	}

	out, _, err := program.Eval(activation(profile))
	if err != nil {
		return false, fmt.Errorf("constraint evaluation failed for %s: %w", policy.ID, err)
	}
	result, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("constraint for %s did not return bool", policy.ID)
	}
	return bool(result), nil
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.constraints = make(map[string]cel.Program)
	return nil
}

// meetsStructured applies the structured eligibility fields. Absence of
// a field means no restriction. Unknown policy types pass by default;
// only the generic constraints below apply to them.
func meetsStructured(profile *domain.Profile, policy *domain.PolicyRecord) bool {
	elig := policy.Eligibility

	if elig.MinAge != nil && profile.Age < *elig.MinAge {
		return false
	}
	if elig.MaxAge != nil && profile.Age > *elig.MaxAge {
		return false
	}

	// A motor policy restricted to certain vehicle types requires the
	// profile to declare one of them; no vehicle fails the gate.
	if policy.Type == domain.PolicyMotor && len(elig.VehicleTypes) > 0 {
		if profile.VehicleType == "" || !contains(elig.VehicleTypes, profile.VehicleType) {
			return false
		}
	}

	for _, barred := range elig.BarredHealthFlags {
		if profile.HasFlag(barred) {
			return false
		}
	}

	if elig.MinIncome != nil && profile.AnnualIncome < *elig.MinIncome {
		return false
	}
	if elig.MaxIncome != nil && profile.AnnualIncome > *elig.MaxIncome {
		return false
	}

	return true
}

func activation(p *domain.Profile) map[string]any {
	flags := p.HealthFlags
	if flags == nil {
		flags = []string{}
	}
	return map[string]any{
		"age":               p.Age,
		"dependents":        p.Dependents,
		"income":            p.AnnualIncome,
		"risk":              string(p.RiskTolerance),
		"preferred_premium": p.PreferredPremium,
		"vehicle":           p.VehicleType,
		"flags":             flags,
	}
}

func (e *Engine) compile(policyID, expr string) (cel.Program, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile constraint for %s: %w", policyID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("constraint for %s: expression must return bool, got %s", policyID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for %s: %w", policyID, err)
	}
	return program, nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
