package service

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/nfvmesh/sfcd/common/fault"
	"github.com/nfvmesh/sfcd/common/models"
)

// Selector evaluates launch selection rules. A rule is a CEL expression over
// the candidate template's attributes and the launch's network mapping; the
// first candidate in stable catalog order for which it returns true wins.
// Compiled programs are cached per expression.
type Selector struct {
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewSelector creates a selector with an empty program cache
func NewSelector() *Selector {
	return &Selector{
		cache: make(map[string]cel.Program),
	}
}

// Select returns the first candidate matching the rule. An empty rule picks
// the first candidate; no match is NotFound.
func (s *Selector) Select(rule string, candidates []*models.ApplianceTemplate, networks map[string]any) (*models.ApplianceTemplate, error) {
	if len(candidates) == 0 {
		return nil, fault.NotFound("no candidate appliance templates")
	}

	if rule == "" {
		return candidates[0], nil
	}

	prg, err := s.program(rule)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		out, _, err := prg.Eval(map[string]any{
			"template": candidate.Attributes(),
			"networks": networks,
		})
		if err != nil {
			return nil, fmt.Errorf("selection rule evaluation: %w", err)
		}

		matched, ok := out.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("selection rule did not return boolean, got %T", out.Value())
		}

		if matched {
			return candidate, nil
		}
	}

	return nil, fault.NotFound("no appliance template matches selection rule")
}

func (s *Selector) program(rule string) (cel.Program, error) {
	s.mu.RLock()
	prg, exists := s.cache[rule]
	s.mu.RUnlock()

	if exists {
		return prg, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("template", cel.DynType),
		cel.Variable("networks", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL env: %w", err)
	}

	ast, issues := env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile selection rule: %w", issues.Err())
	}

	prg, err = env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create CEL program: %w", err)
	}

	s.mu.Lock()
	s.cache[rule] = prg
	s.mu.Unlock()

	return prg, nil
}
