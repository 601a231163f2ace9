// Package progression decides what a learner sees next and where a placement test puts them.
// It holds no state and does no I/O beyond the Catalog it is given.
package progression

import (
	"context"
	"fmt"
	"sort"

	"levelup_backend/internal/model"
)

// PacingScope selects which studied items count towards the rule/problem pacing thresholds.
type PacingScope string

const (
	// PacingGlobal counts every studied item regardless of its level.
	PacingGlobal PacingScope = "global"
	// PacingLevel counts only items at the level being evaluated.
	PacingLevel PacingScope = "level"
)

const (
	termsPerRule       = 5
	termsPerProblem    = 10
	rulesPerProblemGap = 2
)

// Consumed maps a content ID to the difficulty level of that content.
type Consumed map[uint]int

// Add records id and reports whether it was new.
func (c Consumed) Add(id uint, level int) bool {
	if _, ok := c[id]; ok {
		return false
	}
	c[id] = level
	return true
}

func (c Consumed) Has(id uint) bool {
	_, ok := c[id]
	return ok
}

// IDs returns the consumed IDs in ascending order.
func (c Consumed) IDs() []uint {
	ids := make([]uint, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c Consumed) CountAt(level int) int {
	n := 0
	for _, l := range c {
		if l == level {
			n++
		}
	}
	return n
}

// State is a learner's position: current level plus everything already consumed.
type State struct {
	Level    int
	Terms    Consumed
	Rules    Consumed
	Problems Consumed
}

// Catalog looks up the lowest-ID item of a kind at a level, skipping the excluded IDs.
// Implementations return (nil, nil) when the pool is exhausted.
type Catalog interface {
	FirstUnseenTerm(ctx context.Context, level int, exclude []uint) (*model.Term, error)
	FirstUnseenRule(ctx context.Context, level int, exclude []uint) (*model.RuleTheory, error)
	FirstUnseenProblem(ctx context.Context, level int, exclude []uint) (*model.Problem, error)
}

// Decision is the outcome of a selection. Type is empty when there is no content left.
// Level is the level the learner ended up on, which is higher than the starting level when
// exhausted levels were skipped.
type Decision struct {
	Type    model.ContentType
	Term    *model.Term
	Rule    *model.RuleTheory
	Problem *model.Problem
	Level   int
}

func (d Decision) Found() bool {
	return d.Type != ""
}

// Advanced reports whether selection moved past the starting level.
func (d Decision) Advanced(from int) bool {
	return d.Level > from
}

// ItemID returns the ID of the selected item, or 0.
func (d Decision) ItemID() uint {
	switch d.Type {
	case model.ContentTerm:
		return d.Term.ID
	case model.ContentRule:
		return d.Rule.ID
	case model.ContentProblem:
		return d.Problem.ID
	}
	return 0
}

type Selector struct {
	catalog Catalog
	scope   PacingScope
}

func NewSelector(catalog Catalog, scope PacingScope) *Selector {
	if scope != PacingLevel {
		scope = PacingGlobal
	}
	return &Selector{catalog: catalog, scope: scope}
}

func (s *Selector) Scope() PacingScope {
	return s.scope
}

// Next picks the next item for st. When a level has nothing left the learner moves up one
// level and selection restarts there, up to model.MaxLevel.
func (s *Selector) Next(ctx context.Context, st State) (Decision, error) {
	level := st.Level
	if level < model.MinLevel {
		level = model.MinLevel
	}

	for {
		d, err := s.selectAt(ctx, level, st)
		if err != nil {
			return Decision{}, err
		}
		d.Level = level
		if d.Found() || level >= model.MaxLevel {
			return d, nil
		}
		level++
	}
}

func (s *Selector) counts(level int, st State) (terms, rules int) {
	if s.scope == PacingLevel {
		return st.Terms.CountAt(level), st.Rules.CountAt(level)
	}
	return len(st.Terms), len(st.Rules)
}

// wantType applies the pacing thresholds: one rule per five terms, and a problem once ten
// terms and an even, non-zero number of rules have been studied.
func wantType(terms, rules int) model.ContentType {
	switch {
	case terms > 0 && terms%termsPerRule == 0 && rules < terms/termsPerRule:
		return model.ContentRule
	case terms > 0 && terms%termsPerProblem == 0 && rules > 0 && rules%rulesPerProblemGap == 0:
		return model.ContentProblem
	default:
		return model.ContentTerm
	}
}

func (s *Selector) selectAt(ctx context.Context, level int, st State) (Decision, error) {
	terms, rules := s.counts(level, st)
	want := wantType(terms, rules)

	d, err := s.pick(ctx, want, level, st)
	if err != nil || d.Found() {
		return d, err
	}

	// fallback order is fixed: rule, then problem
	for _, typ := range []model.ContentType{model.ContentRule, model.ContentProblem} {
		d, err = s.pick(ctx, typ, level, st)
		if err != nil || d.Found() {
			return d, err
		}
	}
	return Decision{}, nil
}

func (s *Selector) pick(ctx context.Context, typ model.ContentType, level int, st State) (Decision, error) {
	switch typ {
	case model.ContentTerm:
		t, err := s.catalog.FirstUnseenTerm(ctx, level, st.Terms.IDs())
		if err != nil {
			return Decision{}, fmt.Errorf("find term at level %d: %w", level, err)
		}
		if t != nil {
			return Decision{Type: typ, Term: t}, nil
		}
	case model.ContentRule:
		r, err := s.catalog.FirstUnseenRule(ctx, level, st.Rules.IDs())
		if err != nil {
			return Decision{}, fmt.Errorf("find rule at level %d: %w", level, err)
		}
		if r != nil {
			return Decision{Type: typ, Rule: r}, nil
		}
	case model.ContentProblem:
		p, err := s.catalog.FirstUnseenProblem(ctx, level, st.Problems.IDs())
		if err != nil {
			return Decision{}, fmt.Errorf("find problem at level %d: %w", level, err)
		}
		if p != nil {
			return Decision{Type: typ, Problem: p}, nil
		}
	}
	return Decision{}, nil
}
