// Package engine is the resolution core: it answers whether a selection of
// components satisfies the loaded rules, derives a deterministic
// installation order, checks externally supplied orders, and computes
// dependency closures.
//
// Why no locks?
//
// Every operation is a finite, synchronous computation over an immutable
// rule index; the only mutable state is the validation cache, rewritten
// wholesale per selection change. Callers that share an Engine across
// goroutines serialize mutation externally, which keeps the hot
// ValidateSelection path free of synchronization cost.
package engine

import (
	"context"
	"slices"

	"github.com/vk/modplango/internal/ctxlog"
	"github.com/vk/modplango/internal/ref"
	"github.com/vk/modplango/internal/rules"
)

// Engine owns the rule index and the validation cache. The zero value is
// not usable; construct with New.
type Engine struct {
	index *rules.Index
	cache validationCache
}

// New returns an engine with an empty rule set. Every query succeeds
// against it and reports no violations.
func New() *Engine {
	return &Engine{index: rules.NewIndex(rules.Set{})}
}

// Load replaces the rule collection with the given set, rebuilds all
// indexes and discards any cached validation state.
func (e *Engine) Load(ctx context.Context, set rules.Set) {
	e.index = rules.NewIndex(set)
	e.cache.reset(nil)

	ctxlog.FromContext(ctx).Info("Rule set loaded.",
		"dependencies", len(set.Dependencies),
		"incompatibilities", len(set.Incompatibilities),
		"order", len(set.Order),
	)
}

// Len returns the total number of loaded rules.
func (e *Engine) Len() int {
	return e.index.Len()
}

// DependencyRules returns a snapshot of the loaded dependency rules.
func (e *Engine) DependencyRules() []*rules.Rule {
	return slices.Clone(e.index.ByType(rules.TypeDependency))
}

// IncompatibilityRules returns a snapshot of the loaded incompatibility rules.
func (e *Engine) IncompatibilityRules() []*rules.Rule {
	return slices.Clone(e.index.ByType(rules.TypeIncompatibility))
}

// OrderRules returns a snapshot of the loaded order rules.
func (e *Engine) OrderRules() []*rules.Rule {
	return slices.Clone(e.index.ByType(rules.TypeOrder))
}

// ViolationsFor returns the cached violations affecting one component, as
// computed by the most recent ValidateSelection call. Before any
// validation, or for components without violations, it returns nil.
func (e *Engine) ViolationsFor(mod, comp string) []*Violation {
	return slices.Clone(e.cache.byComponent[ref.Pair{Mod: mod, Comp: comp}.Key()])
}
