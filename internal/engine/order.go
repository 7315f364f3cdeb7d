package engine

import (
	"context"
	"strings"

	"github.com/vk/modplango/internal/ctxlog"
	"github.com/vk/modplango/internal/dag"
	"github.com/vk/modplango/internal/ref"
	"github.com/vk/modplango/internal/rules"
)

// GenerateOrder produces a deterministic installation order for the
// selection: always a permutation of the selected set, satisfying every
// ordering constraint when feasible.
//
// The longest prefix of base whose elements are all selected seeds the
// output unconstrained, preserving a caller-supplied preferred order. The
// rest is ordered by topological sort over the implicit dependency edges
// and the explicit order rules, breaking ties lexicographically. A cycle
// is not fatal: the unresolvable remainder is appended in lexicographic
// order with a warning.
func (e *Engine) GenerateOrder(ctx context.Context, raw map[string][]string, base []ref.Pair) []ref.Pair {
	logger := ctxlog.FromContext(ctx)
	sel := normalizeSelection(raw)

	remaining := make(map[string]ref.Pair, len(sel.pairs))
	for k, p := range sel.pairs {
		remaining[k] = p
	}

	prefix := make([]ref.Pair, 0, len(base))
	for _, p := range base {
		sp, ok := remaining[p.Key()]
		if !ok {
			break
		}
		prefix = append(prefix, sp)
		delete(remaining, p.Key())
	}

	g := dag.New()
	remByMod := make(map[string][]string)
	for k, p := range remaining {
		g.AddNode(k)
		m := strings.ToLower(p.Mod)
		remByMod[m] = append(remByMod[m], k)
	}

	// matchKeys resolves one rule reference to the remaining nodes it
	// applies to.
	matchKeys := func(r ref.Reference) []string {
		if r.IsMod() {
			return remByMod[r.ModID]
		}
		if _, ok := remaining[r.String()]; ok {
			return []string{r.String()}
		}
		return nil
	}
	// Both endpoints are known nodes and self-edges are filtered, so
	// AddEdge can not fail here.
	edge := func(fromKey, toKey string) {
		if fromKey != toKey {
			_ = g.AddEdge(fromKey, toKey)
		}
	}

	for _, r := range e.index.ByType(rules.TypeDependency) {
		if !r.ImplicitOrder {
			continue
		}
		for _, src := range r.Sources {
			srcKeys := matchKeys(src)
			if len(srcKeys) == 0 {
				continue
			}
			for _, tgt := range r.Targets {
				for _, tk := range matchKeys(tgt) {
					for _, sk := range srcKeys {
						edge(tk, sk) // dependency target precedes the source
					}
				}
			}
		}
	}
	for _, r := range e.index.ByType(rules.TypeOrder) {
		for _, src := range r.Sources {
			for _, sk := range matchKeys(src) {
				for _, tgt := range r.Targets {
					for _, tk := range matchKeys(tgt) {
						if r.Direction == rules.DirectionAfter {
							edge(tk, sk)
						} else {
							edge(sk, tk)
						}
					}
				}
			}
		}
	}

	// Comparing pairs, not key strings: a colon sorts above digits, so the
	// string key order diverges from (mod, comp) order when one mod id is
	// a prefix of another.
	less := func(a, b string) bool { return remaining[a].Less(remaining[b]) }
	sorted, cyclic := g.TopoSort(less)
	if len(cyclic) > 0 {
		logger.Warn("Circular dependency in ordering constraints, appending remainder lexicographically.",
			"nodes", len(cyclic), "cycle", g.DetectCycles())
	}

	out := prefix
	for _, k := range sorted {
		out = append(out, remaining[k])
	}
	for _, k := range cyclic {
		out = append(out, remaining[k])
	}
	logger.Debug("Order generated.", "selected", len(sel.pairs), "seeded", len(prefix))
	return out
}

// ValidateOrder checks a concrete, externally supplied order against the
// implicit dependency constraints and the explicit order rules. Mod-level
// references resolve to the position of the first matching entry. Reported
// pairs come straight out of the given order, so original casing is
// preserved.
func (e *Engine) ValidateOrder(ctx context.Context, order []ref.Pair) []*Violation {
	positions := make(map[string]int, len(order))
	firstByMod := make(map[string]int)
	for i, p := range order {
		if _, ok := positions[p.Key()]; !ok {
			positions[p.Key()] = i
		}
		m := strings.ToLower(p.Mod)
		if _, ok := firstByMod[m]; !ok {
			firstByMod[m] = i
		}
	}

	posOf := func(r ref.Reference) (int, bool) {
		if r.IsMod() {
			i, ok := firstByMod[r.ModID]
			return i, ok
		}
		i, ok := positions[r.String()]
		return i, ok
	}

	var out []*Violation
	record := func(r *rules.Rule, srcPos, tgtPos int) {
		out = append(out, &Violation{Rule: r, Affected: []ref.Pair{order[srcPos], order[tgtPos]}})
	}

	for _, r := range e.index.ByType(rules.TypeDependency) {
		if !r.ImplicitOrder {
			continue
		}
		for _, src := range r.Sources {
			sp, ok := posOf(src)
			if !ok {
				continue
			}
			for _, tgt := range r.Targets {
				// A dependency placed after its dependent is a violation.
				if tp, ok := posOf(tgt); ok && tp > sp {
					record(r, sp, tp)
				}
			}
		}
	}
	for _, r := range e.index.ByType(rules.TypeOrder) {
		for _, src := range r.Sources {
			sp, ok := posOf(src)
			if !ok {
				continue
			}
			for _, tgt := range r.Targets {
				tp, ok := posOf(tgt)
				if !ok || tp == sp {
					continue
				}
				violated := sp > tp
				if r.Direction == rules.DirectionAfter {
					violated = sp < tp
				}
				if violated {
					record(r, sp, tp)
				}
			}
		}
	}

	ctxlog.FromContext(ctx).Debug("Order validated.", "entries", len(order), "violations", len(out))
	return out
}
