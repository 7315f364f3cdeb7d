package engine

import (
	"context"
	"sort"

	"github.com/vk/modplango/internal/ctxlog"
	"github.com/vk/modplango/internal/ref"
	"github.com/vk/modplango/internal/rules"
)

// ValidateSelection checks the selection against every applicable
// dependency and incompatibility rule and returns the violations found.
// The selection maps mod ids (case-insensitive) to component keys.
//
// Results are memoized: when the canonical form of the selection matches
// the previous call's, the cached violations are returned without
// re-evaluating any rule. Any change fully replaces the cache.
func (e *Engine) ValidateSelection(ctx context.Context, raw map[string][]string) []*Violation {
	logger := ctxlog.FromContext(ctx)
	sel := normalizeSelection(raw)

	if e.cache.hit(sel.keys) {
		logger.Debug("Selection unchanged, returning cached violations.", "components", len(sel.keys))
		return e.cache.flatten()
	}
	e.cache.reset(sel.keys)

	// A rule indexed under several selected components is evaluated once
	// per pass; its outcome does not depend on which component found it.
	checked := make(map[*rules.Rule]struct{})
	for _, key := range sel.keys {
		p := sel.pairs[key]
		for _, r := range e.index.ForComponent(p.Mod, p.Comp) {
			if _, ok := checked[r]; ok {
				continue
			}
			checked[r] = struct{}{}

			var v *Violation
			switch r.Type {
			case rules.TypeDependency:
				v = checkDependency(r, sel)
			case rules.TypeIncompatibility:
				v = checkIncompatibility(r, sel)
			case rules.TypeOrder:
				// Order rules apply to a concrete order, never to a selection.
			}
			if v != nil {
				e.cache.record(v)
			}
		}
	}

	out := e.cache.flatten()
	logger.Debug("Selection validated.", "components", len(sel.keys), "violations", len(out))
	return out
}

// checkDependency evaluates one dependency rule against the selection. The
// rule fires only when its source side is selected; it is violated when the
// target side is not satisfied per the rule's mode (or, with target groups,
// when any group fails).
func checkDependency(r *rules.Rule, sel *selection) *Violation {
	if !sideMatches(sel, r.Sources, r.SourceGroups) {
		return nil
	}
	affected := sidePairs(sel, r.Sources)

	if len(r.TargetGroups) > 0 {
		var missing []ref.Reference
		for _, g := range r.TargetGroups {
			if !g.Matches(sel.matches) {
				missing = append(missing, g.Missing(sel.matches)...)
			}
		}
		if len(missing) == 0 {
			return nil
		}
		return &Violation{Rule: r, Affected: append(affected, refPairs(missing)...)}
	}

	switch r.Mode {
	case rules.ModeAll:
		var missing []ref.Reference
		for _, t := range r.Targets {
			if !sel.matches(t) {
				missing = append(missing, t)
			}
		}
		if len(missing) == 0 {
			return nil
		}
		return &Violation{Rule: r, Affected: append(affected, refPairs(missing)...)}
	default: // ModeAny
		for _, t := range r.Targets {
			if sel.matches(t) {
				return nil
			}
		}
		// Every target is a candidate: "select at least one of".
		return &Violation{Rule: r, Affected: append(affected, refPairs(r.Targets)...)}
	}
}

// checkIncompatibility evaluates one incompatibility rule. Exclusion is
// symmetric: the rule is violated whenever both sides have selected
// matches, and the violation carries the selected components of both.
func checkIncompatibility(r *rules.Rule, sel *selection) *Violation {
	if !sideMatches(sel, r.Sources, r.SourceGroups) || !sideMatches(sel, r.Targets, r.TargetGroups) {
		return nil
	}
	affected := append(sidePairs(sel, r.Sources), sidePairs(sel, r.Targets)...)
	return &Violation{Rule: r, Affected: dedupPairs(affected)}
}

// sideMatches reports whether one rule endpoint is satisfied by the
// selection: with groups, every group must match; with a flat reference
// list, one match suffices.
func sideMatches(sel *selection, refs []ref.Reference, groups []rules.Group) bool {
	if len(groups) > 0 {
		for _, g := range groups {
			if !g.Matches(sel.matches) {
				return false
			}
		}
		return true
	}
	for _, r := range refs {
		if sel.matches(r) {
			return true
		}
	}
	return false
}

// sidePairs returns the selected pairs matched by any of the side's
// references, deduplicated and in deterministic order.
func sidePairs(sel *selection, refs []ref.Reference) []ref.Pair {
	var pairs []ref.Pair
	for _, r := range refs {
		pairs = append(pairs, sel.matchedPairs(r)...)
	}
	return dedupPairs(pairs)
}

func dedupPairs(pairs []ref.Pair) []ref.Pair {
	seen := make(map[string]struct{}, len(pairs))
	out := pairs[:0]
	for _, p := range pairs {
		if _, ok := seen[p.Key()]; ok {
			continue
		}
		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// refPairs converts rule references into reportable pairs. Mod-level
// references keep their wildcard component key.
func refPairs(refs []ref.Reference) []ref.Pair {
	out := make([]ref.Pair, 0, len(refs))
	for _, r := range refs {
		out = append(out, ref.Pair{Mod: r.ModID, Comp: r.CompKey})
	}
	return out
}
