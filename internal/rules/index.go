package rules

import (
	"sort"

	"github.com/vk/modplango/internal/ref"
)

// Index provides per-reference and per-type lookup over a loaded rule set,
// so a validation pass costs O(selected items x matching rules) instead of
// a scan over every rule. It is rebuilt from scratch on every load and
// never mutated afterwards; concurrent reads are safe.
type Index struct {
	all    []*Rule
	byType map[Type][]*Rule

	// bySource is keyed by the canonical string form of a reference.
	// Incompatibility rules are indexed under both sides: exclusion is
	// symmetric and must be found from whichever side is selected.
	bySource map[string][]*Rule

	// knownComponents records every concrete component key any rule
	// mentions, per mod. Wildcard dependency targets expand through it.
	knownComponents map[string]map[string]struct{}
}

// NewIndex builds the lookup tables for a rule set.
func NewIndex(set Set) *Index {
	ix := &Index{
		byType:          make(map[Type][]*Rule),
		bySource:        make(map[string][]*Rule),
		knownComponents: make(map[string]map[string]struct{}),
	}
	for _, batch := range [][]Rule{set.Dependencies, set.Incompatibilities, set.Order} {
		for i := range batch {
			ix.add(&batch[i])
		}
	}
	return ix
}

func (ix *Index) add(r *Rule) {
	ix.all = append(ix.all, r)
	ix.byType[r.Type] = append(ix.byType[r.Type], r)

	for _, src := range r.Sources {
		ix.bySource[src.String()] = append(ix.bySource[src.String()], r)
		ix.noteComponent(src)
	}
	for _, tgt := range r.Targets {
		if r.Type == TypeIncompatibility {
			ix.bySource[tgt.String()] = append(ix.bySource[tgt.String()], r)
		}
		ix.noteComponent(tgt)
	}
}

func (ix *Index) noteComponent(r ref.Reference) {
	if r.IsMod() {
		return
	}
	comps, ok := ix.knownComponents[r.ModID]
	if !ok {
		comps = make(map[string]struct{})
		ix.knownComponents[r.ModID] = comps
	}
	comps[r.CompKey] = struct{}{}
}

// ForComponent returns the rules indexed under the exact reference of the
// given component and under its mod-level wildcard, so mod-scoped rules
// apply to every component of the mod.
func (ix *Index) ForComponent(modID, compKey string) []*Rule {
	exact := ref.New(modID, compKey)
	matched := ix.bySource[exact.String()]
	if exact.IsMod() {
		// The wildcard key is the exact key; appending it again would
		// return every mod-scoped rule twice.
		return matched
	}
	if wildcard := ix.bySource[ref.ForMod(modID).String()]; len(wildcard) > 0 {
		matched = append(matched[:len(matched):len(matched)], wildcard...)
	}
	return matched
}

// ByType returns all rules of one kind.
func (ix *Index) ByType(t Type) []*Rule {
	return ix.byType[t]
}

// All returns every indexed rule.
func (ix *Index) All() []*Rule {
	return ix.all
}

// Len returns the total number of indexed rules.
func (ix *Index) Len() int {
	return len(ix.all)
}

// KnownComponents returns the sorted concrete component keys any rule
// mentions for the given mod.
func (ix *Index) KnownComponents(modID string) []string {
	comps := ix.knownComponents[ref.ForMod(modID).ModID]
	if len(comps) == 0 {
		return nil
	}
	keys := make([]string, 0, len(comps))
	for k := range comps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
