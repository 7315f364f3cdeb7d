package engine

import (
	"slices"
	"sort"
	"strings"

	"github.com/vk/modplango/internal/ref"
)

// selection is the canonical, duplicate-free form of a caller-supplied
// selection. Keys are case-folded "mod:comp" strings; pairs keep the
// caller's original casing for reporting.
type selection struct {
	pairs map[string]ref.Pair
	byMod map[string][]ref.Pair

	// keys is the sorted key list. It doubles as the selection
	// fingerprint: an equality-comparable canonical form, never a bare
	// hash, so a cache hit can not be a collision.
	keys []string
}

func normalizeSelection(raw map[string][]string) *selection {
	s := &selection{
		pairs: make(map[string]ref.Pair),
		byMod: make(map[string][]ref.Pair),
		keys:  make([]string, 0, len(raw)),
	}
	for mod, comps := range raw {
		for _, comp := range comps {
			p := ref.Pair{Mod: mod, Comp: comp}
			k := p.Key()
			if _, ok := s.pairs[k]; ok {
				continue
			}
			s.pairs[k] = p
			s.byMod[strings.ToLower(mod)] = append(s.byMod[strings.ToLower(mod)], p)
			s.keys = append(s.keys, k)
		}
	}
	sort.Strings(s.keys)
	for _, ps := range s.byMod {
		sort.Slice(ps, func(i, j int) bool { return ps[i].Less(ps[j]) })
	}
	return s
}

// matches reports whether the selection satisfies a single reference: a
// mod-level reference needs at least one selected component of the mod, a
// concrete reference needs the exact component.
func (s *selection) matches(r ref.Reference) bool {
	if r.IsMod() {
		return len(s.byMod[r.ModID]) > 0
	}
	_, ok := s.pairs[r.String()]
	return ok
}

// matchedPairs returns the selected pairs a reference applies to, in
// deterministic order.
func (s *selection) matchedPairs(r ref.Reference) []ref.Pair {
	if r.IsMod() {
		return s.byMod[r.ModID]
	}
	if p, ok := s.pairs[r.String()]; ok {
		return []ref.Pair{p}
	}
	return nil
}

// validationCache memoizes the violations of the most recently validated
// selection, indexed by every affected component. A nil fingerprint means
// nothing has been validated yet; any fingerprint mismatch discards the
// whole cache, there is no partial invalidation.
type validationCache struct {
	fingerprint []string
	byComponent map[string][]*Violation
}

func (c *validationCache) reset(fingerprint []string) {
	c.fingerprint = fingerprint
	c.byComponent = make(map[string][]*Violation)
}

func (c *validationCache) hit(fingerprint []string) bool {
	return c.fingerprint != nil && slices.Equal(c.fingerprint, fingerprint)
}

func (c *validationCache) record(v *Violation) {
	for _, p := range v.Affected {
		k := p.Key()
		c.byComponent[k] = append(c.byComponent[k], v)
	}
}

// flatten returns every cached violation exactly once, in deterministic
// order. A violation indexed under several affected components is deduped
// by object identity.
func (c *validationCache) flatten() []*Violation {
	keys := make([]string, 0, len(c.byComponent))
	for k := range c.byComponent {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[*Violation]struct{})
	var out []*Violation
	for _, k := range keys {
		for _, v := range c.byComponent[k] {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
