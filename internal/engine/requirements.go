package engine

import (
	"github.com/vk/modplango/internal/ref"
	"github.com/vk/modplango/internal/rules"
)

// Requirements returns the dependency targets of one component. The
// non-recursive form lists the direct targets, mod-level wildcards
// included. The recursive form expands transitively, with an in-progress
// guard so dependency cycles terminate, and expands mod-level targets
// through every component the rule set knows for that mod.
func (e *Engine) Requirements(mod, comp string, recursive bool) map[ref.Pair]struct{} {
	out := make(map[ref.Pair]struct{})
	e.collectRequirements(mod, comp, recursive, make(map[string]struct{}), out)
	return out
}

func (e *Engine) collectRequirements(mod, comp string, recursive bool, visiting map[string]struct{}, out map[ref.Pair]struct{}) {
	key := ref.New(mod, comp).String()
	if _, ok := visiting[key]; ok {
		return
	}
	visiting[key] = struct{}{}

	for _, r := range e.index.ForComponent(mod, comp) {
		if r.Type != rules.TypeDependency {
			continue
		}
		for _, t := range r.Targets {
			out[ref.Pair{Mod: t.ModID, Comp: t.CompKey}] = struct{}{}
			if !recursive {
				continue
			}
			if t.IsMod() {
				for _, known := range e.index.KnownComponents(t.ModID) {
					out[ref.Pair{Mod: t.ModID, Comp: known}] = struct{}{}
					e.collectRequirements(t.ModID, known, true, visiting, out)
				}
			} else {
				e.collectRequirements(t.ModID, t.CompKey, true, visiting, out)
			}
		}
	}
}
