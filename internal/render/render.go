// Package render turns structured violations into user-facing text. The
// engine never formats messages itself; callers pick a formatter, which
// keeps localization and presentation concerns out of the resolution core.
package render

import (
	"fmt"
	"strings"

	"github.com/vk/modplango/internal/engine"
	"github.com/vk/modplango/internal/ref"
	"github.com/vk/modplango/internal/rules"
)

// Formatter renders one violation into a display line.
type Formatter func(*engine.Violation) string

// Text returns the default English formatter.
func Text() Formatter {
	return formatText
}

func formatText(v *engine.Violation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", v.Severity())

	switch v.Rule.Type {
	case rules.TypeDependency:
		if v.Rule.Mode == rules.ModeAny {
			fmt.Fprintf(&b, "%s requires at least one of: %s", pairString(v.Affected[0]), refList(v.Rule.Targets))
		} else {
			fmt.Fprintf(&b, "%s requires: %s", pairString(v.Affected[0]), refList(v.Rule.Targets))
		}
	case rules.TypeIncompatibility:
		fmt.Fprintf(&b, "incompatible components selected: %s", pairList(v.Affected))
	case rules.TypeOrder:
		verb := "before"
		if v.Rule.Direction == rules.DirectionAfter {
			verb = "after"
		}
		// Order violations always carry the offending (source, target) pair.
		fmt.Fprintf(&b, "%s must be installed %s %s", pairString(v.Affected[0]), verb, pairString(v.Affected[1]))
	}

	if v.Rule.Description != "" {
		fmt.Fprintf(&b, " (%s)", v.Rule.Description)
	}
	return b.String()
}

func pairString(p ref.Pair) string {
	if p.Comp == ref.Wildcard {
		return p.Mod
	}
	return p.Mod + ":" + p.Comp
}

func pairList(pairs []ref.Pair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, pairString(p))
	}
	return strings.Join(parts, ", ")
}

func refList(refs []ref.Reference) string {
	parts := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.IsMod() {
			parts = append(parts, r.ModID)
			continue
		}
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}
