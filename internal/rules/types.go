// Package rules defines the declarative constraint model: dependency,
// incompatibility and order rules, the tolerant loader that normalizes raw
// rule documents into that model, and the lookup index built once per load.
//
// Why one struct instead of a type per rule kind?
//
// The three rule kinds share almost everything (severity, endpoints,
// description); only a couple of payload fields differ. A single struct
// with a kind tag keeps dispatch to a plain switch, which the compiler can
// check for exhaustiveness, and lets violations carry a rule pointer
// without an interface in between.
package rules

import (
	"github.com/vk/modplango/internal/ref"
)

// Type discriminates the rule kinds.
type Type string

const (
	TypeDependency      Type = "dependency"
	TypeIncompatibility Type = "incompatibility"
	TypeOrder           Type = "order"
)

// Severity is the weight of a rule violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// parseSeverity maps a raw severity string to a Severity. Absent or
// unrecognized values fall back to SeverityError.
func parseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityError, SeverityWarning, SeverityInfo:
		return Severity(s)
	default:
		return SeverityError
	}
}

// Mode states how a set of references must be satisfied.
type Mode string

const (
	// ModeAny is satisfied when at least one reference matches.
	ModeAny Mode = "any"
	// ModeAll is satisfied only when every reference matches.
	ModeAll Mode = "all"
)

// Direction orients an explicit order rule.
type Direction string

const (
	// DirectionBefore means sources must be installed before targets.
	DirectionBefore Direction = "before"
	// DirectionAfter means sources must be installed after targets.
	DirectionAfter Direction = "after"
)

// Rule is one immutable declarative constraint. Sources and Targets are
// never empty; SourceGroups and TargetGroups are optional refinements that,
// when present, replace the flat list semantics for their side.
type Rule struct {
	Type     Type
	Severity Severity

	Sources []ref.Reference
	Targets []ref.Reference

	SourceGroups []Group
	TargetGroups []Group

	Description string
	SourceURL   string

	// Dependency payload.
	Mode          Mode
	ImplicitOrder bool

	// Order payload.
	Direction Direction
}

// Group is a set of references with its own satisfaction operator. A side
// expressed as groups is satisfied when every one of its groups matches.
type Group struct {
	Components []ref.Reference
	Operator   Mode
}

// Matches reports whether the group is satisfied, given a predicate that
// answers whether a single reference matches the current selection.
func (g Group) Matches(matches func(ref.Reference) bool) bool {
	if g.Operator == ModeAll {
		for _, c := range g.Components {
			if !matches(c) {
				return false
			}
		}
		return true
	}
	for _, c := range g.Components {
		if matches(c) {
			return true
		}
	}
	return false
}

// Missing returns the group components the predicate rejects.
func (g Group) Missing(matches func(ref.Reference) bool) []ref.Reference {
	var missing []ref.Reference
	for _, c := range g.Components {
		if !matches(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Matched returns the group components the predicate accepts.
func (g Group) Matched(matches func(ref.Reference) bool) []ref.Reference {
	var matched []ref.Reference
	for _, c := range g.Components {
		if matches(c) {
			matched = append(matched, c)
		}
	}
	return matched
}
