package engine

import (
	"github.com/vk/modplango/internal/ref"
	"github.com/vk/modplango/internal/rules"
)

// Violation records one unsatisfied rule. Rule points into the loaded rule
// set (never a copy), Affected lists every component the violation touches:
// the selected components that triggered it plus, for dependency rules,
// the missing or candidate targets. Consumers treat violations as
// read-only; rendering them into user-facing text is the caller's job.
type Violation struct {
	Rule     *rules.Rule
	Affected []ref.Pair
}

// Severity is the severity of the violated rule.
func (v *Violation) Severity() rules.Severity {
	return v.Rule.Severity
}
