// Package ref defines the canonical address of a mod, of a single
// component of a mod, or of a wildcard over a mod's components.
//
// Why a dedicated reference type?
//
// Every other part of the engine asks the same question over and over:
// "does this rule endpoint apply to this component?". Concentrating the
// matching predicate here, with mod-id case folding applied exactly once at
// construction, keeps wildcard and case semantics out of the rule loader,
// the indexes, and the validators entirely.
package ref

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard is the component key that matches any component of a mod.
const Wildcard = "*"

// ErrMalformed is returned by Parse for strings that do not follow the
// "mod", "mod:comp" or "mod:*" forms.
var ErrMalformed = errors.New("malformed reference")

// Reference is an immutable address of a whole mod ("mod:*") or of a
// single component ("mod:comp"). ModID is always lower case.
type Reference struct {
	ModID   string
	CompKey string
}

// New builds a reference, folding the mod id to lower case. An empty
// component key denotes a mod-level reference and is stored as Wildcard.
func New(modID, compKey string) Reference {
	if compKey == "" {
		compKey = Wildcard
	}
	return Reference{ModID: strings.ToLower(modID), CompKey: compKey}
}

// ForMod returns the mod-level reference "modID:*".
func ForMod(modID string) Reference {
	return New(modID, Wildcard)
}

// Parse accepts "mod", "mod:comp" and "mod:*". A bare mod id is a
// mod-level reference.
func Parse(s string) (Reference, error) {
	if s == "" {
		return Reference{}, fmt.Errorf("%w: empty string", ErrMalformed)
	}
	if strings.Count(s, ":") > 1 {
		return Reference{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	modID, compKey, found := strings.Cut(s, ":")
	if !found {
		compKey = Wildcard
	}
	if modID == "" || compKey == "" {
		return Reference{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	return New(modID, compKey), nil
}

// String renders the canonical "mod:comp" form. Parse round-trips it.
func (r Reference) String() string {
	return r.ModID + ":" + r.CompKey
}

// IsMod reports whether the reference addresses a whole mod.
func (r Reference) IsMod() bool {
	return r.CompKey == Wildcard
}

// Matches reports whether the reference applies to the given concrete
// component. A mod-level reference matches every component of its mod;
// mod ids compare case-insensitively, component keys exactly.
func (r Reference) Matches(modID, compKey string) bool {
	if r.ModID != strings.ToLower(modID) {
		return false
	}
	return r.IsMod() || r.CompKey == compKey
}

// Pair is a concrete (mod, component) identifier as supplied by the
// caller. Unlike Reference it preserves the caller's original casing, so
// identifiers reported back read the way the user wrote them; Key is the
// case-folded form used for matching and map keys.
type Pair struct {
	Mod  string
	Comp string
}

// Key returns the case-folded "mod:comp" form used for matching.
func (p Pair) Key() string {
	return strings.ToLower(p.Mod) + ":" + p.Comp
}

// Ref converts the pair into a matching reference.
func (p Pair) Ref() Reference {
	return New(p.Mod, p.Comp)
}

// Less orders pairs lexicographically by case-folded mod id, then by
// component key. Every deterministic ordering in the engine goes through
// this comparison.
func (p Pair) Less(q Pair) bool {
	pm, qm := strings.ToLower(p.Mod), strings.ToLower(q.Mod)
	if pm != qm {
		return pm < qm
	}
	return p.Comp < q.Comp
}
