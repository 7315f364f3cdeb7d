package rules

import (
	"fmt"
	"strings"
)

// Compact rule notation.
//
// A record may carry `"rule": "ModA(1,2)&ModB(3):ModC(-)"` instead of
// explicit source/target fields. Sides are separated by ':'; a side is one
// or more component sets joined with '&' (all sets required) or '|' (any
// set suffices, the default); a set is "Mod(k1,k2,...)" for specific
// components or "Mod(-)" for the whole mod. Dependency and order rules
// take exactly two sides; incompatibility rules accept two or more and
// expand into one record per side pair.

// componentSet is a set of components from a single mod. A nil key list
// denotes the whole mod.
type componentSet struct {
	modID    string
	compKeys []string
}

// refStrings renders the set as canonical reference strings.
func (cs componentSet) refStrings() []string {
	if cs.compKeys == nil {
		return []string{cs.modID + ":*"}
	}
	out := make([]string, 0, len(cs.compKeys))
	for _, k := range cs.compKeys {
		out = append(out, cs.modID+":"+k)
	}
	return out
}

// parseComponentSet parses "Mod(1,2,...)" or "Mod(-)".
func parseComponentSet(text string) (componentSet, error) {
	text = strings.TrimSpace(text)

	modID, rest, found := strings.Cut(text, "(")
	if !found || !strings.HasSuffix(rest, ")") {
		return componentSet{}, fmt.Errorf("invalid component set %q", text)
	}
	modID = strings.TrimSpace(modID)
	if modID == "" {
		return componentSet{}, fmt.Errorf("invalid component set %q", text)
	}

	inner := strings.TrimSpace(strings.TrimSuffix(rest, ")"))
	if inner == "-" {
		return componentSet{modID: modID}, nil
	}

	var keys []string
	for _, part := range strings.Split(inner, ",") {
		if part = strings.TrimSpace(part); part != "" {
			keys = append(keys, part)
		}
	}
	if len(keys) == 0 {
		return componentSet{}, fmt.Errorf("component set %q has no components", text)
	}
	return componentSet{modID: modID, compKeys: keys}, nil
}

// sideExpression is one side of a compact rule: component sets and the
// operator joining them.
type sideExpression struct {
	sets []componentSet
	op   Mode
}

// parseSideExpression parses "ModA(1,2)&ModB(3)" or "ModC(-)|ModD(5,6)".
func parseSideExpression(text string) (sideExpression, error) {
	text = strings.TrimSpace(text)

	hasAnd := strings.Contains(text, "&")
	hasOr := strings.Contains(text, "|")
	if hasAnd && hasOr {
		return sideExpression{}, fmt.Errorf("cannot mix & and | in side %q", text)
	}

	op, delim := ModeAny, "|"
	if hasAnd {
		op, delim = ModeAll, "&"
	}

	var sets []componentSet
	for _, part := range strings.Split(text, delim) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		cs, err := parseComponentSet(part)
		if err != nil {
			return sideExpression{}, err
		}
		sets = append(sets, cs)
	}
	if len(sets) == 0 {
		return sideExpression{}, fmt.Errorf("empty side expression %q", text)
	}
	return sideExpression{sets: sets, op: op}, nil
}

// inject writes the side into a record as either a flat reference list or
// component groups. Groups are needed only when sets must all be satisfied
// ('&'); sets joined with '|' flatten into one list, which carries the same
// any-semantics.
func (se sideExpression) inject(rec *Record, side string) {
	if se.op == ModeAll {
		groups := make([]GroupRecord, 0, len(se.sets))
		for _, cs := range se.sets {
			groups = append(groups, GroupRecord{Components: cs.refStrings(), Operator: string(ModeAny)})
		}
		if side == "source" {
			rec.SourceGroups = groups
		} else {
			rec.TargetGroups = groups
		}
		return
	}

	var flat []any
	for _, cs := range se.sets {
		for _, s := range cs.refStrings() {
			flat = append(flat, s)
		}
	}
	if side == "source" {
		rec.Source = flat
	} else {
		rec.Target = flat
	}
}

// expandExpression turns a record carrying compact notation into one or
// more plain records with explicit sides.
func expandExpression(rec Record, t Type) ([]Record, error) {
	var sides []sideExpression
	for _, raw := range strings.Split(rec.Rule, ":") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		side, err := parseSideExpression(raw)
		if err != nil {
			return nil, err
		}
		sides = append(sides, side)
	}
	if len(sides) < 2 {
		return nil, fmt.Errorf("expression %q needs at least 2 sides", rec.Rule)
	}

	base := rec
	base.Rule = ""
	base.Source, base.Target = nil, nil
	base.SourceGroups, base.TargetGroups = nil, nil

	if t == TypeIncompatibility {
		// Every side pair conflicts. One record per pair suffices: the
		// index finds incompatibility rules from either side.
		var out []Record
		for i := 0; i < len(sides); i++ {
			for j := i + 1; j < len(sides); j++ {
				r := base
				sides[i].inject(&r, "source")
				sides[j].inject(&r, "target")
				out = append(out, r)
			}
		}
		return out, nil
	}

	if len(sides) != 2 {
		return nil, fmt.Errorf("%s expression %q must have exactly 2 sides", t, rec.Rule)
	}
	r := base
	sides[0].inject(&r, "source")
	sides[1].inject(&r, "target")
	return []Record{r}, nil
}
