package rules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vk/modplango/internal/ctxlog"
	"github.com/vk/modplango/internal/fsutil"
	"github.com/vk/modplango/internal/ref"
)

// Record is the on-disk shape of a single rule. Source and Target accept a
// plain reference string, a {mod, component} object, or a list mixing both
// forms; Rule optionally carries the compact expression notation that
// expands into one or more records.
type Record struct {
	Rule          string        `json:"rule" yaml:"rule"`
	Source        any           `json:"source" yaml:"source"`
	Target        any           `json:"target" yaml:"target"`
	SourceGroups  []GroupRecord `json:"source_groups" yaml:"source_groups"`
	TargetGroups  []GroupRecord `json:"target_groups" yaml:"target_groups"`
	Severity      string        `json:"severity" yaml:"severity"`
	Description   string        `json:"description" yaml:"description"`
	SourceURL     string        `json:"source_url" yaml:"source_url"`
	Mode          string        `json:"mode" yaml:"mode"`
	ImplicitOrder *bool         `json:"implicit_order" yaml:"implicit_order"`
	Direction     string        `json:"direction" yaml:"direction"`
}

// GroupRecord is the on-disk shape of a component group.
type GroupRecord struct {
	Components []string `json:"components" yaml:"components"`
	Operator   string   `json:"operator" yaml:"operator"`
}

// Document is the top-level shape of a rule file.
type Document struct {
	Rules []Record `json:"rules" yaml:"rules"`
}

// Set holds the three rule categories of a fully loaded rule directory.
type Set struct {
	Dependencies      []Rule
	Incompatibilities []Rule
	Order             []Rule
}

// Load normalizes a batch of raw records into rules of the given category.
// A record that cannot be normalized is dropped with an error log while the
// rest of the batch continues loading; loading never aborts a whole batch
// for one bad record.
func Load(ctx context.Context, records []Record, t Type) []Rule {
	logger := ctxlog.FromContext(ctx)

	out := make([]Rule, 0, len(records))
	skipped := 0
	for _, rec := range records {
		expanded := []Record{rec}
		if rec.Rule != "" {
			var err error
			expanded, err = expandExpression(rec, t)
			if err != nil {
				logger.Error("Skipping rule with invalid expression.", "expression", rec.Rule, "error", err)
				skipped++
				continue
			}
		}

		for _, exp := range expanded {
			rule, err := buildRule(exp, t)
			if err != nil {
				logger.Error("Skipping malformed rule record.", "type", string(t), "error", err)
				skipped++
				continue
			}
			out = append(out, rule)
		}
	}

	if skipped > 0 {
		logger.Warn("Some rule records were skipped.", "type", string(t), "skipped", skipped)
	}
	return out
}

// buildRule normalizes one raw record into a Rule.
func buildRule(rec Record, t Type) (Rule, error) {
	rule := Rule{
		Type:        t,
		Severity:    parseSeverity(rec.Severity),
		Description: rec.Description,
		SourceURL:   rec.SourceURL,
	}

	var err error
	if rule.Sources, rule.SourceGroups, err = parseSide(rec.Source, rec.SourceGroups, "source"); err != nil {
		return Rule{}, err
	}
	if rule.Targets, rule.TargetGroups, err = parseSide(rec.Target, rec.TargetGroups, "target"); err != nil {
		return Rule{}, err
	}

	switch t {
	case TypeDependency:
		rule.Mode = ModeAny
		if rec.Mode != "" {
			if rule.Mode, err = parseMode(rec.Mode); err != nil {
				return Rule{}, err
			}
		}
		rule.ImplicitOrder = true
		if rec.ImplicitOrder != nil {
			rule.ImplicitOrder = *rec.ImplicitOrder
		}
	case TypeOrder:
		rule.Direction = DirectionBefore
		if rec.Direction != "" {
			if rule.Direction, err = parseDirection(rec.Direction); err != nil {
				return Rule{}, err
			}
		}
	case TypeIncompatibility:
		// No extra payload.
	default:
		return Rule{}, fmt.Errorf("unknown rule type %q", t)
	}

	return rule, nil
}

// parseSide resolves one endpoint of a record. A side comes either as a
// flat RefSpec or as component groups; groups take precedence and their
// components are flattened into the side's reference list so the index
// still finds the rule by any of them.
func parseSide(spec any, groups []GroupRecord, name string) ([]ref.Reference, []Group, error) {
	if len(groups) > 0 {
		parsed := make([]Group, 0, len(groups))
		var flat []ref.Reference
		for _, g := range groups {
			if len(g.Components) == 0 {
				return nil, nil, fmt.Errorf("%s group with empty component list", name)
			}
			group := Group{Operator: ModeAny}
			if g.Operator != "" {
				op, err := parseMode(g.Operator)
				if err != nil {
					return nil, nil, fmt.Errorf("%s group: %w", name, err)
				}
				group.Operator = op
			}
			for _, c := range g.Components {
				r, err := ref.Parse(c)
				if err != nil {
					return nil, nil, fmt.Errorf("%s group: %w", name, err)
				}
				group.Components = append(group.Components, r)
			}
			parsed = append(parsed, group)
			flat = append(flat, group.Components...)
		}
		return flat, parsed, nil
	}

	if spec == nil {
		return nil, nil, fmt.Errorf("missing required field %q", name)
	}
	refs, err := parseRefSpec(spec)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	return refs, nil, nil
}

// parseRefSpec normalizes the three accepted reference shapes into a
// non-empty reference list.
func parseRefSpec(spec any) ([]ref.Reference, error) {
	items, ok := spec.([]any)
	if !ok {
		items = []any{spec}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("reference list cannot be empty")
	}

	refs := make([]ref.Reference, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			r, err := ref.Parse(v)
			if err != nil {
				return nil, err
			}
			refs = append(refs, r)
		case map[string]any:
			mod, ok := v["mod"].(string)
			if !ok || mod == "" {
				return nil, fmt.Errorf("reference object missing 'mod' key: %v", v)
			}
			comp, _ := v["component"].(string)
			refs = append(refs, ref.New(mod, comp))
		default:
			return nil, fmt.Errorf("invalid reference spec of type %T", item)
		}
	}
	return refs, nil
}

func parseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAny, ModeAll:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

func parseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionBefore, DirectionAfter:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// LoadFile reads a single rule file, picking the codec by extension
// (.json, .yaml or .yml), and normalizes its records.
func LoadFile(ctx context.Context, path string, t Type) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}

	var doc Document
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode rule file %s: %w", path, err)
	}

	return Load(ctx, doc.Rules, t), nil
}

// categoryFiles maps each rule category to its base file name.
var categoryFiles = map[Type]string{
	TypeDependency:      "dependencies",
	TypeIncompatibility: "incompatibilities",
	TypeOrder:           "order",
}

// LoadDir loads the three rule categories from a directory. A missing or
// undecodable category file means "no rules of that category": it is logged
// and loading continues, mirroring the per-record partial-failure policy at
// the file level.
func LoadDir(ctx context.Context, dir string) Set {
	logger := ctxlog.FromContext(ctx)

	load := func(t Type) []Rule {
		base := filepath.Join(dir, categoryFiles[t])
		path := fsutil.FirstExisting(base+".json", base+".yaml", base+".yml")
		if path == "" {
			logger.Debug("No rule file for category, continuing without.", "type", string(t), "dir", dir)
			return nil
		}
		loaded, err := LoadFile(ctx, path, t)
		if err != nil {
			logger.Error("Failed to load rule file, continuing without.", "path", path, "error", err)
			return nil
		}
		logger.Debug("Rule file loaded.", "path", path, "count", len(loaded))
		return loaded
	}

	return Set{
		Dependencies:      load(TypeDependency),
		Incompatibilities: load(TypeIncompatibility),
		Order:             load(TypeOrder),
	}
}
