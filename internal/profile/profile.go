// Package profile loads declarative profile files: the user's component
// selection plus an optional preferred installation order, written in HCL.
// A profile may span several files in a directory; mod blocks and base
// orders merge across all of them.
package profile

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modplango/internal/ctxlog"
	"github.com/vk/modplango/internal/fsutil"
	"github.com/vk/modplango/internal/ref"
)

// Profile is the merged content of one or more profile files.
type Profile struct {
	// Selection maps mod names, as written, to their chosen components.
	Selection map[string][]string

	// BaseOrder lists preferred "Mod:comp" entries in installation order.
	BaseOrder []ref.Pair
}

// hclProfileFile represents the top-level structure of a profile file for
// decoding.
type hclProfileFile struct {
	Mods      []*hclModBlock `hcl:"mod,block"`
	BaseOrder hcl.Expression `hcl:"base_order,optional"`
}

type hclModBlock struct {
	Name       string         `hcl:"name,label"`
	Components hcl.Expression `hcl:"components"`
}

// Load reads a profile from a single .hcl file or from every .hcl file
// under a directory.
func Load(ctx context.Context, path string) (*Profile, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile path %s: %w", path, err)
	}
	files := []string{path}
	if info.IsDir() {
		if files, err = fsutil.FindFilesByExtension(path, ".hcl"); err != nil {
			return nil, fmt.Errorf("failed to find profile files in %s: %w", path, err)
		}
	}

	profile := &Profile{Selection: make(map[string][]string)}
	if len(files) == 0 {
		logger.Warn("No .hcl profile files found in path, returning empty profile.", "path", path)
		return profile, nil
	}

	parser := hclparse.NewParser()
	for _, file := range files {
		if err := profile.mergeFile(file, parser); err != nil {
			return nil, err
		}
	}

	logger.Debug("Profile loaded.", "files", len(files), "mods", len(profile.Selection), "base_order", len(profile.BaseOrder))
	return profile, nil
}

func (p *Profile) mergeFile(filePath string, parser *hclparse.Parser) error {
	hclFile, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse profile file %s: %s", filePath, diags.Error())
	}

	var parsed hclProfileFile
	if diags = gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return fmt.Errorf("failed to decode profile file %s: %s", filePath, diags.Error())
	}

	for _, mod := range parsed.Mods {
		comps, err := stringList(mod.Components, "components")
		if err != nil {
			return fmt.Errorf("%s: mod %q: %w", filePath, mod.Name, err)
		}
		p.Selection[mod.Name] = append(p.Selection[mod.Name], comps...)
	}

	if baseOrderPresent(parsed.BaseOrder) {
		entries, err := stringList(parsed.BaseOrder, "base_order")
		if err != nil {
			return fmt.Errorf("%s: %w", filePath, err)
		}
		for _, entry := range entries {
			// Casing is kept as written; the engine folds where it matters.
			mod, comp, ok := strings.Cut(entry, ":")
			if !ok || mod == "" || comp == "" {
				return fmt.Errorf("%s: base_order entry %q is not of the form \"Mod:component\"", filePath, entry)
			}
			p.BaseOrder = append(p.BaseOrder, ref.Pair{Mod: mod, Comp: comp})
		}
	}

	return nil
}

// baseOrderPresent reports whether the optional base_order attribute was
// written in the file. gohcl fills an absent optional attribute with a
// null literal expression, never a nil interface, so the expression has
// to be evaluated to tell. An unevaluable expression counts as present so
// stringList gets to report it.
func baseOrderPresent(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return true
	}
	return !val.IsNull()
}

// stringList evaluates an attribute that must be a literal list of
// strings. Profiles carry no variables, so a nil eval context suffices.
func stringList(expr hcl.Expression, name string) ([]string, error) {
	if len(expr.Variables()) > 0 {
		return nil, fmt.Errorf("%s must be a literal list of strings", name)
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid %s value: %s", name, diags.Error())
	}

	ty := val.Type()
	if !ty.IsTupleType() && !ty.IsListType() {
		return nil, fmt.Errorf("%s must be a list of strings", name)
	}

	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		if v.Type() != cty.String {
			return nil, fmt.Errorf("%s elements must be strings", name)
		}
		out = append(out, v.AsString())
	}
	return out, nil
}
