// Package rulecheck validates rule documents against an embedded CUE
// schema. It is a pre-flight tool for rule authors: strict where the
// engine's loader is tolerant, and entirely independent of it. A file
// that fails here would still load, minus its malformed records.
package rulecheck

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/vk/modplango/internal/ctxlog"
)

//go:embed schema.cue
var schemaSource []byte

// Issue is one problem found in a rule file.
type Issue struct {
	File    string
	Path    string
	Message string
}

func (i Issue) String() string {
	if i.Path != "" {
		return fmt.Sprintf("%s: %s: %s", i.File, i.Path, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.File, i.Message)
}

// Check validates the given rule files against the document schema and
// returns every issue found, per file and per path. A file that cannot be
// read or parsed yields a single issue; checking continues with the
// remaining files either way. The returned error covers only schema
// compilation itself.
func Check(ctx context.Context, paths ...string) ([]Issue, error) {
	logger := ctxlog.FromContext(ctx)

	cctx := cuecontext.New()
	schema := cctx.CompileBytes(schemaSource)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile embedded schema: %w", err)
	}
	document := schema.LookupPath(cue.ParsePath("#Document"))
	if err := document.Err(); err != nil {
		return nil, fmt.Errorf("schema definition #Document not found: %w", err)
	}

	var issues []Issue
	for _, path := range paths {
		found := checkFile(cctx, document, path)
		issues = append(issues, found...)
		logger.Debug("Rule file checked.", "path", path, "issues", len(found))
	}
	return issues, nil
}

// checkFile builds a CUE value from one rule file and unifies it with the
// document schema. JSON compiles directly (CUE is a superset); YAML goes
// through the encoding bridge.
func checkFile(cctx *cue.Context, document cue.Value, path string) []Issue {
	data, err := os.ReadFile(path)
	if err != nil {
		return []Issue{{File: path, Message: err.Error()}}
	}

	var value cue.Value
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		file, err := cueyaml.Extract(path, data)
		if err != nil {
			return []Issue{{File: path, Message: err.Error()}}
		}
		value = cctx.BuildFile(file)
	default:
		value = cctx.CompileBytes(data, cue.Filename(path))
	}
	if err := value.Err(); err != nil {
		return issuesFrom(path, err)
	}

	if err := document.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return issuesFrom(path, err)
	}
	return nil
}

// issuesFrom expands a CUE error into one issue per underlying error,
// each qualified with the path to the offending value.
func issuesFrom(path string, err error) []Issue {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return []Issue{{File: path, Message: err.Error()}}
	}

	issues := make([]Issue, 0, len(errs))
	for _, e := range errs {
		cuePath := strings.Join(cueerrors.Path(e), ".")
		msg := e.Error()
		// CUE tends to repeat the path inside the message.
		if cuePath != "" {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, cuePath), ":"))
		}
		issues = append(issues, Issue{File: path, Path: cuePath, Message: msg})
	}
	return issues
}
