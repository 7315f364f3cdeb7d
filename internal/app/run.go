package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/vk/modplango/internal/ctxlog"
	"github.com/vk/modplango/internal/fsutil"
	"github.com/vk/modplango/internal/profile"
	"github.com/vk/modplango/internal/ref"
	"github.com/vk/modplango/internal/rulecheck"
	"github.com/vk/modplango/internal/rulefetch"
	"github.com/vk/modplango/internal/rules"
)

// Run executes the configured mode. A non-nil error means the run failed
// or, for validation modes, that error-level problems were found.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "mode", string(a.config.Mode))

	// check and fetch operate on rule files directly, before any engine.
	switch a.config.Mode {
	case ModeCheck:
		return a.runCheck(ctx)
	case ModeFetch:
		return a.runFetch(ctx)
	}

	set := rules.LoadDir(ctx, a.config.RulesDir)
	a.engine.Load(ctx, set)

	switch a.config.Mode {
	case ModeOrder:
		return a.runOrder(ctx)
	case ModeRequirements:
		return a.runRequirements(ctx)
	default:
		return a.runValidate(ctx)
	}
}

func (a *App) runValidate(ctx context.Context) error {
	prof, err := profile.Load(ctx, a.config.ProfilePath)
	if err != nil {
		return err
	}

	violations := a.engine.ValidateSelection(ctx, prof.Selection)
	errorCount := 0
	for _, v := range violations {
		fmt.Fprintln(a.outW, a.format(v))
		if v.Severity() == rules.SeverityError {
			errorCount++
		}
	}
	if errorCount > 0 {
		return fmt.Errorf("selection has %d error-level violations", errorCount)
	}

	a.logger.Info("Selection is valid.", "mods", len(prof.Selection), "warnings", len(violations))
	return nil
}

func (a *App) runOrder(ctx context.Context) error {
	prof, err := profile.Load(ctx, a.config.ProfilePath)
	if err != nil {
		return err
	}

	order := a.engine.GenerateOrder(ctx, prof.Selection, prof.BaseOrder)
	for _, p := range order {
		fmt.Fprintln(a.outW, pairString(p))
	}

	a.logger.Info("Installation order generated.", "entries", len(order))
	return nil
}

func (a *App) runCheck(ctx context.Context) error {
	var paths []string
	for _, base := range []string{"dependencies", "incompatibilities", "order"} {
		stem := filepath.Join(a.config.RulesDir, base)
		if path := fsutil.FirstExisting(stem+".json", stem+".yaml", stem+".yml"); path != "" {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 {
		a.logger.Warn("No rule files found to check.", "dir", a.config.RulesDir)
		return nil
	}

	issues, err := rulecheck.Check(ctx, paths...)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		fmt.Fprintln(a.outW, issue.String())
	}
	if len(issues) > 0 {
		return fmt.Errorf("rule files have %d schema issues", len(issues))
	}

	a.logger.Info("Rule files are valid.", "files", len(paths))
	return nil
}

func (a *App) runFetch(ctx context.Context) error {
	return rulefetch.New(a.config.FetchURL, a.config.RulesDir).FetchAll(ctx)
}

func (a *App) runRequirements(ctx context.Context) error {
	target, err := ref.Parse(a.config.Requirement)
	if err != nil {
		return fmt.Errorf("invalid component reference %q: %w", a.config.Requirement, err)
	}

	reqs := a.engine.Requirements(target.ModID, target.CompKey, a.config.Recursive)
	sorted := make([]ref.Pair, 0, len(reqs))
	for p := range reqs {
		sorted = append(sorted, p)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	for _, p := range sorted {
		fmt.Fprintln(a.outW, pairString(p))
	}

	a.logger.Info("Requirements resolved.", "reference", target.String(), "count", len(sorted), "recursive", a.config.Recursive)
	return nil
}

func pairString(p ref.Pair) string {
	if p.Comp == ref.Wildcard {
		return p.Mod
	}
	return p.Mod + ":" + p.Comp
}
