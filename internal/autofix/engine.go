// Package autofix applies broad and file-level remediation: lint and format
// fixes, package manifest repair, default config synthesis and audit fixes.
package autofix

import (
	"context"
	"path/filepath"
	"strings"

	"devpilot/internal/config"
	"devpilot/internal/constants"
	"devpilot/internal/events"
	"devpilot/internal/logger"
	"devpilot/internal/manifest"
	"devpilot/internal/runner"
)

// infraDevDependencies are added to every manifest that lacks them
var infraDevDependencies = []struct{ name, version string }{
	{"eslint", "^8.57.0"},
	{"prettier", "^3.3.0"},
	{"cypress", "^13.13.0"},
	{"nyc", "^17.0.0"},
}

// Report lists the sweep steps that succeeded and failed
type Report struct {
	Applied []string `json:"applied"`
	Failed  []string `json:"failed"`
}

// Engine runs remediation commands
type Engine struct {
	cfg   *config.Config
	bus   *events.Bus
	run   runner.Runner
	rules []Rule
}

// New creates an engine with the built-in rules
func New(cfg *config.Config, bus *events.Bus, run runner.Runner) *Engine {
	return &Engine{cfg: cfg, bus: bus, run: run, rules: defaultRules}
}

// Rules returns the ordered rule list
func (e *Engine) Rules() []Rule {
	return e.rules
}

// MapErrorToFix returns the command of the first rule matching message
func (e *Engine) MapErrorToFix(message string) (string, bool) {
	for _, r := range e.rules {
		if r.Pattern.MatchString(message) {
			return r.Command, true
		}
	}
	return "", false
}

// AutoFixIssues runs the whole remediation sweep in the project root.
// Failing steps are reported and skipped.
func (e *Engine) AutoFixIssues(ctx context.Context) Report {
	root := e.cfg.Project.Root
	e.bus.Publish(events.AutoFixStarted{})
	logger.WithField("root", root).Info("Running auto-fix sweep")

	steps := []struct {
		name string
		fn   func() error
	}{
		{"lint", func() error { return e.exec(ctx, root, constants.NPX, "eslint", ".", "--fix") }},
		{"format", func() error { return e.exec(ctx, root, constants.NPX, "prettier", "--write", ".") }},
		{"manifest", func() error { _, err := e.FixPackageJSONIssues(root); return err }},
		{"config", func() error { _, err := e.CreateMissingConfigs(root); return err }},
		{"audit", func() error { return e.auditFix(ctx, root) }},
	}

	report := Report{Applied: []string{}, Failed: []string{}}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			logger.WithError(err).WithField("step", step.name).Warn("Auto-fix step failed")
			e.bus.Publish(events.AutoFixStepFailed{Step: step.name, Error: err.Error()})
			report.Failed = append(report.Failed, step.name)
			continue
		}
		report.Applied = append(report.Applied, step.name)
	}

	e.bus.Publish(events.AutoFixCompleted{Applied: report.Applied, Failed: report.Failed})
	return report
}

// auditFix tries a regular audit fix, then a forced one
func (e *Engine) auditFix(ctx context.Context, dir string) error {
	if err := e.exec(ctx, dir, constants.NPM, "audit", "fix"); err != nil {
		logger.WithError(err).Debug("npm audit fix failed, retrying with --force")
		return e.exec(ctx, dir, constants.NPM, "audit", "fix", "--force")
	}
	return nil
}

func (e *Engine) exec(ctx context.Context, dir, name string, args ...string) error {
	_, err := e.run.Run(ctx, runner.New(dir, name, args...))
	return err
}

// AutoFixFile applies the fix matching the file's extension. Files of other
// types are left alone.
func (e *Engine) AutoFixFile(ctx context.Context, path string) error {
	root := e.cfg.Project.Root
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	var cmds []runner.Cmd
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs":
		cmds = []runner.Cmd{
			runner.New(root, constants.NPX, "eslint", "--fix", path),
			runner.New(root, constants.NPX, "prettier", "--write", path),
		}
	case ".json", ".css", ".scss", ".md", ".yml", ".yaml", ".html":
		cmds = []runner.Cmd{runner.New(root, constants.NPX, "prettier", "--write", path)}
	case ".py":
		cmds = []runner.Cmd{runner.New(root, constants.Python, "-m", "py_compile", path)}
	case ".php":
		cmds = []runner.Cmd{runner.New(root, constants.PHP, "-l", path)}
	default:
		return nil
	}

	actions := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		if _, err := e.run.Run(ctx, cmd); err != nil {
			logger.WithError(err).WithField("path", path).Warn("File fix failed")
			e.bus.Publish(events.FileFixFailed{Path: path, Error: err.Error()})
			return err
		}
		actions = append(actions, cmd.Line())
	}

	e.bus.Publish(events.FileFixed{Path: path, Actions: actions})
	return nil
}

// FixPackageJSONIssues declares any missing infrastructure dev dependency in
// the manifest in dir. Declared versions are never changed. A directory
// without a manifest is left alone.
func (e *Engine) FixPackageJSONIssues(dir string) ([]string, error) {
	if !manifest.Exists(dir) {
		return nil, nil
	}
	m, err := manifest.Load(dir)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, dep := range infraDevDependencies {
		if m.AddDevDependency(dep.name, dep.version) {
			added = append(added, dep.name)
		}
	}
	if len(added) == 0 {
		return nil, nil
	}
	if err := m.Save(); err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{"path": manifest.Path(dir), "added": added}).Info("Added missing dev dependencies")
	return added, nil
}
