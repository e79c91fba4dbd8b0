// Package deps installs node dependencies with an escalating retry ladder.
package deps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"devpilot/internal/config"
	"devpilot/internal/constants"
	"devpilot/internal/errors"
	"devpilot/internal/events"
	"devpilot/internal/logger"
	"devpilot/internal/manifest"
	"devpilot/internal/runner"
)

// RootTarget names the project root in events and errors
const RootTarget = "root"

// strategy is one rung of the install ladder
type strategy struct {
	name string
	run  func(ctx context.Context, m *Manager, dir string) error
}

// ladder is attempted in order; each rung runs only after the previous failed
var ladder = []strategy{
	{name: "standard", run: npmInstall()},
	{name: "legacy-peer-deps", run: npmInstall("--legacy-peer-deps")},
	{name: "force", run: npmInstall("--force")},
	{name: "clean-reinstall", run: cleanReinstall},
}

func npmInstall(flags ...string) func(ctx context.Context, m *Manager, dir string) error {
	args := append([]string{"install"}, flags...)
	return func(ctx context.Context, m *Manager, dir string) error {
		_, err := m.run.Run(ctx, runner.New(dir, constants.NPM, args...))
		return err
	}
}

// cleanReinstall clears the npm cache, deletes the lock file and the
// dependency directory, then reinstalls with relaxed peer resolution
func cleanReinstall(ctx context.Context, m *Manager, dir string) error {
	if _, err := m.run.Run(ctx, runner.New(dir, constants.NPM, "cache", "clean", "--force")); err != nil {
		logger.WithError(err).WithField("path", dir).Warn("npm cache clean failed, continuing")
	}
	for _, name := range []string{constants.PackageLock, constants.NodeModules} {
		if err := os.RemoveAll(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return npmInstall("--legacy-peer-deps")(ctx, m, dir)
}

// Manager installs dependencies for the project root and its node services
type Manager struct {
	cfg *config.Config
	bus *events.Bus
	run runner.Runner
}

// New creates a dependency manager
func New(cfg *config.Config, bus *events.Bus, run runner.Runner) *Manager {
	return &Manager{cfg: cfg, bus: bus, run: run}
}

// InstallDependencies installs the root project's dependencies, then those
// of every node service that has a manifest. The first failure aborts.
func (m *Manager) InstallDependencies(ctx context.Context) error {
	type target struct{ name, dir string }

	var targets []target
	if manifest.Exists(m.cfg.Project.Root) {
		targets = append(targets, target{RootTarget, m.cfg.Project.Root})
	}
	for _, svc := range m.cfg.Services {
		if svc.Runtime != config.RuntimeNode {
			continue
		}
		dir := m.cfg.ServiceDir(svc)
		if !manifest.Exists(dir) {
			continue
		}
		targets = append(targets, target{svc.Name, dir})
	}

	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.name
	}

	start := time.Now()
	m.bus.Publish(events.InstallStarted{Targets: names})

	for _, t := range targets {
		if err := m.InstallForPath(ctx, t.dir, t.name); err != nil {
			m.bus.Publish(events.InstallFailed{Target: t.name, Error: err.Error()})
			return err
		}
	}

	m.bus.Publish(events.InstallCompleted{Targets: names, Duration: time.Since(start)})
	logger.WithFields(logger.Fields{
		"targets":  len(names),
		"duration": time.Since(start).String(),
	}).Info("Dependencies installed")
	return nil
}

// InstallForPath walks the install ladder for the project in dir. Only the
// failure of the last rung is returned.
func (m *Manager) InstallForPath(ctx context.Context, dir, name string) error {
	log := logger.WithFields(logger.Fields{"target": name, "path": dir})

	var lastErr error
	for _, s := range ladder {
		log.WithField("strategy", s.name).Debug("Installing dependencies")

		lastErr = s.run(ctx, m, dir)
		if lastErr == nil {
			log.WithField("strategy", s.name).Info("Dependencies installed")
			return nil
		}

		log.WithError(lastErr).WithField("strategy", s.name).Warn("Install strategy failed")
		m.bus.Publish(events.InstallStrategyFailed{
			Target:   name,
			Path:     dir,
			Strategy: s.name,
			Error:    lastErr.Error(),
		})
	}
	return errors.InstallFailed(name, lastErr)
}

// Strategies returns the ladder rung names in order
func Strategies() []string {
	names := make([]string, len(ladder))
	for i, s := range ladder {
		names[i] = s.name
	}
	return names
}
