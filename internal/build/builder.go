// Package build compiles services: full concurrent builds, incremental
// rebuilds of the services touched by a change set and a debounced queue fed
// by the file watcher.
package build

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"devpilot/internal/config"
	"devpilot/internal/constants"
	"devpilot/internal/errors"
	"devpilot/internal/events"
	"devpilot/internal/logger"
	"devpilot/internal/manifest"
	"devpilot/internal/runner"
)

// Installer installs a node project's dependencies
type Installer interface {
	InstallForPath(ctx context.Context, dir, name string) error
}

// skipDirs are never descended into when collecting sources
var skipDirs = map[string]bool{
	constants.NodeModules: true,
	".git":                true,
	"__pycache__":         true,
	".venv":               true,
	"venv":                true,
	"vendor":              true,
}

// Builder builds configured services
type Builder struct {
	cfg  *config.Config
	bus  *events.Bus
	run  runner.Runner
	deps Installer

	building atomic.Bool

	mu    sync.Mutex
	queue []string
	timer *time.Timer
}

// New creates a builder
func New(cfg *config.Config, bus *events.Bus, run runner.Runner, deps Installer) *Builder {
	return &Builder{cfg: cfg, bus: bus, run: run, deps: deps}
}

// IsBuilding reports whether a full build is in flight
func (b *Builder) IsBuilding() bool {
	return b.building.Load()
}

// FullBuild builds every configured service concurrently. A call made while
// another full build is running is logged and ignored.
func (b *Builder) FullBuild(ctx context.Context) error {
	if !b.building.CompareAndSwap(false, true) {
		logger.Info("Build already in progress, skipping")
		return nil
	}
	defer b.building.Store(false)

	names := make([]string, len(b.cfg.Services))
	for i, svc := range b.cfg.Services {
		names[i] = svc.Name
	}

	start := time.Now()
	b.bus.Publish(events.BuildStarted{Services: names})
	logger.WithField("services", len(names)).Info("Starting full build")

	var (
		mu     sync.Mutex
		failed []string
		first  error
	)
	var g errgroup.Group
	for _, svc := range b.cfg.Services {
		g.Go(func() error {
			svcStart := time.Now()
			if err := b.BuildComponent(ctx, svc); err != nil {
				b.bus.Publish(events.ComponentBuildFailed{Service: svc.Name, Error: err.Error()})
				mu.Lock()
				failed = append(failed, svc.Name)
				if first == nil {
					first = err
				}
				mu.Unlock()
				return nil
			}
			b.bus.Publish(events.ComponentBuilt{Service: svc.Name, Duration: time.Since(svcStart)})
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		slices.Sort(failed)
		err := errors.WrapWithDetails(errors.ErrBuildFailed, "Full build failed",
			fmt.Sprintf("Services: %s", strings.Join(failed, ", ")), first)
		b.bus.Publish(events.BuildFailed{Failed: failed, Error: err.Error()})
		logger.WithError(err).Error("Full build failed")
		return err
	}

	b.bus.Publish(events.BuildCompleted{Built: len(names), Duration: time.Since(start)})
	logger.WithField("duration", time.Since(start).String()).Info("Full build completed")
	return nil
}

// AffectedServices returns, in configuration order, the services whose
// directory contains at least one of files. Relative paths are resolved
// against the project root.
func (b *Builder) AffectedServices(files []string) []config.ServiceDescriptor {
	var affected []config.ServiceDescriptor
	for _, svc := range b.cfg.Services {
		dir := b.cfg.ServiceDir(svc)
		if slices.ContainsFunc(files, func(f string) bool { return within(dir, b.resolve(f)) }) {
			affected = append(affected, svc)
		}
	}
	return affected
}

func (b *Builder) resolve(file string) string {
	if filepath.IsAbs(file) {
		return filepath.Clean(file)
	}
	return filepath.Join(b.cfg.Project.Root, file)
}

// within reports whether path is dir or lies below it
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// IncrementalBuild rebuilds, one after another, only the services touched by
// files. A failing service is reported and the rest still build. It returns
// the names of the affected services.
func (b *Builder) IncrementalBuild(ctx context.Context, files []string) []string {
	affected := b.AffectedServices(files)
	names := make([]string, 0, len(affected))

	for _, svc := range affected {
		names = append(names, svc.Name)
		if err := b.BuildComponent(ctx, svc); err != nil {
			logger.WithError(err).WithField("service", svc.Name).Error("Incremental build failed")
			b.bus.Publish(events.IncrementalBuildFailed{Service: svc.Name, Error: err.Error()})
			continue
		}
		b.bus.Publish(events.ComponentBuilt{Service: svc.Name})
	}

	b.bus.Publish(events.IncrementalBuildCompleted{
		Files:            slices.Clone(files),
		AffectedServices: names,
	})
	logger.WithFields(logger.Fields{
		"files":    len(files),
		"services": names,
	}).Info("Incremental build completed")
	return names
}

// BuildComponent builds one service according to its runtime
func (b *Builder) BuildComponent(ctx context.Context, svc config.ServiceDescriptor) error {
	dir := b.cfg.ServiceDir(svc)
	log := logger.WithFields(logger.Fields{"service": svc.Name, "runtime": string(svc.Runtime)})
	log.Debug("Building service")

	var err error
	switch svc.Runtime {
	case config.RuntimeNode:
		err = b.buildNode(ctx, svc.Name, dir)
	case config.RuntimePython:
		err = b.buildPython(ctx, dir)
	case config.RuntimePHP:
		err = b.buildPHP(ctx, dir)
	default:
		return errors.UnknownRuntime(svc.Name, string(svc.Runtime))
	}
	if err != nil {
		return errors.BuildFailed(svc.Name, err)
	}

	log.Info("Service built")
	return nil
}

// buildNode skips directories without a package.json, where npm would
// otherwise climb to the nearest parent manifest
func (b *Builder) buildNode(ctx context.Context, name, dir string) error {
	if !manifest.Exists(dir) {
		return nil
	}
	if err := b.deps.InstallForPath(ctx, dir, name); err != nil {
		return err
	}
	m, err := manifest.Load(dir)
	if err != nil {
		return err
	}
	if !m.HasScript("build") {
		return nil
	}
	_, err = b.run.Run(ctx, runner.New(dir, constants.NPM, "run", "build"))
	return err
}

func (b *Builder) buildPython(ctx context.Context, dir string) error {
	files, err := sourceFiles(dir, ".py")
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := b.run.Run(ctx, runner.New(dir, constants.Python, "-m", "py_compile", f)); err != nil {
			return fmt.Errorf("syntax error in %s: %w", f, err)
		}
	}

	if fileExists(filepath.Join(dir, constants.Requirements)) {
		if _, err := b.run.Run(ctx, runner.New(dir, constants.Pip, "install", "-r", constants.Requirements)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildPHP(ctx context.Context, dir string) error {
	files, err := sourceFiles(dir, ".php")
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := b.run.Run(ctx, runner.New(dir, constants.PHP, "-l", f)); err != nil {
			return fmt.Errorf("parse error in %s: %w", f, err)
		}
	}
	return nil
}

// sourceFiles lists files with ext under dir, relative to dir, in lexical order
func sourceFiles(dir, ext string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ext {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return files, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
