// Package tester runs unit, end-to-end, integration and coverage stages.
package tester

import (
	"context"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"devpilot/internal/config"
	"devpilot/internal/constants"
	"devpilot/internal/errors"
	"devpilot/internal/events"
	"devpilot/internal/logger"
	"devpilot/internal/manifest"
	"devpilot/internal/runner"
)

type (
	ResultSet  = events.TestResults
	UnitResult = events.UnitResult
	E2EResult  = events.E2EResult
)

// HealthChecker probes one service's health endpoint
type HealthChecker interface {
	PerformHealthCheck(ctx context.Context, svc config.ServiceDescriptor) events.HealthCheckResult
}

var (
	// nyc/istanbul text-summary: "Lines        : 85.5% ( 171/200 )"
	summaryLines = regexp.MustCompile(`Lines\s*:\s*([0-9]+(?:\.[0-9]+)?)\s*%`)
	// istanbul text table: "All files | %Stmts | %Branch | %Funcs | %Lines |"
	tableLines = regexp.MustCompile(`All files\s*\|\s*[0-9.]+\s*\|\s*[0-9.]+\s*\|\s*[0-9.]+\s*\|\s*([0-9]+(?:\.[0-9]+)?)`)
)

// Tester orchestrates the test stages
type Tester struct {
	cfg    *config.Config
	bus    *events.Bus
	run    runner.Runner
	health HealthChecker

	testing atomic.Bool
}

// New creates a tester
func New(cfg *config.Config, bus *events.Bus, run runner.Runner, health HealthChecker) *Tester {
	return &Tester{cfg: cfg, bus: bus, run: run, health: health}
}

// IsTesting reports whether a full test run is in flight
func (t *Tester) IsTesting() bool {
	return t.testing.Load()
}

// RunAllTests runs unit tests, the e2e suite, integration health checks and
// the coverage gate, in that order. A run requested while another is in
// flight is logged and ignored. E2E failure and coverage below target are
// fatal; unit and health failures are only recorded.
func (t *Tester) RunAllTests(ctx context.Context) (ResultSet, error) {
	if !t.testing.CompareAndSwap(false, true) {
		logger.Info("Tests already running, skipping")
		return ResultSet{}, nil
	}
	defer t.testing.Store(false)

	t.bus.Publish(events.TestsStarted{})
	logger.Info("Running test suite")

	results := ResultSet{Unit: t.RunUnitTests(ctx)}

	fail := func(err error) (ResultSet, error) {
		t.bus.Publish(events.TestsFailed{Results: results, Error: err.Error()})
		logger.WithError(err).Error("Test suite failed")
		return results, err
	}

	if !t.cfg.Test.SkipE2E {
		e2e, err := t.RunE2ETests(ctx)
		results.E2E = e2e
		if err != nil {
			return fail(err)
		}
	}

	results.Integration = t.RunIntegrationTests(ctx)

	if !t.cfg.Test.SkipCoverage {
		pct, err := t.CalculateCoverage(ctx)
		switch {
		case err != nil:
			logger.WithError(err).Warn("Coverage calculation failed")
			t.bus.Publish(events.CoverageWarning{Error: err.Error()})
		default:
			results.Coverage = &pct
			if target := t.cfg.Test.CoverageTarget; pct < target {
				return fail(errors.CoverageBelowTarget(pct, target))
			}
		}
	}

	t.bus.Publish(events.TestsCompleted{Results: results})
	logger.Info("Test suite passed")
	return results, nil
}

// RunUnitTests runs `npm test` for every node service declaring a test script.
// A failing service does not stop the others.
func (t *Tester) RunUnitTests(ctx context.Context) map[string]UnitResult {
	results := make(map[string]UnitResult)
	for _, svc := range t.cfg.Services {
		if svc.Runtime != config.RuntimeNode {
			continue
		}
		dir := t.cfg.ServiceDir(svc)
		if !manifest.Exists(dir) {
			continue
		}
		m, err := manifest.Load(dir)
		if err != nil {
			logger.WithError(err).WithField("service", svc.Name).Warn("Skipping unit tests")
			continue
		}
		if !m.HasScript("test") {
			continue
		}

		out, err := t.run.Run(ctx, runner.New(dir, constants.NPM, "test"))
		if err != nil {
			results[svc.Name] = UnitResult{Status: events.TestFailed, Output: out, Error: err.Error(), Timestamp: time.Now()}
			t.bus.Publish(events.UnitTestFailed{Service: svc.Name, Error: err.Error()})
			logger.WithError(err).WithField("service", svc.Name).Warn("Unit tests failed")
			continue
		}
		results[svc.Name] = UnitResult{Status: events.TestPassed, Output: out, Timestamp: time.Now()}
		t.bus.Publish(events.UnitTestPassed{Service: svc.Name})
	}
	return results
}

// RunE2ETests invokes the end-to-end runner from the project root. A non-zero
// exit is returned as an error.
func (t *Tester) RunE2ETests(ctx context.Context) (*E2EResult, error) {
	line := t.cfg.Test.E2ECommand
	if len(line) == 0 {
		return nil, errors.InvalidInput("test.e2e_command", "a command line")
	}

	start := time.Now()
	t.bus.Publish(events.E2EStarted{Command: line})
	logger.WithField("command", line).Info("Running e2e tests")

	out, err := t.run.Run(ctx, runner.New(t.cfg.Project.Root, line[0], line[1:]...))
	if err != nil {
		wrapped := errors.E2EFailed(err)
		t.bus.Publish(events.E2EFailed{Error: wrapped.Error()})
		return &E2EResult{Status: events.TestFailed, Output: out, Error: wrapped.Error(), Timestamp: time.Now()}, wrapped
	}

	t.bus.Publish(events.E2ECompleted{Duration: time.Since(start)})
	return &E2EResult{Status: events.TestPassed, Output: out, Timestamp: time.Now()}, nil
}

// RunIntegrationTests health-checks every port-bearing service. Unhealthy
// services are recorded, never fatal.
func (t *Tester) RunIntegrationTests(ctx context.Context) []events.HealthCheckResult {
	if t.health == nil {
		return nil
	}
	var results []events.HealthCheckResult
	for _, svc := range t.cfg.PortServices() {
		res := t.health.PerformHealthCheck(ctx, svc)
		if !res.Healthy() {
			logger.WithFields(logger.Fields{"service": svc.Name, "error": res.Error}).Warn("Integration check unhealthy")
		}
		results = append(results, res)
	}
	return results
}

// CalculateCoverage runs the coverage reporter and extracts the line coverage
func (t *Tester) CalculateCoverage(ctx context.Context) (float64, error) {
	line := t.cfg.Test.CoverageCommand
	if len(line) == 0 {
		return 0, errors.CoverageUnavailable(errors.InvalidInput("test.coverage_command", "a command line"))
	}

	out, err := t.run.Run(ctx, runner.New(t.cfg.Project.Root, line[0], line[1:]...))
	if err != nil {
		return 0, errors.CoverageUnavailable(err)
	}

	pct, err := ParseCoverage(out)
	if err != nil {
		return 0, err
	}
	t.bus.Publish(events.CoverageCalculated{Percent: pct, Target: t.cfg.Test.CoverageTarget})
	return pct, nil
}

// ParseCoverage extracts the line coverage percentage from a coverage report
func ParseCoverage(output string) (float64, error) {
	for _, re := range []*regexp.Regexp{summaryLines, tableLines} {
		if m := re.FindStringSubmatch(output); m != nil {
			pct, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return 0, errors.CoverageUnavailable(err)
			}
			return pct, nil
		}
	}
	return 0, errors.CoverageUnavailable(errors.New(errors.ErrCoverageUnknown, "no line coverage in reporter output"))
}
