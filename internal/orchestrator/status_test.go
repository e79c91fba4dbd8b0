package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devpilot/internal/events"
	"devpilot/internal/service"
	"devpilot/internal/tester"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fold(s Status, evs ...events.Event) Status {
	for i, e := range evs {
		s = Reduce(s, e, t0.Add(time.Duration(i)*time.Second))
	}
	return s
}

func TestReduce_BuildLifecycle(t *testing.T) {
	s := fold(NewStatus(),
		events.BuildStarted{Services: []string{"api", "web"}},
		events.ComponentBuildFailed{Service: "web", Error: "exit 1"},
		events.BuildFailed{Failed: []string{"web"}, Error: "build failed"},
	)
	assert.False(t, s.Building)
	assert.Zero(t, s.BuildCount)
	assert.Nil(t, s.LastBuild)
	require.Len(t, s.Errors, 2)
	assert.Equal(t, ErrorLogEntry{Type: "build", Message: "exit 1", Service: "web", Timestamp: t0.Add(time.Second)}, s.Errors[0])

	s = fold(s, events.BuildStarted{}, events.BuildCompleted{Built: 2})
	assert.Equal(t, 1, s.BuildCount)
	require.NotNil(t, s.LastBuild)
	assert.Equal(t, t0.Add(time.Second), *s.LastBuild)
}

func TestReduce_BuildQueue(t *testing.T) {
	s := fold(NewStatus(),
		events.BuildQueued{File: "a.js", Pending: 1},
		events.BuildQueued{File: "b.js", Pending: 2},
		events.BuildQueued{File: "a.js", Pending: 2},
	)
	assert.Equal(t, []string{"a.js", "b.js"}, s.BuildQueue)

	s = fold(s,
		events.BuildQueueFlushed{Files: []string{"a.js", "b.js"}},
		events.IncrementalBuildCompleted{Files: []string{"a.js", "b.js"}, AffectedServices: []string{"api"}},
	)
	assert.Empty(t, s.BuildQueue)
	assert.Equal(t, 1, s.BuildCount)
}

func TestReduce_Tests(t *testing.T) {
	cov := 91.5
	results := tester.ResultSet{
		Unit:     map[string]tester.UnitResult{"api": {Status: events.TestPassed}},
		Coverage: &cov,
	}
	s := fold(NewStatus(), events.TestsStarted{})
	assert.True(t, s.Testing)

	s = fold(s, events.TestsCompleted{Results: results})
	assert.False(t, s.Testing)
	assert.Equal(t, 1, s.TestCount)
	require.NotNil(t, s.TestResults)
	assert.Equal(t, 91.5, *s.TestResults.Coverage)

	// the snapshot does not alias the event payload
	results.Unit["api"] = tester.UnitResult{Status: events.TestFailed}
	cov = 10
	assert.Equal(t, events.TestPassed, s.TestResults.Unit["api"].Status)
	assert.Equal(t, 91.5, *s.TestResults.Coverage)

	s = fold(s, events.TestsStarted{}, events.TestsFailed{Error: "e2e failed"})
	assert.Equal(t, 2, s.TestCount)
	require.Len(t, s.Errors, 1)
	assert.Equal(t, "tests", s.Errors[0].Type)
}

func TestReduce_ServiceLifecycle(t *testing.T) {
	s := fold(NewStatus(),
		events.ServiceStarting{Service: "api"},
		events.ServiceStarted{Service: "api", PID: 7, Port: 3000},
	)
	assert.Equal(t, ServiceStatus{Status: service.StatusRunning, PID: 7, Port: 3000, UpdatedAt: t0.Add(time.Second)}, s.Services["api"])

	s = Reduce(s, events.ServiceRestarting{Service: "api"}, t0)
	assert.Equal(t, service.StatusRestarting, s.Services["api"].Status)
	assert.Equal(t, 7, s.Services["api"].PID)

	s = fold(s, events.ServiceStopping{Service: "api"}, events.ServiceStopped{Service: "api"})
	assert.Equal(t, service.StatusStopped, s.Services["api"].Status)
	assert.Zero(t, s.Services["api"].PID)

	s = fold(s, events.ServiceStartFailed{Service: "web", Error: "timeout"})
	assert.Equal(t, service.StatusStopped, s.Services["web"].Status)
	require.Len(t, s.Errors, 1)
	assert.Equal(t, "web", s.Errors[0].Service)
}

func TestReduce_HealthChecksMerge(t *testing.T) {
	s := fold(NewStatus(),
		events.HealthCheckCompleted{Results: []events.HealthCheckResult{
			{Service: "api", Status: events.Healthy},
			{Service: "web", Status: events.Unhealthy, Error: "refused"},
		}},
		events.HealthCheckCompleted{Results: []events.HealthCheckResult{
			{Service: "web", Status: events.Healthy},
		}},
	)
	assert.Len(t, s.HealthChecks, 2)
	assert.True(t, s.HealthChecks["web"].Healthy())
}

func TestReduce_ErrorSources(t *testing.T) {
	s := fold(NewStatus(),
		events.InstallFailed{Target: "root", Error: "ladder exhausted"},
		events.ConfigureFailed{Error: "read-only"},
		events.IncrementalBuildFailed{Service: "api", Error: "syntax"},
		events.UnitTestFailed{Service: "api", Error: "1 failing"},
		events.E2EFailed{Error: "cypress"},
		events.CoverageWarning{Error: "no summary"},
		events.DeploymentFailed{DeployID: "deploy-1", Error: "rejected"},
		events.AutoFixStepFailed{Step: "lint", Error: "eslint missing"},
		events.FileFixFailed{Path: "a.js", Error: "denied"},
		events.ServiceRestartFailed{Service: "api", Error: "port in use"},
		events.FullCycleFailed{Stage: "build", Error: "boom"},
		events.CommandFailed{Command: "nope", Error: "unknown"},
	)

	var kinds []string
	for _, e := range s.Errors {
		kinds = append(kinds, e.Type)
	}
	assert.Equal(t, []string{
		"install", "configure", "incremental-build", "unit-test", "e2e", "coverage",
		"deployment", "autofix", "autofix", "service-restart", "full-cycle", "command",
	}, kinds)
	assert.Equal(t, "lint: eslint missing", s.Errors[7].Message)
	assert.Equal(t, "build: boom", s.Errors[10].Message)
}

func TestReduce_Counts(t *testing.T) {
	s := fold(NewStatus(),
		events.DeploymentStarted{DeployID: "d1"},
		events.DeploymentCompleted{DeployID: "d1", Committed: true},
		events.DeploymentSkipped{Reason: "auto-push disabled"},
	)
	assert.Equal(t, 1, s.DeployCount)
}

func TestReduce_DoesNotModifyInput(t *testing.T) {
	base := fold(NewStatus(),
		events.BuildQueued{File: "a.js"},
		events.ServiceStarted{Service: "api", PID: 1},
		events.E2EFailed{Error: "first"},
	)
	before := base.Clone()

	_ = fold(base,
		events.BuildQueued{File: "b.js"},
		events.ServiceStopped{Service: "api"},
		events.E2EFailed{Error: "second"},
		events.HealthCheckCompleted{Results: []events.HealthCheckResult{{Service: "api"}}},
	)

	assert.Equal(t, before, base)
}

func TestReduce_IgnoresInformationalEvents(t *testing.T) {
	s := NewStatus()
	for _, e := range []events.Event{
		events.InstallStarted{},
		events.ComponentBuilt{Service: "api"},
		events.E2EStarted{},
		events.CoverageCalculated{Percent: 90, Target: 80},
		events.FullCycleStage{Stage: "build"},
		events.AutoFixCompleted{},
	} {
		assert.Equal(t, s, Reduce(s, e, t0))
	}
}
